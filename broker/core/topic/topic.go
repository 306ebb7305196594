package topic

import (
	"github.com/lybxkl/simq/broker/core/message"
)

// OnPublishFunc 投递回调。由订阅方连接的服务实现，把消息写到该订阅者的连接上。
// 返回错误表示该订阅者的连接已不可写，调用方走断开路径，不中断其余订阅者。
type OnPublishFunc func(msg *message.PublishMessage) error

// Sub 订阅项。主题为精确匹配字符串，不解释通配符。
type Sub struct {
	Topic []byte // 主题
	Qos   byte   // 授予的qos，与请求值一致
}

// Manager 主题管理者。订阅条目按 (主题, 客户端标识) 去重。
type Manager interface {
	// Subscribe 新增订阅。重复订阅是幂等的，仍返回授予的qos。
	// first 为 true 表示本次产生了新条目，count 为该主题当前订阅者数。
	Subscribe(sub Sub, cid string, onPublish OnPublishFunc) (granted byte, count int, first bool, err error)

	// Unsubscribe 移除 (topic, cid) 订阅条目
	Unsubscribe(topic []byte, cid string) error

	// UnsubscribeAll 移除cid在所有主题下的订阅条目，会话销毁时调用
	UnsubscribeAll(cid string) error

	// Subscribers 获取主题的精确匹配订阅者。返回的切片在下一次调用前有效。
	Subscribers(topic []byte, subs *[]OnPublishFunc) error

	Close() error
}
