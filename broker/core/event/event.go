package event

import (
	sess "github.com/lybxkl/simq/broker/core/session"
)

// Listener 观察者端口。回调在状态变更点同步调用，
// 实现方不应在回调里做耗时操作。
type Listener interface {
	OnClientConnect(s sess.Session)
	OnClientDisconnect(s sess.Session)
	// OnTopicSubscribed 首次产生 (主题, 客户端) 订阅条目时触发，count为该主题当前订阅者数
	OnTopicSubscribed(topic []byte, count int)
	// OnMessagePublished 每次发布都触发，与订阅者数量无关
	OnMessagePublished(topic []byte, qos byte, payload []byte)
}

// Listeners 组合监听器，按注册顺序逐个同步调用
type Listeners []Listener

var _ Listener = (Listeners)(nil)

func (ls Listeners) OnClientConnect(s sess.Session) {
	for _, l := range ls {
		l.OnClientConnect(s)
	}
}

func (ls Listeners) OnClientDisconnect(s sess.Session) {
	for _, l := range ls {
		l.OnClientDisconnect(s)
	}
}

func (ls Listeners) OnTopicSubscribed(topic []byte, count int) {
	for _, l := range ls {
		l.OnTopicSubscribed(topic, count)
	}
}

func (ls Listeners) OnMessagePublished(topic []byte, qos byte, payload []byte) {
	for _, l := range ls {
		l.OnMessagePublished(topic, qos, payload)
	}
}
