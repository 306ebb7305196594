package core

import (
	sess "github.com/lybxkl/simq/broker/core/session"
	"github.com/lybxkl/simq/broker/core/topic"
	"github.com/lybxkl/simq/common/log"
)

type core struct {
	tm  topic.Manager
	ssm sess.Manager
}

// Close 停用全局管理者，进程退出前调用
func Close() error {
	if Core == nil {
		return nil
	}
	return Core.Close()
}

// Close 先解除全部会话（会话解除会触发订阅清理），再关主题管理者
func (c *core) Close() error {
	if err := c.ssm.Close(); err != nil {
		log.Log.Errorf("core: session manager close err %+v", err)
	}
	if err := c.tm.Close(); err != nil {
		log.Log.Errorf("core: topic manager close err %+v", err)
	}
	return nil
}
