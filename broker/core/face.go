package core

import (
	"sync"

	sess "github.com/lybxkl/simq/broker/core/session"
	"github.com/lybxkl/simq/broker/core/topic"
)

type (
	Topic   = topic.Manager
	Session = sess.Manager
)

var (
	Core *core
	once = &sync.Once{}
)

func InitCore(p1 Topic, p2 Session) {
	once.Do(func() {
		Core = &core{
			tm:  p1,
			ssm: p2,
		}
	})
}

func TopicManager() Topic {
	return Core.tm
}

func SessionManager() Session {
	return Core.ssm
}
