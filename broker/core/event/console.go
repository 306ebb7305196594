package event

import (
	sess "github.com/lybxkl/simq/broker/core/session"
	"github.com/lybxkl/simq/common/log"
)

// ConsoleListener 把事件打到日志，便于联调排查
type ConsoleListener struct{}

var _ Listener = (*ConsoleListener)(nil)

func (ConsoleListener) OnClientConnect(s sess.Session) {
	log.Log.Infof("event: client %q connected", s.ID())
}

func (ConsoleListener) OnClientDisconnect(s sess.Session) {
	log.Log.Infof("event: client %q disconnected", s.ID())
}

func (ConsoleListener) OnTopicSubscribed(topic []byte, count int) {
	log.Log.Infof("event: topic %q subscribed, %d subscriber(s)", topic, count)
}

func (ConsoleListener) OnMessagePublished(topic []byte, qos byte, payload []byte) {
	log.Log.Debugf("event: published to %q, qos %d, %d byte(s)", topic, qos, len(payload))
}
