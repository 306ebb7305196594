package memimpl

import (
	"github.com/lybxkl/simq/broker/core"
	sessimpl "github.com/lybxkl/simq/broker/impl/session"
	topicimpl "github.com/lybxkl/simq/broker/impl/topic"
)

func init() {
	topicManager := topicimpl.NewMemProvider()
	sessManager := sessimpl.NewMemManager(topicManager)

	core.InitCore(topicManager, sessManager)
}
