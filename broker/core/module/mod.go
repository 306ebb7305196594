package module

import (
	"go.uber.org/atomic"

	"github.com/lybxkl/simq/broker/core/message"
)

type Option func()

// Mod 可插拔模块。服务端每处理完一个报文都会交给已注册模块的Hand，
// Hand在连接的处理协程里同步执行，不要阻塞。
type Mod interface {
	Hand(msg message.Message, opt ...Option) error
	Open() error
	Stop() error
}

// BaseMod 嵌入它可以少写空方法
type BaseMod struct {
	open atomic.Bool
}

func (b *BaseMod) Hand(msg message.Message, opt ...Option) error {
	return nil
}

func (b *BaseMod) Open() error {
	b.open.Store(true)
	return nil
}

func (b *BaseMod) Stop() error {
	b.open.Store(false)
	return nil
}

func (b *BaseMod) IsOpen() bool {
	return b.open.Load()
}
