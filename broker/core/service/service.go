package service

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/atomic"

	"github.com/lybxkl/simq/broker/core"
	"github.com/lybxkl/simq/broker/core/message"
	"github.com/lybxkl/simq/broker/core/module/stat"
	"github.com/lybxkl/simq/broker/core/module/statistic"
	sess "github.com/lybxkl/simq/broker/core/session"
	. "github.com/lybxkl/simq/common/log"
	"github.com/lybxkl/simq/util/bufpool"
)

// 连接状态。资源释放只发生一次，由closed保证。
const (
	statePending   int32 = iota // 已接入，还没收到CONNECT
	stateConnected              // 会话已建立
	stateClosed                 // 资源已释放
)

var gsvcid = atomic.NewUint64(0)

type service struct {
	id     uint64 // 服务序号，与客户端标识无关
	server *Server

	conn net.Conn
	in   *stream
	sign *Sign

	// writeMessage互斥锁。同一连接的写操作串行化，
	// 订阅投递可能来自任意发布方的协程
	wmu sync.Mutex

	state  *atomic.Int32
	closed *atomic.Bool // stop只执行一次
	done   chan struct{}

	// 会话在收到合法CONNECT后才存在
	sessVal atomic.Value
	ccid    *atomic.String

	inStat  statistic.Stat
	outStat statistic.Stat
}

func (svc *service) cid() string {
	return svc.ccid.Load()
}

func (svc *service) session() sess.Session {
	if s, ok := svc.sessVal.Load().(sess.Session); ok {
		return s
	}
	return nil
}

func (svc *service) isDone() bool {
	select {
	case <-svc.done:
		return true
	default:
	}
	return false
}

// writeMessage 编码并写出一个报文
func (svc *service) writeMessage(msg message.Message) (int, error) {
	buf := bufpool.BufferPoolGet()
	defer bufpool.BufferPoolPut(buf)

	if _, err := msg.EncodeToBuf(buf); err != nil {
		return 0, fmt.Errorf("(%s) encode %s: %w", svc.cid(), msg.Name(), err)
	}

	svc.wmu.Lock()
	n, err := svc.conn.Write(buf.Bytes())
	svc.wmu.Unlock()
	if err != nil {
		return n, fmt.Errorf("(%s) write %s: %w", svc.cid(), msg.Name(), err)
	}

	svc.outStat.Incr(uint64(n))
	stat.AddSent(uint64(n))
	return n, nil
}

// onPub 有消息要投给本连接的订阅者时回调。写失败即断开该订阅者，
// 同一次扇出中的其他订阅者不受影响。
func (svc *service) onPub(msg *message.PublishMessage) error {
	if _, err := svc.writeMessage(msg); err != nil {
		Log.Errorf("(%s) deliver publish: %v", svc.cid(), err)
		stat.AddDropped(1)
		svc.stop()
		return err
	}
	return nil
}

// stop 释放连接资源，只生效一次：清订阅、关连接、除会话、出服务表
func (svc *service) stop() {
	if !svc.closed.CAS(false, true) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Log.Errorf("(%s) recovering from panic: %v", svc.cid(), r)
		}
	}()

	wasConnected := svc.state.Swap(stateClosed) == stateConnected
	close(svc.done)

	s := svc.session()
	if s != nil {
		// 断开顺序：先清订阅条目，再关连接，最后移除会话
		core.SessionManager().DisconnectByConn(svc.conn)
	} else {
		_ = svc.conn.Close()
	}

	svc.server.svcs.Del(svc.id)

	if wasConnected && s != nil {
		svc.server.listeners.OnClientDisconnect(s)
	}

	Log.Debugf("(%s) receive %s", svc.cid(), svc.inStat.String())
	Log.Debugf("(%s) send %s", svc.cid(), svc.outStat.String())
	if n := svc.sign.Throttled(); n > 0 {
		Log.Debugf("(%s) read throttled %d time(s)", svc.cid(), n)
	}
	Log.Debugf("(%s) service closed", svc.cid())
}
