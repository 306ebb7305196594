package service

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lybxkl/simq/broker/core"
	"github.com/lybxkl/simq/broker/core/message"
	"github.com/lybxkl/simq/broker/core/module/stat"
	sess "github.com/lybxkl/simq/broker/core/session"
	"github.com/lybxkl/simq/broker/core/topic"
	. "github.com/lybxkl/simq/common/log"
)

// errDisconnect 客户端发来DISCONNECT，走正常下线，不打错误日志
var errDisconnect = errors.New("disconnect")

// processor 单连接的读-解码-分发循环，连接的生命周期内只有这一个协程在读。
// 循环退出即释放连接资源。
func (svc *service) processor() {
	defer func() {
		if r := recover(); r != nil {
			Log.Errorf("(%s) recovering from panic: %v", svc.cid(), r)
		}
		svc.stop()
	}()

	Log.Debugf("(%s) processor started", svc.cid())

	for {
		if svc.isDone() {
			return
		}

		// 入口限速
		svc.sign.Pace()

		msg, n, err := svc.in.ReadMessage(svc.cid())
		if err != nil {
			// 对端正常断开或本端主动关闭都不算异常
			if err != io.EOF && !errors.Is(err, net.ErrClosed) && !svc.isDone() {
				Log.Errorf("(%s) read message: %v", svc.cid(), err)
			}
			return
		}

		svc.inStat.Incr(uint64(n))
		stat.AddRecv(uint64(n))
		Log.Debugf("(%s) received %s", svc.cid(), msg.Name())

		if err = svc.processIncoming(msg); err != nil {
			if err != errDisconnect {
				Log.Errorf("(%s) process %s: %v", svc.cid(), msg.Name(), err)
			}
			return
		}

		svc.middlewareHandle(msg)
		svc.server.handMods(msg)
	}
}

// processIncoming 按连接状态分发报文。返回非nil错误时断开连接。
func (svc *service) processIncoming(msg message.Message) error {
	if svc.state.Load() != stateConnected {
		// 会话建立前只接受CONNECT，其余报文忽略
		cMsg, ok := msg.(*message.ConnectMessage)
		if !ok {
			Log.Debugf("(%s) %s before CONNECT, ignored", svc.cid(), msg.Name())
			return nil
		}
		return svc.processConnect(cMsg)
	}

	switch m := msg.(type) {
	case *message.ConnectMessage:
		// 会话内重复CONNECT直接忽略
		Log.Debugf("(%s) duplicate CONNECT ignored", svc.cid())

	case *message.PublishMessage:
		return svc.processPublish(m)

	case *message.SubscribeMessage:
		return svc.processSubscribe(m)

	case *message.PubackMessage:
		// 不跟踪下行qos1的确认
		Log.Debugf("(%s) puback id=%d ignored", svc.cid(), m.PacketId())

	case *message.PingreqMessage:
		_, err := svc.writeMessage(message.NewPingrespMessage())
		return err

	case *message.DisconnectMessage:
		return errDisconnect

	default:
		Log.Debugf("(%s) %s not handled, ignored", svc.cid(), msg.Name())
	}

	return nil
}

func (svc *service) processConnect(cMsg *message.ConnectMessage) error {
	s, err := core.SessionManager().Connect(svc.conn, cMsg)
	if err != nil {
		if err == sess.ErrDuplicateConnect {
			// 同标识已在线：本连接不回包、不建会话，旧会话不动
			Log.Infof("(%s) client id %q already online, CONNECT ignored", svc.cid(), cMsg.ClientId())
			return nil
		}
		Log.Errorf("(%s) session connect: %v", svc.cid(), err)
		return nil
	}

	svc.sessVal.Store(s)
	svc.ccid.Store(fmt.Sprintf("simq-%d/%s", svc.id, s.ID()))

	// 会话在管理器落位即算建立，CONNACK送达与否由stop的下线事件兜底
	svc.state.Store(stateConnected)
	svc.server.listeners.OnClientConnect(s)
	Log.Infof("(%s) client connected, sessionPresent=%v", svc.cid(), s.SessionPresent())

	connAck := message.NewConnackMessage()
	connAck.SetSessionPresent(s.SessionPresent())
	connAck.SetReturnCode(message.ConnectionAccepted)
	_, err = svc.writeMessage(connAck)
	return err
}

// processSubscribe 逐条登记订阅，失败的条目授予0x80，成功失败都占一个返回码，
// 最后以同一个报文标识符回一条SUBACK。
func (svc *service) processSubscribe(msg *message.SubscribeMessage) error {
	s := svc.session()
	topics := msg.Topics()
	qoss := msg.Qos()
	retCodes := make([]byte, 0, len(topics))

	for i, t := range topics {
		rq := qoss[i]
		if !message.ValidQos(rq) {
			retCodes = append(retCodes, message.QosFailure)
			continue
		}

		granted, count, first, err := core.TopicManager().Subscribe(topic.Sub{
			Topic: t,
			Qos:   rq,
		}, s.ID(), svc.onPub)
		if err != nil {
			Log.Errorf("(%s) subscribe %s: %v", svc.cid(), t, err)
			retCodes = append(retCodes, message.QosFailure)
			continue
		}

		retCodes = append(retCodes, granted)
		if first {
			svc.server.listeners.OnTopicSubscribed(t, count)
		}
	}

	subAck := message.NewSubackMessage()
	subAck.SetPacketId(msg.PacketId())
	if err := subAck.AddReturnCodes(retCodes); err != nil {
		return err
	}

	Log.Infof("(%s) client subscribe, topics: %s, return codes: %v", svc.cid(), topics, retCodes)
	_, err := svc.writeMessage(subAck)
	return err
}

// processPublish 需要时先回PUBACK，再向订阅者扇出。
// 确认的是接收动作，与投递结果无关。
func (svc *service) processPublish(msg *message.PublishMessage) error {
	if !message.ValidQos(msg.QoS()) {
		Log.Errorf("(%s) publish with invalid qos %d dropped", svc.cid(), msg.QoS())
		return nil
	}

	if msg.QoS() == message.QosAtLeastOnce {
		pubAck := message.NewPubackMessage()
		pubAck.SetPacketId(msg.PacketId())
		if _, err := svc.writeMessage(pubAck); err != nil {
			return err
		}
	}

	svc.server.fanout(svc.cid(), msg)
	svc.server.listeners.OnMessagePublished(msg.Topic(), msg.QoS(), msg.Payload())
	return nil
}

func (svc *service) middlewareHandle(msg message.Message) {
	for _, opt := range svc.server.middleware {
		canSkipErr, err := opt.Apply(msg)
		if err != nil {
			if canSkipErr {
				Log.Warnf("(%s) middleware deal msg %s err [skip] %v", svc.cid(), msg.Name(), err)
			} else {
				Log.Errorf("(%s) middleware deal msg %s err [no_skip] %v", svc.cid(), msg.Name(), err)
				break
			}
		}
	}
}
