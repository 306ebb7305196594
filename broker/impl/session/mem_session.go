package sess

import (
	"fmt"
	"net"
	"time"

	"github.com/lybxkl/simq/broker/core/message"
	sess "github.com/lybxkl/simq/broker/core/session"
)

// 客户端会话，内存态。连接归会话独占。
type session struct {
	sid string // == 客户端id

	// cMsg是连接消息
	cMsg *message.ConnectMessage
	// cbuf是连接消息缓冲区，会话持有报文的独立副本
	cbuf []byte

	conn net.Conn

	// CONNACK回显值，取连接时的cleanSession位
	sessionPresent bool

	onlineTime int64
}

var _ sess.Session = (*session)(nil)

func newMemSession(conn net.Conn, cMsg *message.ConnectMessage) (*session, error) {
	cbuf := make([]byte, cMsg.Len())

	if _, err := cMsg.Encode(cbuf); err != nil {
		return nil, err
	}

	cp := message.NewConnectMessage()
	if _, err := cp.Decode(cbuf); err != nil {
		return nil, err
	}

	return &session{
		sid:            string(cp.ClientId()),
		cMsg:           cp,
		cbuf:           cbuf,
		conn:           conn,
		sessionPresent: cp.CleanSession(),
		onlineTime:     time.Now().Unix(),
	}, nil
}

func (s *session) ID() string {
	return s.sid
}

func (s *session) CMsg() *message.ConnectMessage {
	return s.cMsg
}

func (s *session) CleanSession() bool {
	return s.cMsg.CleanSession()
}

func (s *session) SessionPresent() bool {
	return s.sessionPresent
}

func (s *session) Conn() net.Conn {
	return s.conn
}

func (s *session) OnlineTime() int64 {
	return s.onlineTime
}

func (s *session) String() string {
	return fmt.Sprintf("session[%s, clean=%t, present=%t]", s.sid, s.CleanSession(), s.sessionPresent)
}
