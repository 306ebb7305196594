package sess

import (
	"errors"
	"net"

	"github.com/lybxkl/simq/broker/core/message"
)

// ErrDuplicateConnect 客户端标识已有活动会话。
// 新连接上不回复任何报文，旧会话不受影响。
var ErrDuplicateConnect = errors.New("sess: client id already has an active session")

// Manager 会话管理者。一个客户端标识至多一个活动会话。
type Manager interface {
	// Connect 以cMsg为该连接注册新会话。cMsg的客户端标识已在线时
	// 返回 ErrDuplicateConnect，不建立会话。
	Connect(conn net.Conn, cMsg *message.ConnectMessage) (Session, error)

	// DisconnectByConn 解除该连接的会话：先清除其全部订阅条目，
	// 再关闭连接，最后移除会话。未知连接为空操作。幂等。
	DisconnectByConn(conn net.Conn)

	// LookupByConn 按连接查会话
	LookupByConn(conn net.Conn) (Session, bool)

	// Lookup 按客户端标识查会话
	Lookup(id string) (Session, bool)

	Exist(id string) bool

	// Close 解除所有会话并关闭其连接
	Close() error
}

// Session 会话。独占其连接，会话解除时连接随之关闭。
type Session interface {
	// ID 客户端标识，原样字节转string
	ID() string

	// CMsg 建立会话的CONNECT报文
	CMsg() *message.ConnectMessage

	CleanSession() bool

	// SessionPresent CONNACK中回显的会话存在标志，取连接时的cleanSession位
	SessionPresent() bool

	// Conn 会话独占的连接
	Conn() net.Conn

	// OnlineTime 会话建立时间，unix秒
	OnlineTime() int64
}
