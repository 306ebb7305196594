package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var _ Message = (*ConnectMessage)(nil)

// ConnectMessage After a Network Connection is established by a Client to a Server, the
// first Packet sent from the Client to the Server MUST be a CONNECT Packet.
//
// 可变报头按固定10字节处理：2字节协议名长度 + 4字节协议名 + 1字节协议级别 +
// 1字节连接标志 + 2字节保持连接。协议名、协议级别、保持连接只解析不校验，
// 连接标志只取bit1（清理会话）。载荷只取客户端标识符，遗嘱/用户名/密码不处理，
// 多出的字节由帧前进跳过。
type ConnectMessage struct {
	header

	// 7: username flag
	// 6: password flag
	// 5: will retain
	// 4-3: will QoS
	// 2: will flag
	// 1: clean session
	// 0: reserved
	connectFlags byte

	version byte

	keepAlive uint16

	protoName,
	clientId []byte
}

// NewConnectMessage creates a new CONNECT message.
func NewConnectMessage() *ConnectMessage {
	msg := &ConnectMessage{}
	_ = msg.SetType(CONNECT)
	msg.protoName = []byte("MQTT")
	msg.version = 0x4

	return msg
}

// String returns a string representation of the CONNECT message
func (connMsg ConnectMessage) String() string {
	return fmt.Sprintf("Header==>> %s, Variable header==>> \tProtocol Name=%s\tProtocol Version=%v\t"+
		"Connect Flags=%08b\tClean Session=%v\tKeepAlive=%v, 载荷==>> Client ID=%q",
		connMsg.header,
		connMsg.protoName,
		connMsg.version,
		connMsg.connectFlags,
		connMsg.CleanSession(),
		connMsg.keepAlive,
		connMsg.clientId,
	)
}

// Version returns the the 8 bit unsigned value that represents the revision level
// of the protocol used by the Client. The value of the Protocol Level field for
// the version 3.1.1 of the protocol is 4 (0x04). The value is carried as-is,
// nothing is rejected on a mismatch.
func (connMsg *ConnectMessage) Version() byte {
	return connMsg.version
}

// SetVersion sets the version value of the CONNECT message
func (connMsg *ConnectMessage) SetVersion(v byte) {
	connMsg.version = v
}

// CleanSession returns the bit that specifies the handling of the Session state.
// The Client and Server can store Session state to enable reliable messaging to
// continue across a sequence of Network Connections. This bit is used to control
// the lifetime of the Session state.
func (connMsg *ConnectMessage) CleanSession() bool {
	return ((connMsg.connectFlags >> 1) & 0x1) == 1
}

// SetCleanSession sets the bit that specifies the handling of the Session state.
func (connMsg *ConnectMessage) SetCleanSession(v bool) {
	if v {
		connMsg.connectFlags |= 0x2 // 00000010
	} else {
		connMsg.connectFlags &= 253 // 11111101
	}
}

// ConnectFlags returns the raw flags byte from the variable header.
func (connMsg *ConnectMessage) ConnectFlags() byte {
	return connMsg.connectFlags
}

// KeepAlive returns a time interval measured in seconds. Expressed as a 16-bit word,
// it is the maximum time interval that is permitted to elapse between the point at
// which the Client finishes transmitting one Control Packet and the point it starts
// sending the next. 只透传，服务端不按它断开空闲连接。
func (connMsg *ConnectMessage) KeepAlive() uint16 {
	return connMsg.keepAlive
}

// SetKeepAlive sets the time interval in which the server should keep the connection
// alive.
func (connMsg *ConnectMessage) SetKeepAlive(v uint16) {
	connMsg.keepAlive = v
}

// ClientId returns an ID that identifies the Client to the Server. Each Client
// connecting to the Server has a unique ClientId. The ClientId MUST be used by
// Clients and by Servers to identify state that they hold relating to connMsg MQTT
// Session between the Client and the Server
func (connMsg *ConnectMessage) ClientId() []byte {
	return connMsg.clientId
}

// SetClientId sets an ID that identifies the Client to the Server.
// 标识符按不透明字节串处理，不做字符集校验。
func (connMsg *ConnectMessage) SetClientId(v []byte) {
	connMsg.clientId = v
}

func (connMsg *ConnectMessage) Len() int {
	return connMsg.header.msglen() + connMsg.msglen()
}

// Decode reads the CONNECT variable header at fixed offsets and then the client
// identifier from the payload. A buffer shorter than the 10 byte variable header
// or the declared identifier length yields ErrTruncatedBuffer.
func (connMsg *ConnectMessage) Decode(src []byte) (int, error) {
	total := 0

	n, err := connMsg.header.decode(src[total:])
	total += n
	if err != nil {
		return total, err
	}

	if len(src[total:]) < 10 {
		return total, ErrTruncatedBuffer
	}

	connMsg.protoName = CopyLen(src[total+2:total+6], 4)
	connMsg.version = src[total+6]
	connMsg.connectFlags = src[total+7]
	connMsg.keepAlive = binary.BigEndian.Uint16(src[total+8 : total+10])
	total += 10

	connMsg.clientId, n, err = readLPBytes(src[total:])
	total += n
	if err != nil {
		return total, ErrTruncatedBuffer
	}

	return total, nil
}

func (connMsg *ConnectMessage) Encode(dst []byte) (int, error) {
	ml := connMsg.msglen()
	hl := connMsg.header.msglen()

	if err := connMsg.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	if len(dst) < hl+ml {
		return 0, fmt.Errorf("connect/Encode: Insufficient buffer size. Expecting %d, got %d.", hl+ml, len(dst))
	}

	total := 0

	n, err := connMsg.header.encode(dst[total:])
	total += n
	if err != nil {
		return total, err
	}

	n, err = writeLPBytes(dst[total:], connMsg.protoName) // 写入协议长度和协议名称
	total += n
	if err != nil {
		return total, err
	}

	dst[total] = connMsg.version // 写入协议版本号
	total++

	dst[total] = connMsg.connectFlags // 写入连接标志
	total++

	binary.BigEndian.PutUint16(dst[total:], connMsg.keepAlive) // 写入保持连接
	total += 2

	n, err = writeLPBytes(dst[total:], connMsg.clientId) // 客户标识符
	total += n
	if err != nil {
		return total, err
	}

	return total, nil
}

func (connMsg *ConnectMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	ml := connMsg.msglen()

	if err := connMsg.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	_, err := connMsg.header.encodeToBuf(dst)
	if err != nil {
		return dst.Len(), err
	}

	_, err = writeToBufLPBytes(dst, connMsg.protoName)
	if err != nil {
		return dst.Len(), err
	}

	dst.WriteByte(connMsg.version)
	dst.WriteByte(connMsg.connectFlags)

	dst.WriteByte(byte(connMsg.keepAlive >> 8))
	dst.WriteByte(byte(connMsg.keepAlive))

	_, err = writeToBufLPBytes(dst, connMsg.clientId)
	if err != nil {
		return dst.Len(), err
	}

	return dst.Len(), nil
}

func (connMsg *ConnectMessage) msglen() int {
	total := 0

	// 协议名长度前缀 + 协议名 + 协议级别 + 连接标志 + 保持连接
	total += 2 + len(connMsg.protoName) + 1 + 1 + 2

	// 载荷 客户端标识符
	total += 2 + len(connMsg.clientId)

	return total
}
