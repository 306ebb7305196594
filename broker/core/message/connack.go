package message

import (
	"bytes"
	"fmt"
)

// ConnackCode is the type representing the return code in the CONNACK message,
// returned after the initial CONNECT message
type ConnackCode byte

const (
	// ConnectionAccepted Connection accepted
	ConnectionAccepted ConnackCode = iota

	// ErrInvalidProtocolVersion The Server does not support the level of the MQTT protocol requested by the Client
	ErrInvalidProtocolVersion

	// ErrIdentifierRejected The Client identifier is correct UTF-8 but not allowed by the server
	ErrIdentifierRejected

	// ErrServerUnavailable The Network Connection has been made but the MQTT service is unavailable
	ErrServerUnavailable

	// ErrBadUsernameOrPassword The data in the user name or password is malformed
	ErrBadUsernameOrPassword

	// ErrNotAuthorized The Client is not authorized to connect
	ErrNotAuthorized
)

// Value returns the value of the ConnackCode, which is just the byte representation
func (cc ConnackCode) Value() byte {
	return byte(cc)
}

// Desc returns the description of the ConnackCode
func (cc ConnackCode) Desc() string {
	switch cc {
	case ConnectionAccepted:
		return "Connection accepted"
	case ErrInvalidProtocolVersion:
		return "Connection Refused, unacceptable protocol version"
	case ErrIdentifierRejected:
		return "Connection Refused, identifier rejected"
	case ErrServerUnavailable:
		return "Connection Refused, Server unavailable"
	case ErrBadUsernameOrPassword:
		return "Connection Refused, bad user name or password"
	case ErrNotAuthorized:
		return "Connection Refused, not authorized"
	}

	return ""
}

// Valid checks to see if the ConnackCode is valid. Currently valid codes are <= 5
func (cc ConnackCode) Valid() bool {
	return cc <= 5
}

// Error returns the corresonding error string for the ConnackCode
func (cc ConnackCode) Error() string {
	return cc.Desc()
}

// ConnackMessage The CONNACK Packet is the packet sent by the Server in response to a CONNECT
// Packet received from a Client. The first packet sent from the Server to the
// Client MUST be a CONNACK Packet [MQTT-3.2.0-1].
//
// If the Client does not receive a CONNACK Packet from the Server within a
// reasonable amount of time, the Client SHOULD close the Network Connection.
// 剩余长度固定为2：会话存在标志 + 返回码。
type ConnackMessage struct {
	header

	sessionPresent bool
	returnCode     ConnackCode
	// 无载荷
}

var _ Message = (*ConnackMessage)(nil)

// NewConnackMessage creates a new CONNACK message
func NewConnackMessage() *ConnackMessage {
	msg := &ConnackMessage{}
	_ = msg.SetType(CONNACK)

	return msg
}

// String returns a string representation of the CONNACK message
func (connAckMsg ConnackMessage) String() string {
	return fmt.Sprintf("%s, Session Present=%t, Return code=%q",
		connAckMsg.header, connAckMsg.sessionPresent, connAckMsg.returnCode.Desc())
}

// SessionPresent returns the session present flag value
func (connAckMsg *ConnackMessage) SessionPresent() bool {
	return connAckMsg.sessionPresent
}

// SetSessionPresent sets the value of the session present flag
func (connAckMsg *ConnackMessage) SetSessionPresent(v bool) {
	connAckMsg.sessionPresent = v
}

// ReturnCode returns the return code received for the CONNECT message. The return
// type is an error
func (connAckMsg *ConnackMessage) ReturnCode() ConnackCode {
	return connAckMsg.returnCode
}

func (connAckMsg *ConnackMessage) SetReturnCode(ret ConnackCode) {
	connAckMsg.returnCode = ret
}

func (connAckMsg *ConnackMessage) Len() int {
	return connAckMsg.header.msglen() + connAckMsg.msglen()
}

func (connAckMsg *ConnackMessage) Decode(src []byte) (int, error) {
	total := 0

	n, err := connAckMsg.header.decode(src)
	total += n
	if err != nil {
		return total, err
	}

	if len(src[total:]) < 2 {
		return total, ErrTruncatedBuffer
	}

	// 连接确认标志，7-1位必须为0
	b := src[total]

	if b&254 != 0 {
		return 0, fmt.Errorf("connack/Decode: Bits 7-1 in Connack Acknowledge Flags byte (1) are not 0")
	}

	connAckMsg.sessionPresent = b&0x1 == 1
	total++

	b = src[total]

	// Read return code
	if b > 5 {
		return 0, fmt.Errorf("connack/Decode: Invalid CONNACK return code (%d)", b)
	}

	connAckMsg.returnCode = ConnackCode(b)
	total++

	return total, nil
}

func (connAckMsg *ConnackMessage) Encode(dst []byte) (int, error) {
	// CONNACK remaining length fixed at 2 bytes
	ml := connAckMsg.msglen()
	hl := connAckMsg.header.msglen()

	if len(dst) < hl+ml {
		return 0, fmt.Errorf("connack/Encode: Insufficient buffer size. Expecting %d, got %d.", hl+ml, len(dst))
	}

	if err := connAckMsg.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	if !connAckMsg.returnCode.Valid() {
		return 0, fmt.Errorf("connack/Encode: Invalid CONNACK return code (%d)", connAckMsg.returnCode)
	}

	total := 0

	n, err := connAckMsg.header.encode(dst[total:])
	total += n
	if err != nil {
		return 0, err
	}

	if connAckMsg.sessionPresent { // 连接确认标志
		dst[total] = 1
	} else {
		dst[total] = 0
	}
	total++

	dst[total] = connAckMsg.returnCode.Value() // 返回码
	total++

	return total, nil
}

func (connAckMsg *ConnackMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	// CONNACK remaining length fixed at 2 bytes
	ml := connAckMsg.msglen()

	if err := connAckMsg.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	if !connAckMsg.returnCode.Valid() {
		return 0, fmt.Errorf("connack/Encode: Invalid CONNACK return code (%d)", connAckMsg.returnCode)
	}

	_, err := connAckMsg.header.encodeToBuf(dst)
	if err != nil {
		return 0, err
	}

	if connAckMsg.sessionPresent { // 连接确认标志
		dst.WriteByte(1)
	} else {
		dst.WriteByte(0)
	}

	dst.WriteByte(connAckMsg.returnCode.Value()) // 返回码

	return dst.Len(), nil
}

// 会话存在标志1字节 + 返回码1字节
func (connAckMsg *ConnackMessage) msglen() int {
	return 2
}
