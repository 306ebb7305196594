package message

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	maxLPString          uint16 = 65535
	maxFixedHeaderLength int    = 5
	maxRemainingLength   uint32 = 268435455 // bytes, or 256 MB
)

// 解码错误。这里的错误都是针对单个报文的，不会关闭连接。
var (
	// ErrMalformedRemainingLength 剩余长度字段第4字节之后仍有延续位
	ErrMalformedRemainingLength = errors.New("message: malformed remaining length")

	// ErrIncompleteHeader 固定报头在剩余长度字段结束前就没有数据了
	ErrIncompleteHeader = errors.New("message: incomplete fixed header")

	// ErrTruncatedBuffer 报文剩余部分的数据不足剩余长度声明的字节数
	ErrTruncatedBuffer = errors.New("message: truncated buffer")
)

const (
	// QosAtMostOnce QoS 0: At most once delivery
	// The message is delivered according to the capabilities of the underlying network.
	// No response is sent by the receiver and no retry is performed by the sender. The
	// message arrives at the receiver either once or not at all.
	QosAtMostOnce byte = iota

	// QosAtLeastOnce QoS 1: At least once delivery
	// This quality of service ensures that the message arrives at the receiver at least once.
	// A QoS 1 PUBLISH Packet has a Packet Identifier in its variable header and is acknowledged
	// by a PUBACK Packet.
	QosAtLeastOnce

	// QosExactlyOnce QoS 2: Exactly once delivery
	// This is the highest quality of service, for use when neither loss nor duplication of
	// messages are acceptable. There is an increased overhead associated with this quality of
	// service.
	QosExactlyOnce

	// QosFailure is a return value for a subscription if there's a problem while subscribing
	// to a specific topic.
	QosFailure = 0x80
)

// MessageType is the type representing the MQTT packet types. In the MQTT spec,
// MQTT control packet type is represented as a 4-bit unsigned value.
type MessageType byte

// Message is an interface defined for all MQTT message types.
type Message interface {
	// Name returns a string representation of the message type. Examples include
	// "PUBLISH", "SUBSCRIBE", and others. This is statically defined for each of
	// the message types and cannot be changed.
	Name() string

	// Desc returns a string description of the message type. For example, a
	// CONNECT message would return "Client request to connect to Server." These
	// descriptions are statically defined (copied from the MQTT spec) and cannot
	// be changed.
	Desc() string

	// Type returns the MessageType of the Message. The returned value should be one
	// of the constants defined for MessageType.
	Type() MessageType

	// PacketId returns the packet ID of the Message. The returned value is 0 if
	// there's no packet ID for this message type.
	PacketId() uint16

	// Encode writes the message bytes into the byte array from the argument. It
	// returns the number of bytes encoded and whether there's any errors along
	// the way. If there's any errors, then the byte slice and count should be
	// considered invalid.
	Encode([]byte) (int, error)

	EncodeToBuf(dst *bytes.Buffer) (int, error)

	// Decode reads the bytes in the byte slice from the argument. It returns the
	// total number of bytes decoded, and whether there's any errors during the
	// process. The byte slice MUST NOT be modified during the duration of this
	// message being available since the byte slice is internally stored for
	// references.
	Decode([]byte) (int, error)

	Len() int
}

const (
	// RESERVED is a reserved value and should be considered an invalid message type
	RESERVED MessageType = iota

	CONNECT // CONNECT: Client to Server. Client request to connect to Server.

	CONNACK // CONNACK: Server to Client. Connect acknowledgement.

	PUBLISH // PUBLISH: Client to Server, or Server to Client. Publish message.

	PUBACK // PUBACK: Client to Server, or Server to Client. Publish acknowledgment for
	// QoS 1 messages.

	PUBREC // PUBREC: Client to Server, or Server to Client. Publish received for QoS 2 messages.
	// Assured delivery part 1.

	PUBREL // PUBREL: Client to Server, or Server to Client. Publish release for QoS 2 messages.
	// Assured delivery part 2.

	PUBCOMP // PUBCOMP: Client to Server, or Server to Client. Publish complete for QoS 2 messages.
	// Assured delivery part 3.

	SUBSCRIBE // SUBSCRIBE: Client to Server. Client subscribe request.

	SUBACK // SUBACK: Server to Client. Subscribe acknowledgement.

	UNSUBSCRIBE // UNSUBSCRIBE: Client to Server. Unsubscribe request.

	UNSUBACK // UNSUBACK: Server to Client. Unsubscribe acknowlegment.

	PINGREQ // PINGREQ: Client to Server. PING request.

	PINGRESP // PINGRESP: Server to Client. PING response.

	DISCONNECT // DISCONNECT: Client to Server. Client is disconnecting.

	AUTH // AUTH: reserved in 3.1.1, handled as an unknown type

	// RESERVED2 is a reserved value and should be considered an invalid message type.
	// 两个RESERVED是方便做校验，直接判断是否处在这两个中间即可判断合法性
	RESERVED2
)

func (mt MessageType) String() string {
	return mt.Name()
}

// Name returns the name of the message type. It should correspond to one of the
// constant values defined for MessageType. It is statically defined and cannot
// be changed.
func (mt MessageType) Name() string {
	switch mt {
	case RESERVED:
		return "RESERVED"
	case CONNECT:
		return "CONNECT"
	case CONNACK:
		return "CONNACK"
	case PUBLISH:
		return "PUBLISH"
	case PUBACK:
		return "PUBACK"
	case PUBREC:
		return "PUBREC"
	case PUBREL:
		return "PUBREL"
	case PUBCOMP:
		return "PUBCOMP"
	case SUBSCRIBE:
		return "SUBSCRIBE"
	case SUBACK:
		return "SUBACK"
	case UNSUBSCRIBE:
		return "UNSUBSCRIBE"
	case UNSUBACK:
		return "UNSUBACK"
	case PINGREQ:
		return "PINGREQ"
	case PINGRESP:
		return "PINGRESP"
	case DISCONNECT:
		return "DISCONNECT"
	case AUTH:
		return "AUTH"
	}

	return "UNKNOWN"
}

// Desc returns the description of the message type. It is statically defined (copied
// from MQTT spec) and cannot be changed.
func (mt MessageType) Desc() string {
	switch mt {
	case CONNECT:
		return "Client request to connect to Server"
	case CONNACK:
		return "Connect acknowledgement"
	case PUBLISH:
		return "Publish message"
	case PUBACK:
		return "Publish acknowledgement"
	case PUBREC:
		return "Publish received (assured delivery part 1)"
	case PUBREL:
		return "Publish release (assured delivery part 2)"
	case PUBCOMP:
		return "Publish complete (assured delivery part 3)"
	case SUBSCRIBE:
		return "Client subscribe request"
	case SUBACK:
		return "Subscribe acknowledgement"
	case UNSUBSCRIBE:
		return "Unsubscribe request"
	case UNSUBACK:
		return "Unsubscribe acknowledgement"
	case PINGREQ:
		return "PING request"
	case PINGRESP:
		return "PING response"
	case DISCONNECT:
		return "Client is disconnecting"
	}

	return "UNKNOWN"
}

// DefaultFlags returns the default flag values for the message type, as defined by
// the MQTT spec.
func (mt MessageType) DefaultFlags() byte {
	switch mt {
	case PUBREL:
		return 2
	case SUBSCRIBE:
		return 2
	case UNSUBSCRIBE:
		return 2
	}

	return 0
}

// New creates a new message based on the message type. It is a shortcut to call
// one of the New*Message functions. If an error is returned then the message type
// is not supported by this server.
func (mt MessageType) New() (Message, error) {
	switch mt {
	case CONNECT:
		return NewConnectMessage(), nil
	case CONNACK:
		return NewConnackMessage(), nil
	case PUBLISH:
		return NewPublishMessage(), nil
	case PUBACK:
		return NewPubackMessage(), nil
	case SUBSCRIBE:
		return NewSubscribeMessage(), nil
	case SUBACK:
		return NewSubackMessage(), nil
	case PINGREQ:
		return NewPingreqMessage(), nil
	case PINGRESP:
		return NewPingrespMessage(), nil
	case DISCONNECT:
		return NewDisconnectMessage(), nil
	}

	return nil, fmt.Errorf("msgtype/NewMessage: Unsupported message type %d", mt)
}

// Valid returns a boolean indicating whether the message type is valid or not.
func (mt MessageType) Valid() bool {
	return mt > RESERVED && mt < RESERVED2
}

// ValidTopic checks the topic, which is a slice of bytes, to see if it's valid. A
// topic is considered valid if it's longer than 0 bytes. Wildcard characters are
// not interpreted by this server, so they pass through unchanged.
func ValidTopic(topic []byte) bool {
	return len(topic) > 0
}

// ValidQos checks the QoS value to see if it's valid. Valid QoS are QosAtMostOnce,
// QosAtLeastOnce, and QosExactlyOnce.
func ValidQos(qos byte) bool {
	return qos == QosAtMostOnce || qos == QosAtLeastOnce || qos == QosExactlyOnce
}

// PeekMessageSize 从src中窥探一个完整报文的总长度（固定报头+剩余长度）。
// 数据不足以解出剩余长度字段时返回 ErrIncompleteHeader，
// 剩余长度字段本身非法时返回 ErrMalformedRemainingLength。
func PeekMessageSize(src []byte) (MessageType, int, error) {
	if len(src) < 1 {
		return RESERVED, 0, ErrIncompleteHeader
	}

	mtype := MessageType(src[0] >> 4)
	if !mtype.Valid() {
		return mtype, 0, fmt.Errorf("message/PeekMessageSize: Invalid message type %d", mtype)
	}

	remlen, m, err := lbDecode(src[1:])
	if err != nil {
		return mtype, 0, err
	}

	return mtype, 1 + m + int(remlen), nil
}

func CopyLen(data []byte, n int) []byte {
	if n <= 0 || len(data) == 0 {
		return make([]byte, 0)
	}
	if n > len(data) {
		n = len(data)
	}
	b := make([]byte, n)
	copy(b, data)
	return b
}

// lbEncode 剩余长度编码：低7位有效，高位为延续位，小端字节序的128进制
func lbEncode(x uint32) []byte {
	b := make([]byte, 0, 4)
	for {
		encodedByte := byte(x % 128)
		x = x / 128
		if x > 0 {
			encodedByte |= 128
		}
		b = append(b, encodedByte)
		if x == 0 {
			return b
		}
	}
}

// lbDecode 剩余长度解码，返回值、消耗字节数、错误。
// value += (b & 0x7F) * multiplier，multiplier 每字节乘128，
// 延续位超过4字节（multiplier 超过128^3）即为非法。
func lbDecode(b []byte) (uint32, int, error) {
	var (
		value, mu uint32 = 0, 1
		i         int
	)
	for {
		if i >= len(b) {
			return 0, i, ErrIncompleteHeader
		}
		ec := b[i]
		i++
		value += uint32(ec&127) * mu
		if mu > 128*128*128 {
			return 0, i, ErrMalformedRemainingLength
		}
		if ec&128 == 0 {
			return value, i, nil
		}
		mu *= 128
	}
}

// Read length prefixed bytes
// 读取2字节大端长度前缀的字节串
func readLPBytes(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrTruncatedBuffer
	}

	n, total := 0, 0
	n = int(binary.BigEndian.Uint16(buf))
	total += 2

	if len(buf) < total+n {
		return nil, total, ErrTruncatedBuffer
	}

	total += n

	return CopyLen(buf[2:total], total-2), total, nil
}

// Write length prefixed bytes
func writeLPBytes(buf []byte, b []byte) (int, error) {
	total, n := 0, len(b)

	if n > int(maxLPString) {
		return 0, fmt.Errorf("utils/writeLPBytes: Length (%d) greater than %d bytes.", n, maxLPString)
	}

	if len(buf) < 2+n {
		return 0, fmt.Errorf("utils/writeLPBytes: Insufficient buffer size. Expecting %d, got %d.", 2+n, len(buf))
	}

	binary.BigEndian.PutUint16(buf, uint16(n))
	total += 2

	copy(buf[total:], b)
	total += n

	return total, nil
}

func writeToBufLPBytes(buf *bytes.Buffer, b []byte) (int, error) {
	if buf == nil {
		return 0, errors.New("buf is nil")
	}
	total, n := 0, len(b)

	if n > int(maxLPString) {
		return 0, fmt.Errorf("utils/writeLPBytes: Length (%d) greater than %d bytes.", n, maxLPString)
	}

	buf.WriteByte(byte(n >> 8))
	buf.WriteByte(byte(n))
	total += 2

	n, err := buf.Write(b)
	total += n
	return total, err
}
