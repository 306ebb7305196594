package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var _ Message = (*PublishMessage)(nil)

// PublishMessage A PUBLISH Control Packet is sent from a Client to a Server or from Server to a Client
// to transport an Application Message.
type PublishMessage struct {
	header

	// === 可变报头 ===
	topic []byte // 主题
	// qos > 0 需要报文标识符，数据放在header里面
	// 位置还是在topic后面

	// === 载荷 ===
	// 用固定报头中的剩余长度字段的值减去可变报头的长度。
	// 包含零长度有效载荷的PUBLISH报文是合法的
	payload []byte
}

// NewPublishMessage creates a new PUBLISH message.
func NewPublishMessage() *PublishMessage {
	msg := &PublishMessage{}
	_ = msg.SetType(PUBLISH)

	return msg
}

func (pub PublishMessage) String() string {
	return fmt.Sprintf("%s, Topic=%q, QoS=%d, Retained=%t, Dup=%t, Payload=%v",
		pub.header, pub.topic, pub.QoS(), pub.Retain(), pub.Dup(), pub.payload)
}

// Dup returns the value specifying the duplicate delivery of a PUBLISH Control Packet.
// If the DUP flag is set to 0, it indicates that pub is the first occasion that the
// Client or Server has attempted to send pub MQTT PUBLISH Packet. If the DUP flag is
// set to 1, it indicates that pub might be re-delivery of an earlier attempt to send
// the Packet. 只解析，不影响投递。
func (pub *PublishMessage) Dup() bool {
	return ((pub.Flags() >> 3) & 0x1) == 1
}

// SetDup sets the value specifying the duplicate delivery of a PUBLISH Control Packet.
func (pub *PublishMessage) SetDup(v bool) {
	if v {
		pub.mtypeflags |= 0x8 // 00001000
	} else {
		pub.mtypeflags &= 247 // 11110111
	}
}

// Retain returns the value of the RETAIN flag. This flag is only used on the PUBLISH
// Packet. If the RETAIN flag is set to 1, in a PUBLISH Packet sent by a Client to a
// Server, the Server MUST store the Application Message and its QoS, so that it can be
// delivered to future subscribers whose subscriptions match its topic name.
// 本服务端只解析该位，不存储保留消息。
func (pub *PublishMessage) Retain() bool {
	return (pub.Flags() & 0x1) == 1
}

// SetRetain sets the value of the RETAIN flag.
func (pub *PublishMessage) SetRetain(v bool) {
	if v {
		pub.mtypeflags |= 0x1 // 00000001
	} else {
		pub.mtypeflags &= 254 // 11111110
	}
}

// QoS returns the field that indicates the level of assurance for delivery of an
// Application Message. The values are QosAtMostOnce, QosAtLeastOnce and QosExactlyOnce.
func (pub *PublishMessage) QoS() byte {
	return (pub.Flags() >> 1) & 0x3
}

// SetQoS sets the field that indicates the level of assurance for delivery of an
// Application Message. The values are QosAtMostOnce, QosAtLeastOnce and QosExactlyOnce.
// An error is returned if the value is not one of these.
func (pub *PublishMessage) SetQoS(v byte) error {
	if v != 0x0 && v != 0x1 && v != 0x2 {
		return fmt.Errorf("publish/SetQoS: Invalid QoS %d.", v)
	}

	pub.mtypeflags = (pub.mtypeflags & 249) | (v << 1) // 249 = 11111001

	return nil
}

// Topic returns the the topic name that identifies the information channel to which
// payload data is published.
func (pub *PublishMessage) Topic() []byte {
	return pub.topic
}

// SetTopic sets the the topic name that identifies the information channel to which
// payload data is published. An error is returned if ValidTopic() is false.
func (pub *PublishMessage) SetTopic(v []byte) error {
	if !ValidTopic(v) {
		return fmt.Errorf("publish/SetTopic: Invalid topic name (%s). Must not be empty.", string(v))
	}

	pub.topic = v

	return nil
}

// Payload returns the application message that's part of the PUBLISH message.
func (pub *PublishMessage) Payload() []byte {
	return pub.payload
}

// SetPayload sets the application message that's part of the PUBLISH message.
func (pub *PublishMessage) SetPayload(v []byte) {
	pub.payload = v
}

func (pub *PublishMessage) Len() int {
	return pub.header.msglen() + pub.msglen()
}

func (pub *PublishMessage) Decode(src []byte) (int, error) {
	total := 0

	hn, err := pub.header.decode(src[total:])
	total += hn
	if err != nil {
		return total, err
	}

	n := 0
	// === 可变报头 ===
	pub.topic, n, err = readLPBytes(src[total:])
	total += n
	if err != nil {
		return total, err
	}

	if !ValidTopic(pub.topic) {
		return total, fmt.Errorf("publish/Decode: Invalid topic name (%s). Must not be empty.", string(pub.topic))
	}

	// The packet identifier field is only present in the PUBLISH packets where the
	// QoS level is 1 or 2
	if pub.QoS() != 0 {
		if len(src[total:]) < 2 {
			return total, ErrTruncatedBuffer
		}

		pub.packetId = binary.BigEndian.Uint16(src[total:])
		total += 2
	}

	// === 载荷 ===
	l := int(pub.remlen) - (total - hn)
	if l < 0 {
		return total, fmt.Errorf("publish/Decode: Remaining length (%d) is too short for the variable header.", pub.remlen)
	}

	pub.payload = CopyLen(src[total:total+l], l)
	total += l

	return total, nil
}

func (pub *PublishMessage) Encode(dst []byte) (int, error) {
	if len(pub.topic) == 0 {
		return 0, fmt.Errorf("publish/Encode: Topic name is empty.")
	}

	ml := pub.msglen()
	hl := pub.header.msglen()

	if err := pub.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	if len(dst) < hl+ml {
		return 0, fmt.Errorf("publish/Encode: Insufficient buffer size. Expecting %d, got %d.", hl+ml, len(dst))
	}

	total := 0

	n, err := pub.header.encode(dst[total:])
	total += n
	if err != nil {
		return total, err
	}

	n, err = writeLPBytes(dst[total:], pub.topic)
	total += n
	if err != nil {
		return total, err
	}

	// The packet identifier field is only present in the PUBLISH packets where the QoS level is 1 or 2
	if pub.QoS() != 0 {
		binary.BigEndian.PutUint16(dst[total:], pub.packetId)
		total += 2
	}

	copy(dst[total:], pub.payload)
	total += len(pub.payload)

	return total, nil
}

func (pub *PublishMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	if len(pub.topic) == 0 {
		return 0, fmt.Errorf("publish/Encode: Topic name is empty.")
	}

	ml := pub.msglen()

	if err := pub.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	_, err := pub.header.encodeToBuf(dst)
	if err != nil {
		return dst.Len(), err
	}

	_, err = writeToBufLPBytes(dst, pub.topic)
	if err != nil {
		return dst.Len(), err
	}

	// The packet identifier field is only present in the PUBLISH packets where the QoS level is 1 or 2
	if pub.QoS() != 0 {
		dst.WriteByte(byte(pub.packetId >> 8))
		dst.WriteByte(byte(pub.packetId))
	}

	dst.Write(pub.payload)

	return dst.Len(), nil
}

func (pub *PublishMessage) msglen() int {
	total := 2 + len(pub.topic)

	if pub.QoS() != 0 {
		total += 2
	}

	total += len(pub.payload)

	return total
}
