package message

import (
	"bytes"
	"fmt"
)

// 固定报头
// - 1字节的控制包类型(位7-4)和标志(位3-0)
// - 最多4字节的剩余长度
type header struct {
	// 剩余长度 变长字节整数, 用来表示当前控制报文剩余部分的字节数, 包括可变报头和负载的数据.
	// 剩余长度不包括用于编码剩余长度字段本身的字节数.
	// MQTT控制报文总长度等于固定报头的长度加上剩余长度.
	remlen uint32

	// mtypeflags是固定报头的第一个字节，高4位是mtype, 低4位是flags标志
	mtypeflags byte

	// Some messages need packet ID, 2 byte uint16
	// 报文标识符。需要这个的有以下报文类型：
	// PUBLISH报文（当QoS>0时），PUBACK，SUBSCRIBE，SUBACK
	packetId uint16
}

// String returns a string representation of the message.
func (head header) String() string {
	return fmt.Sprintf("Type=%q, Flags=%04b, Remaining Length=%d, Packet Id=%d", head.Type().Name(), head.Flags(), head.remlen, head.packetId)
}

// Name returns a string representation of the message type. Examples include
// "PUBLISH", "SUBSCRIBE", and others. This is statically defined for each of
// the message types and cannot be changed.
func (head *header) Name() string {
	return head.Type().Name()
}

// Desc returns a string description of the message type. For example, a
// CONNECT message would return "Client request to connect to Server." These
// descriptions are statically defined (copied from the MQTT spec) and cannot
// be changed.
func (head *header) Desc() string {
	return head.Type().Desc()
}

// Type returns the MessageType of the Message. The returned value should be one
// of the constants defined for MessageType.
func (head *header) Type() MessageType {
	return MessageType(head.mtypeflags >> 4)
}

// SetType sets the message type of head message. It also correctly sets the
// default flags for the message type. It returns an error if the type is invalid.
func (head *header) SetType(mtype MessageType) error {
	if !mtype.Valid() {
		return fmt.Errorf("header/SetType: Invalid control packet type %d", mtype)
	}

	head.mtypeflags = byte(mtype)<<4 | (mtype.DefaultFlags() & 0xf)

	return nil
}

// Flags returns the fixed header flags for head message.
func (head *header) Flags() byte {
	return head.mtypeflags & 0x0f
}

// RemainingLength returns the length of the non-fixed-header part of the message.
func (head *header) RemainingLength() uint32 {
	return head.remlen
}

// SetRemainingLength sets the length of the non-fixed-header part of the message.
// It returns error if the length is greater than 268435455, which is the max
// message length as defined by the MQTT spec.
func (head *header) SetRemainingLength(remlen uint32) error {
	if remlen > maxRemainingLength {
		return fmt.Errorf("header/SetLength: Remaining length (%d) out of bound (max %d, min 0)", remlen, maxRemainingLength)
	}

	head.remlen = remlen

	return nil
}

func (head *header) Len() int {
	return head.msglen()
}

// PacketId returns the ID of the packet.
func (head *header) PacketId() uint16 {
	return head.packetId
}

// SetPacketId sets the ID of the packet. Zero is a legal value here: replies
// fanned out to subscribers carry packet id 0.
func (head *header) SetPacketId(v uint16) {
	head.packetId = v
}

func (head *header) encode(dst []byte) (int, error) {
	ml := head.msglen()

	if len(dst) < ml {
		return 0, fmt.Errorf("header/Encode: Insufficient buffer size. Expecting %d, got %d.", ml, len(dst))
	}

	total := 0

	if head.remlen > maxRemainingLength {
		return total, fmt.Errorf("header/Encode: Remaining length (%d) out of bound (max %d, min 0)", head.remlen, maxRemainingLength)
	}

	if !head.Type().Valid() {
		return total, fmt.Errorf("header/Encode: Invalid message type %d", head.Type())
	}

	dst[total] = head.mtypeflags
	total += 1

	b := lbEncode(head.remlen)
	copy(dst[total:], b)
	total += len(b)

	return total, nil
}

func (head *header) encodeToBuf(dst *bytes.Buffer) (int, error) {
	if head.remlen > maxRemainingLength {
		return 0, fmt.Errorf("header/Encode: Remaining length (%d) out of bound (max %d, min 0)", head.remlen, maxRemainingLength)
	}

	if !head.Type().Valid() {
		return 0, fmt.Errorf("header/Encode: Invalid message type %d", head.Type())
	}

	dst.WriteByte(head.mtypeflags)
	dst.Write(lbEncode(head.remlen))

	return dst.Len(), nil
}

// decode 解析固定报头。要求src从报文第一个字节开始，且至少包含完整的
// 固定报头和剩余长度声明的全部数据。
func (head *header) decode(src []byte) (int, error) {
	total := 0

	if len(src) < 1 {
		return total, ErrIncompleteHeader
	}

	head.mtypeflags = src[total]
	if !head.Type().Valid() {
		return total, fmt.Errorf("header/Decode: Invalid message type %d.", head.Type())
	}

	if head.Type() != PUBLISH && head.Flags() != head.Type().DefaultFlags() {
		return total, fmt.Errorf("header/Decode: Invalid message (%d) flags. Expecting %d, got %d", head.Type(), head.Type().DefaultFlags(), head.Flags())
	}
	// Bit 3	Bit 2	Bit 1	 Bit 0
	// DUP	         QOS	     RETAIN
	// publish 报文，验证qos，第一个字节的第1，2位
	if head.Type() == PUBLISH && !ValidQos((head.Flags()>>1)&0x3) {
		return total, fmt.Errorf("header/Decode: Invalid QoS (%d) for PUBLISH message.", (head.Flags()>>1)&0x3)
	}

	total++ // 第一个字节处理完毕

	remlen, m, err := lbDecode(src[total:])
	if err != nil {
		return total, err
	}
	total += m
	head.remlen = remlen

	if int(head.remlen) > len(src[total:]) {
		return total, ErrTruncatedBuffer
	}

	return total, nil
}

func (head *header) msglen() int {
	// message type and flag byte
	total := 1

	if head.remlen <= 127 {
		total += 1
	} else if head.remlen <= 16383 {
		total += 2
	} else if head.remlen <= 2097151 {
		total += 3
	} else {
		total += 4
	}

	return total
}
