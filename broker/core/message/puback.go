package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var _ Message = (*PubackMessage)(nil)

// PubackMessage A PUBACK Packet is the response to a PUBLISH Packet with QoS level 1.
// 可变报头只有2字节的报文标识符，无载荷。
type PubackMessage struct {
	header
}

// NewPubackMessage creates a new PUBACK message.
func NewPubackMessage() *PubackMessage {
	msg := &PubackMessage{}
	_ = msg.SetType(PUBACK)

	return msg
}

func (pubAck PubackMessage) String() string {
	return fmt.Sprintf("%s, Packet ID=%d", pubAck.header, pubAck.packetId)
}

func (pubAck *PubackMessage) Len() int {
	return pubAck.header.msglen() + pubAck.msglen()
}

func (pubAck *PubackMessage) Decode(src []byte) (int, error) {
	total := 0

	n, err := pubAck.header.decode(src[total:])
	total += n
	if err != nil {
		return total, err
	}

	if len(src[total:]) < 2 {
		return total, ErrTruncatedBuffer
	}

	pubAck.packetId = binary.BigEndian.Uint16(src[total:])
	total += 2

	return total, nil
}

func (pubAck *PubackMessage) Encode(dst []byte) (int, error) {
	ml := pubAck.msglen()
	hl := pubAck.header.msglen()

	if len(dst) < hl+ml {
		return 0, fmt.Errorf("puback/Encode: Insufficient buffer size. Expecting %d, got %d.", hl+ml, len(dst))
	}

	if err := pubAck.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	total := 0

	n, err := pubAck.header.encode(dst[total:])
	total += n
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], pubAck.packetId)
	total += 2

	return total, nil
}

func (pubAck *PubackMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	ml := pubAck.msglen()

	if err := pubAck.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	_, err := pubAck.header.encodeToBuf(dst)
	if err != nil {
		return dst.Len(), err
	}

	dst.WriteByte(byte(pubAck.packetId >> 8))
	dst.WriteByte(byte(pubAck.packetId))

	return dst.Len(), nil
}

// 报文标识符2字节
func (pubAck *PubackMessage) msglen() int {
	return 2
}
