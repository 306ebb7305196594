package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var _ Message = (*SubackMessage)(nil)

// SubackMessage A SUBACK Packet is sent by the Server to the Client to confirm receipt and processing
// of a SUBSCRIBE Packet.
//
// A SUBACK Packet contains a list of return codes, that specify the maximum QoS level
// that was granted in each Subscription that was requested by the SUBSCRIBE.
type SubackMessage struct {
	header

	// 载荷：每个请求的主题过滤器对应一个返回码
	returnCodes []byte
}

// NewSubackMessage creates a new SUBACK message.
func NewSubackMessage() *SubackMessage {
	msg := &SubackMessage{}
	_ = msg.SetType(SUBACK)

	return msg
}

// String returns a string representation of the message.
func (subAck SubackMessage) String() string {
	return fmt.Sprintf("%s, Packet ID=%d, Return Codes=%v", subAck.header, subAck.packetId, subAck.returnCodes)
}

// ReturnCodes returns the list of QoS returns from the subscriptions sent in the SUBSCRIBE message.
func (subAck *SubackMessage) ReturnCodes() []byte {
	return subAck.returnCodes
}

// AddReturnCodes sets the list of QoS returns from the subscriptions sent in the SUBSCRIBE message.
// An error is returned if any of the QoS values are not valid.
func (subAck *SubackMessage) AddReturnCodes(ret []byte) error {
	for _, c := range ret {
		if !ValidQos(c) && c != QosFailure {
			return fmt.Errorf("suback/AddReturnCode: Invalid return code %d. Must be 0, 1, 2, 0x80.", c)
		}

		subAck.returnCodes = append(subAck.returnCodes, c)
	}

	return nil
}

// AddReturnCode adds a single QoS return value.
func (subAck *SubackMessage) AddReturnCode(ret byte) error {
	return subAck.AddReturnCodes([]byte{ret})
}

func (subAck *SubackMessage) Len() int {
	return subAck.header.msglen() + subAck.msglen()
}

func (subAck *SubackMessage) Decode(src []byte) (int, error) {
	total := 0

	hn, err := subAck.header.decode(src[total:])
	total += hn
	if err != nil {
		return total, err
	}

	if len(src[total:]) < 2 {
		return total, ErrTruncatedBuffer
	}

	subAck.packetId = binary.BigEndian.Uint16(src[total:])
	total += 2

	l := int(subAck.remlen) - 2
	if l <= 0 {
		return total, fmt.Errorf("suback/Decode: Empty return code list.")
	}

	if len(src[total:]) < l {
		return total, ErrTruncatedBuffer
	}

	subAck.returnCodes = CopyLen(src[total:total+l], l)
	total += l

	for i, code := range subAck.returnCodes {
		if !ValidQos(code) && code != QosFailure {
			return total, fmt.Errorf("suback/Decode: Invalid return code %d for topic %d", code, i)
		}
	}

	return total, nil
}

func (subAck *SubackMessage) Encode(dst []byte) (int, error) {
	for i, code := range subAck.returnCodes {
		if !ValidQos(code) && code != QosFailure {
			return 0, fmt.Errorf("suback/Encode: Invalid return code %d for topic %d", code, i)
		}
	}

	ml := subAck.msglen()
	hl := subAck.header.msglen()

	if len(dst) < hl+ml {
		return 0, fmt.Errorf("suback/Encode: Insufficient buffer size. Expecting %d, got %d.", hl+ml, len(dst))
	}

	if err := subAck.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	total := 0

	n, err := subAck.header.encode(dst[total:])
	total += n
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], subAck.packetId)
	total += 2

	copy(dst[total:], subAck.returnCodes)
	total += len(subAck.returnCodes)

	return total, nil
}

func (subAck *SubackMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	for i, code := range subAck.returnCodes {
		if !ValidQos(code) && code != QosFailure {
			return 0, fmt.Errorf("suback/Encode: Invalid return code %d for topic %d", code, i)
		}
	}

	ml := subAck.msglen()

	if err := subAck.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	_, err := subAck.header.encodeToBuf(dst)
	if err != nil {
		return dst.Len(), err
	}

	dst.WriteByte(byte(subAck.packetId >> 8))
	dst.WriteByte(byte(subAck.packetId))

	dst.Write(subAck.returnCodes)

	return dst.Len(), nil
}

func (subAck *SubackMessage) msglen() int {
	return 2 + len(subAck.returnCodes)
}
