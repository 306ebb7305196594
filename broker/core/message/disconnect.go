package message

import (
	"bytes"
)

// DisconnectMessage The DISCONNECT Packet is the final Control Packet sent from the Client to
// the Server. It indicates that the Client is disconnecting cleanly.
// 在3.1.1中无可变报头和载荷，剩余长度为0。
type DisconnectMessage struct {
	header
}

var _ Message = (*DisconnectMessage)(nil)

// NewDisconnectMessage creates a new DISCONNECT message.
func NewDisconnectMessage() *DisconnectMessage {
	msg := &DisconnectMessage{}
	_ = msg.SetType(DISCONNECT)

	return msg
}

func (dis *DisconnectMessage) Decode(src []byte) (int, error) {
	return dis.header.decode(src)
}

func (dis *DisconnectMessage) Encode(dst []byte) (int, error) {
	return dis.header.encode(dst)
}

func (dis *DisconnectMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	return dis.header.encodeToBuf(dst)
}
