package message

import (
	"bytes"
)

// PingrespMessage A PINGRESP Packet is sent by the Server to the Client in response to a PINGREQ
// Packet. It indicates that the Server is alive.
type PingrespMessage struct {
	header
}

var _ Message = (*PingrespMessage)(nil)

// NewPingrespMessage creates a new PINGRESP message.
func NewPingrespMessage() *PingrespMessage {
	msg := &PingrespMessage{}
	_ = msg.SetType(PINGRESP)

	return msg
}

func (pingResp *PingrespMessage) Decode(src []byte) (int, error) {
	return pingResp.header.decode(src)
}

func (pingResp *PingrespMessage) Encode(dst []byte) (int, error) {
	return pingResp.header.encode(dst)
}

func (pingResp *PingrespMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	return pingResp.header.encodeToBuf(dst)
}
