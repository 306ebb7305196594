package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var _ Message = (*SubscribeMessage)(nil)

// SubscribeMessage The SUBSCRIBE Packet is sent from the Client to the Server to create one or more
// Subscriptions. Each Subscription registers a Client’s interest in one or more
// Topics. The Server sends PUBLISH Packets to the Client in order to forward
// Application Messages that were published to Topics that match these Subscriptions.
// The SUBSCRIBE Packet also specifies (for each Subscription) the maximum QoS with
// which the Server can send Application Messages to the Client.
type SubscribeMessage struct {
	header

	// 载荷：主题过滤器列表，每个过滤器后跟1字节请求的服务质量。
	// 请求的服务质量原样记录，不做降级。
	topics [][]byte
	qos    []byte
}

// NewSubscribeMessage creates a new SUBSCRIBE message.
func NewSubscribeMessage() *SubscribeMessage {
	msg := &SubscribeMessage{}
	_ = msg.SetType(SUBSCRIBE)

	return msg
}

func (sub SubscribeMessage) String() string {
	msgstr := fmt.Sprintf("%s, Packet ID=%d", sub.header, sub.packetId)

	for i, t := range sub.topics {
		msgstr = fmt.Sprintf("%s, Topic[%d]=%q/%d", msgstr, i, string(t), sub.qos[i])
	}

	return msgstr
}

// Topics returns a list of topics sent by the Client.
func (sub *SubscribeMessage) Topics() [][]byte {
	return sub.topics
}

// AddTopic adds a single topic to the message, along with the corresponding QoS.
// An error is returned if QoS is invalid.
func (sub *SubscribeMessage) AddTopic(topic []byte, qos byte) error {
	if !ValidQos(qos) {
		return fmt.Errorf("Invalid QoS %d", qos)
	}

	var i int
	var t []byte
	var found bool

	for i, t = range sub.topics {
		if bytes.Equal(t, topic) {
			found = true
			break
		}
	}

	if found {
		sub.qos[i] = qos
		return nil
	}

	sub.topics = append(sub.topics, topic)
	sub.qos = append(sub.qos, qos)

	return nil
}

// RemoveTopic removes a single topic from the list of existing ones in the message.
// If topic does not exist it just does nothing.
func (sub *SubscribeMessage) RemoveTopic(topic []byte) {
	var i int
	var t []byte
	var found bool

	for i, t = range sub.topics {
		if bytes.Equal(t, topic) {
			found = true
			break
		}
	}

	if found {
		sub.topics = append(sub.topics[:i], sub.topics[i+1:]...)
		sub.qos = append(sub.qos[:i], sub.qos[i+1:]...)
	}
}

// TopicExists checks to see if a topic exists in the list.
func (sub *SubscribeMessage) TopicExists(topic []byte) bool {
	for _, t := range sub.topics {
		if bytes.Equal(t, topic) {
			return true
		}
	}

	return false
}

// TopicQos returns the QoS level of a topic. If topic does not exist, QosFailure
// is returned.
func (sub *SubscribeMessage) TopicQos(topic []byte) byte {
	for i, t := range sub.topics {
		if bytes.Equal(t, topic) {
			return sub.qos[i]
		}
	}

	return QosFailure
}

// Qos returns the list of QoS current in the message.
func (sub *SubscribeMessage) Qos() []byte {
	return sub.qos
}

func (sub *SubscribeMessage) Len() int {
	return sub.header.msglen() + sub.msglen()
}

// Decode reads the packet identifier and then the (topic filter, QoS) pairs until
// the remaining length is consumed. A zero length topic or an entry overrunning
// the buffer aborts the whole packet, nothing is applied partially.
func (sub *SubscribeMessage) Decode(src []byte) (int, error) {
	total := 0

	hn, err := sub.header.decode(src[total:])
	total += hn
	if err != nil {
		return total, err
	}

	if len(src[total:]) < 2 {
		return total, ErrTruncatedBuffer
	}

	sub.packetId = binary.BigEndian.Uint16(src[total:])
	total += 2

	var t []byte
	var n int

	remlen := int(sub.remlen) - 2
	for remlen > 0 {
		t, n, err = readLPBytes(src[total:])
		total += n
		if err != nil {
			return total, err
		}

		if len(t) == 0 {
			return total, fmt.Errorf("subscribe/Decode: Zero length topic filter.")
		}

		if len(src[total:]) < 1 {
			return total, ErrTruncatedBuffer
		}

		sub.topics = append(sub.topics, t)
		sub.qos = append(sub.qos, src[total])
		total++

		remlen = remlen - n - 1
	}

	if len(sub.topics) == 0 {
		return total, fmt.Errorf("subscribe/Decode: Empty topic list.")
	}

	return total, nil
}

func (sub *SubscribeMessage) Encode(dst []byte) (int, error) {
	ml := sub.msglen()
	hl := sub.header.msglen()

	if len(dst) < hl+ml {
		return 0, fmt.Errorf("subscribe/Encode: Insufficient buffer size. Expecting %d, got %d.", hl+ml, len(dst))
	}

	if err := sub.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	total := 0

	n, err := sub.header.encode(dst[total:])
	total += n
	if err != nil {
		return total, err
	}

	binary.BigEndian.PutUint16(dst[total:], sub.packetId)
	total += 2

	for i, t := range sub.topics {
		n, err = writeLPBytes(dst[total:], t)
		total += n
		if err != nil {
			return total, err
		}

		dst[total] = sub.qos[i]
		total++
	}

	return total, nil
}

func (sub *SubscribeMessage) EncodeToBuf(dst *bytes.Buffer) (int, error) {
	ml := sub.msglen()

	if err := sub.SetRemainingLength(uint32(ml)); err != nil {
		return 0, err
	}

	_, err := sub.header.encodeToBuf(dst)
	if err != nil {
		return dst.Len(), err
	}

	dst.WriteByte(byte(sub.packetId >> 8))
	dst.WriteByte(byte(sub.packetId))

	for i, t := range sub.topics {
		_, err = writeToBufLPBytes(dst, t)
		if err != nil {
			return dst.Len(), err
		}

		dst.WriteByte(sub.qos[i])
	}

	return dst.Len(), nil
}

func (sub *SubscribeMessage) msglen() int {
	// packet ID
	total := 2

	for _, t := range sub.topics {
		total += 2 + len(t) + 1
	}

	return total
}
