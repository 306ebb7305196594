package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageTypes(t *testing.T) {
	if CONNECT != 1 ||
		CONNACK != 2 ||
		PUBLISH != 3 ||
		PUBACK != 4 ||
		PUBREC != 5 ||
		PUBREL != 6 ||
		PUBCOMP != 7 ||
		SUBSCRIBE != 8 ||
		SUBACK != 9 ||
		UNSUBSCRIBE != 10 ||
		UNSUBACK != 11 ||
		PINGREQ != 12 ||
		PINGRESP != 13 ||
		DISCONNECT != 14 {
		t.Errorf("Message types have invalid code")
	}
}

func TestMessageTypeNew(t *testing.T) {
	// QoS 2交付、取消订阅这些类型不提供实现
	for _, mt := range []MessageType{RESERVED, PUBREC, PUBREL, PUBCOMP, UNSUBSCRIBE, UNSUBACK, AUTH, RESERVED2} {
		_, err := mt.New()
		require.Error(t, err, "Message type %s should not be supported.", mt)
	}

	for _, mt := range []MessageType{CONNECT, CONNACK, PUBLISH, PUBACK, SUBSCRIBE, SUBACK, PINGREQ, PINGRESP, DISCONNECT} {
		msg, err := mt.New()
		require.NoError(t, err, "Error creating %s message.", mt)
		require.Equal(t, mt, msg.Type(), "Error creating %s message.", mt)
	}
}

func TestRemainingLengthEncode(t *testing.T) {
	lengths := map[uint32]int{
		0:         1,
		127:       1,
		128:       2,
		16383:     2,
		16384:     3,
		2097151:   3,
		2097152:   4,
		268435455: 4,
	}

	for x, l := range lengths {
		b := lbEncode(x)
		require.Equal(t, l, len(b), "Wrong encoded length for %d.", x)

		v, n, err := lbDecode(b)
		require.NoError(t, err, "Error decoding remaining length %d.", x)
		require.Equal(t, x, v, "Error decoding remaining length %d.", x)
		require.Equal(t, l, n, "Error decoding remaining length %d.", x)
	}

	require.Equal(t, []byte{0xac, 0x02}, lbEncode(300))
}

func TestRemainingLengthMalformed(t *testing.T) {
	// 第4字节仍然带延续位
	_, _, err := lbDecode([]byte{0x80, 0x80, 0x80, 0x80, 0x01})
	require.Equal(t, ErrMalformedRemainingLength, err)

	_, _, err = lbDecode([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
	require.Equal(t, ErrMalformedRemainingLength, err)

	// 4字节能表示的最大值
	v, n, err := lbDecode([]byte{0xff, 0xff, 0xff, 0x7f})
	require.NoError(t, err)
	require.Equal(t, maxRemainingLength, v)
	require.Equal(t, 4, n)
}

func TestRemainingLengthIncomplete(t *testing.T) {
	for _, src := range [][]byte{{}, {0x80}, {0xff, 0xff}} {
		_, _, err := lbDecode(src)
		require.Equal(t, ErrIncompleteHeader, err, "Bytes %v should be incomplete.", src)
	}
}

func TestPeekMessageSize(t *testing.T) {
	// 一个完整的PINGREQ，后面跟着下一个报文的首字节
	mtype, total, err := PeekMessageSize([]byte{0xc0, 0x00, 0xe0})
	require.NoError(t, err, "Error peeking message size.")
	require.Equal(t, PINGREQ, mtype, "Error peeking message size.")
	require.Equal(t, 2, total, "Error peeking message size.")

	// 返回的是整帧长度，与载荷是否到齐无关
	mtype, total, err = PeekMessageSize([]byte{0x30, 0xac, 0x02})
	require.NoError(t, err, "Error peeking message size.")
	require.Equal(t, PUBLISH, mtype, "Error peeking message size.")
	require.Equal(t, 3+300, total, "Error peeking message size.")

	_, _, err = PeekMessageSize(nil)
	require.Equal(t, ErrIncompleteHeader, err)

	_, _, err = PeekMessageSize([]byte{0x30})
	require.Equal(t, ErrIncompleteHeader, err)

	_, _, err = PeekMessageSize([]byte{0x30, 0x80})
	require.Equal(t, ErrIncompleteHeader, err)

	_, _, err = PeekMessageSize([]byte{0x30, 0x80, 0x80, 0x80, 0x80, 0x01})
	require.Equal(t, ErrMalformedRemainingLength, err)

	_, _, err = PeekMessageSize([]byte{0x00, 0x00})
	require.Error(t, err, "Reserved type should not be peekable.")
}

func TestValidTopic(t *testing.T) {
	require.False(t, ValidTopic(nil))
	require.False(t, ValidTopic([]byte{}))
	require.True(t, ValidTopic([]byte("room/1")))
	// 通配符不在服务范围内，按普通字节处理
	require.True(t, ValidTopic([]byte("a/b/#/c")))
}

func TestValidQos(t *testing.T) {
	require.True(t, ValidQos(QosAtMostOnce))
	require.True(t, ValidQos(QosAtLeastOnce))
	require.True(t, ValidQos(QosExactlyOnce))
	require.False(t, ValidQos(3))
	require.False(t, ValidQos(QosFailure))
}
