package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lybxkl/simq/broker/core/message"
	"github.com/lybxkl/simq/broker/core/module/stat"
	sess "github.com/lybxkl/simq/broker/core/session"
)

// recListener 记录事件序列，断言用
type recListener struct {
	mu     sync.Mutex
	events []string
}

func (r *recListener) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recListener) OnClientConnect(s sess.Session)    { r.add("connect:" + s.ID()) }
func (r *recListener) OnClientDisconnect(s sess.Session) { r.add("disconnect:" + s.ID()) }
func (r *recListener) OnTopicSubscribed(topic []byte, count int) {
	r.add(fmt.Sprintf("subscribe:%s:%d", topic, count))
}
func (r *recListener) OnMessagePublished(topic []byte, qos byte, payload []byte) {
	r.add(fmt.Sprintf("publish:%s:%d:%s", topic, qos, payload))
}

func (r *recListener) count(ev string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

func (r *recListener) has(ev string) bool { return r.count(ev) > 0 }

func TestSubscribePublishRoundTrip(t *testing.T) {
	srv := startServer(t)

	bob := dialBroker(t, srv)
	bob.connect("room-bob", true)
	ack := bob.subscribe(5, subReq{topic: "room/1", qos: 0}, subReq{topic: "room/2", qos: 1})
	require.Equal(t, []byte{0, 1}, ack.ReturnCodes(), "granted qos should echo the request")

	alice := dialBroker(t, srv)
	alice.connect("room-alice", true)
	alice.publish("room/1", 0, 0, "hi")

	got, ok := bob.recv().(*message.PublishMessage)
	require.True(t, ok, "expected PUBLISH")
	require.Equal(t, []byte("room/1"), got.Topic())
	require.Equal(t, []byte("hi"), got.Payload())
	require.Equal(t, byte(0), got.QoS())

	// qos0发布没有任何回执
	alice.expectSilence(150 * time.Millisecond)
}

func TestQoS1PublishAckAndDelivery(t *testing.T) {
	srv := startServer(t)

	bob := dialBroker(t, srv)
	bob.connect("q1-bob", true)
	ack := bob.subscribe(9, subReq{topic: "q/1", qos: 1})
	require.Equal(t, []byte{1}, ack.ReturnCodes())

	alice := dialBroker(t, srv)
	alice.connect("q1-alice", true)
	alice.publish("q/1", 1, 7, "ping")

	// 发布方拿到自己报文标识符的PUBACK
	pubAck, ok := alice.recv().(*message.PubackMessage)
	require.True(t, ok, "expected PUBACK")
	require.Equal(t, uint16(7), pubAck.PacketId())

	// 订阅方收到的投递沿用qos，标识符归零
	got, ok := bob.recv().(*message.PublishMessage)
	require.True(t, ok, "expected PUBLISH")
	require.Equal(t, byte(1), got.QoS())
	require.Equal(t, uint16(0), got.PacketId())
	require.Equal(t, []byte("ping"), got.Payload())

	// 订阅方回的PUBACK被静默忽略，连接不受影响
	back := message.NewPubackMessage()
	back.SetPacketId(0)
	bob.send(back)
	bob.send(message.NewPingreqMessage())
	_, ok = bob.recv().(*message.PingrespMessage)
	require.True(t, ok, "expected PINGRESP")
}

func TestSubscribeIllegalQosGetsFailureCode(t *testing.T) {
	srv := startServer(t)

	cli := dialBroker(t, srv)
	cli.connect("mix-sub", true)

	// 两个条目：ok/qos1合法，bad/qos3非法。编码器不让携带非法qos，发原始字节。
	raw := []byte{
		0x82, 0x0D, // SUBSCRIBE, 剩余长度13
		0x00, 0x0B, // 报文标识符11
		0x00, 0x02, 'o', 'k', 0x01,
		0x00, 0x03, 'b', 'a', 'd', 0x03,
	}
	cli.sendRaw(raw)

	ack, ok := cli.recv().(*message.SubackMessage)
	require.True(t, ok, "expected SUBACK")
	require.Equal(t, uint16(11), ack.PacketId())
	require.Equal(t, []byte{0x01, 0x80}, ack.ReturnCodes(), "illegal entry gets 0x80, legal one stays granted")

	// 合法的那个条目生效了
	alice := dialBroker(t, srv)
	alice.connect("mix-pub", true)
	alice.publish("ok", 0, 0, "works")

	got, ok := cli.recv().(*message.PublishMessage)
	require.True(t, ok, "expected PUBLISH")
	require.Equal(t, []byte("works"), got.Payload())
}

func TestPublishUnrelatedTopicNotDelivered(t *testing.T) {
	srv := startServer(t)

	bob := dialBroker(t, srv)
	bob.connect("iso-bob", true)
	bob.subscribe(4, subReq{topic: "iso/a", qos: 0})

	alice := dialBroker(t, srv)
	alice.connect("iso-alice", true)
	alice.publish("iso/b", 0, 0, "not for bob")

	bob.expectSilence(150 * time.Millisecond)
}

func TestListenerEvents(t *testing.T) {
	rec := &recListener{}
	srv := startServer(t, WithListener(rec))

	cli := dialBroker(t, srv)
	cli.connect("ev-cli", true)
	cli.subscribe(2, subReq{topic: "ev/t", qos: 0})

	require.True(t, rec.has("connect:ev-cli"))
	require.True(t, rec.has("subscribe:ev/t:1"))

	// 重复订阅不再报事件
	cli.subscribe(3, subReq{topic: "ev/t", qos: 1})
	require.Equal(t, 1, rec.count("subscribe:ev/t:1"), "duplicate subscribe should not fire the event again")

	// 零订阅者的发布也要报事件
	require.NoError(t, srv.PublishMessage([]byte("ev/nobody"), 0, []byte("void")))
	require.Eventually(t, func() bool { return rec.has("publish:ev/nobody:0:void") },
		2*time.Second, 10*time.Millisecond)

	cli.send(message.NewDisconnectMessage())
	require.Eventually(t, func() bool { return rec.has("disconnect:ev-cli") },
		2*time.Second, 10*time.Millisecond)
}

func TestServerPublishAndStatCounters(t *testing.T) {
	clientsBefore := stat.Clients()
	publishedBefore := stat.Published()

	srv := startServer(t, WithListener(stat.Listener()))

	bob := dialBroker(t, srv)
	bob.connect("stat-bob", true)
	bob.subscribe(6, subReq{topic: "sys/feed", qos: 1})

	require.Equal(t, clientsBefore+1, stat.Clients())

	// 服务端身份发布，订阅者按正常路径收到
	require.NoError(t, srv.PublishMessage([]byte("sys/feed"), 0, []byte("42")))
	got, ok := bob.recv().(*message.PublishMessage)
	require.True(t, ok, "expected PUBLISH")
	require.Equal(t, []byte("42"), got.Payload())
	require.Equal(t, byte(0), got.QoS())

	require.Eventually(t, func() bool { return stat.Published() > publishedBefore },
		2*time.Second, 10*time.Millisecond)

	require.Error(t, srv.PublishMessage([]byte(""), 0, nil), "empty topic must be rejected")
	require.Error(t, srv.PublishMessage([]byte("sys/feed"), 3, nil), "invalid qos must be rejected")

	bob.send(message.NewDisconnectMessage())
	require.Eventually(t, func() bool { return stat.Clients() == clientsBefore },
		2*time.Second, 10*time.Millisecond)
}

func TestDisconnectClientByServer(t *testing.T) {
	srv := startServer(t)

	cli := dialBroker(t, srv)
	cli.connect("kick-me", true)

	require.NoError(t, srv.DisconnectClient("kick-me"))
	cli.expectClosed()

	require.Error(t, srv.DisconnectClient("kick-me"), "session should be gone")
}
