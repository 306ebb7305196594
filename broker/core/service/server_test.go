package service

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lybxkl/simq/broker/core/message"
	_ "github.com/lybxkl/simq/broker/impl"
	"github.com/lybxkl/simq/common/log"
)

func TestMain(m *testing.M) {
	log.NewGLog(log.DebugLevel)
	os.Exit(m.Run())
}

// startServer 起一个监听随机端口的服务端，测试结束自动停机
func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	srv := NewServer("tcp://127.0.0.1:0", opts...)
	go func() { _ = srv.ListenAndServe() }()
	require.Eventually(t, func() bool { return srv.Addr() != nil },
		2*time.Second, 5*time.Millisecond, "listener not ready")
	t.Cleanup(func() { _ = srv.Shutdown() })
	return srv
}

// testConn 原始字节级的客户端，报文自己编解码
type testConn struct {
	t    *testing.T
	conn net.Conn
	buf  []byte
}

func dialBroker(t *testing.T, srv *Server) *testConn {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{t: t, conn: conn}
}

func (c *testConn) send(msg message.Message) {
	c.t.Helper()

	buf := make([]byte, msg.Len())
	n, err := msg.Encode(buf)
	require.NoError(c.t, err)
	c.sendRaw(buf[:n])
}

func (c *testConn) sendRaw(raw []byte) {
	c.t.Helper()

	_, err := c.conn.Write(raw)
	require.NoError(c.t, err)
}

// recv 阻塞读下一个报文，最多等2秒
func (c *testConn) recv() message.Message {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	tmp := make([]byte, 4096)
	for {
		mtype, total, err := message.PeekMessageSize(c.buf)
		if err == nil && len(c.buf) >= total {
			msg, err := mtype.New()
			require.NoError(c.t, err)
			_, err = msg.Decode(c.buf[:total])
			require.NoError(c.t, err)
			c.buf = c.buf[total:]
			return msg
		}
		require.True(c.t, err == nil || err == message.ErrIncompleteHeader,
			"unexpected peek error: %v", err)

		n, rerr := c.conn.Read(tmp)
		require.NoError(c.t, rerr, "no reply from broker")
		c.buf = append(c.buf, tmp[:n]...)
	}
}

// expectSilence 断言d时间内对端没有送任何字节过来
func (c *testConn) expectSilence(d time.Duration) {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(d)))
	one := make([]byte, 1)
	n, err := c.conn.Read(one)
	require.Zero(c.t, n, "expected no bytes from broker")
	ne, ok := err.(net.Error)
	require.True(c.t, ok && ne.Timeout(), "expected read timeout, got %v", err)
}

// expectClosed 断言对端已把连接关掉
func (c *testConn) expectClosed() {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	one := make([]byte, 1)
	_, err := c.conn.Read(one)
	require.Error(c.t, err, "expected closed connection")
	if ne, ok := err.(net.Error); ok {
		require.False(c.t, ne.Timeout(), "expected closed connection, got timeout")
	}
}

func (c *testConn) connect(cid string, clean bool) *message.ConnackMessage {
	c.t.Helper()

	cMsg := message.NewConnectMessage()
	cMsg.SetCleanSession(clean)
	cMsg.SetKeepAlive(30)
	cMsg.SetClientId([]byte(cid))
	c.send(cMsg)

	ack, ok := c.recv().(*message.ConnackMessage)
	require.True(c.t, ok, "expected CONNACK")
	require.Equal(c.t, message.ConnectionAccepted, ack.ReturnCode())
	return ack
}

type subReq struct {
	topic string
	qos   byte
}

func (c *testConn) subscribe(pktID uint16, reqs ...subReq) *message.SubackMessage {
	c.t.Helper()

	sub := message.NewSubscribeMessage()
	sub.SetPacketId(pktID)
	for _, r := range reqs {
		require.NoError(c.t, sub.AddTopic([]byte(r.topic), r.qos))
	}
	c.send(sub)

	ack, ok := c.recv().(*message.SubackMessage)
	require.True(c.t, ok, "expected SUBACK")
	require.Equal(c.t, pktID, ack.PacketId())
	return ack
}

func (c *testConn) publish(topic string, qos byte, pktID uint16, payload string) {
	c.t.Helper()

	pub := message.NewPublishMessage()
	require.NoError(c.t, pub.SetTopic([]byte(topic)))
	require.NoError(c.t, pub.SetQoS(qos))
	pub.SetPacketId(pktID)
	pub.SetPayload([]byte(payload))
	c.send(pub)
}

func TestConnectAckEchoesCleanSession(t *testing.T) {
	srv := startServer(t)

	clean := dialBroker(t, srv)
	ack := clean.connect("svc-clean", true)
	require.True(t, ack.SessionPresent(), "session present should mirror the clean session bit")

	dirty := dialBroker(t, srv)
	ack = dirty.connect("svc-dirty", false)
	require.False(t, ack.SessionPresent(), "session present should mirror the clean session bit")
}

func TestPacketsBeforeConnectIgnored(t *testing.T) {
	srv := startServer(t)
	cli := dialBroker(t, srv)

	// 会话建立前ping和订阅都石沉大海，连接不断
	cli.send(message.NewPingreqMessage())
	sub := message.NewSubscribeMessage()
	sub.SetPacketId(3)
	require.NoError(t, sub.AddTopic([]byte("early/topic"), 0))
	cli.send(sub)
	cli.expectSilence(150 * time.Millisecond)

	// 补上CONNECT之后一切正常
	cli.connect("late-starter", true)
	cli.send(message.NewPingreqMessage())
	_, ok := cli.recv().(*message.PingrespMessage)
	require.True(t, ok, "expected PINGRESP")
}

func TestDuplicateConnectOnSameConnIgnored(t *testing.T) {
	srv := startServer(t)
	cli := dialBroker(t, srv)
	cli.connect("twice-conn", true)

	second := message.NewConnectMessage()
	second.SetCleanSession(true)
	second.SetClientId([]byte("twice-conn"))
	cli.send(second)
	cli.expectSilence(150 * time.Millisecond)

	// 连接还活着
	cli.send(message.NewPingreqMessage())
	_, ok := cli.recv().(*message.PingrespMessage)
	require.True(t, ok, "expected PINGRESP")
}

func TestDuplicateClientIDSecondConnIgnored(t *testing.T) {
	srv := startServer(t)

	first := dialBroker(t, srv)
	first.connect("dup-ana", true)
	first.subscribe(5, subReq{topic: "dup/t", qos: 0})

	// 同标识再连：新连接上无回包，旧会话不动
	second := dialBroker(t, srv)
	cMsg := message.NewConnectMessage()
	cMsg.SetCleanSession(true)
	cMsg.SetClientId([]byte("dup-ana"))
	second.send(cMsg)
	second.expectSilence(150 * time.Millisecond)

	// 旧会话的订阅仍然生效
	pub := dialBroker(t, srv)
	pub.connect("dup-carol", true)
	pub.publish("dup/t", 0, 0, "still here")

	got, ok := first.recv().(*message.PublishMessage)
	require.True(t, ok, "expected PUBLISH")
	require.Equal(t, []byte("still here"), got.Payload())

	// 被拒的连接换个标识就能连上
	second.connect("dup-ana2", true)
}

func TestDisconnectPurgesSubscriptions(t *testing.T) {
	srv := startServer(t)

	sub := dialBroker(t, srv)
	sub.connect("bye-bob", true)
	sub.subscribe(2, subReq{topic: "bye/t", qos: 0})

	sub.send(message.NewDisconnectMessage())
	sub.expectClosed()

	// 发布给没有订阅者的主题不报错，也没人收到
	pub := dialBroker(t, srv)
	pub.connect("bye-alice", true)
	pub.publish("bye/t", 0, 0, "anyone?")
	pub.expectSilence(150 * time.Millisecond)
}

func TestServerShutdownClosesClients(t *testing.T) {
	srv := startServer(t)

	cli := dialBroker(t, srv)
	cli.connect("shut-cli", true)

	waited := make(chan struct{})
	go func() {
		srv.Wait()
		close(waited)
	}()

	require.NoError(t, srv.Shutdown())
	cli.expectClosed()

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Shutdown")
	}

	// 幂等
	require.NoError(t, srv.Shutdown())

	// 不再接受新连接
	_, err := net.Dial("tcp", srv.Addr().String())
	require.Error(t, err)
}

func TestListenAndServeTwice(t *testing.T) {
	srv := startServer(t)
	require.Error(t, srv.ListenAndServe(), "second ListenAndServe should refuse")
}
