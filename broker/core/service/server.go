package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/lybxkl/simq/broker/core"
	"github.com/lybxkl/simq/broker/core/event"
	"github.com/lybxkl/simq/broker/core/message"
	"github.com/lybxkl/simq/broker/core/module"
	"github.com/lybxkl/simq/broker/core/topic"
	"github.com/lybxkl/simq/broker/gcfg"
	. "github.com/lybxkl/simq/common/log"
	"github.com/lybxkl/simq/util/bufpool"
	"github.com/lybxkl/simq/util/collection"
	"github.com/lybxkl/simq/util/gopool"
	"github.com/lybxkl/simq/util/middleware"
)

type Option func(*Server)

// WithListener 注册事件监听器，可注册多个，按注册顺序同步回调
func WithListener(l event.Listener) Option {
	return func(s *Server) {
		s.listeners = append(s.listeners, l)
	}
}

// WithMiddleware 注册报文中间件
func WithMiddleware(opt middleware.Option) Option {
	return func(s *Server) {
		s.middleware.Apply(opt)
	}
}

// WithModule 注册模块，Open在服务启动时调用，Stop在Shutdown时调用
func WithModule(m module.Mod) Option {
	return func(s *Server) {
		s.mods = append(s.mods, m)
	}
}

type Server struct {
	ctx    context.Context
	cancel func()

	// 监听器启动后由Accept协程写入，Addr和Shutdown并发读
	ln  atomic.Value // net.Listener
	uri *url.URL

	// 存活连接的服务表，停机时挨个关掉
	svcs *collection.SafeMap // map[uint64]*service

	running *atomic.Bool
	// 关闭信号，Accept失败时区分停机与异常
	quit chan struct{}

	configOnce   *sync.Once
	shutdownOnce *sync.Once

	close      []io.Closer
	middleware middleware.Options
	listeners  event.Listeners
	mods       []module.Mod
}

func NewServer(uri string, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	u, err := url.Parse(uri)
	if err != nil {
		panic(err)
	}
	server := &Server{
		ctx:          ctx,
		cancel:       cancel,
		quit:         make(chan struct{}),
		uri:          u,
		svcs:         collection.NewSafeMap(),
		running:      atomic.NewBool(false),
		configOnce:   &sync.Once{},
		shutdownOnce: &sync.Once{},
	}
	for _, opt := range opts {
		opt(server)
	}
	return server
}

// ListenAndServe 在URI上监听并处理进来的MQTT连接，
// 直到Shutdown()被调用或监听出错才返回。
// URI格式为"protocol://host:port"，如"tcp://0.0.0.0:1883"。
func (server *Server) ListenAndServe() error {
	// 防止重复启动
	if !server.running.CAS(false, true) {
		return fmt.Errorf("server/ListenAndServe: Server is already running")
	}
	defer server.running.CAS(true, false)

	var err error

	err = server.checkAndInitConfig()
	if err != nil {
		return err
	}

	var tempDelay time.Duration // 接受失败要睡多久，默认5ms，最大1s

	ln, err := net.Listen(server.uri.Scheme, server.uri.Host)
	if err != nil {
		return err
	}
	server.ln.Store(ln)

	Log.Infof("AddMQTTHandler uri=%v", server.uri.String())
	for {
		conn, err := ln.Accept()

		if err != nil {
			// http://zhen.org/blog/graceful-shutdown-of-go-net-dot-listeners/
			select {
			case <-server.quit: //关闭服务器
				return nil
			default:
			}

			// Borrowed from go1.3.3/src/pkg/net/http/server.go:1699
			// 暂时的错误处理
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				tempDelay = reset(tempDelay)
				Log.Errorf("Accept error: %v; retrying in %v", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		gopool.Submit(func() {
			server.handleConnection(conn)
		})
	}
}

// Addr 实际监听地址，端口写0时用它拿真实端口。监听未就绪时为nil。
func (server *Server) Addr() net.Addr {
	ln, ok := server.ln.Load().(net.Listener)
	if !ok {
		return nil
	}
	return ln.Addr()
}

func (server *Server) AddCloser(close io.Closer) {
	server.close = append(server.close, close)
}

// AddModule 注册模块，须在ListenAndServe之前调用
func (server *Server) AddModule(m module.Mod) {
	server.mods = append(server.mods, m)
}

// Shutdown 停机：停收新连接，关掉存量连接，停模块，释放资源。幂等。
func (server *Server) Shutdown() error {
	server.shutdownOnce.Do(server.shutdown)
	return nil
}

func (server *Server) shutdown() {
	// 先关quit，让Accept循环退出
	close(server.quit)

	// 先收集再逐个停。stop里会从svcs删自己，
	// 不能在Range持有读锁期间做
	alive := make([]*service, 0, server.svcs.Size())
	_ = server.svcs.Range(func(_, v interface{}) error {
		if svc, ok := v.(*service); ok {
			alive = append(alive, svc)
		}
		return nil
	})
	for _, svc := range alive {
		svc.stop()
	}

	// 关监听，让阻塞中的Accept返回
	if ln, ok := server.ln.Load().(net.Listener); ok {
		if err := ln.Close(); err != nil {
			Log.Errorf("关闭网络Listener错误:%v", err)
		}
	}

	for _, m := range server.mods {
		if err := m.Stop(); err != nil {
			Log.Errorf("关闭模块错误:%v", err)
		}
	}

	for i := 0; i < len(server.close); i++ {
		if err := server.close[i].Close(); err != nil {
			Log.Error(err.Error())
		}
	}
	if server.cancel != nil {
		server.cancel()
	}
}

// Wait 阻塞到Shutdown被调用
func (server *Server) Wait() {
	<-server.quit
}

// handleConnection 在协程池任务里跑完一个连接的整个生命周期。
// 连接从接入起就进入分发循环，CONNECT也由这个循环处理。
func (server *Server) handleConnection(conn net.Conn) {
	if conn == nil {
		return
	}

	cfg := gcfg.GetGCfg()
	svc := &service{
		id:     gsvcid.Inc(),
		server: server,
		conn:   conn,
		in:     newStream(conn, cfg.Connect.ReadBufferSize, cfg.Connect.MaxPacketSize),
		sign:   NewSign(cfg.Connect.ReadLimit),
		state:  atomic.NewInt32(statePending),
		closed: atomic.NewBool(false),
		done:   make(chan struct{}),
	}
	svc.ccid = atomic.NewString(fmt.Sprintf("simq-%d", svc.id))

	server.svcs.Set(svc.id, svc)
	Log.Debugf("(%s) connection accepted from %s", svc.cid(), conn.RemoteAddr())

	svc.processor()
}

func (server *Server) checkAndInitConfig() error {
	var err error
	server.configOnce.Do(func() {
		cfg := gcfg.GetGCfg()

		server.AddCloser(gopool.InitServiceTaskPool(cfg.Broker.ServerTaskPoolSize))

		if len(server.middleware) == 0 {
			server.middleware.Apply(middleware.WithConsole())
		}

		for _, m := range server.mods {
			if err = m.Open(); err != nil {
				return
			}
		}
	})
	return err
}

// fanout 把消息转发给主题的全部订阅者。qos沿用发布者的值，
// 报文标识符置0，投递失败只断开出错的订阅者。
func (server *Server) fanout(from string, msg *message.PublishMessage) {
	var subs []topic.OnPublishFunc
	if err := core.TopicManager().Subscribers(msg.Topic(), &subs); err != nil {
		Log.Errorf("(%s) fetch subscribers of %s: %v", from, msg.Topic(), err)
		return
	}
	if len(subs) == 0 {
		return
	}

	out, err := copyMsg(msg)
	if err != nil {
		Log.Errorf("(%s) copy publish: %v", from, err)
		return
	}
	out.SetPacketId(0)
	out.SetDup(false)

	for _, fn := range subs {
		if err := fn(out); err != nil {
			Log.Debugf("(%s) fanout to one subscriber failed: %v", from, err)
		}
	}
}

// copyMsg 经过编解码深拷贝一条PUBLISH。
// 解码出的topic和payload都是新切片，不与原报文共享内存。
func copyMsg(msg *message.PublishMessage) (*message.PublishMessage, error) {
	buf := bufpool.BufferPoolGet()
	defer bufpool.BufferPoolPut(buf)

	if _, err := msg.EncodeToBuf(buf); err != nil {
		return nil, err
	}
	out := message.NewPublishMessage()
	if _, err := out.Decode(buf.Bytes()); err != nil {
		return nil, err
	}
	return out, nil
}

// PublishMessage 以服务端身份向topic的订阅者发消息，$SYS之类的内部发布走这里
func (server *Server) PublishMessage(topicName []byte, qos byte, payload []byte) error {
	if !message.ValidTopic(topicName) {
		return fmt.Errorf("server/PublishMessage: invalid topic %q", topicName)
	}
	if !message.ValidQos(qos) {
		return fmt.Errorf("server/PublishMessage: invalid qos %d", qos)
	}

	msg := message.NewPublishMessage()
	if err := msg.SetTopic(topicName); err != nil {
		return err
	}
	if err := msg.SetQoS(qos); err != nil {
		return err
	}
	msg.SetPayload(payload)

	server.fanout("server", msg)
	server.listeners.OnMessagePublished(msg.Topic(), msg.QoS(), msg.Payload())
	return nil
}

// DisconnectClient 服务端主动断开某个客户端，其订阅随会话一并清除
func (server *Server) DisconnectClient(cid string) error {
	s, ok := core.SessionManager().Lookup(cid)
	if !ok {
		return fmt.Errorf("service: no active session for client %q", cid)
	}
	core.SessionManager().DisconnectByConn(s.Conn())
	return nil
}

func (server *Server) handMods(msg message.Message) {
	for _, m := range server.mods {
		if err := m.Hand(msg); err != nil {
			Log.Warnf("module deal msg %s err: %v", msg.Name(), err)
		}
	}
}

func reset(tempDelay time.Duration) time.Duration {
	if tempDelay == 0 {
		tempDelay = 5 * time.Millisecond
	} else {
		tempDelay *= 2
	}
	if max := 1 * time.Second; tempDelay > max {
		tempDelay = max
	}
	return tempDelay
}
