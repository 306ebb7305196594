package stat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"

	"github.com/lybxkl/simq/broker/core/event"
	sess "github.com/lybxkl/simq/broker/core/session"
	"github.com/lybxkl/simq/util/gopool"
)

// 进程级累计量。收发按报文计数、按字节累计，
// prometheus采集和$sys主题发布读的是同一组数
var (
	recvMsgs  = atomic.NewUint64(0)
	recvBytes = atomic.NewUint64(0)
	sentMsgs  = atomic.NewUint64(0)
	sentBytes = atomic.NewUint64(0)
	dropped   = atomic.NewUint64(0)

	published  = atomic.NewUint64(0)
	subscribed = atomic.NewUint64(0)

	clients = atomic.NewInt64(0)
)

// AddRecv 收到一个n字节的报文
func AddRecv(n uint64) {
	recvMsgs.Inc()
	recvBytes.Add(n)
}

// AddSent 发出一个n字节的报文
func AddSent(n uint64) {
	sentMsgs.Inc()
	sentBytes.Add(n)
}

// AddDropped 投递失败丢弃n条消息
func AddDropped(n uint64) {
	dropped.Add(n)
}

func RecvMsgs() uint64   { return recvMsgs.Load() }
func SentMsgs() uint64   { return sentMsgs.Load() }
func Dropped() uint64    { return dropped.Load() }
func Clients() int64     { return clients.Load() }
func Published() uint64  { return published.Load() }
func Subscribed() uint64 { return subscribed.Load() }

var (
	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "messages_received_total",
		Help:      "Number of MQTT packets read from clients.",
	}, func() float64 { return float64(recvMsgs.Load()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "messages_sent_total",
		Help:      "Number of MQTT packets written to clients.",
	}, func() float64 { return float64(sentMsgs.Load()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "messages_dropped_total",
		Help:      "Number of messages dropped because a subscriber was unwritable.",
	}, func() float64 { return float64(dropped.Load()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "bytes_received_total",
		Help:      "Bytes of decoded MQTT packets read from clients.",
	}, func() float64 { return float64(recvBytes.Load()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "bytes_sent_total",
		Help:      "Bytes of MQTT packets written to clients.",
	}, func() float64 { return float64(sentBytes.Load()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "messages_published_total",
		Help:      "Number of PUBLISH messages accepted, regardless of subscriber count.",
	}, func() float64 { return float64(published.Load()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "simq",
		Name:      "subscriptions_total",
		Help:      "Number of new (topic, client) subscription entries created.",
	}, func() float64 { return float64(subscribed.Load()) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "simq",
		Name:      "clients_connected",
		Help:      "Sessions currently established.",
	}, func() float64 { return float64(clients.Load()) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "simq",
		Name:      "task_pool_running",
		Help:      "Goroutines busy in the connection task pool.",
	}, func() float64 { return float64(gopool.Running()) })
)

type listener struct{}

// Listener 挂到服务端后自动维护上面的连接数、发布数、订阅数
func Listener() event.Listener { return listener{} }

func (listener) OnClientConnect(_ sess.Session) { clients.Inc() }

func (listener) OnClientDisconnect(_ sess.Session) { clients.Dec() }

func (listener) OnTopicSubscribed(_ []byte, _ int) { subscribed.Inc() }

func (listener) OnMessagePublished(_ []byte, _ byte, _ []byte) { published.Inc() }
