// bench 对运行中的broker做简单压测：起n个订阅者和m个发布者，
// 发满count条后统计吞吐与送达数。
//
//	go run ./cmd/bench -broker tcp://127.0.0.1:1883 -pub 2 -sub 4 -count 1000 -qos 1
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/atomic"
)

var (
	broker  = flag.String("broker", "tcp://127.0.0.1:1883", "broker地址")
	topic   = flag.String("topic", "bench/t", "压测主题")
	pubs    = flag.Int("pub", 1, "发布者数量")
	subs    = flag.Int("sub", 1, "订阅者数量")
	count   = flag.Int("count", 1000, "每个发布者发多少条")
	qos     = flag.Int("qos", 0, "发布qos，0或1")
	size    = flag.Int("size", 64, "载荷字节数")
	timeout = flag.Duration("timeout", 30*time.Second, "整体超时")
)

func main() {
	flag.Parse()
	if *qos != 0 && *qos != 1 {
		fmt.Fprintln(os.Stderr, "qos must be 0 or 1")
		os.Exit(2)
	}

	received := atomic.NewInt64(0)
	for i := 0; i < *subs; i++ {
		cli := connect(fmt.Sprintf("bench-sub-%d", i))
		tok := cli.Subscribe(*topic, byte(*qos), func(_ mqtt.Client, _ mqtt.Message) {
			received.Inc()
		})
		wait(tok, "subscribe")
		defer cli.Disconnect(100)
	}

	payload := make([]byte, *size)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	total := *pubs * *count
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *pubs; i++ {
		wg.Add(1)
		go func(no int) {
			defer wg.Done()
			cli := connect(fmt.Sprintf("bench-pub-%d", no))
			defer cli.Disconnect(100)
			for j := 0; j < *count; j++ {
				wait(cli.Publish(*topic, byte(*qos), false, payload), "publish")
			}
		}(i)
	}
	wg.Wait()
	pubDone := time.Since(start)

	// 等订阅端把在途的收完
	want := int64(total * *subs)
	deadline := time.Now().Add(*timeout)
	for received.Load() < want && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	elapsed := time.Since(start)

	fmt.Printf("published %d msgs in %v (%.0f msg/s)\n",
		total, pubDone.Truncate(time.Millisecond), float64(total)/pubDone.Seconds())
	fmt.Printf("delivered %d/%d msgs in %v (%.0f msg/s)\n",
		received.Load(), want, elapsed.Truncate(time.Millisecond), float64(received.Load())/elapsed.Seconds())
}

func connect(cid string) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID(cid).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	cli := mqtt.NewClient(opts)
	wait(cli.Connect(), "connect")
	return cli
}

func wait(tok mqtt.Token, op string) {
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", op, tok.Error())
		os.Exit(1)
	}
}
