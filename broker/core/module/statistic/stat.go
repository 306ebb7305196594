package statistic

import (
	"fmt"
	"sync/atomic"
)

// Stat 单连接的收/发累计，连接关闭时打印
type Stat struct {
	bytes    uint64
	msgTotal uint64
}

func (s *Stat) Incr(n uint64) {
	atomic.AddUint64(&s.bytes, n)
	atomic.AddUint64(&s.msgTotal, 1)
}

func (s *Stat) Bytes() uint64 {
	return atomic.LoadUint64(&s.bytes)
}

func (s *Stat) MsgTotal() uint64 {
	return atomic.LoadUint64(&s.msgTotal)
}

func (s *Stat) String() string {
	return fmt.Sprintf("%d bytes in %d messages.", s.Bytes(), s.MsgTotal())
}
