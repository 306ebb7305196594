package service

import (
	"time"

	"github.com/bsm/ratelimit"
	"go.uber.org/atomic"
)

// Sign 连接级入站节拍器。限制单连接每秒处理的报文数，
// 超出时小睡等待窗口滚动，不断开连接。limit<=0 表示不限速。
type Sign struct {
	rateLimit *ratelimit.RateLimiter
	throttled *atomic.Int64 // 被限速的总次数
}

func NewSign(limit int) *Sign {
	s := &Sign{throttled: atomic.NewInt64(0)}
	if limit > 0 {
		s.rateLimit = ratelimit.New(limit, time.Second)
	}
	return s
}

// Pace 在处理下一个报文前调用。超出速率时阻塞到窗口滚动为止。
func (s *Sign) Pace() {
	if s.rateLimit == nil {
		return
	}
	for s.rateLimit.Limit() {
		s.throttled.Inc()
		time.Sleep(5 * time.Millisecond)
	}
}

// Throttled 累计被限速次数
func (s *Sign) Throttled() int64 {
	return s.throttled.Load()
}
