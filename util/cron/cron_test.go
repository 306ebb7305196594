package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.uber.org/atomic"
)

func TestGetDisplayCycleTime(t *testing.T) {
	times := GetDisplayCycleTime("@every 1s")
	require.Len(t, times, 5)

	for _, ts := range times {
		_, err := time.Parse("2006-01-02 15:04:05", ts)
		require.NoError(t, err)
	}

	require.Empty(t, GetDisplayCycleTime("not a spec"))
}

func TestJobLifecycle(t *testing.T) {
	c := Get()

	err := c.AddFunc("0 0 * * * *", "job_lifecycle", func() {})
	require.NoError(t, err)

	_, ok := c.GetJob("job_lifecycle")
	require.True(t, ok)

	c.Remove("job_lifecycle")
	_, ok = c.GetJob("job_lifecycle")
	require.False(t, ok)

	// 重复Remove不应panic
	c.Remove("job_lifecycle")
}

func TestAddFuncBadSpec(t *testing.T) {
	c := Get()

	err := c.AddFunc("not a spec", "job_bad_spec", func() {})
	require.Error(t, err)

	// 注册失败不允许留下悬空id
	_, ok := c.GetJob("job_bad_spec")
	require.False(t, ok)
}

func TestJobFires(t *testing.T) {
	c := Get()

	fired := atomic.NewInt64(0)
	require.NoError(t, c.AddFunc("@every 1s", "job_fires", func() {
		fired.Inc()
	}))
	defer c.Remove("job_fires")

	require.Eventually(t, func() bool {
		return fired.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
