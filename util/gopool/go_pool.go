package gopool

import (
	"errors"
	"io"
	"sync"

	"github.com/panjf2000/ants/v2"

	. "github.com/lybxkl/simq/common/log"
	"github.com/lybxkl/simq/util"
)

var (
	taskGPool     *ants.Pool
	taskGPoolSize int
	poolOnce      sync.Once
)

// InitServiceTaskPool 初始化连接处理协程池，重复调用不重建
func InitServiceTaskPool(poolSize int) (close io.Closer) {
	poolOnce.Do(func() {
		var err error
		taskGPool, err = ants.NewPool(poolSize, ants.WithPanicHandler(func(i interface{}) {
			Log.Errorf("协程池处理错误：%v", i)
		}), ants.WithMaxBlockingTasks(poolSize*2))
		util.MustPanic(err)

		taskGPoolSize = poolSize
	})
	return &closer{}
}

type closer struct {
}

func (closer closer) Close() error {
	taskGPool.Release()
	return nil
}

func Submit(f func()) {
	if taskGPool == nil {
		GoSafe(f)
		return
	}
	if err := taskGPool.Submit(f); err != nil {
		dealAntsErr(err)
		// 池恢复后重投一次，仍失败则降级为独立协程，任务不能丢
		if err = taskGPool.Submit(f); err != nil {
			Log.Errorf("协程池重投失败，降级直跑：%v", err)
			GoSafe(f)
		}
	}
}

// Running 当前正在运行的任务数
func Running() int {
	if taskGPool == nil {
		return 0
	}
	return taskGPool.Running()
}

func dealAntsErr(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ants.ErrPoolClosed) {
		Log.Errorf("协程池已关闭，重启：%v", err)
		taskGPool.Reboot()
		return
	}
	if errors.Is(err, ants.ErrPoolOverload) {
		Log.Errorf("协程池超载，扩容：%v", err)
		taskGPool.Tune(int(float64(taskGPoolSize) * 1.25))
		return
	}
	Log.Errorf("协程池处理异常：%v", err)
}
