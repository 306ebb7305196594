package cron

import (
	"sync"

	"github.com/robfig/cron/v3"
)

// Icron 秒级精度的定时任务调度，任务按自定义id管理
type Icron interface {
	AddJob(spec string, id string, job cron.Job) error
	AddFunc(spec string, id string, fn func()) error
	GetJob(id string) (cron.Job, bool)
	Remove(id string)
	Start()
	Stop()
}

var (
	scheduleCron = new(ScheduleCron)

	once sync.Once
)

// Get 进程内共享一个调度器，首次获取时启动
func Get() Icron {
	once.Do(func() {
		scheduleCron.initCron()
		scheduleCron.Start()
	})
	return scheduleCron
}

type ScheduleCron struct {
	schedule *cron.Cron

	ids sync.Map
}

func (s *ScheduleCron) initCron() {
	if s.schedule == nil {
		// 任务panic由Recover链拦下，不炸调度器
		s.schedule = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	}
}

func (s *ScheduleCron) AddJob(spec, id string, job cron.Job) error {
	entryID, err := s.schedule.AddJob(spec, job)
	if err != nil {
		return err
	}
	s.ids.Store(id, entryID)
	return nil
}

// AddFunc 注册周期函数任务
func (s *ScheduleCron) AddFunc(spec, id string, fn func()) error {
	return s.AddJob(spec, id, cron.FuncJob(fn))
}

func (s *ScheduleCron) GetJob(id string) (cron.Job, bool) {
	v, exist := s.ids.Load(id)
	if !exist {
		return nil, false
	}
	e := s.schedule.Entry(v.(cron.EntryID))
	if e.Job == nil {
		return nil, false
	}
	return e.Job, true
}

func (s *ScheduleCron) Remove(id string) {
	v, exist := s.ids.LoadAndDelete(id)
	if !exist {
		return
	}
	s.schedule.Remove(v.(cron.EntryID))
}

func (s *ScheduleCron) Start() {
	s.schedule.Start()
}

func (s *ScheduleCron) Stop() {
	s.schedule.Stop()
}
