package stat

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lybxkl/simq/broker/core/message"
	"github.com/lybxkl/simq/broker/core/module"
	consts "github.com/lybxkl/simq/common/constant"
	. "github.com/lybxkl/simq/common/log"
	"github.com/lybxkl/simq/util/cron"
)

const sysJobID = "sys_broker_stats"

// Publisher 对外发布消息的最小能力，服务端实现它
type Publisher interface {
	PublishMessage(topic []byte, qos byte, payload []byte) error
}

// sysMod 周期性把运行统计发布到$sys/broker/#主题，
// 客户端订阅对应主题即可拿到
type sysMod struct {
	*module.BaseMod

	pub      Publisher
	interval uint64
	startAt  time.Time
}

func NewSysMod(pub Publisher, interval uint64) module.Mod {
	if interval == 0 {
		interval = 10
	}
	return &sysMod{
		BaseMod:  &module.BaseMod{},
		pub:      pub,
		interval: interval,
	}
}

func (m *sysMod) Hand(msg message.Message, opt ...module.Option) error {
	return nil
}

func (m *sysMod) Open() error {
	if err := m.BaseMod.Open(); err != nil {
		return err
	}
	m.startAt = time.Now()

	spec := fmt.Sprintf("@every %ds", m.interval)
	if err := cron.Get().AddFunc(spec, sysJobID, m.publishAll); err != nil {
		return err
	}
	Log.Infof("sys stats publish every %ds, next runs: %v", m.interval, cron.GetDisplayCycleTime(spec))
	return nil
}

func (m *sysMod) Stop() error {
	cron.Get().Remove(sysJobID)
	return m.BaseMod.Stop()
}

func (m *sysMod) publishAll() {
	if !m.IsOpen() {
		return
	}
	uptime := int64(time.Since(m.startAt).Seconds())
	m.publish(consts.SysTopicUptime, strconv.FormatInt(uptime, 10))
	m.publish(consts.SysTopicClients, strconv.FormatInt(Clients(), 10))
	m.publish(consts.SysTopicRecv, strconv.FormatUint(RecvMsgs(), 10))
	m.publish(consts.SysTopicSent, strconv.FormatUint(SentMsgs(), 10))
	m.publish(consts.SysTopicDropped, strconv.FormatUint(Dropped(), 10))
}

func (m *sysMod) publish(topic, payload string) {
	if err := m.pub.PublishMessage([]byte(topic), message.QosAtMostOnce, []byte(payload)); err != nil {
		Log.Errorf("sys stats publish %s: %v", topic, err)
	}
}
