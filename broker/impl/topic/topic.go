package topic

import (
	"fmt"
	"sync"

	"github.com/lybxkl/simq/broker/core/topic"
)

var _ topic.Manager = (*memTopics)(nil)

// entry 一条订阅：客户端标识、投递回调、授予的qos
type entry struct {
	cid string
	fn  topic.OnPublishFunc
	qos byte
}

// memTopics 内存主题表。主题做精确匹配，不做层级/通配符解析，
// 内容不持久化，服务停止即消失。
type memTopics struct {
	mu sync.RWMutex
	// 主题 → 订阅条目，条目按 (主题, cid) 唯一
	subs map[string][]*entry
}

// NewMemProvider 返回实现 topic.Manager 的内存主题表
func NewMemProvider() topic.Manager {
	return &memTopics{
		subs: make(map[string][]*entry),
	}
}

// Subscribe 重复订阅不改动已有条目，仍回授予qos。
// 授予值与请求值一致，不做降级。
func (t *memTopics) Subscribe(sub topic.Sub, cid string, onPublish topic.OnPublishFunc) (byte, int, bool, error) {
	if len(sub.Topic) == 0 {
		return 0, 0, false, fmt.Errorf("memtopics/Subscribe: Empty topic")
	}
	if onPublish == nil {
		return 0, 0, false, fmt.Errorf("memtopics/Subscribe: Subscriber cannot be nil")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tp := string(sub.Topic)
	list := t.subs[tp]
	for _, e := range list {
		if e.cid == cid {
			return sub.Qos, len(list), false, nil
		}
	}

	list = append(list, &entry{cid: cid, fn: onPublish, qos: sub.Qos})
	t.subs[tp] = list

	return sub.Qos, len(list), true, nil
}

func (t *memTopics) Unsubscribe(tp []byte, cid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remove(string(tp), cid)
}

// UnsubscribeAll 清空cid名下全部条目，一次持锁内完成
func (t *memTopics) UnsubscribeAll(cid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for tp, list := range t.subs {
		for i, e := range list {
			if e.cid == cid {
				t.subs[tp] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(t.subs[tp]) == 0 {
			delete(t.subs, tp)
		}
	}
	return nil
}

// Subscribers 返回的切片在下一次调用前有效
func (t *memTopics) Subscribers(tp []byte, subs *[]topic.OnPublishFunc) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	*subs = (*subs)[0:0]
	for _, e := range t.subs[string(tp)] {
		*subs = append(*subs, e.fn)
	}
	return nil
}

func (t *memTopics) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.subs = make(map[string][]*entry)
	return nil
}

// remove 须在持有t.mu时调用
func (t *memTopics) remove(tp string, cid string) error {
	list, ok := t.subs[tp]
	if !ok {
		return fmt.Errorf("memtopics/remove: No topic found")
	}

	for i, e := range list {
		if e.cid == cid {
			t.subs[tp] = append(list[:i], list[i+1:]...)
			if len(t.subs[tp]) == 0 {
				delete(t.subs, tp)
			}
			return nil
		}
	}

	return fmt.Errorf("memtopics/remove: No topic found for subscriber")
}
