package collection

import "sync"

const (
	copyThreshold = 1000
	maxDeletion   = 10000
)

// SafeMap provides a map alternative to avoid memory leak.
// This implementation is not needed until issue below fixed.
// https://github.com/golang/go/issues/20135
// https://github.com/zeromicro/go-zero/blob/master/core/collection/safemap.go
type SafeMap struct {
	lock         sync.RWMutex
	oldDeletions int
	newDeletions int
	oldShard     map[interface{}]interface{}
	newShard     map[interface{}]interface{}
}

// NewSafeMap returns a SafeMap.
func NewSafeMap() *SafeMap {
	return &SafeMap{
		oldShard: make(map[interface{}]interface{}),
		newShard: make(map[interface{}]interface{}),
	}
}

// Get gets the value with the given key from m.
func (m *SafeMap) Get(key interface{}) (interface{}, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if val, ok := m.oldShard[key]; ok {
		return val, true
	}

	val, ok := m.newShard[key]
	return val, ok
}

func (m *SafeMap) ContainsKey(key interface{}) bool {
	_, ok := m.Get(key)
	return ok
}

// Set sets the value into m with the given key.
func (m *SafeMap) Set(key, value interface{}) {
	m.lock.Lock()
	m.set(key, value)
	m.lock.Unlock()
}

// GetOrSet 获取，不存在即设置；返回最新或旧值，以及键原来是否存在
func (m *SafeMap) GetOrSet(key, value interface{}) (interface{}, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if val, ok := m.oldShard[key]; ok {
		return val, true
	}
	if val, ok := m.newShard[key]; ok {
		return val, true
	}

	m.set(key, value)
	return value, false
}

// Del deletes the value with the given key from m.
func (m *SafeMap) Del(key interface{}) {
	m.lock.Lock()
	m.del(key)
	m.lock.Unlock()
}

func (m *SafeMap) Dels(keys ...interface{}) {
	m.lock.Lock()
	for _, key := range keys {
		m.del(key)
	}
	m.lock.Unlock()
}

// GetDel 获取并删除；返回删除对象以及是否存在
func (m *SafeMap) GetDel(key interface{}) (interface{}, bool) {
	m.lock.Lock()
	old, ok := m.del(key)
	m.lock.Unlock()
	return old, ok
}

// Size returns the size of m.
func (m *SafeMap) Size() int {
	m.lock.RLock()
	size := len(m.oldShard) + len(m.newShard)
	m.lock.RUnlock()
	return size
}

func (m *SafeMap) Range(fn func(k, v interface{}) error) (err error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for k, v := range m.oldShard {
		if err = fn(k, v); err != nil {
			return
		}
	}
	for k, v := range m.newShard {
		if err = fn(k, v); err != nil {
			return
		}
	}
	return
}

func (m *SafeMap) set(key, value interface{}) {
	if m.oldDeletions <= maxDeletion {
		if _, ok := m.newShard[key]; ok {
			delete(m.newShard, key)
			m.newDeletions++
		}
		m.oldShard[key] = value
	} else {
		if _, ok := m.oldShard[key]; ok {
			delete(m.oldShard, key)
			m.oldDeletions++
		}
		m.newShard[key] = value
	}
}

func (m *SafeMap) del(key interface{}) (interface{}, bool) {
	var (
		old interface{}
		ok  bool
	)
	if old, ok = m.oldShard[key]; ok {
		delete(m.oldShard, key)
		m.oldDeletions++
	} else if old, ok = m.newShard[key]; ok {
		delete(m.newShard, key)
		m.newDeletions++
	}
	if m.oldDeletions >= maxDeletion && len(m.oldShard) < copyThreshold {
		for k, v := range m.oldShard {
			m.newShard[k] = v
		}
		m.oldShard = m.newShard
		m.oldDeletions = m.newDeletions
		m.newShard = make(map[interface{}]interface{})
		m.newDeletions = 0
	}
	if m.newDeletions >= maxDeletion && len(m.newShard) < copyThreshold {
		for k, v := range m.newShard {
			m.oldShard[k] = v
		}
		m.newShard = make(map[interface{}]interface{})
		m.newDeletions = 0
	}
	return old, ok
}
