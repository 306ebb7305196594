package sess

import (
	"net"
	"sync"

	"github.com/lybxkl/simq/broker/core/message"
	sess "github.com/lybxkl/simq/broker/core/session"
	"github.com/lybxkl/simq/broker/core/topic"
	"github.com/lybxkl/simq/common/log"
)

var _ sess.Manager = (*memManager)(nil)

// memManager 内存会话注册表。按客户端标识与连接双索引，
// 两个索引在同一把锁下更新。
type memManager struct {
	mu     sync.RWMutex
	byID   map[string]*session
	byConn map[net.Conn]*session

	tm topic.Manager // 会话解除时清理订阅条目用
}

func NewMemManager(tm topic.Manager) sess.Manager {
	return &memManager{
		byID:   make(map[string]*session),
		byConn: make(map[net.Conn]*session),
		tm:     tm,
	}
}

func (prv *memManager) Connect(conn net.Conn, cMsg *message.ConnectMessage) (sess.Session, error) {
	prv.mu.Lock()
	defer prv.mu.Unlock()

	id := string(cMsg.ClientId())
	if _, ok := prv.byID[id]; ok {
		return nil, sess.ErrDuplicateConnect
	}

	s, err := newMemSession(conn, cMsg)
	if err != nil {
		return nil, err
	}

	prv.byID[id] = s
	prv.byConn[conn] = s
	return s, nil
}

// DisconnectByConn 先清订阅，再关连接，最后摘除会话。全程持锁，
// 与查找、连接互斥，重复调用为空操作。
func (prv *memManager) DisconnectByConn(conn net.Conn) {
	prv.mu.Lock()
	defer prv.mu.Unlock()

	s, ok := prv.byConn[conn]
	if !ok {
		return
	}

	prv.release(s)
}

func (prv *memManager) LookupByConn(conn net.Conn) (sess.Session, bool) {
	prv.mu.RLock()
	defer prv.mu.RUnlock()

	s, ok := prv.byConn[conn]
	if !ok {
		return nil, false
	}
	return s, true
}

func (prv *memManager) Lookup(id string) (sess.Session, bool) {
	prv.mu.RLock()
	defer prv.mu.RUnlock()

	s, ok := prv.byID[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (prv *memManager) Exist(id string) bool {
	_, ok := prv.Lookup(id)
	return ok
}

func (prv *memManager) Close() error {
	prv.mu.Lock()
	defer prv.mu.Unlock()

	for _, s := range prv.byConn {
		prv.release(s)
	}
	return nil
}

// release 须在持有prv.mu时调用
func (prv *memManager) release(s *session) {
	if err := prv.tm.UnsubscribeAll(s.sid); err != nil {
		log.Log.Warnf("sess: purge subscriptions for %q: %v", s.sid, err)
	}
	if err := s.conn.Close(); err != nil {
		log.Log.Debugf("sess: close conn for %q: %v", s.sid, err)
	}
	delete(prv.byID, s.sid)
	delete(prv.byConn, s.conn)
}
