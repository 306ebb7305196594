package topic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lybxkl/simq/broker/core/message"
	"github.com/lybxkl/simq/broker/core/topic"
)

func nopPublish(*message.PublishMessage) error { return nil }

func TestMemTopicsSubscribe(t *testing.T) {
	mgr := NewMemProvider()

	granted, count, first, err := mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 1}, "alice", nopPublish)
	require.NoError(t, err, "Error subscribing.")
	require.Equal(t, byte(1), granted, "Granted QoS should echo the request.")
	require.Equal(t, 1, count)
	require.True(t, first)

	// 重复订阅不产生新条目
	granted, count, first, err = mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 2}, "alice", nopPublish)
	require.NoError(t, err, "Error subscribing.")
	require.Equal(t, byte(2), granted, "Granted QoS should echo the request.")
	require.Equal(t, 1, count, "Duplicate subscribe should not add an entry.")
	require.False(t, first)

	granted, count, first, err = mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "bob", nopPublish)
	require.NoError(t, err, "Error subscribing.")
	require.Equal(t, byte(0), granted)
	require.Equal(t, 2, count)
	require.True(t, first)

	_, _, _, err = mgr.Subscribe(topic.Sub{Topic: []byte(""), Qos: 0}, "alice", nopPublish)
	require.Error(t, err)

	_, _, _, err = mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "carol", nil)
	require.Error(t, err)
}

func TestMemTopicsSubscribers(t *testing.T) {
	mgr := NewMemProvider()

	aliceGot, bobGot := 0, 0
	_, _, _, err := mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "alice",
		func(*message.PublishMessage) error { aliceGot++; return nil })
	require.NoError(t, err)
	_, _, _, err = mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 1}, "bob",
		func(*message.PublishMessage) error { bobGot++; return nil })
	require.NoError(t, err)

	var subs []topic.OnPublishFunc
	err = mgr.Subscribers([]byte("room/1"), &subs)
	require.NoError(t, err)
	require.Equal(t, 2, len(subs))

	for _, fn := range subs {
		require.NoError(t, fn(nil))
	}
	require.Equal(t, 1, aliceGot)
	require.Equal(t, 1, bobGot)

	// 精确匹配，层级前缀不算
	err = mgr.Subscribers([]byte("room"), &subs)
	require.NoError(t, err)
	require.Equal(t, 0, len(subs))

	err = mgr.Subscribers([]byte("no/such/topic"), &subs)
	require.NoError(t, err)
	require.Equal(t, 0, len(subs))
}

func TestMemTopicsUnsubscribe(t *testing.T) {
	mgr := NewMemProvider()

	_, _, _, err := mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "alice", nopPublish)
	require.NoError(t, err)

	err = mgr.Unsubscribe([]byte("room/1"), "bob")
	require.Error(t, err, "Unknown subscriber should not unsubscribe.")

	err = mgr.Unsubscribe([]byte("room/2"), "alice")
	require.Error(t, err, "Unknown topic should not unsubscribe.")

	err = mgr.Unsubscribe([]byte("room/1"), "alice")
	require.NoError(t, err)

	var subs []topic.OnPublishFunc
	err = mgr.Subscribers([]byte("room/1"), &subs)
	require.NoError(t, err)
	require.Equal(t, 0, len(subs))
}

func TestMemTopicsUnsubscribeAll(t *testing.T) {
	mgr := NewMemProvider()

	_, _, _, err := mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "alice", nopPublish)
	require.NoError(t, err)
	_, _, _, err = mgr.Subscribe(topic.Sub{Topic: []byte("room/2"), Qos: 1}, "alice", nopPublish)
	require.NoError(t, err)
	_, _, _, err = mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "bob", nopPublish)
	require.NoError(t, err)

	require.NoError(t, mgr.UnsubscribeAll("alice"))

	var subs []topic.OnPublishFunc
	require.NoError(t, mgr.Subscribers([]byte("room/1"), &subs))
	require.Equal(t, 1, len(subs), "Other subscribers should be untouched.")

	require.NoError(t, mgr.Subscribers([]byte("room/2"), &subs))
	require.Equal(t, 0, len(subs))

	// 不存在的客户端为空操作
	require.NoError(t, mgr.UnsubscribeAll("carol"))
}

func TestMemTopicsClose(t *testing.T) {
	mgr := NewMemProvider()

	_, _, _, err := mgr.Subscribe(topic.Sub{Topic: []byte("room/1"), Qos: 0}, "alice", nopPublish)
	require.NoError(t, err)

	require.NoError(t, mgr.Close())

	var subs []topic.OnPublishFunc
	require.NoError(t, mgr.Subscribers([]byte("room/1"), &subs))
	require.Equal(t, 0, len(subs))
}
