package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMQOpenDeduplicatesByName(t *testing.T) {
	k := New(Config{})
	sender := newTestTask(k, "sender", 1)
	k.running = sender
	sender.Status = StatusRunning

	h1 := k.MQOpen(sender.PID, "/queue1", 0, 4, 8)
	require.GreaterOrEqual(t, h1, int32(0))

	h2 := k.MQOpen(sender.PID, "/queue1", 0, 4, 8)
	require.Equal(t, h1, h2)
	require.Len(t, k.mqTable.entries, 1)
}

func TestMQSendReceiveOneRecordAtATime(t *testing.T) {
	k := New(Config{})
	task := newTestTask(k, "task", 1)
	k.running = task
	task.Status = StatusRunning

	h := k.MQOpen(task.PID, "/queue2", 0, 4, 8)
	require.GreaterOrEqual(t, h, int32(0))

	n := k.MQSend(task.PID, int(h), []byte("hello!!!"))
	require.Equal(t, int32(8), n)
	require.Equal(t, int32(1), k.mqTable.entries[h].Attr.CurMsgs)

	out := make([]byte, 8)
	n = k.MQReceive(task.PID, int(h), out)
	require.Equal(t, int32(8), n)
	require.Equal(t, "hello!!!", string(out))
	require.Equal(t, int32(0), k.mqTable.entries[h].Attr.CurMsgs)
}

func TestMQReceiveNonBlockingEmptyReturnsEAGAIN(t *testing.T) {
	k := New(Config{})
	task := newTestTask(k, "task", 1)
	k.running = task
	task.Status = StatusRunning

	h := k.MQOpen(task.PID, "/queue3", mqNonBlock, 4, 8)
	require.GreaterOrEqual(t, h, int32(0))

	out := make([]byte, 8)
	n := k.MQReceive(task.PID, int(h), out)
	require.Less(t, n, int32(0))
}

func TestMQBadHandleIsEBADF(t *testing.T) {
	k := New(Config{})
	task := newTestTask(k, "task", 1)
	k.running = task
	task.Status = StatusRunning

	out := make([]byte, 8)
	n := k.MQReceive(task.PID, 99, out)
	require.Less(t, n, int32(0))
}
