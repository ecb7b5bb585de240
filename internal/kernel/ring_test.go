package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTask(k *Kernel, name string, priority int) *Task {
	t := newTask(0, name, priority)
	k.installTask(t)
	return t
}

func TestRingByteModeBlocksThenWakesOnWrite(t *testing.T) {
	k := New(Config{})
	r, err := newRing(k, ringConfig{Capacity: 8})
	require.NoError(t, err)

	consumer := newTestTask(k, "consumer", 1)
	buf := make([]byte, 4)
	ret, done := r.Read(k, consumer, buf)
	require.False(t, done)
	require.Equal(t, int32(0), ret)
	require.Equal(t, StatusWait, consumer.Status)
	require.Equal(t, consumer, r.readers.Peek())

	producer := newTestTask(k, "producer", 1)
	ret, done = r.Write(k, producer, []byte("data"))
	require.True(t, done)
	require.Equal(t, int32(4), ret)
	require.Equal(t, StatusReady, consumer.Status)
	require.True(t, r.readers.Empty())

	ret, done = r.Read(k, consumer, buf)
	require.True(t, done)
	require.Equal(t, int32(4), ret)
	require.Equal(t, "data", string(buf))
}

func TestRingByteModeNonBlockingEAGAIN(t *testing.T) {
	k := New(Config{})
	r, err := newRing(k, ringConfig{Capacity: 8, NonBlocking: true})
	require.NoError(t, err)

	consumer := newTestTask(k, "consumer", 1)
	ret, done := r.Read(k, consumer, make([]byte, 4))
	require.True(t, done)
	require.Less(t, ret, int32(0))
	require.True(t, r.readers.Empty())
}

func TestRingRecordModeTransfersExactlyOneRecord(t *testing.T) {
	k := New(Config{})
	r, err := newRing(k, ringConfig{Capacity: 4, RecordSize: 8})
	require.NoError(t, err)

	writer := newTestTask(k, "writer", 1)
	msg := []byte("msgpad!!")
	ret, done := r.Write(k, writer, msg)
	require.True(t, done)
	require.Equal(t, int32(8), ret)

	reader := newTestTask(k, "reader", 1)
	out := make([]byte, 8)
	ret, done = r.Read(k, reader, out)
	require.True(t, done)
	require.Equal(t, int32(8), ret)
	require.Equal(t, msg, out)
	require.True(t, r.empty())
}

func TestRingWriteBlocksWhenFull(t *testing.T) {
	k := New(Config{})
	r, err := newRing(k, ringConfig{Capacity: 2, RecordSize: 4})
	require.NoError(t, err)

	w1 := newTestTask(k, "w1", 1)
	ret, done := r.Write(k, w1, []byte("aaaa"))
	require.True(t, done)
	require.Equal(t, int32(4), ret)

	w2 := newTestTask(k, "w2", 1)
	ret, done = r.Write(k, w2, []byte("bbbb"))
	require.True(t, done)
	require.Equal(t, int32(4), ret)

	w3 := newTestTask(k, "w3", 1)
	ret, done = r.Write(k, w3, []byte("cccc"))
	require.False(t, done)
	require.Equal(t, int32(0), ret)
	require.Equal(t, StatusWait, w3.Status)

	reader := newTestTask(k, "reader", 1)
	out := make([]byte, 4)
	ret, done = r.Read(k, reader, out)
	require.True(t, done)
	require.Equal(t, []byte("aaaa"), out)
	require.Equal(t, StatusReady, w3.Status)
}

func TestISRPutByteDropsOnFull(t *testing.T) {
	k := New(Config{})
	r, err := newRing(k, ringConfig{Capacity: 2})
	require.NoError(t, err)

	r.ISRPutByte('a')
	r.ISRPutByte('b')
	r.ISRPutByte('c') // dropped, ring full

	require.Equal(t, 2, r.count)
}
