package kernel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Scenarios below are the Go analogues of the six end-to-end behaviors
// the design calls out: round-robin yield, preemption, pipe blocking
// with an observable pending flag, mutex exclusion with no lost
// updates, fork's priority rule, and a non-blocking empty read.

func TestSchedulerPreemptsLowerPriorityReady(t *testing.T) {
	k := New(Config{})
	lo := newTestTask(k, "lo", 1)
	hi := newTestTask(k, "hi", 3)

	k.mu.Lock()
	lo.Status = StatusRunning
	k.running = lo
	hi.Status = StatusReady
	k.readyList[hi.Priority].PushTail(hi.node)
	k.scheduleLocked()
	k.mu.Unlock()

	require.Equal(t, hi, k.running)
	require.Equal(t, StatusRunning, hi.Status)
	require.Equal(t, StatusReady, lo.Status)
	require.Equal(t, lo, k.readyList[lo.Priority].Peek())
}

func TestSchedulerDoesNotPreemptForEqualOrLowerPriority(t *testing.T) {
	k := New(Config{})
	running := newTestTask(k, "running", 3)
	peer := newTestTask(k, "peer", 3)

	k.mu.Lock()
	running.Status = StatusRunning
	k.running = running
	peer.Status = StatusReady
	k.readyList[peer.Priority].PushTail(peer.node)
	k.scheduleLocked()
	k.mu.Unlock()

	require.Equal(t, running, k.running)
	require.Equal(t, StatusRunning, running.Status)
	require.Equal(t, StatusReady, peer.Status)
}

func TestSchedYieldRoundRobinsEqualPriorityPeers(t *testing.T) {
	k := New(Config{})
	const rounds = 4
	var mu sync.Mutex
	var order []int
	done := make(chan struct{}, 1)

	t1, err := k.spawnTask("t1", 1)
	require.NoError(t, err)
	t2, err := k.spawnTask("t2", 1)
	require.NoError(t, err)
	k.mu.Lock()
	k.scheduleLocked()
	k.mu.Unlock()

	// Each runner records itself only once SchedYield has returned,
	// i.e. once the scheduler has actually granted it the CPU again —
	// recording before the call would just race against Go's own
	// goroutine scheduler instead of observing kernel-level turns.
	//
	// With exactly two equal-priority peers strictly handing the CPU
	// back and forth, the peer that is NOT initially running always
	// ends up one handoff short: its last SchedYield call has nobody
	// left to hand the CPU back to it, since the peer that just
	// returned control has no further call of its own left to make.
	// t1 is deterministically the initial runner (spawned, and hence
	// readied, first), so it completes all `rounds` turns while t2
	// completes only `rounds-1` before its own final call blocks
	// forever — harmless here, the test only waits for the achievable
	// total.
	runner := func(pid int) {
		for i := 0; i < rounds; i++ {
			k.SchedYield(pid)
			mu.Lock()
			order = append(order, pid)
			n := len(order)
			mu.Unlock()
			if n == rounds*2-1 {
				done <- struct{}{}
			}
		}
	}
	go runner(t1.PID)
	go runner(t2.PID)

	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, rounds*2-1)
	for i := 0; i+1 < len(order); i += 2 {
		require.NotEqual(t, order[i], order[i+1])
	}
}

func TestPipeReadBlocksWithObservablePendingThenUnblocks(t *testing.T) {
	k := New(Config{})
	r, err := newRing(k, ringConfig{Capacity: 8})
	require.NoError(t, err)

	reader, err := k.spawnTask("reader", 2)
	require.NoError(t, err)
	writer, err := k.spawnTask("writer", 1)
	require.NoError(t, err)
	k.mu.Lock()
	k.scheduleLocked()
	k.mu.Unlock()

	result := make(chan int32, 1)
	buf := make([]byte, 5)
	go func() {
		result <- k.runSyscall(reader.PID, SysRead, func(t *Task) (int32, bool) {
			return r.Read(k, t, buf)
		})
	}()

	require.Eventually(t, func() bool {
		snap, ok := k.TaskSnapshot(reader.PID)
		return ok && snap.SyscallPending && snap.Status == StatusWait
	}, time.Second, time.Millisecond)

	go func() {
		k.runSyscall(writer.PID, SysWrite, func(t *Task) (int32, bool) {
			return r.Write(k, t, []byte("hello"))
		})
	}()

	select {
	case n := <-result:
		require.Equal(t, int32(5), n)
		require.Equal(t, "hello", string(buf))
	case <-time.After(time.Second):
		t.Fatal("reader never unblocked after writer filled the pipe")
	}
}

func TestMutexProtectsSharedCounterAcrossTasks(t *testing.T) {
	k := New(Config{})
	handle := k.MutexCreate()

	const itersPerTask = 25
	counter := 0
	doneSent := false
	var mu sync.Mutex
	done := make(chan struct{}, 1)

	a, err := k.spawnTask("a", 1)
	require.NoError(t, err)
	b, err := k.spawnTask("b", 1)
	require.NoError(t, err)
	k.mu.Lock()
	k.scheduleLocked()
	k.mu.Unlock()

	// The increment happens before each iteration's trailing SchedYield,
	// so it is always reached even for whichever task ends up stranded
	// on its structurally-final yield call (see the round-robin test
	// above for why exactly one of two ping-ponging peers always is).
	// Gating completion on the counter itself, rather than on both
	// workers' loops fully returning, sidesteps that.
	worker := func(pid int) {
		for i := 0; i < itersPerTask; i++ {
			k.MutexLock(pid, handle)
			mu.Lock()
			counter++
			if counter == 2*itersPerTask && !doneSent {
				doneSent = true
				done <- struct{}{}
			}
			mu.Unlock()
			k.MutexUnlock(pid, handle)
			k.SchedYield(pid)
		}
	}
	go worker(a.PID)
	go worker(b.PID)

	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2*itersPerTask, counter)
}

func TestChildPriorityInheritsNonIdleParent(t *testing.T) {
	require.Equal(t, 3, childPriority(&Task{Priority: 3}))
}

func TestChildPriorityPromotesChildOfIdleTask(t *testing.T) {
	require.Equal(t, TaskPriorityMin, childPriority(&Task{Priority: 0}))
}

func TestForkTaskRunsChildGoroutineAndReturnsItsPID(t *testing.T) {
	k := New(Config{})
	parent, err := k.spawnTask("parent", 2)
	require.NoError(t, err)
	k.mu.Lock()
	k.scheduleLocked()
	k.mu.Unlock()

	sawChildPID := make(chan int, 1)
	childPID := k.ForkTask(parent.PID, func(pid int) {
		sawChildPID <- pid
	})
	require.Greater(t, childPID, int32(0))

	select {
	case got := <-sawChildPID:
		require.Equal(t, int(childPID), got)
	case <-time.After(time.Second):
		t.Fatal("child goroutine never ran")
	}
}

func TestMQReceiveNonBlockingOnEmptyQueueReturnsEAGAIN(t *testing.T) {
	k := New(Config{})
	task, err := k.spawnTask("task", 1)
	require.NoError(t, err)
	k.mu.Lock()
	k.scheduleLocked()
	k.mu.Unlock()

	h := k.MQOpen(task.PID, "/e2e-queue", mqNonBlock, 4, 8)
	require.GreaterOrEqual(t, h, int32(0))

	out := make([]byte, 8)
	n := k.MQReceive(task.PID, int(h), out)
	require.Less(t, n, int32(0))
}
