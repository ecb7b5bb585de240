package kernel

import (
	"github.com/tenok-go/rtkernel/internal/kerrno"
	"github.com/tenok-go/rtkernel/internal/klist"
)

// Mutex is an owner pointer (nil meaning free) plus a FIFO wait list. The
// invariant owner==nil ⇒ waiters empty is maintained by construction: the
// only way to become free is unlock-with-no-waiters, and the only way to
// gain an owner is either an uncontended lock or a direct handoff from
// unlock.
type Mutex struct {
	owner   *Task
	waiters klist.List[Task]
}

// mutexes is the kernel's table of live mutexes, addressed by index —
// the syscall-visible "handle" pthread_mutex_init hands back.
type mutexTable struct {
	list []*Mutex
}

func (k *Kernel) mutexAt(handle int) *Mutex {
	if handle < 0 || handle >= len(k.mutexes.list) {
		return nil
	}
	return k.mutexes.list[handle]
}

// MutexCreate allocates a new, unowned mutex and returns its handle.
func (k *Kernel) MutexCreate() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	m := &Mutex{}
	k.mutexes.list = append(k.mutexes.list, m)
	return len(k.mutexes.list) - 1
}

// MutexLock implements pthread_mutex_lock: uncontended acquisition
// succeeds immediately; otherwise the caller parks on the mutex's wait
// list and is handed ownership directly by a future unlock (§4.J,
// correcting the source's clear-then-wake race — see design notes).
func (k *Kernel) MutexLock(pid, handle int) int32 {
	return k.runSyscall(pid, SysPthreadMutexLock, func(t *Task) (int32, bool) {
		return k.mutexLockBody(k.mutexAt(handle), t)
	})
}

func (k *Kernel) mutexLockBody(m *Mutex, t *Task) (int32, bool) {
	if m == nil {
		return kerrno.EINVAL.Int32(), true
	}
	if m.owner == t {
		// owner==t here means one of two things: a genuine nested
		// re-lock (t.SyscallPending false, this is a fresh call), or
		// this retry is running because unlock just handed ownership
		// directly to t while it sat on m.waiters (t.SyscallPending
		// true, set by the first attempt that blocked). Only the
		// former is a usage error.
		if t.SyscallPending {
			return 0, true
		}
		return kerrno.EDEADLK.Int32(), true
	}
	if m.owner == nil {
		m.owner = t
		return 0, true
	}
	k.prepareToWait(&m.waiters, t, StatusWait)
	return 0, false
}

// MutexUnlock implements pthread_mutex_unlock. A non-owner call is
// EPERM. Direct handoff: if a waiter exists, ownership transfers to it
// atomically with the wake — there is never a window where the mutex
// looks free to a third, racing locker.
func (k *Kernel) MutexUnlock(pid, handle int) int32 {
	return k.mutexUnlock(pid, handle)
}

func (k *Kernel) mutexUnlock(pid, handle int) int32 {
	return k.runSyscall(pid, SysPthreadMutexUnlock, func(t *Task) (int32, bool) {
		return k.mutexUnlockBody(k.mutexAt(handle), t)
	})
}

func (k *Kernel) mutexUnlockBody(m *Mutex, t *Task) (int32, bool) {
	if m == nil {
		return kerrno.EINVAL.Int32(), true
	}
	if m.owner != t {
		return kerrno.EPERM.Int32(), true
	}
	if next := m.waiters.Peek(); next != nil {
		k.wakeUp(&m.waiters)
		m.owner = next
	} else {
		m.owner = nil
	}
	return 0, true
}
