package kernel

import "github.com/tenok-go/rtkernel/internal/kerrno"

// SyscallNo is a stable syscall number, matching the spec's numbered
// table.
type SyscallNo int

const (
	SysSchedYield SyscallNo = iota + 1
	SysSetIRQ
	SysSetProgramName
	SysFork
	SysSleep
	SysMount
	SysOpen
	SysClose
	SysRead
	SysWrite
	SysLseek
	SysFstat
	SysOpendir
	SysReaddir
	SysGetPriority
	SysSetPriority
	SysGetPid
	SysMknod
	SysMkfifo
	SysMQOpen
	SysMQReceive
	SysMQSend
	SysPthreadMutexInit
	SysPthreadMutexUnlock
	SysPthreadMutexLock
)

// syscallBody is one attempt at a syscall's handler. It returns
// (result, true) once it has a user-visible result to write into the
// frame's return slot, or (_, false) after having called prepareToWait,
// signaling the dispatcher to retry the same body once this task is
// scheduled again. Called with k.mu held.
type syscallBody func(t *Task) (int32, bool)

// runSyscall is the dispatcher's numbered-table-and-retry-loop core
// (§4.H). It is the single place that implements the pending-syscall
// protocol: a body that returns done=false gets SyscallPending set,
// yields the CPU via a schedule pass, and is re-invoked verbatim once
// this task is RUNNING again — exactly the "main loop re-enters the same
// syscall body" behavior, just without a literal trap-return boundary
// since there is no hardware frame to resume into.
//
// Every exit path — including a body that never blocks — goes through a
// schedule pass and waits until this task is actually RUNNING before
// returning control to the caller's goroutine. That is what makes
// preemption observable across syscalls: a task that wins the CPU back
// from a higher-priority waiter simply doesn't return from this call
// until the scheduler says so. Symmetrically, entry also waits until
// this task is RUNNING: a task's goroutine runs at ordinary Go speed
// and may call in well before the scheduler has chosen it, and body must
// never run against a TCB that is still linked on some other list.
func (k *Kernel) runSyscall(pid int, nr SyscallNo, body syscallBody) int32 {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.taskLocked(pid)
	if t == nil {
		return kerrno.EINVAL.Int32()
	}

	// A task's goroutine runs at ordinary Go speed and may reach its
	// next syscall well before the scheduler has actually picked it;
	// block here until it is really this task's turn, so body never
	// touches a TCB that is still sitting on some other list.
	for t.Status != StatusRunning {
		k.cond.Wait()
	}

	t.Frame.Nr = nr
	if !t.SyscallPending {
		t.fsPhase = 0
	}

	for {
		ret, done := body(t)
		if done {
			t.Frame.Ret = ret
			t.SyscallPending = false
			break
		}
		t.SyscallPending = true
		k.scheduleLocked()
		for t.Status != StatusRunning {
			k.cond.Wait()
		}
	}

	k.scheduleLocked()
	for t.Status != StatusRunning {
		k.cond.Wait()
	}
	return t.Frame.Ret
}

// Dispatch is the raw, numbered-table entry point for syscalls whose
// arguments and return value fit entirely in the four register-style
// slots (no string/buffer payload, which would require a pointer into
// user memory this single-address-space simulation does not model —
// see DESIGN.md). An unknown syscall number is silently ignored per
// §7: the handler loop simply finds no match, and the frame's existing
// return slot is left untouched rather than overwritten.
func (k *Kernel) Dispatch(pid int, nr SyscallNo, a0, a1, a2, a3 int32) int32 {
	args := [4]int32{a0, a1, a2, a3}
	switch nr {
	case SysSchedYield:
		return k.SchedYield(pid)
	case SysSetIRQ:
		return k.SetIRQ(pid, args[0] != 0)
	case SysFork:
		return k.Fork(pid)
	case SysSleep:
		return k.Sleep(pid, args[0])
	case SysGetPid:
		return int32(pid)
	case SysGetPriority:
		return k.GetPriority(pid)
	case SysSetPriority:
		return k.SetPriority(pid, args[0])
	case SysClose:
		return k.Close(pid, int(args[0]))
	case SysPthreadMutexLock:
		return k.MutexLock(pid, int(args[0]))
	case SysPthreadMutexUnlock:
		return k.MutexUnlock(pid, int(args[0]))
	case SysPthreadMutexInit:
		return int32(k.MutexCreate())
	default:
		k.mu.Lock()
		defer k.mu.Unlock()
		t := k.taskLocked(pid)
		if t == nil {
			return kerrno.EINVAL.Int32()
		}
		return t.Frame.Ret
	}
}

// SchedYield gives up the remainder of the caller's quantum voluntarily.
// Implemented as a body that requeues the caller on its own ready list
// and completes immediately, followed by the dispatcher's mandatory
// schedule pass, which is exactly what lets an
// equal-priority peer run next (round-robin via FIFO tie-break, §4.F).
func (k *Kernel) SchedYield(pid int) int32 {
	return k.runSyscall(pid, SysSchedYield, func(t *Task) (int32, bool) {
		// Re-enqueue ourselves at the tail of our own priority's ready
		// list before the schedule pass, so an equal-priority peer
		// that is also ready gets picked ahead of us (strict FIFO).
		t.Status = StatusReady
		k.readyList[t.Priority].PushTail(t.node)
		k.running = nil
		return 0, true
	})
}

// SetIRQ flips the kernel-wide irq_off flag that suppresses rescheduling
// until cleared, the software equivalent of set_basepri.
func (k *Kernel) SetIRQ(pid int, off bool) int32 {
	return k.runSyscall(pid, SysSetIRQ, func(t *Task) (int32, bool) {
		k.irqOff = off
		return 0, true
	})
}

// GetPid returns the caller's task id.
func (k *Kernel) GetPid(pid int) int32 { return int32(pid) }
