package kernel

import "github.com/tenok-go/rtkernel/internal/kerrno"

// Sleep parks the caller on the sleep list for the given tick count and
// returns immediately with 0, matching the source: sleep does not block
// the syscall itself, it only arms remaining_ticks and lets the next
// schedule pass take the CPU away. A zero or negative tick count is a
// no-op yield.
func (k *Kernel) Sleep(pid int, ticks int32) int32 {
	return k.runSyscall(pid, SysSleep, func(t *Task) (int32, bool) {
		if ticks <= 0 {
			t.Status = StatusReady
			k.readyList[t.Priority].PushTail(t.node)
			k.running = nil
			return 0, true
		}
		t.RemainingTicks = int(ticks)
		k.prepareToWait(&k.sleepList, t, StatusWait)
		k.running = nil
		return 0, true
	})
}

// GetPriority returns the caller's current scheduling priority.
func (k *Kernel) GetPriority(pid int) int32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.taskLocked(pid)
	if t == nil {
		return kerrno.EINVAL.Int32()
	}
	return int32(t.Priority)
}

// SetPriority changes the caller's scheduling priority. Priority 0 is
// reserved for the idle task; any other task requesting it is rejected.
func (k *Kernel) SetPriority(pid int, which int32) int32 {
	return k.runSyscall(pid, SysSetPriority, func(t *Task) (int32, bool) {
		if which < 0 || which > MaxPriority {
			return kerrno.EINVAL.Int32(), true
		}
		if which == 0 && t.Priority != 0 {
			return kerrno.EINVAL.Int32(), true
		}
		t.Priority = int(which)
		return 0, true
	})
}

// SetProgramName renames the caller's task, the Go analogue of the
// source's fixed-width program-name field copy.
func (k *Kernel) SetProgramName(pid int, name string) int32 {
	return k.runSyscall(pid, SysSetProgramName, func(t *Task) (int32, bool) {
		t.Name = name
		return 0, true
	})
}
