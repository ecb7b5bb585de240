package kernel

import "github.com/tenok-go/rtkernel/internal/klist"

// prepareToWait unlinks t from whatever list it is currently on
// (precondition: t is running_task, hence not on any other list), pushes
// it onto list, and sets its status. Callers must hold k.mu.
func (k *Kernel) prepareToWait(list *klist.List[Task], t *Task, status Status) {
	klist.Unlink(t.node)
	list.PushTail(t.node)
	t.Status = status
}

// wakeUp pops the head of list, moves it to ready_list[priority], and
// marks it READY. It is the only operation an ISR may perform on a kernel
// queue; goroutines simulating device interrupts call it after taking
// k.mu, which stands in for raising the interrupt-priority mask.
//
// Returns the woken task, or nil if list was empty.
func (k *Kernel) wakeUp(list *klist.List[Task]) *Task {
	t := list.PopHead()
	if t == nil {
		return nil
	}
	t.Status = StatusReady
	k.readyList[t.Priority].PushTail(t.node)
	return t
}

// WakeUp is the ISR-safe entry point: it takes the kernel lock itself, so
// device driver goroutines can call it directly from their simulated
// interrupt context without any other synchronization. It does not run
// the scheduler; per the main-loop protocol, a schedule pass happens at
// the next trap or tick boundary.
func (k *Kernel) WakeUp(list *klist.List[Task]) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.wakeUp(list) != nil {
		k.cond.Broadcast()
	}
}
