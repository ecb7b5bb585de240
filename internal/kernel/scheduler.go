package kernel

// scheduleLocked implements the entered-at-every-kernel-to-user-transition
// protocol. Callers must hold k.mu.
//
// Design-note resolution adopted here (see SPEC_FULL.md): a task that
// loses the CPU to a higher-priority ready task, or that has consumed its
// tick quantum, goes straight onto ready_list[priority] as READY. The
// original source instead routed it through the sleep list with
// remaining_ticks==0, relying on the next sweep to immediately re-mark it
// READY — functionally equivalent but conflates "sleeping" with
// "runnable-but-preempted". We skip the detour.
func (k *Kernel) scheduleLocked() {
	if k.irqOff {
		return
	}

	// Sleep-list sweep: anything whose timed wait has expired is
	// promotable. Tasks waiting on a primitive's own wait list are never
	// on k.sleepList, so every member here is either a timed sleeper or
	// (per Fork/ForkTask's placement of a new child) a task with no ticks left to
	// wait out.
	var expired []*Task
	k.sleepList.Each(func(t *Task) {
		if t.RemainingTicks == 0 {
			expired = append(expired, t)
		}
	})
	for _, t := range expired {
		k.sleepList.Remove(t.node)
		t.Status = StatusReady
		k.readyList[t.Priority].PushTail(t.node)
	}

	pri, ok := k.highestReadyPriority()
	if !ok {
		return
	}

	if k.running != nil && k.running.Status == StatusRunning {
		if pri <= k.running.Priority {
			return
		}
		// Preempted: give up the CPU, go straight to ready.
		prev := k.running
		prev.Status = StatusReady
		k.readyList[prev.Priority].PushTail(prev.node)
		k.running = nil
	}

	next := k.readyList[pri].PopHead()
	if next == nil {
		return
	}
	next.Status = StatusRunning
	k.running = next
	k.cond.Broadcast()
}

// highestReadyPriority returns the largest priority with a non-empty
// ready list, and whether one exists at all.
func (k *Kernel) highestReadyPriority() (int, bool) {
	for pri := MaxPriority; pri >= 0; pri-- {
		if !k.readyList[pri].Empty() {
			return pri, true
		}
	}
	return 0, false
}

// Schedule runs one scheduling pass. Exported for callers (the demo
// main loop, tests) that drive the kernel directly rather than through a
// syscall.
func (k *Kernel) Schedule() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.scheduleLocked()
}
