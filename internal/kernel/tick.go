package kernel

// Tick runs the periodic timer interrupt handler: advances the monotonic
// clock, ends the running task's quantum, and decrements every timed
// sleeper. It does not invoke the scheduler itself — per the main loop
// protocol, that happens after the trap returns (see Schedule, and the
// demo main loop in cmd/kernel which calls Tick then Schedule on every
// tick).
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.ticks++

	if k.running != nil {
		prev := k.running
		prev.Status = StatusReady
		k.readyList[prev.Priority].PushTail(prev.node)
		k.running = nil
	}

	k.sleepList.Each(func(t *Task) {
		if t.RemainingTicks > 0 {
			t.RemainingTicks--
		}
	})

	k.cond.Broadcast()
}
