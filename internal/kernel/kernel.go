package kernel

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tenok-go/rtkernel/internal/klist"
	"github.com/tenok-go/rtkernel/internal/mempool"
)

// Config are the boot-time knobs exposed by cmd/kernel's CLI. They are
// ambient board configuration, not syscalls.
type Config struct {
	// PoolBytes sizes the kernel object pool backing pipes and message
	// queues.
	PoolBytes int
	// Logger receives boot/scheduler/error diagnostics. If nil, a no-op
	// logger is used.
	Logger *zap.Logger
}

// Kernel is the single process-wide instance described in the design
// notes: running_task, ready_list[], sleep_list, and irq_off are fields
// of this struct, and its methods are the only paths of mutation.
//
// mu and cond implement, in software, the non-preemptibility the spec
// gets for free from running on one CPU with interrupts masked: exactly
// one goroutine is ever permitted to be "the running task" executing
// kernel-visible code at a time, and every blocking syscall parks on cond
// until the scheduler says it is that goroutine's turn again.
type Kernel struct {
	mu   sync.Mutex
	cond *sync.Cond

	log *zap.Logger

	pool *mempool.Pool

	tasks   [TaskMax]*Task
	nextPID int

	readyList [MaxPriority + 1]klist.List[Task]
	sleepList klist.List[Task]
	running   *Task

	ticks  uint64
	irqOff bool

	// replyFIFOs are the per-task anonymous FIFOs used as a task's reply
	// channel when it requests something of the filesystem task. Index
	// i corresponds to task table slot i, addressed as fd < TaskMax.
	replyFIFOs [TaskMax]*Ring

	mqTable *MQTable
	mutexes mutexTable

	drivers []DriverInitFunc

	// fsTaskPID is the pid of the filesystem task, set once during boot
	// once that task has been spawned. open/mount/mknod/mkfifo/opendir
	// route their requests to this task's reply-FIFO-as-inbox.
	fsTaskPID int
}

// DriverInitFunc is run once at boot, standing in for the linker-section
// aggregate of driver init functions the spec allows ("some way to
// enumerate them").
type DriverInitFunc func(k *Kernel) error

// New constructs a Kernel with its ready/sleep lists, memory pool, and
// per-task reply FIFOs initialized, but does not yet create any tasks.
// Boot (see boot.go) builds on top of New to bring up the idle task and
// any registered drivers/tasks.
func New(cfg Config) *Kernel {
	if cfg.PoolBytes <= 0 {
		cfg.PoolBytes = 1 << 20
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	k := &Kernel{
		log:     log,
		pool:    mempool.New(cfg.PoolBytes),
		mqTable: newMQTable(),
	}
	k.cond = sync.NewCond(&k.mu)

	for i := range k.replyFIFOs {
		r, err := newRing(k, ringConfig{Capacity: 256, RecordSize: 0})
		if err != nil {
			// The pool is sized by boot specifically to afford this;
			// a failure here is a boot-configuration bug.
			panic(errors.Wrap(err, "kernel: allocating per-task reply FIFO"))
		}
		k.replyFIFOs[i] = r
	}
	return k
}

// Stats is a point-in-time scheduler/queue snapshot for diagnostic
// tools (cmd/kernelctl); never consulted by kernel logic itself.
type Stats struct {
	Ticks          uint64
	TasksInUse     int
	ReadyPerPrio   [MaxPriority + 1]int
	SleepListLen   int
	MessageQueues  int
	Mutexes        int
	RunningTaskPID int
}

// Stats reports a snapshot of scheduler and queue occupancy.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()

	var s Stats
	s.Ticks = k.ticks
	for _, t := range k.tasks {
		if t != nil {
			s.TasksInUse++
		}
	}
	for pri := range k.readyList {
		s.ReadyPerPrio[pri] = k.readyList[pri].Len()
	}
	s.SleepListLen = k.sleepList.Len()
	s.MessageQueues = len(k.mqTable.entries)
	s.Mutexes = len(k.mutexes.list)
	if k.running != nil {
		s.RunningTaskPID = k.running.PID
	} else {
		s.RunningTaskPID = -1
	}
	return s
}

// Ticks returns the monotonic tick count, used by clock_gettime-style
// syscalls.
func (k *Kernel) Ticks() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}

// TaskSnapshot copies a task's externally-observable state for tests and
// diagnostics. Returns false if pid is not in use.
type TaskSnapshot struct {
	PID            int
	Name           string
	Priority       int
	Status         Status
	SyscallPending bool
	RemainingTicks int
}

func (k *Kernel) TaskSnapshot(pid int) (TaskSnapshot, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.taskLocked(pid)
	if t == nil {
		return TaskSnapshot{}, false
	}
	return TaskSnapshot{
		PID:            t.PID,
		Name:           t.Name,
		Priority:       t.Priority,
		Status:         t.Status,
		SyscallPending: t.SyscallPending,
		RemainingTicks: t.RemainingTicks,
	}, true
}

// installTask reserves the next pid and places t into the task table.
// Caller holds k.mu.
func (k *Kernel) installTask(t *Task) bool {
	for i := range k.tasks {
		if k.tasks[i] == nil {
			k.nextPID++
			t.PID = k.nextPID
			k.tasks[i] = t
			return true
		}
	}
	return false
}

func (k *Kernel) taskLocked(pid int) *Task {
	for _, t := range k.tasks {
		if t != nil && t.PID == pid {
			return t
		}
	}
	return nil
}

// RunningPID returns the pid of the currently running task, or -1 if none.
func (k *Kernel) RunningPID() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running == nil {
		return -1
	}
	return k.running.PID
}
