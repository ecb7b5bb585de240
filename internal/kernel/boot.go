package kernel

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tenok-go/rtkernel/internal/fsproto"
	"github.com/tenok-go/rtkernel/internal/fstask"
)

// TaskSpec is one statically declared task: a name, a starting
// priority, and the goroutine body it runs. This is the Go analogue of
// the source's linker-section aggregate of task table entries — there
// is no separate linker step, so RegisterTask plays that role at
// package-init time. ID is a diagnostic correlation id assigned at
// registration time, distinct from the pid Boot later hands it.
type TaskSpec struct {
	Name     string
	Priority int
	Entry    func(k *Kernel, pid int)
	ID       uuid.UUID
}

var registeredTasks []TaskSpec
var registeredDrivers []DriverInitFunc

// RegisterTask adds spec to the set of tasks Boot installs and starts at
// startup.
// Call from an init() func in the package that owns the task, mirroring
// a statically linked task table entry.
func RegisterTask(spec TaskSpec) {
	spec.ID = uuid.New()
	registeredTasks = append(registeredTasks, spec)
}

// RegisterDriver adds fn to the set of driver init hooks Boot runs once
// all tasks have been installed, standing in for the linker-section
// aggregate of board driver init functions.
func RegisterDriver(fn DriverInitFunc) {
	registeredDrivers = append(registeredDrivers, fn)
}

// NewTestTask installs a bare TCB (no scheduling, no syscall wiring)
// for use by package-external driver tests that need a *Task handle to
// exercise a Ring's Read/Write directly, without standing up a whole
// runnable task. Not used by Boot or any syscall path.
func (k *Kernel) NewTestTask(name string, priority int) *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := newTask(0, name, priority)
	k.installTask(t)
	return t
}

// spawnTask installs a new TCB at the given priority, ready but not yet
// running, and returns it. Used only by Boot: ordinary runtime task
// creation goes through Fork/ForkTask, which (unlike this) must be
// called from within a task's own goroutine.
func (k *Kernel) spawnTask(name string, priority int) (*Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := newTask(0, name, priority)
	if !k.installTask(t) {
		return nil, errors.New("kernel: task table exhausted")
	}
	t.Status = StatusReady
	k.readyList[priority].PushTail(t.node)
	return t, nil
}

// Boot constructs a Kernel and brings up its initial task set: the idle
// task (priority 0), the reference filesystem task (mounted at
// /dev/rom -> /, per the source's startup sequence), every task added
// via RegisterTask, and every driver added via RegisterDriver.
//
// Every spawned task starts on its priority's ready list; the first
// scheduling pass, run once all of them exist, picks whichever has the
// highest priority as the one task literally running when Boot returns.
// Every task's goroutine body is expected to make its first kernel call
// before doing any other work, exactly like the idle and filesystem
// loops below — that first call is what blocks a not-yet-scheduled
// task's goroutine until the scheduler actually picks it.
func Boot(cfg Config) (*Kernel, error) {
	k := New(cfg)

	idle, err := k.spawnTask("idle", 0)
	if err != nil {
		return nil, errors.Wrap(err, "kernel: boot: idle task")
	}
	idlePID := idle.PID

	fs, err := k.spawnTask("fs", TaskPriorityMin)
	if err != nil {
		return nil, errors.Wrap(err, "kernel: boot: filesystem task")
	}
	k.mu.Lock()
	k.fsTaskPID = fs.PID
	k.mu.Unlock()
	fsPID := fs.PID
	fsTask := fstask.New(k.log)

	type spawned struct {
		pid  int
		spec TaskSpec
	}
	var userTasks []spawned
	for _, spec := range registeredTasks {
		t, err := k.spawnTask(spec.Name, spec.Priority)
		if err != nil {
			return nil, errors.Wrapf(err, "kernel: boot: task %q", spec.Name)
		}
		if k.log != nil {
			k.log.Debug("boot: registered task installed",
				zap.String("name", spec.Name),
				zap.Stringer("id", spec.ID),
				zap.Int("pid", t.PID))
		}
		userTasks = append(userTasks, spawned{pid: t.PID, spec: spec})
	}

	k.drivers = append(k.drivers, registeredDrivers...)
	for _, init := range k.drivers {
		if err := init(k); err != nil {
			return nil, errors.Wrap(err, "kernel: boot: driver init")
		}
	}

	k.mu.Lock()
	k.scheduleLocked()
	k.mu.Unlock()

	go runIdleTask(k, idlePID)
	go runFSTask(k, fsPID, fsTask)
	for _, u := range userTasks {
		entry := u.spec.Entry
		go entry(k, u.pid)
	}

	return k, nil
}

// runIdleTask mounts the filesystem task's in-memory root at boot, then
// yields forever — the idle task never does real work, it only exists
// so there is always a runnable task at priority 0.
func runIdleTask(k *Kernel, pid int) {
	if ret := k.Mount(pid, "/dev/rom", "/"); ret != 0 {
		k.log.Warn("boot: mounting /dev/rom failed", zap.Int32("errno", ret))
	}
	for {
		k.SchedYield(pid)
	}
}

// runFSTask is the filesystem task's goroutine body: pop one encoded
// request off its own inbox (its reply FIFO, repurposed per §4.H as its
// request queue), answer it, and write the encoded reply to the
// requester's own reply FIFO. It runs for the kernel's lifetime.
func runFSTask(k *Kernel, pid int, task *fstask.Task) {
	for {
		buf := make([]byte, fsproto.RequestSize)
		n := k.Read(pid, pid, buf)
		if n < 0 {
			continue
		}
		req := fsproto.DecodeRequest(buf[:n])
		reply := task.Handle(req)
		k.Write(pid, req.ReplyTo, fsproto.EncodeReply(reply))
	}
}
