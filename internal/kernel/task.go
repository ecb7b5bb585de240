package kernel

import "github.com/tenok-go/rtkernel/internal/klist"

// FileOps is the capability set a character device or pipe exposes to the
// fd layer. The core only ever calls Read and Write; both follow the
// syscall retry-body shape (ret, done) since either may call
// prepareToWait on the file's own wait list, in which case the pending
// flag they set causes the dispatcher to retry. Seek is optional and may
// be nil.
type FileOps struct {
	Read  func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool)
	Write func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool)
	Seek  func(f *File, off int64, whence int) (int64, int32)
}

// File is the tagged handle the fd layer and every driver share: an
// operation vtable plus whatever private state the owning object needs.
type File struct {
	Ops     *FileOps
	Flags   int32
	Private any
}

// FDEntry is one row of a task's fd table.
type FDEntry struct {
	File *File
	Flags int32
	Used bool
}

// Task is the Task Control Block. Identity, scheduling state, priority, a
// per-task fd table, and the intrusive node used by exactly one queue at a
// time (ready list, sleep list, or a primitive's wait list).
//
// There is no real register file or hardware stack to save here: a task's
// "trap into the kernel" is modeled as a synchronous call into the kernel
// package from the task's own goroutine (see runSyscall in syscall.go), and
// Frame carries the argument/return slots a real trampoline would spill.
type Task struct {
	node *klist.Node[Task]

	PID      int
	Name     string
	Priority int
	Status   Status

	RemainingTicks int
	SyscallPending bool

	Frame Frame

	FDs [MaxFilesPerTask]FDEntry

	// stackUsed is how much of Stack fork should copy into the child;
	// it is bumped by nothing in this simulation beyond what Fork needs
	// to demonstrate the "partial copy" invariant described in the
	// design notes.
	Stack     []byte
	StackTop  int
	stackUsed int

	// fsPhase tracks progress through the filesystem-task request/reply
	// protocol across pending-syscall retries: 0 means "send the
	// request", 1 means "awaiting the reply". Reset to 0 whenever a
	// fresh (non-retried) syscall begins, by runSyscall.
	fsPhase int
}

func newTask(pid int, name string, priority int) *Task {
	t := &Task{
		PID:      pid,
		Name:     name,
		Priority: priority,
		Status:   StatusWait,
		Stack:    make([]byte, stackRegionSize),
	}
	t.StackTop = len(t.Stack)
	if t.StackTop%8 != 0 {
		t.StackTop -= t.StackTop % 8
	}
	t.node = klist.NewNode(t)
	return t
}

// allocFD reserves the lowest free fd-table slot, returning its index
// (not yet offset by TaskMax) or -1 if the table is full.
func (t *Task) allocFD() int {
	for i := range t.FDs {
		if !t.FDs[i].Used {
			return i
		}
	}
	return -1
}
