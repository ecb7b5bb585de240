package kernel

import (
	"github.com/tenok-go/rtkernel/internal/kerrno"
)

// ringFileOps adapts a Ring to the FileOps vtable so pipes, FIFOs, and
// the per-task reply channels can all be addressed through the ordinary
// read/write syscalls.
func ringFileOps() *FileOps {
	return &FileOps{
		Read: func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool) {
			return f.Private.(*Ring).Read(k, t, buf)
		},
		Write: func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool) {
			return f.Private.(*Ring).Write(k, t, buf)
		},
	}
}

func ringFile(r *Ring) *File {
	return &File{Ops: ringFileOps(), Private: r}
}

// resolveFD implements the descriptor translation in §4.I: d < TaskMax
// addresses the kernel-global per-task reply FIFO table (any task may
// address any other task's slot — this is how a server task, like the
// filesystem task, replies to a specific requester); d ≥ TaskMax
// addresses a slot in the calling task's own fd table.
func (k *Kernel) resolveFD(t *Task, fd int) (*File, bool) {
	if fd >= 0 && fd < TaskMax {
		r := k.replyFIFOs[fd]
		if r == nil {
			return nil, false
		}
		return ringFile(r), true
	}
	idx := fd - TaskMax
	if idx < 0 || idx >= len(t.FDs) || !t.FDs[idx].Used {
		return nil, false
	}
	return t.FDs[idx].File, true
}

// Read implements the read syscall: dispatch to ops.Read, which may
// itself block (e.g. an empty pipe), causing a retry per the pending
// protocol.
func (k *Kernel) Read(pid, fd int, buf []byte) int32 {
	return k.runSyscall(pid, SysRead, func(t *Task) (int32, bool) {
		f, ok := k.resolveFD(t, fd)
		if !ok {
			return kerrno.EBADF.Int32(), true
		}
		return f.Ops.Read(k, f, t, buf)
	})
}

// Write implements the write syscall, symmetric to Read.
func (k *Kernel) Write(pid, fd int, buf []byte) int32 {
	return k.runSyscall(pid, SysWrite, func(t *Task) (int32, bool) {
		f, ok := k.resolveFD(t, fd)
		if !ok {
			return kerrno.EBADF.Int32(), true
		}
		return f.Ops.Write(k, f, t, buf)
	})
}

// Close validates fd range and the in-use bit, then frees the slot. Only
// the user-fd space (fd ≥ TaskMax) has an in-use bit to clear; the
// per-task reply FIFOs are permanent kernel objects.
func (k *Kernel) Close(pid, fd int) int32 {
	return k.runSyscall(pid, SysClose, func(t *Task) (int32, bool) {
		idx := fd - TaskMax
		if idx < 0 || idx >= len(t.FDs) || !t.FDs[idx].Used {
			return kerrno.EBADF.Int32(), true
		}
		t.FDs[idx] = FDEntry{}
		return 0, true
	})
}

// installFD reserves a free slot in t's fd table for file and returns the
// user-visible descriptor (already offset by TaskMax), or -1 if the
// table is full.
func (k *Kernel) installFD(t *Task, file *File, flags int32) int {
	idx := t.allocFD()
	if idx < 0 {
		return -1
	}
	t.FDs[idx] = FDEntry{File: file, Flags: flags, Used: true}
	return idx + TaskMax
}
