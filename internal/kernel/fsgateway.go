package kernel

import (
	"strconv"

	"github.com/tenok-go/rtkernel/internal/fsproto"
	"github.com/tenok-go/rtkernel/internal/kerrno"
)

// The filesystem task (internal/fstask) and the path-resolving open/
// mount/mknod/mkfifo/opendir syscalls are explicitly out of scope per
// the spec — the core only needs *some* way to issue a request and block
// on a reply. This file implements that "some way" over the same
// per-task reply Ring every other fd read/write uses (see fsproto),
// so the out-of-scope FS task is just another client of the in-scope
// fd/ring machinery rather than a special case.

// requestFS drives the two-phase send-then-await-reply protocol. It is
// called repeatedly by the dispatcher's retry loop (via runSyscall); the
// phase stored on t (reset per fresh syscall by runSyscall) picks up
// where the previous attempt left off instead of re-sending the request.
func (k *Kernel) requestFS(t *Task, op, path string, flags, mode int32) (fsproto.Reply, bool) {
	inbox := k.replyFIFOs[k.fsTaskPID]
	mine := k.replyFIFOs[t.PID]

	if t.fsPhase == 0 {
		req := fsproto.EncodeRequest(fsproto.Request{Op: op, Path: path, Flags: flags, Mode: mode, ReplyTo: t.PID})
		ret, done := inbox.Write(k, t, req)
		if !done {
			return fsproto.Reply{}, false
		}
		if ret < 0 {
			return fsproto.Reply{OK: false, Value: strconv.Itoa(int(ret))}, true
		}
		t.fsPhase = 1
	}

	resp := make([]byte, fsproto.ReplySize)
	ret, done := mine.Read(k, t, resp)
	if !done {
		return fsproto.Reply{}, false
	}
	if ret < 0 {
		return fsproto.Reply{OK: false, Value: strconv.Itoa(int(ret))}, true
	}
	return fsproto.DecodeReply(resp), true
}

// Open issues an open request to the filesystem task and blocks on the
// caller's reply FIFO; on success it installs a new fd-table entry and
// returns fd_table_index + TaskMax, per §4.H.
func (k *Kernel) Open(pid int, path string, flags int32) int32 {
	return k.runSyscall(pid, SysOpen, func(t *Task) (int32, bool) {
		reply, done := k.requestFS(t, "OPEN", path, flags, 0)
		if !done {
			return 0, false
		}
		if !reply.OK {
			errno, _ := strconv.Atoi(reply.Value)
			return int32(errno), true
		}
		handle, _ := strconv.Atoi(reply.Value)
		file := &File{Ops: fsFileOps(), Private: handle}
		fd := k.installFD(t, file, flags)
		if fd < 0 {
			return kerrno.ENOSPC.Int32(), true
		}
		return int32(fd), true
	})
}

// Mount asks the filesystem task to mount src at dst.
func (k *Kernel) Mount(pid int, src, dst string) int32 {
	return k.runSyscall(pid, SysMount, func(t *Task) (int32, bool) {
		reply, done := k.requestFS(t, "MOUNT", src+"\x1f"+dst, 0, 0)
		if !done {
			return 0, false
		}
		if !reply.OK {
			return kerrno.EINVAL.Int32(), true
		}
		return 0, true
	})
}

// Mknod creates a generic device node entry via the filesystem task.
func (k *Kernel) Mknod(pid int, path string, mode int32) int32 {
	return k.runSyscall(pid, SysMknod, func(t *Task) (int32, bool) {
		reply, done := k.requestFS(t, "MKNOD", path, 0, mode)
		if !done {
			return 0, false
		}
		if !reply.OK {
			return kerrno.EEXIST.Int32(), true
		}
		return 0, true
	})
}

// Mkfifo creates a named FIFO entry via the filesystem task, reading the
// returned reply into a dedicated local each call — the source reused a
// stale variable here (§9 design notes).
func (k *Kernel) Mkfifo(pid int, path string, mode int32) int32 {
	return k.runSyscall(pid, SysMkfifo, func(t *Task) (int32, bool) {
		created, done := k.requestFS(t, "MKFIFO", path, 0, mode)
		if !done {
			return 0, false
		}
		if !created.OK {
			errno, _ := strconv.Atoi(created.Value)
			return int32(errno), true
		}
		return 0, true
	})
}

// Opendir opens a directory stream via the filesystem task, returning a
// descriptor addressing the cached listing.
func (k *Kernel) Opendir(pid int, path string) int32 {
	return k.runSyscall(pid, SysOpendir, func(t *Task) (int32, bool) {
		reply, done := k.requestFS(t, "OPENDIR", path, 0, 0)
		if !done {
			return 0, false
		}
		if !reply.OK {
			return kerrno.ENOENT.Int32(), true
		}
		handle, _ := strconv.Atoi(reply.Value)
		file := &File{Ops: fsDirOps(), Private: handle}
		fd := k.installFD(t, file, 0)
		if fd < 0 {
			return kerrno.ENOSPC.Int32(), true
		}
		return int32(fd), true
	})
}

// Readdir reads the next directory entry name into buf, returning the
// byte count written or 0 at end of stream.
func (k *Kernel) Readdir(pid, fd int, buf []byte) int32 {
	return k.runSyscall(pid, SysReaddir, func(t *Task) (int32, bool) {
		f, ok := k.resolveFD(t, fd)
		if !ok {
			return kerrno.EBADF.Int32(), true
		}
		return f.Ops.Read(k, f, t, buf)
	})
}

// fsFileOps wires a regular file's fd to READ/WRITE requests against the
// filesystem task, keyed by the opaque handle OPEN returned.
func fsFileOps() *FileOps {
	return &FileOps{
		Read: func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool) {
			reply, done := k.requestFS(t, "READ", strconv.Itoa(f.Private.(int))+"\x1f"+strconv.Itoa(len(buf)), 0, 0)
			if !done {
				return 0, false
			}
			if !reply.OK {
				return kerrno.EIO.Int32(), true
			}
			n := copy(buf, reply.Value)
			return int32(n), true
		},
		Write: func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool) {
			reply, done := k.requestFS(t, "WRITE", strconv.Itoa(f.Private.(int))+"\x1f"+string(buf), 0, 0)
			if !done {
				return 0, false
			}
			if !reply.OK {
				return kerrno.EIO.Int32(), true
			}
			n, _ := strconv.Atoi(reply.Value)
			return int32(n), true
		},
	}
}

func fsDirOps() *FileOps {
	return &FileOps{
		Read: func(k *Kernel, f *File, t *Task, buf []byte) (int32, bool) {
			reply, done := k.requestFS(t, "READDIR", strconv.Itoa(f.Private.(int)), 0, 0)
			if !done {
				return 0, false
			}
			if !reply.OK || reply.Value == "" {
				return 0, true
			}
			n := copy(buf, reply.Value)
			return int32(n), true
		},
	}
}
