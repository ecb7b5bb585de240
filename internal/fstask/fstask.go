// Package fstask is a reference body for the user-space filesystem task
// the kernel's open/mount/mknod/mkfifo/opendir syscalls talk to. The FS
// task itself — and the path resolver behind it — are explicitly out of
// scope for the kernel core; this exists only so the syscall gateway has
// something real to exercise end to end, backed by an in-memory afero
// filesystem mounted as /dev/rom -> / the way the teacher's boot
// sequence describes.
package fstask

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tenok-go/rtkernel/internal/fsproto"
)

// Task answers filesystem requests against an in-memory afero.Fs.
type Task struct {
	mu   sync.Mutex
	fs   afero.Fs
	log  *zap.Logger
	open map[int]afero.File
	dirs map[int][]string
	next int
}

// New constructs a Task backed by a fresh in-memory filesystem.
func New(log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	return &Task{
		fs:   afero.NewMemMapFs(),
		log:  log,
		open: map[int]afero.File{},
		dirs: map[int][]string{},
		next: 1,
	}
}

// Handle answers one request and returns the reply; the caller encodes
// it with fsproto.EncodeReply into the unit the kernel's request/reply
// ring carries.
func (t *Task) Handle(req fsproto.Request) fsproto.Reply {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch req.Op {
	case "OPEN":
		return t.open_(req.Path, req.Flags, req.Mode)
	case "READ":
		return t.read(req.Path)
	case "WRITE":
		return t.write(req.Path)
	case "MOUNT":
		return fsproto.Reply{OK: true}
	case "MKNOD":
		return t.create(req.Path)
	case "MKFIFO":
		return t.create(req.Path)
	case "OPENDIR":
		return t.opendir(req.Path)
	case "READDIR":
		return t.readdir(req.Path)
	default:
		return fsproto.Reply{OK: false, Value: "-38"} // ENOSYS
	}
}

func (t *Task) open_(path string, flags, mode int32) fsproto.Reply {
	f, err := t.fs.OpenFile(path, os.O_RDWR, os.FileMode(mode)|0o644)
	if errors.Is(err, os.ErrNotExist) {
		f, err = t.fs.Create(path)
	}
	if err != nil {
		t.log.Debug("open failed", zap.String("path", path), zap.Error(err))
		return fsproto.Reply{OK: false, Value: "-2"} // ENOENT
	}
	h := t.next
	t.next++
	t.open[h] = f
	return fsproto.Reply{OK: true, Value: strconv.Itoa(h)}
}

func (t *Task) read(arg string) fsproto.Reply {
	handle, n, ok := splitHandleArg(arg)
	if !ok {
		return fsproto.Reply{OK: false, Value: "-9"}
	}
	f := t.open[handle]
	if f == nil {
		return fsproto.Reply{OK: false, Value: "-9"} // EBADF
	}
	buf := make([]byte, n)
	got, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fsproto.Reply{OK: false, Value: "-5"} // EIO
	}
	return fsproto.Reply{OK: true, Value: string(buf[:got])}
}

func (t *Task) write(arg string) fsproto.Reply {
	idx := strings.IndexByte(arg, '\x1f')
	if idx < 0 {
		return fsproto.Reply{OK: false, Value: "-9"}
	}
	handle, err := strconv.Atoi(arg[:idx])
	if err != nil {
		return fsproto.Reply{OK: false, Value: "-9"}
	}
	f := t.open[handle]
	if f == nil {
		return fsproto.Reply{OK: false, Value: "-9"}
	}
	payload := arg[idx+1:]
	n, err := f.Write([]byte(payload))
	if err != nil {
		return fsproto.Reply{OK: false, Value: "-5"}
	}
	return fsproto.Reply{OK: true, Value: strconv.Itoa(n)}
}

func (t *Task) create(path string) fsproto.Reply {
	if _, err := t.fs.Stat(path); err == nil {
		return fsproto.Reply{OK: false, Value: "-17"} // EEXIST
	}
	f, err := t.fs.Create(path)
	if err != nil {
		return fsproto.Reply{OK: false, Value: "-22"} // EINVAL
	}
	f.Close()
	return fsproto.Reply{OK: true}
}

func (t *Task) opendir(path string) fsproto.Reply {
	entries, err := afero.ReadDir(t.fs, path)
	if err != nil {
		return fsproto.Reply{OK: false, Value: "-2"}
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	h := t.next
	t.next++
	t.dirs[h] = names
	return fsproto.Reply{OK: true, Value: strconv.Itoa(h)}
}

func (t *Task) readdir(arg string) fsproto.Reply {
	handle, err := strconv.Atoi(arg)
	if err != nil {
		return fsproto.Reply{OK: false, Value: "-9"}
	}
	names := t.dirs[handle]
	if len(names) == 0 {
		return fsproto.Reply{OK: true, Value: ""}
	}
	name := names[0]
	t.dirs[handle] = names[1:]
	return fsproto.Reply{OK: true, Value: name}
}

func splitHandleArg(arg string) (handle, n int, ok bool) {
	idx := strings.IndexByte(arg, '\x1f')
	if idx < 0 {
		return 0, 0, false
	}
	handle, err1 := strconv.Atoi(arg[:idx])
	n, err2 := strconv.Atoi(arg[idx+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return handle, n, true
}
