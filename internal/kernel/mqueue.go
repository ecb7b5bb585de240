package kernel

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenok-go/rtkernel/internal/kerrno"
)

// MQAttr mirrors the POSIX mq_attr fields the teacher's tenok heritage
// (include/tenok/mqueue.h) names: flags, maxmsg, msgsize, and the
// currently-queued count.
type MQAttr struct {
	Flags   int32
	MaxMsg  int32
	MsgSize int32
	CurMsgs int32
}

// MQEntry wraps a record-mode Ring with its POSIX attributes and name.
// ID is a diagnostic correlation id, distinct from the POSIX-visible
// descriptor (the table index) — never compared against or parsed,
// only logged.
type MQEntry struct {
	Name string
	Ring *Ring
	Attr MQAttr
	ID   uuid.UUID
}

// MQTable is the named message-queue table (§4.K): array of named
// entries, name unique. Per the §9 "pick one" resolution, mq_open on an
// existing name returns the existing descriptor rather than erroring or
// creating a duplicate.
type MQTable struct {
	entries []*MQEntry
	byName  map[string]int
}

func newMQTable() *MQTable {
	return &MQTable{byName: map[string]int{}}
}

const mqNonBlock int32 = 1 << 0

// MQOpen registers a new named queue, or returns the descriptor of an
// existing one with the same name. A fresh queue gets a ring buffer
// sized maxmsg*msgsize.
func (k *Kernel) MQOpen(pid int, name string, flags int32, maxmsg, msgsize int32) int32 {
	return k.runSyscall(pid, SysMQOpen, func(t *Task) (int32, bool) {
		if idx, ok := k.mqTable.byName[name]; ok {
			return int32(idx), true
		}
		r, err := newRing(k, ringConfig{
			Capacity:    int(maxmsg),
			RecordSize:  int(msgsize),
			NonBlocking: flags&mqNonBlock != 0,
		})
		if err != nil {
			return kerrno.ENOSPC.Int32(), true
		}
		entry := &MQEntry{
			Name: name,
			Ring: r,
			Attr: MQAttr{Flags: flags, MaxMsg: maxmsg, MsgSize: msgsize},
			ID:   uuid.New(),
		}
		k.mqTable.entries = append(k.mqTable.entries, entry)
		idx := len(k.mqTable.entries) - 1
		k.mqTable.byName[name] = idx
		if k.log != nil {
			k.log.Debug("mq_open created queue",
				zap.String("name", name),
				zap.Stringer("id", entry.ID),
				zap.Int32("handle", int32(idx)))
		}
		return int32(idx), true
	})
}

func (k *Kernel) mqAt(handle int) *MQEntry {
	if handle < 0 || handle >= len(k.mqTable.entries) {
		return nil
	}
	return k.mqTable.entries[handle]
}

// MQSend writes one record, sized msgsize, onto the queue's ring. Per
// the §9 resolution it always transfers exactly one record, returning
// its byte size, regardless of len(msg) (msg must be msgsize bytes).
func (k *Kernel) MQSend(pid, handle int, msg []byte) int32 {
	return k.runSyscall(pid, SysMQSend, func(t *Task) (int32, bool) {
		e := k.mqAt(handle)
		if e == nil {
			return kerrno.EBADF.Int32(), true
		}
		ret, done := e.Ring.Write(k, t, msg)
		if done && ret >= 0 {
			e.Attr.CurMsgs++
		}
		return ret, done
	})
}

// MQReceive reads one record, sized msgsize, off the queue's ring into
// msg (which must be at least msgsize bytes), returning its byte size.
func (k *Kernel) MQReceive(pid, handle int, msg []byte) int32 {
	return k.runSyscall(pid, SysMQReceive, func(t *Task) (int32, bool) {
		e := k.mqAt(handle)
		if e == nil {
			return kerrno.EBADF.Int32(), true
		}
		ret, done := e.Ring.Read(k, t, msg)
		if done && ret >= 0 {
			e.Attr.CurMsgs--
		}
		return ret, done
	})
}
