package kernel

import (
	"github.com/tenok-go/rtkernel/internal/kerrno"
	"github.com/tenok-go/rtkernel/internal/klist"
)

// ringConfig parameterizes newRing. RecordSize of 0 means byte-stream
// mode (a pipe); any positive value means record mode (a message queue),
// where Read/Write always transfer exactly one record regardless of the
// caller's requested length (§9 resolution of the mq_send/mq_receive
// ambiguity).
type ringConfig struct {
	Capacity    int
	RecordSize  int
	NonBlocking bool
}

// Ring is the bounded ring buffer shared by pipes, FIFOs, and message
// queues (§4.C). count ∈ [0, capacity]. In record mode a reader blocks
// only when count==0 and a writer only when count==capacity. In byte
// mode a reader blocks while fewer bytes are buffered than it asked for,
// and a writer while the free space is smaller than its write, so a
// waiter may be parked with the ring neither empty nor full.
type Ring struct {
	k *Kernel

	unit     int // bytes per unit: 1 for byte mode, RecordSize for record mode
	record   bool
	capacity int // in units
	buf      []byte

	head, tail, count int // in units

	nonBlocking bool

	readers, writers klist.List[Task]
}

// NewCharDevice allocates a byte-stream ring of the given capacity, for
// drivers outside this package that need a §4.C-shaped queue to land
// ISR bytes into (ISRPutByte) and have a task consume via Read. This is
// the character-device contract's storage half; the name-under-/dev and
// FileOps vtable half (§6) is the driver's own responsibility.
func (k *Kernel) NewCharDevice(capacity int) (*Ring, error) {
	return newRing(k, ringConfig{Capacity: capacity})
}

func newRing(k *Kernel, cfg ringConfig) (*Ring, error) {
	unit := cfg.RecordSize
	if unit <= 0 {
		unit = 1
	}
	buf, err := k.pool.Alloc(cfg.Capacity * unit)
	if err != nil {
		return nil, err
	}
	return &Ring{
		k:           k,
		unit:        unit,
		record:      cfg.RecordSize > 0,
		capacity:    cfg.Capacity,
		buf:         buf,
		nonBlocking: cfg.NonBlocking,
	}, nil
}

func (r *Ring) recordMode() bool { return r.record }

// full/empty in units (bytes for byte mode, records for record mode).
func (r *Ring) full() bool  { return r.count == r.capacity }
func (r *Ring) empty() bool { return r.count == 0 }

// readUnits copies n units starting at tail into dst (caller-sized to
// exactly n*unit bytes) and advances tail/count.
func (r *Ring) readUnits(dst []byte, n int) {
	for i := 0; i < n; i++ {
		off := r.tail * r.unit
		copy(dst[i*r.unit:(i+1)*r.unit], r.buf[off:off+r.unit])
		r.tail = (r.tail + 1) % r.capacity
	}
	r.count -= n
}

func (r *Ring) writeUnits(src []byte, n int) {
	for i := 0; i < n; i++ {
		off := r.head * r.unit
		copy(r.buf[off:off+r.unit], src[i*r.unit:(i+1)*r.unit])
		r.head = (r.head + 1) % r.capacity
	}
	r.count += n
}

// Read implements the pipe read syscall body (§4.C): if count*unit ≥
// len(buf) (byte mode) or count ≥ 1 (record mode), copy and wake one
// writer; else block or EAGAIN per the non-blocking flag.
func (r *Ring) Read(k *Kernel, t *Task, buf []byte) (int32, bool) {
	if r.recordMode() {
		if !r.empty() {
			r.readUnits(buf[:r.unit], 1)
			if w := k.wakeUp(&r.writers); w != nil {
				k.cond.Broadcast()
			}
			return int32(r.unit), true
		}
	} else {
		need := len(buf) / r.unit
		if need == 0 {
			return 0, true
		}
		if r.count >= need {
			r.readUnits(buf, need)
			if w := k.wakeUp(&r.writers); w != nil {
				k.cond.Broadcast()
			}
			return int32(need * r.unit), true
		}
	}

	if r.nonBlocking {
		return kerrno.EAGAIN.Int32(), true
	}
	k.prepareToWait(&r.readers, t, StatusWait)
	return 0, false
}

// Write implements the pipe write syscall body, symmetric to Read.
func (r *Ring) Write(k *Kernel, t *Task, buf []byte) (int32, bool) {
	if r.recordMode() {
		if !r.full() {
			r.writeUnits(buf[:r.unit], 1)
			if rd := k.wakeUp(&r.readers); rd != nil {
				k.cond.Broadcast()
			}
			return int32(r.unit), true
		}
	} else {
		need := len(buf) / r.unit
		if need == 0 {
			return 0, true
		}
		if r.capacity-r.count >= need {
			r.writeUnits(buf, need)
			if rd := k.wakeUp(&r.readers); rd != nil {
				k.cond.Broadcast()
			}
			return int32(need * r.unit), true
		}
	}

	if r.nonBlocking {
		return kerrno.EAGAIN.Int32(), true
	}
	k.prepareToWait(&r.writers, t, StatusWait)
	return 0, false
}

// ISRPutByte enqueues a single byte from interrupt context (e.g. a UART
// RX ISR). There is no blocking under ISR: a full pipe simply drops the
// byte, per §4.C.
func (r *Ring) ISRPutByte(b byte) {
	r.k.mu.Lock()
	defer r.k.mu.Unlock()
	if r.full() {
		return
	}
	r.writeUnits([]byte{b}, 1)
	if t := r.k.wakeUp(&r.readers); t != nil {
		r.k.cond.Broadcast()
	}
}
