// Package klist implements the intrusive doubly-linked list used for every
// queue in the kernel: ready lists, the sleep list, and every primitive's
// wait list. The node lives inside the owning value (a Node field on a
// Task), so push/pop/remove never allocate and a task can be moved between
// queues in O(1).
package klist

// Node is embedded in whatever value wants to be queueable. Owner points
// back to that value so a list walk yields the value directly.
type Node[T any] struct {
	next, prev *Node[T]
	list       *List[T]
	Owner      *T
}

// NewNode builds a detached node for owner. Call this once, store the
// result alongside owner (or have owner hold a pointer to it), and reuse it
// for the owner's whole lifetime.
func NewNode[T any](owner *T) *Node[T] {
	return &Node[T]{Owner: owner}
}

// Linked reports whether the node currently belongs to a list.
func (n *Node[T]) Linked() bool {
	return n.list != nil
}

// List is an intrusive FIFO. The zero value is ready to use.
type List[T any] struct {
	head, tail *Node[T]
	n          int
}

// Len returns the number of nodes currently queued.
func (l *List[T]) Len() int { return l.n }

// Empty reports whether the list has no nodes.
func (l *List[T]) Empty() bool { return l.n == 0 }

// PushTail appends n to the list. n must not already belong to a list.
func (l *List[T]) PushTail(n *Node[T]) {
	if n.list != nil {
		panic("klist: node already linked")
	}
	n.next, n.prev = nil, l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	n.list = l
	l.n++
}

// PopHead removes and returns the head of the list, or nil if empty.
func (l *List[T]) PopHead() *T {
	n := l.head
	if n == nil {
		return nil
	}
	l.remove(n)
	return n.Owner
}

// Peek returns the head value without removing it, or nil if empty.
func (l *List[T]) Peek() *T {
	if l.head == nil {
		return nil
	}
	return l.head.Owner
}

// Remove unlinks n from whatever list it is on. It is a no-op if n is not
// linked, so callers don't need to guard the common "unlink from wherever
// I currently am" pattern.
func (l *List[T]) Remove(n *Node[T]) {
	if n.list == nil {
		return
	}
	if n.list != l {
		n.list.remove(n)
		return
	}
	l.remove(n)
}

func (l *List[T]) remove(n *Node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.next, n.prev, n.list = nil, nil, nil
	l.n--
}

// Unlink removes n from whatever list currently owns it, if any. Useful
// when the caller only has the node and doesn't track which queue it is
// presently on (e.g. prepare_to_wait's "unlink from wherever I am").
func Unlink[T any](n *Node[T]) {
	if n.list != nil {
		n.list.remove(n)
	}
}

// Each walks the list head to tail, invoking fn on each value. fn may
// remove the current node (via the list it came from) without upsetting
// the walk — the next pointer is captured before fn runs.
func (l *List[T]) Each(fn func(*T)) {
	n := l.head
	for n != nil {
		next := n.next
		fn(n.Owner)
		n = next
	}
}
