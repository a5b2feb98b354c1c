package cmcache

import "log"

// ContactBuffer is a fixed-capacity block of contacts. Buffers form a ring
// owned by a ContactBufferPool; the newest buffer is the head and head.next is
// the oldest.
type ContactBuffer struct {
	// header
	stamp       uint
	next        *ContactBuffer
	numContacts int

	// buffer itself
	contacts []Contact
}

func NewContactBuffer(capacity int, stamp uint, splice *ContactBuffer) *ContactBuffer {
	buffer := &ContactBuffer{contacts: make([]Contact, capacity)}
	return buffer.InitHeader(stamp, splice)
}

func (c *ContactBuffer) InitHeader(stamp uint, splice *ContactBuffer) *ContactBuffer {
	c.stamp = stamp
	if splice != nil {
		c.next = splice.next
	} else {
		c.next = c
	}
	c.numContacts = 0

	return c
}

// Capacity returns the number of contacts the buffer can hold.
func (c *ContactBuffer) Capacity() int {
	return len(c.contacts)
}

// Used returns the number of claimed contacts.
func (c *ContactBuffer) Used() int {
	return c.numContacts
}

// Stamp returns the step the buffer was last (re)initialized for.
func (c *ContactBuffer) Stamp() uint {
	return c.stamp
}

// ContactBufferPool hands out contact storage for arbiters.
//
// Buffers are never resized. When the head is full another buffer becomes
// current, so contacts already handed out keep their addresses. A buffer is
// only recycled once every arbiter that could reference it has been evicted.
type ContactBufferPool struct {
	// Capacity of buffers allocated from now on. Must be at least MaxContactsPerArbiter.
	Capacity int

	head  *ContactBuffer
	count int

	// persistence passed to the last PushFreshBuffer, reused on overflow.
	persistence uint
}

func NewContactBufferPool(capacity int) *ContactBufferPool {
	return &ContactBufferPool{Capacity: capacity}
}

func (p *ContactBufferPool) newBuffer(stamp uint, splice *ContactBuffer) *ContactBuffer {
	if p.Capacity < MaxContactsPerArbiter {
		log.Panicf("cmcache: contact buffer capacity %d is smaller than %d", p.Capacity, MaxContactsPerArbiter)
	}
	p.count++
	return NewContactBuffer(p.Capacity, stamp, splice)
}

// PushFreshBuffer makes an empty buffer current for step stamp. The oldest
// buffer is reused when it is more than persistence steps old, otherwise a new
// one is allocated and pushed into the ring.
func (p *ContactBufferPool) PushFreshBuffer(stamp, persistence uint) {
	p.persistence = persistence
	head := p.head

	if head == nil {
		p.head = p.newBuffer(stamp, nil)
	} else if tail := head.next; stamp > tail.stamp && stamp-tail.stamp > persistence {
		p.head = tail.InitHeader(stamp, tail)
	} else {
		// Allocate a new buffer and push it into the ring
		buffer := p.newBuffer(stamp, head)
		head.next = buffer
		p.head = buffer
	}
}

// ChainBuffer allocates a new current buffer for step stamp without
// recycling any existing buffer. Restoring arbiters with a newer stamp uses it.
func (p *ContactBufferPool) ChainBuffer(stamp uint) {
	head := p.head
	if head == nil {
		p.head = p.newBuffer(stamp, nil)
		return
	}
	buffer := p.newBuffer(stamp, head)
	head.next = buffer
	p.head = buffer
}

// Head returns the current buffer, or nil before the first PushFreshBuffer.
func (p *ContactBufferPool) Head() *ContactBuffer {
	return p.head
}

// CurrentArray returns room for MaxContactsPerArbiter contacts at the write
// position of the current buffer. When the current one cannot fit them a fresh
// buffer is pushed for the same stamp, recycling a stale one if possible.
// The returned slice stays valid until its buffer is recycled.
func (p *ContactBufferPool) CurrentArray() []Contact {
	p.mustHaveHead()
	if p.head.numContacts+MaxContactsPerArbiter > len(p.head.contacts) {
		p.PushFreshBuffer(p.head.stamp, p.persistence)
	}

	head := p.head
	return head.contacts[head.numContacts : head.numContacts+MaxContactsPerArbiter : head.numContacts+MaxContactsPerArbiter]
}

// PushContacts claims count contacts returned by the last CurrentArray call.
func (p *ContactBufferPool) PushContacts(count int) {
	p.mustHaveHead()
	head := p.head
	if count < 0 || head.numContacts+count > len(head.contacts) {
		log.Panicf("cmcache: pushing %d contacts overflows the contact buffer (%d/%d used)",
			count, head.numContacts, len(head.contacts))
	}
	head.numContacts += count
}

// PopContacts releases the last count claimed contacts.
func (p *ContactBufferPool) PopContacts(count int) {
	p.mustHaveHead()
	head := p.head
	if count < 0 || count > head.numContacts {
		log.Panicf("cmcache: popping %d contacts from a buffer holding %d", count, head.numContacts)
	}
	head.numContacts -= count
}

func (p *ContactBufferPool) mustHaveHead() {
	if p.head == nil {
		log.Panicln("cmcache: contact buffer pool has no current buffer")
	}
}

// BufferCount returns the number of buffers in the ring.
func (p *ContactBufferPool) BufferCount() int {
	return p.count
}

// Release drops every buffer. Contacts handed out earlier must not be used afterwards.
func (p *ContactBufferPool) Release() {
	p.head = nil
	p.count = 0
}
