package client

import (
	"github.com/loupelog/loupe/protocol"
)

// itemOverhead is the accounting cost added to each buffered record on top
// of its estimated payload size.
const itemOverhead = 24

type backlogItem struct {
	rec  protocol.Record
	cost int
	next *backlogItem
}

// backlog buffers records while no connection is available. Records are
// appended in submission order and evicted oldest first when the size cap
// is exceeded.
type backlog struct {
	head      *backlogItem
	tail      *backlogItem
	count     int
	sizeBytes int
	capacity  int
	onDrop    func(n int)
}

func newBacklog(capacity int, onDrop func(n int)) *backlog {
	return &backlog{capacity: capacity, onDrop: onDrop}
}

func (b *backlog) push(rec protocol.Record) {
	it := &backlogItem{rec: rec, cost: rec.EstimatedSize() + itemOverhead}
	if b.tail == nil {
		b.head = it
	} else {
		b.tail.next = it
	}
	b.tail = it
	b.count++
	b.sizeBytes += it.cost

	if dropped := b.resize(); dropped > 0 && b.onDrop != nil {
		b.onDrop(dropped)
	}
}

func (b *backlog) pop() protocol.Record {
	it := b.head
	if it == nil {
		return nil
	}
	b.head = it.next
	if b.head == nil {
		b.tail = nil
	}
	b.count--
	b.sizeBytes -= it.cost
	return it.rec
}

func (b *backlog) resize() int {
	dropped := 0
	for b.sizeBytes > b.capacity && b.head != nil {
		b.pop()
		dropped++
	}
	return dropped
}

func (b *backlog) setCapacity(capacity int) {
	b.capacity = capacity
	if dropped := b.resize(); dropped > 0 && b.onDrop != nil {
		b.onDrop(dropped)
	}
}

func (b *backlog) clear() {
	b.head = nil
	b.tail = nil
	b.count = 0
	b.sizeBytes = 0
}

func (b *backlog) len() int { return b.count }

func (b *backlog) size() int { return b.sizeBytes }
