package client

import (
	"fmt"

	"github.com/loupelog/loupe/protocol"
)

type cmdKind uint8

const (
	cmdConnect cmdKind = iota + 1
	cmdWrite
	cmdDisconnect
	cmdDispatch
)

func (k cmdKind) String() string {
	switch k {
	case cmdConnect:
		return "CONNECT"
	case cmdWrite:
		return "WRITE"
	case cmdDisconnect:
		return "DISCONNECT"
	case cmdDispatch:
		return "DISPATCH"
	}
	return fmt.Sprintf("UNKNOWN<%d>", uint8(k))
}

// DispatchFunc runs on the scheduler goroutine with exclusive access to the
// connection. Used for operations that must be ordered with writes.
type DispatchFunc func()

type command struct {
	kind cmdKind
	rec  protocol.Record
	fn   DispatchFunc
	cost int
	next *command
	prev *command
}

func newWriteCommand(rec protocol.Record) *command {
	return &command{kind: cmdWrite, rec: rec, cost: rec.EstimatedSize()}
}

// commandQueue is a doubly linked FIFO of scheduler commands with byte
// accounting for write commands.
type commandQueue struct {
	head      *command
	tail      *command
	count     int
	sizeBytes int
}

func (q *commandQueue) push(cmd *command) {
	cmd.prev = q.tail
	cmd.next = nil
	if q.tail == nil {
		q.head = cmd
	} else {
		q.tail.next = cmd
	}
	q.tail = cmd
	q.count++
	q.sizeBytes += cmd.cost
}

func (q *commandQueue) pop() *command {
	cmd := q.head
	if cmd == nil {
		return nil
	}
	q.remove(cmd)
	return cmd
}

func (q *commandQueue) remove(cmd *command) {
	if cmd.prev == nil {
		q.head = cmd.next
	} else {
		cmd.prev.next = cmd.next
	}
	if cmd.next == nil {
		q.tail = cmd.prev
	} else {
		cmd.next.prev = cmd.prev
	}
	cmd.prev = nil
	cmd.next = nil
	q.count--
	q.sizeBytes -= cmd.cost
}

// trim removes write commands oldest first until at least n bytes have been
// freed or no write commands remain. Connect, disconnect, and dispatch
// commands are never removed. It returns the bytes freed and the number of
// records dropped.
func (q *commandQueue) trim(n int) (freed, dropped int) {
	cmd := q.head
	for cmd != nil && freed < n {
		next := cmd.next
		if cmd.kind == cmdWrite {
			freed += cmd.cost
			dropped++
			q.remove(cmd)
		}
		cmd = next
	}
	return freed, dropped
}

func (q *commandQueue) clear() {
	q.head = nil
	q.tail = nil
	q.count = 0
	q.sizeBytes = 0
}

func (q *commandQueue) len() int { return q.count }

func (q *commandQueue) size() int { return q.sizeBytes }
