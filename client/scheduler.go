package client

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/loupelog/loupe/internal"
)

// ErrStopped is returned by blocking submits when the scheduler has been
// stopped and can no longer accept records.
var ErrStopped = errors.New("client: scheduler stopped")

// cmdBatchSize is the number of commands the scheduler executes per wakeup
// before rechecking state.
const cmdBatchSize = 16

type throttleWaiter struct {
	cmd *command
	c   chan bool
}

// scheduler executes commands on a single background goroutine so that
// submitting goroutines never block on the network.
type scheduler struct {
	core     *Core
	mu       sync.Mutex
	q        commandQueue
	capacity int
	throttle bool
	started  bool
	stopped  bool
	waiters  []*throttleWaiter
	wakeC    chan struct{}
	doneC    chan struct{}
}

func newScheduler(core *Core, capacity int, throttle bool) *scheduler {
	return &scheduler{
		core:     core,
		capacity: capacity,
		throttle: throttle,
		wakeC:    make(chan struct{}, 1),
		doneC:    make(chan struct{}),
	}
}

func (s *scheduler) start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stopped = false
	s.mu.Unlock()

	go s.loop()
}

func (s *scheduler) loop() {
	defer close(s.doneC)

	var batch [cmdBatchSize]*command
	for {
		s.mu.Lock()
		for s.q.len() == 0 && !s.stopped {
			s.mu.Unlock()
			<-s.wakeC
			s.mu.Lock()
		}

		if s.stopped && s.core.hasFailed() {
			s.q.clear()
			s.mu.Unlock()
			return
		}

		n := 0
		for n < cmdBatchSize {
			cmd := s.q.pop()
			if cmd == nil {
				break
			}
			if s.stopped && cmd.kind != cmdDisconnect {
				continue
			}
			batch[n] = cmd
			n++
		}
		empty := s.q.len() == 0
		s.mu.Unlock()

		s.wakeWaiters()

		for i := 0; i < n; i++ {
			s.execute(batch[i])
			batch[i] = nil
		}

		if empty && s.isStopped() {
			return
		}
	}
}

func (s *scheduler) execute(cmd *command) {
	defer func() {
		if r := recover(); r != nil {
			internal.Debugf(s.core.conf, "scheduler: %s panicked: %v", cmd.kind, r)
		}
	}()

	switch cmd.kind {
	case cmdConnect:
		s.core.implConnect()
	case cmdWrite:
		s.core.implWritePacket(cmd.rec)
	case cmdDisconnect:
		s.core.implDisconnect()
	case cmdDispatch:
		cmd.fn()
	}
}

// schedule enqueues a command without blocking. If the command is a write
// and the queue is over capacity, the oldest writes are trimmed to make
// room. It reports whether the command was accepted.
func (s *scheduler) schedule(cmd *command) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}

	if cmd.kind == cmdWrite && s.q.size()+cmd.cost > s.capacity {
		need := s.q.size() + cmd.cost - s.capacity
		_, dropped := s.q.trim(need)
		if s.q.size()+cmd.cost > s.capacity {
			s.mu.Unlock()
			notifyDropped(s.core.obs, dropped+1)
			return false
		}
		s.q.push(cmd)
		s.mu.Unlock()
		notifyDropped(s.core.obs, dropped)
		s.wake()
		return true
	}

	s.q.push(cmd)
	s.mu.Unlock()
	s.wake()
	return true
}

// scheduleWait enqueues a write command, blocking until the queue has room.
// Waiters are resumed in arrival order. It returns ErrStopped if the
// scheduler stops while waiting.
func (s *scheduler) scheduleWait(cmd *command) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.q.size()+cmd.cost <= s.capacity && len(s.waiters) == 0 {
		s.q.push(cmd)
		s.mu.Unlock()
		s.wake()
		return nil
	}

	w := &throttleWaiter{cmd: cmd, c: make(chan bool, 1)}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	if ok := <-w.c; !ok {
		return ErrStopped
	}
	return nil
}

// wakeWaiters admits parked waiters in arrival order while the queue has
// room. The waiter's command is queued here, under the lock, so each
// admission is visible to the next room check.
func (s *scheduler) wakeWaiters() {
	queued := false
	s.mu.Lock()
	for len(s.waiters) > 0 {
		w := s.waiters[0]
		if s.q.size()+w.cmd.cost > s.capacity {
			break
		}
		s.waiters = s.waiters[1:]
		s.q.push(w.cmd)
		queued = true
		w.c <- true
	}
	s.mu.Unlock()

	if queued {
		s.wake()
	}
}

func (s *scheduler) wake() {
	select {
	case s.wakeC <- struct{}{}:
	default:
	}
}

// stop rejects all blocked submitters, lets queued disconnects run, and
// waits for the scheduler goroutine to exit. Queued writes and connects are
// discarded.
func (s *scheduler) stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w.c <- false
	}

	s.wake()
	<-s.doneC
}

// clear discards all queued commands and resumes any blocked submitters.
func (s *scheduler) clear() {
	s.mu.Lock()
	s.q.clear()
	s.mu.Unlock()
	s.wakeWaiters()
}

func (s *scheduler) isStopped() bool {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	return stopped
}

func (s *scheduler) queueLen() int {
	s.mu.Lock()
	n := s.q.len()
	s.mu.Unlock()
	return n
}

func (s *scheduler) queueSize() int {
	s.mu.Lock()
	n := s.q.size()
	s.mu.Unlock()
	return n
}
