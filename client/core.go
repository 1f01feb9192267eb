package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/internal"
	"github.com/loupelog/loupe/protocol"
)

var (
	errNotConfigured    = errors.New("client: not configured")
	errFlushInterrupted = errors.New("client: flush interrupted by disconnect")
)

type connState uint8

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "DISCONNECTED"
	case stateConnecting:
		return "CONNECTING"
	case stateConnected:
		return "CONNECTED"
	}
	return fmt.Sprintf("UNKNOWN<%d>", uint8(s))
}

// connectFlight is a single in-progress connection attempt. Goroutines that
// find an attempt already running share its outcome instead of dialing
// again.
type connectFlight struct {
	doneC chan struct{}
	err   error
}

func (f *connectFlight) wait() error {
	<-f.doneC
	return f.err
}

// Stats is a snapshot of client state.
type Stats struct {
	State         string
	Failed        bool
	BufferedCount int
	BufferedBytes int
	QueuedCount   int
	QueuedBytes   int
}

// Core drives the connection to the viewer. Records submitted while
// disconnected are buffered and replayed in order once a connection is
// established. All methods are safe for concurrent use.
type Core struct {
	conf   *config.Config
	dialer Dialer
	obs    Observer

	mu       sync.Mutex
	state    connState
	failed   bool
	gateAt   time.Time
	tr       *transport
	inflight *connectFlight
	backlog  *backlog
	sched    *scheduler
}

// NewCore returns an unconfigured core using the default network dialer.
func NewCore() *Core {
	return &Core{dialer: netDialer{}}
}

// SetDialer replaces the network dialer. It must be called before
// Connect.
func (c *Core) SetDialer(d Dialer) { c.dialer = d }

// Configure validates conf and prepares the backlog and, when async mode
// is enabled, the scheduler. obs may be nil.
func (c *Core) Configure(conf *config.Config, obs Observer) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conf = conf
	c.obs = obs
	c.backlog = newBacklog(conf.BacklogCapacity(), func(n int) {
		notifyDropped(obs, n)
	})
	if conf.AsyncEnabled {
		c.sched = newScheduler(c, conf.AsyncCapacity(), conf.AsyncThrottle)
	}
	return nil
}

// Connect initiates a connection without waiting for the outcome. Failures
// surface through the observer, and records submitted meanwhile are
// buffered.
func (c *Core) Connect() {
	c.mu.Lock()
	if c.conf == nil {
		c.mu.Unlock()
		panic(errNotConfigured)
	}
	sched := c.sched
	c.mu.Unlock()

	if sched != nil {
		sched.start()
		sched.schedule(&command{kind: cmdConnect})
		return
	}
	c.startFlight(false)
}

// ConnectWait initiates a connection and blocks until the attempt
// completes.
func (c *Core) ConnectWait() error {
	c.mu.Lock()
	if c.conf == nil {
		c.mu.Unlock()
		panic(errNotConfigured)
	}
	sched := c.sched
	c.mu.Unlock()

	if sched != nil {
		sched.start()
		done := make(chan error, 1)
		sched.schedule(&command{kind: cmdDispatch, fn: func() {
			done <- c.implConnectErr()
		}})
		return <-done
	}

	f := c.startFlight(false)
	if f == nil {
		return nil
	}
	return f.wait()
}

// Submit hands a record to the client. In async mode it is queued for the
// scheduler. Otherwise it is written directly, or buffered when no
// connection is available. Submit never blocks on the network in async
// mode.
func (c *Core) Submit(rec protocol.Record) {
	c.mu.Lock()
	if c.conf == nil {
		c.mu.Unlock()
		panic(errNotConfigured)
	}
	sched := c.sched
	c.mu.Unlock()

	if sched != nil {
		sched.schedule(newWriteCommand(rec))
		return
	}
	c.writePacket(rec)
}

// SubmitWithBackpressure is like Submit but, when AsyncThrottle is set,
// blocks while the async queue is full instead of dropping old records.
// Without AsyncThrottle, and in sync mode, it behaves like Submit.
func (c *Core) SubmitWithBackpressure(rec protocol.Record) error {
	c.mu.Lock()
	if c.conf == nil {
		c.mu.Unlock()
		panic(errNotConfigured)
	}
	sched := c.sched
	throttle := c.conf.AsyncThrottle
	c.mu.Unlock()

	if sched != nil {
		if throttle {
			return sched.scheduleWait(newWriteCommand(rec))
		}
		sched.schedule(newWriteCommand(rec))
		return nil
	}
	c.writePacket(rec)
	return nil
}

// Dispatch runs fn on the scheduler goroutine, ordered after previously
// submitted records. In sync mode fn runs inline.
func (c *Core) Dispatch(fn DispatchFunc) {
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()

	if sched != nil {
		sched.schedule(&command{kind: cmdDispatch, fn: fn})
		return
	}
	fn()
}

// Disconnect tears down the connection. In async mode queued writes are
// either flushed or discarded depending on configuration, then the
// scheduler goroutine exits. Disconnect is idempotent.
func (c *Core) Disconnect() {
	c.mu.Lock()
	if c.conf == nil {
		c.mu.Unlock()
		return
	}
	sched := c.sched
	clearOnDisconnect := c.conf.AsyncClearOnDisconnect
	c.mu.Unlock()

	if sched != nil {
		if clearOnDisconnect {
			sched.clear()
		}
		sched.schedule(&command{kind: cmdDisconnect})

		// let the commands queued ahead of the disconnect run before stop
		// discards everything but disconnects
		sched.mu.Lock()
		started := sched.started
		sched.mu.Unlock()
		drained := make(chan struct{})
		if started && sched.schedule(&command{kind: cmdDispatch, fn: func() { close(drained) }}) {
			select {
			case <-drained:
			case <-sched.doneC:
			}
		}
		sched.stop()
		return
	}
	c.implDisconnect()
}

// Stats returns a snapshot of client state.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	st := Stats{
		State:  c.state.String(),
		Failed: c.failed,
	}
	if c.backlog != nil {
		st.BufferedCount = c.backlog.len()
		st.BufferedBytes = c.backlog.size()
	}
	sched := c.sched
	c.mu.Unlock()

	if sched != nil {
		st.QueuedCount = sched.queueLen()
		st.QueuedBytes = sched.queueSize()
	}
	return st
}

func (c *Core) hasFailed() bool {
	c.mu.Lock()
	failed := c.failed
	c.mu.Unlock()
	return failed
}

// startFlight begins a connection attempt unless one is already running,
// in which case the running flight is returned. When gated is true the
// attempt is skipped if the reconnect interval since the last failure has
// not elapsed yet.
func (c *Core) startFlight(gated bool) *connectFlight {
	c.mu.Lock()
	if c.state == stateConnected {
		c.mu.Unlock()
		return nil
	}
	if c.inflight != nil {
		f := c.inflight
		c.mu.Unlock()
		return f
	}
	if gated && !c.gateAt.IsZero() && time.Now().Before(c.gateAt) {
		c.mu.Unlock()
		return nil
	}

	f := &connectFlight{doneC: make(chan struct{})}
	c.inflight = f
	c.state = stateConnecting
	c.mu.Unlock()

	go c.runFlight(f)
	return f
}

// runFlight dials, flushes the backlog, and promotes the connection. The
// state stays CONNECTING while the backlog drains so that concurrent
// submits keep appending behind the records being replayed.
func (c *Core) runFlight(f *connectFlight) {
	defer func() {
		c.mu.Lock()
		c.inflight = nil
		c.mu.Unlock()
		close(f.doneC)
	}()

	tr, err := dialTransport(c.dialer, c.conf, func() { c.transportClosed() })
	if err != nil {
		c.mu.Lock()
		c.failed = true
		c.gateAt = time.Now().Add(c.conf.ReconnectInterval)
		c.state = stateDisconnected
		c.mu.Unlock()
		f.err = err
		notifyError(c.obs, err)
		return
	}

	c.mu.Lock()
	c.tr = tr
	c.mu.Unlock()

	if err := c.flush(tr); err != nil {
		c.mu.Lock()
		if c.tr == tr {
			c.tr = nil
			internal.IgnoreError(c.conf.Verbose, tr.close())
			c.failed = true
			c.gateAt = time.Now().Add(c.conf.ReconnectInterval)
			c.state = stateDisconnected
		}
		c.mu.Unlock()
		f.err = err
		if errors.Cause(err) != errFlushInterrupted {
			notifyError(c.obs, err)
		}
		return
	}

	c.mu.Lock()
	if c.tr != tr {
		c.mu.Unlock()
		f.err = errFlushInterrupted
		return
	}
	c.state = stateConnected
	c.failed = false
	c.gateAt = time.Time{}
	c.mu.Unlock()

	internal.Debugf(c.conf, "connected to %s", c.conf.Addr())
	notifyConnect(c.obs, tr.banner)
}

// flush writes the header frame and then replays buffered records in
// submission order. Records are popped one at a time so submits racing the
// flush land behind the replay.
func (c *Core) flush(tr *transport) error {
	hdr := protocol.NewHeader(c.conf.AppName, c.conf.EffectiveHostName(), c.conf.Room)
	if err := tr.writeRecord(hdr); err != nil {
		return err
	}

	for {
		c.mu.Lock()
		if c.tr != tr {
			c.mu.Unlock()
			return errFlushInterrupted
		}
		rec := c.backlog.pop()
		c.mu.Unlock()

		if rec == nil {
			return nil
		}
		if err := tr.writeRecord(rec); err != nil {
			return err
		}
	}
}

// writePacket is the synchronous submit path. Connected records go straight
// to the wire. Disconnected records are buffered in the same call, before
// any reconnection work, so submission order is never lost.
func (c *Core) writePacket(rec protocol.Record) {
	c.mu.Lock()
	if c.state == stateConnected {
		tr := c.tr
		err := tr.writeRecord(rec)
		if err == nil {
			c.mu.Unlock()
			return
		}

		c.tr = nil
		internal.IgnoreError(c.conf.Verbose, tr.close())
		c.failed = true
		c.state = stateDisconnected
		if c.conf.BacklogEnabled {
			c.backlog.push(rec)
		}
		c.mu.Unlock()
		notifyError(c.obs, err)
		notifyDisconnect(c.obs)

		if c.conf.Reconnect {
			c.startFlight(true)
		}
		return
	}

	if c.failed && !c.conf.Reconnect {
		c.mu.Unlock()
		return
	}

	if c.conf.BacklogEnabled {
		c.backlog.push(rec)
	}
	keepOpen := c.conf.EffectiveKeepOpen()
	connecting := c.state == stateConnecting
	c.mu.Unlock()

	if !keepOpen {
		c.oneShot()
		return
	}
	if c.conf.Reconnect && !connecting {
		c.startFlight(true)
	}
}

// oneShot connects, flushes everything buffered, and closes again. Used
// when the configuration asks for a fresh connection per write.
func (c *Core) oneShot() {
	f := c.startFlight(c.conf.Reconnect)
	if f == nil {
		return
	}
	if err := f.wait(); err != nil {
		return
	}
	c.implDisconnect()
}

func (c *Core) transportClosed() {
	c.mu.Lock()
	if c.state != stateConnected || c.tr == nil {
		c.mu.Unlock()
		return
	}
	tr := c.tr
	c.tr = nil
	c.state = stateDisconnected
	c.mu.Unlock()

	internal.IgnoreError(c.conf.Verbose, tr.close())
	internal.Debugf(c.conf, "viewer closed the connection")
	notifyDisconnect(c.obs)
}

// implConnect runs a connection attempt on the scheduler goroutine.
func (c *Core) implConnect() {
	internal.IgnoreError(c.conf.Verbose, c.implConnectErr())
}

func (c *Core) implConnectErr() error {
	f := c.startFlight(false)
	if f == nil {
		return nil
	}
	return f.wait()
}

// implWritePacket runs a write on the scheduler goroutine.
func (c *Core) implWritePacket(rec protocol.Record) {
	c.writePacket(rec)
}

// implDisconnect tears down the connection gracefully.
func (c *Core) implDisconnect() {
	c.mu.Lock()
	tr := c.tr
	c.tr = nil
	wasConnected := c.state == stateConnected
	c.state = stateDisconnected
	c.mu.Unlock()

	if tr != nil {
		internal.IgnoreError(c.conf.Verbose, tr.closeGraceful())
	}
	if wasConnected {
		notifyDisconnect(c.obs)
	}
}
