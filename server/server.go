package server

import (
	"net"
	"sync"
	"time"

	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/internal"
	"github.com/loupelog/loupe/protocol"
	"github.com/loupelog/loupe/stats"
)

// Banner is the identification line sent to clients on connect.
const Banner = "loupe viewer v1.0.0"

// stopGrace bounds how long Stop waits for in-flight connections before
// forcing them closed.
const stopGrace = 300 * time.Millisecond

// Handler receives each frame read from a client connection. Returning an
// error closes the connection. The frame is only valid for the duration of
// the call.
type Handler interface {
	HandleFrame(conn *Conn, frame *protocol.Frame) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(conn *Conn, frame *protocol.Frame) error

// HandleFrame implements Handler
func (f HandlerFunc) HandleFrame(conn *Conn, frame *protocol.Frame) error {
	return f(conn, frame)
}

// Socket accepts client connections and streams their records to a
// handler. Each connection gets its own goroutine; Stop closes the
// listener and reaps them.
type Socket struct {
	config  *config.Config
	handler Handler

	addr string

	mu      sync.Mutex
	ln      net.Listener
	closing bool

	connMu sync.Mutex
	conns  map[*Conn]bool
	wg     sync.WaitGroup

	frameSizes *stats.Histogram

	readyOnce sync.Once
	readyC    chan struct{}
}

// NewSocket returns a new viewer server listening on addr.
func NewSocket(addr string, conf *config.Config, handler Handler) *Socket {
	return &Socket{
		config:     conf,
		handler:    handler,
		addr:       addr,
		conns:      make(map[*Conn]bool),
		frameSizes: stats.NewHistogram(),
		readyC:     make(chan struct{}),
	}
}

// ListenAndServe listens on the configured address and accepts
// connections until Stop is called.
func (s *Socket) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	internal.Logf("serving at %s", ln.Addr())
	s.readyOnce.Do(func() { close(s.readyC) })

	return s.acceptLoop(ln)
}

// GoServe serves on a background goroutine. It returns once the listener
// is ready, or once serving failed.
func (s *Socket) GoServe() {
	go func() {
		if err := s.ListenAndServe(); err != nil {
			internal.Logf("serve: %+v", err)
		}
		s.readyOnce.Do(func() { close(s.readyC) })
	}()
	<-s.readyC
}

// ListenAddress returns the listen address of the server.
func (s *Socket) ListenAddress() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln.Addr()
}

// FrameSizes returns the observed distribution of frame body sizes.
func (s *Socket) FrameSizes() *stats.Histogram {
	return s.frameSizes
}

func (s *Socket) acceptLoop(ln net.Listener) error {
	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			return err
		}
		if s.isClosing() {
			internal.IgnoreError(s.config.Verbose, rawConn.Close())
			return nil
		}

		internal.Debugf(s.config, "accept: %s", rawConn.RemoteAddr())
		stats.TotalConnections.Add("tcp", 1)

		conn := newServerConn(rawConn, s.config)
		s.track(conn)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// Stop closes the listener, then gives in-flight connections a grace
// period before forcing them closed.
func (s *Socket) Stop() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	ln := s.ln
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return err
	case <-time.After(stopGrace):
	}

	for _, conn := range s.Conns() {
		internal.Logf("%s(%s) did not finish in time, closing", conn.RemoteAddr(), conn.getState())
		s.drop(conn)
	}

	select {
	case <-finished:
	case <-time.After(stopGrace):
		internal.Logf("gave up waiting for connection handlers")
	}
	return err
}

func (s *Socket) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Conns returns a snapshot of the current connections. For debugging.
func (s *Socket) Conns() []*Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	conns := make([]*Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (s *Socket) track(conn *Conn) {
	conn.setState(connStateInactive)
	s.connMu.Lock()
	s.conns[conn] = true
	s.connMu.Unlock()
	stats.ActiveConnections.Add("tcp", 1)
}

func (s *Socket) drop(conn *Conn) {
	if err := conn.close(); err != nil {
		internal.Debugf(s.config, "close %s: %+v", conn.RemoteAddr(), err)
	}

	s.connMu.Lock()
	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		stats.ActiveConnections.Add("tcp", -1)
	}
	s.connMu.Unlock()
}

func (s *Socket) serveConn(conn *Conn) {
	defer s.drop(conn)

	if err := conn.handshake(Banner); err != nil {
		internal.Logf("%s handshake failed: %+v", conn.RemoteAddr(), err)
		return
	}
	internal.Debugf(s.config, "%s: client banner %q", conn.RemoteAddr(), conn.Banner())

	for conn.scanner.Scan() {
		if s.isClosing() {
			return
		}

		frame := conn.scanner.Frame()
		internal.Debugf(s.config, "%s<-%s: %s frame, %d bytes", conn.LocalAddr(), conn.RemoteAddr(), frame.Kind, len(frame.Body))

		stats.TotalFrames.Add(frame.Kind.String(), 1)
		stats.TotalBytes.Add("tcp", int64(len(frame.Body)))
		s.frameSizes.Observe(float64(len(frame.Body)))

		if s.handler != nil {
			start := time.Now()
			err := s.handler.HandleFrame(conn, frame)
			stats.Timing("handler.latency", start)
			if err != nil {
				internal.Logf("%s handler error: %+v", conn.RemoteAddr(), err)
				return
			}
		}

		if err := conn.ack(); err != nil {
			handleConnErr(s.config, err, conn)
			return
		}
	}

	if err := conn.scanner.Err(); err != nil {
		handleConnErr(s.config, err, conn)
	}
}
