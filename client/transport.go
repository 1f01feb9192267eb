package client

import (
	"bufio"
	"io"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/internal"
	"github.com/loupelog/loupe/protocol"
)

// keepAlivePeriod is the TCP keepalive probe interval for viewer
// connections.
const keepAlivePeriod = 30 * time.Second

// closeGraceTimeout bounds how long a graceful close waits for the viewer
// to finish acknowledging outstanding frames.
const closeGraceTimeout = 5 * time.Second

// Dialer defines connection initiation. The default implementation wraps
// net.DialTimeout; tests can replace it.
type Dialer interface {
	DialTimeout(network, addr string, timeout time.Duration) (net.Conn, error)
}

type netDialer struct{}

func (netDialer) DialTimeout(network, addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, addr, timeout)
}

// transport wraps one live viewer connection. The viewer acknowledges every
// frame with two bytes which the transport drains and discards on a
// background goroutine. When the drain goroutine observes the read side
// closing, the peer has gone away.
type transport struct {
	conn    net.Conn
	conf    *config.Config
	banner  string
	ackDone chan struct{}
}

// dialTransport connects to the viewer and performs the banner exchange.
// Dial and handshake share a single deadline of conf.Timeout. onPeerClose,
// if set, is called once when the viewer closes its side of the
// connection.
func dialTransport(d Dialer, conf *config.Config, onPeerClose func()) (*transport, error) {
	deadline := time.Now().Add(conf.Timeout)
	conn, err := d.DialTimeout(conf.Network(), conf.Addr(), conf.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, "dialing viewer failed")
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		internal.IgnoreError(conf.Verbose, tc.SetNoDelay(true))
		internal.IgnoreError(conf.Verbose, tc.SetKeepAlive(true))
		internal.IgnoreError(conf.Verbose, tc.SetKeepAlivePeriod(keepAlivePeriod))
	}

	t := &transport{
		conn:    conn,
		conf:    conf,
		ackDone: make(chan struct{}),
	}

	if err := t.handshake(deadline); err != nil {
		internal.IgnoreError(conf.Verbose, conn.Close())
		return nil, err
	}

	go t.drainAcks(onPeerClose)
	return t, nil
}

// handshake reads the viewer banner line and answers with our own. The
// deadline is the one the dial started from, so a slow dial leaves less
// time for the banner exchange.
func (t *transport) handshake(deadline time.Time) error {
	if err := t.conn.SetDeadline(deadline); err != nil {
		return errors.Wrap(err, "setting handshake deadline failed")
	}

	br := bufio.NewReaderSize(t.conn, 256)
	line, err := br.ReadString('\n')
	if err != nil {
		return errors.Wrap(err, "reading viewer banner failed")
	}
	t.banner = strings.TrimRight(line, "\r\n")

	if _, err := io.WriteString(t.conn, protocol.ClientBanner+"\n"); err != nil {
		return errors.Wrap(err, "writing client banner failed")
	}

	if err := t.conn.SetDeadline(time.Time{}); err != nil {
		return errors.Wrap(err, "clearing handshake deadline failed")
	}
	internal.Debugf(t.conf, "handshake complete, viewer: %q", t.banner)
	return nil
}

// drainAcks discards the per-frame acknowledgements the viewer sends back.
// Leaving them in the socket buffer would eventually stall the viewer.
func (t *transport) drainAcks(onPeerClose func()) {
	defer close(t.ackDone)

	var buf [protocol.AckSize]byte
	for {
		if _, err := t.conn.Read(buf[:]); err != nil {
			internal.Debugf(t.conf, "ack reader done: %v", err)
			if onPeerClose != nil {
				onPeerClose()
			}
			return
		}
	}
}

// writeRecord serializes one record onto the connection.
func (t *transport) writeRecord(rec protocol.Record) error {
	if t.conf.Timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.conf.Timeout)); err != nil {
			return errors.Wrap(err, "setting write deadline failed")
		}
	}
	if _, err := rec.WriteTo(t.conn); err != nil {
		return errors.Wrap(err, "writing record failed")
	}
	return nil
}

// closeGraceful shuts down the write side, waits for the viewer to finish
// reading, then closes the connection. The wait is bounded so a stuck
// viewer cannot hang disconnects.
func (t *transport) closeGraceful() error {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := t.conn.(closeWriter); ok {
		internal.IgnoreError(t.conf.Verbose, cw.CloseWrite())
		select {
		case <-t.ackDone:
		case <-time.After(closeGraceTimeout):
			internal.Debugf(t.conf, "close grace period expired")
		}
	}
	return t.conn.Close()
}

// close tears the connection down immediately.
func (t *transport) close() error {
	return t.conn.Close()
}
