package server

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/internal"
	"github.com/loupelog/loupe/protocol"
)

type connState uint8

const (
	_ connState = iota

	// connection accepted but the handshake hasn't finished.
	connStateInactive

	// connection is streaming records.
	connStateActive

	// connection has been manually closed.
	connStateClosed

	// connection had an error.
	connStateFailed
)

func (cs connState) String() string {
	switch cs {
	case connStateInactive:
		return "INACTIVE"
	case connStateActive:
		return "ACTIVE"
	case connStateClosed:
		return "CLOSED"
	case connStateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("UNKNOWN(%+v)", uint8(cs))
}

// Conn is one client connection streaming records to the viewer.
type Conn struct {
	net.Conn

	config *config.Config

	id     string
	banner string

	scanner     *protocol.FrameScanner
	br          *bufio.Reader
	bw          *bufio.Writer
	readTimeout time.Duration

	state connState

	mu sync.Mutex

	written int
}

func newServerConn(c net.Conn, conf *config.Config) *Conn {
	br := bufio.NewReader(c)
	conn := &Conn{
		config:      conf,
		id:          newUUID(),
		Conn:        c,
		br:          br,
		bw:          bufio.NewWriter(c),
		scanner:     protocol.NewFrameScanner(br),
		readTimeout: conf.Timeout,
	}

	return conn
}

func newUUID() string {
	uuid := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	n, err := io.ReadFull(rand.Reader, uuid)
	if n != len(uuid) || err != nil {
		panic(err)
	}

	// variant bits; see section 4.1.1
	uuid[8] = uuid[8]&^0xc0 | 0x80
	// version 4 (pseudo-random); see section 4.1.3
	uuid[6] = uuid[6]&^0xf0 | 0x40
	return fmt.Sprintf("%x-%x-%x-%x-%x", uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:])
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// Banner returns the identification line sent by the client during the
// handshake.
func (c *Conn) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// handshake sends the viewer banner and reads the client's answer.
func (c *Conn) handshake(banner string) error {
	if err := c.Conn.SetDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return err
	}

	if _, err := c.write([]byte(banner + "\n")); err != nil {
		return err
	}

	line, err := c.br.ReadString('\n')
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.banner = trimEOL(line)
	c.state = connStateActive
	c.mu.Unlock()

	return c.Conn.SetDeadline(time.Time{})
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// ack confirms receipt of one frame.
func (c *Conn) ack() error {
	var buf [protocol.AckSize]byte
	_, err := c.write(buf[:])
	return err
}

// sync write. needs to hold the lock so acks don't interleave.
func (c *Conn) write(bufs ...[]byte) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for _, buf := range bufs {
		wrote, err := c.bw.Write(buf)
		n += int64(wrote)
		c.written += wrote
		if err != nil {
			return n, err
		}
	}

	err := c.Flush()
	return n, err
}

// Flush writes any buffered output to the connection.
func (c *Conn) Flush() error {
	return c.bw.Flush()
}

func (c *Conn) setState(state connState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Conn) getState() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) isActive() bool {
	return c.getState() == connStateActive
}

func (c *Conn) close() error {
	c.setState(connStateClosed)
	return c.Conn.Close()
}

func handleConnErr(conf *config.Config, err error, conn *Conn) error {
	if err == nil {
		return nil
	}
	if err == io.EOF {
		internal.Debugf(conf, "%s closed the connection", conn.RemoteAddr())
	} else if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		internal.Logf("%s timed out", conn.RemoteAddr())
	} else {
		conn.setState(connStateFailed)
		internal.Logf("error handling connection %s: %+v", conn.RemoteAddr(), err)
	}
	return err
}
