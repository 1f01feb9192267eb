package testhelper

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/loupelog/loupe/protocol"
)

// MockViewerBanner is the identification line the mock viewer sends during
// the handshake.
const MockViewerBanner = "loupe mock viewer"

// MockViewer acts as the receiving end of client connections over
// in-memory pipes. It performs the banner exchange, parses every frame,
// acknowledges it, and keeps the decoded records for inspection.
type MockViewer struct {
	mu          sync.Mutex
	records     []interface{}
	conns       []net.Conn
	dials       int
	failDials   int
	closeAfter  int
	skipAcks    bool
	lastBanner  string
	recordAdded chan struct{}
}

// NewMockViewer returns a mock viewer ready to accept dials.
func NewMockViewer() *MockViewer {
	return &MockViewer{
		recordAdded: make(chan struct{}, 100),
	}
}

// DialTimeout hands the client one end of a fresh pipe. The server end is
// handled on a new goroutine.
func (v *MockViewer) DialTimeout(network, addr string, timeout time.Duration) (net.Conn, error) {
	v.mu.Lock()
	v.dials++
	if v.failDials > 0 {
		v.failDials--
		v.mu.Unlock()
		return nil, &net.OpError{
			Op:  "dial-mocktcp",
			Net: "mocktcp pipe",
			Err: errors.New("connection failed"),
		}
	}

	server, client := net.Pipe()
	v.conns = append(v.conns, server)
	v.mu.Unlock()

	go v.serve(server)
	return client, nil
}

func (v *MockViewer) serve(c net.Conn) {
	if _, err := io.WriteString(c, MockViewerBanner+"\n"); err != nil {
		return
	}

	br := bufio.NewReader(c)
	line, err := br.ReadString('\n')
	if err != nil {
		return
	}
	v.mu.Lock()
	v.lastBanner = line[:len(line)-1]
	v.mu.Unlock()

	scanner := protocol.NewFrameScanner(br)
	for scanner.Scan() {
		rec, err := scanner.Frame().Record()
		if err != nil {
			c.Close()
			return
		}

		v.mu.Lock()
		v.records = append(v.records, rec)
		closeNow := v.closeAfter > 0 && len(v.records) >= v.closeAfter
		skipAck := v.skipAcks
		v.mu.Unlock()

		select {
		case v.recordAdded <- struct{}{}:
		default:
		}

		if closeNow {
			c.Close()
			return
		}
		if skipAck {
			continue
		}

		var ack [protocol.AckSize]byte
		if _, err := c.Write(ack[:]); err != nil {
			return
		}
	}
}

// Records returns a copy of all decoded records in arrival order.
func (v *MockViewer) Records() []interface{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]interface{}, len(v.records))
	copy(out, v.records)
	return out
}

// Dials returns the number of connection attempts so far.
func (v *MockViewer) Dials() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dials
}

// LastClientBanner returns the most recent banner received from a client.
func (v *MockViewer) LastClientBanner() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastBanner
}

// FailDials makes the next n dials fail.
func (v *MockViewer) FailDials(n int) {
	v.mu.Lock()
	v.failDials = n
	v.mu.Unlock()
}

// CloseAfterRecords closes the connection once n records in total have
// been received, without acknowledging the last one.
func (v *MockViewer) CloseAfterRecords(n int) {
	v.mu.Lock()
	v.closeAfter = n
	v.mu.Unlock()
}

// SkipAcks stops the viewer from acknowledging frames. Records are still
// parsed and stored.
func (v *MockViewer) SkipAcks() {
	v.mu.Lock()
	v.skipAcks = true
	v.mu.Unlock()
}

// WaitForRecords blocks until at least n records have arrived or the
// timeout expires. It returns the records seen so far and whether the
// count was reached.
func (v *MockViewer) WaitForRecords(n int, timeout time.Duration) ([]interface{}, bool) {
	deadline := time.Now().Add(timeout)
	for {
		v.mu.Lock()
		count := len(v.records)
		v.mu.Unlock()
		if count >= n {
			return v.Records(), true
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return v.Records(), false
		}
		select {
		case <-v.recordAdded:
		case <-time.After(remain):
		}
	}
}

// Close tears down all server-side pipe ends.
func (v *MockViewer) Close() error {
	v.mu.Lock()
	conns := v.conns
	v.conns = nil
	v.mu.Unlock()

	var err error
	for _, c := range conns {
		if cerr := c.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}
