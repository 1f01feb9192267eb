package protocol

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// maxBodySize guards the scanner against corrupt size prefixes.
const maxBodySize = 16 << 20

// bodyReader walks a frame body during parsing.
type bodyReader struct {
	b   []byte
	off int
}

func (br *bodyReader) take(n int) ([]byte, error) {
	if n < 0 || br.off+n > len(br.b) {
		return nil, errShortBody
	}
	p := br.b[br.off : br.off+n]
	br.off += n
	return p, nil
}

func (br *bodyReader) u32() (uint32, error) {
	p, err := br.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (br *bodyReader) f64() (float64, error) {
	p, err := br.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

// Frame is one raw record read off the wire.
type Frame struct {
	Kind RecordKind
	Body []byte
}

// Record parses the frame body into its typed record.
func (f *Frame) Record() (interface{}, error) {
	switch f.Kind {
	case KindHeader:
		return ParseHeader(f.Body)
	case KindLogEntry:
		return ParseLogEntry(f.Body)
	case KindWatch:
		return ParseWatch(f.Body)
	case KindProcessFlow:
		return ParseProcessFlow(f.Body)
	case KindControlCommand:
		return ParseControlCommand(f.Body)
	case KindStream:
		return ParseStream(f.Body)
	default:
		return nil, errors.Errorf("unknown record kind: %d", f.Kind)
	}
}

// FrameScanner reads binary frames from a stream. The frame returned by
// Frame is only valid until the next call to Scan.
type FrameScanner struct {
	r     io.Reader
	frame Frame
	hdr   [frameHeaderSize]byte
	body  []byte
	err   error
}

// NewFrameScanner returns a scanner that reads frames from r.
func NewFrameScanner(r io.Reader) *FrameScanner {
	return &FrameScanner{r: r}
}

// Reset reuses the scanner for a new stream.
func (s *FrameScanner) Reset(r io.Reader) {
	s.r = r
	s.err = nil
}

// Scan reads the next frame. It returns false at end of stream or on error.
func (s *FrameScanner) Scan() bool {
	if s.err != nil {
		return false
	}

	if _, err := io.ReadFull(s.r, s.hdr[:]); err != nil {
		if err != io.EOF {
			err = errors.Wrap(err, "reading frame header failed")
		}
		s.err = err
		return false
	}

	kind := RecordKind(binary.LittleEndian.Uint16(s.hdr[0:2]))
	size := binary.LittleEndian.Uint32(s.hdr[2:6])
	if size > maxBodySize {
		s.err = errBodyTooLarge
		return false
	}

	if cap(s.body) < int(size) {
		s.body = make([]byte, size)
	}
	s.body = s.body[:size]
	if _, err := io.ReadFull(s.r, s.body); err != nil {
		s.err = errors.Wrap(err, "reading frame body failed")
		return false
	}

	s.frame.Kind = kind
	s.frame.Body = s.body
	return true
}

// Frame returns the last frame scanned.
func (s *FrameScanner) Frame() *Frame {
	return &s.frame
}

// Err returns the scan error, if any. io.EOF is returned at a clean end of
// stream.
func (s *FrameScanner) Err() error {
	return s.err
}
