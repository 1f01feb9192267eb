package protocol

import (
	"encoding/binary"
	"io"
	"math"
)

// bodyWriter accumulates a frame body. All integers are little-endian;
// strings are raw UTF-8 whose length is declared in a separate u32 field.
type bodyWriter struct {
	b []byte
}

func (bw *bodyWriter) reset() {
	bw.b = bw.b[:0]
}

func (bw *bodyWriter) u16(v uint16) {
	bw.b = binary.LittleEndian.AppendUint16(bw.b, v)
}

func (bw *bodyWriter) u32(v uint32) {
	bw.b = binary.LittleEndian.AppendUint32(bw.b, v)
}

func (bw *bodyWriter) f64(v float64) {
	bw.b = binary.LittleEndian.AppendUint64(bw.b, math.Float64bits(v))
}

func (bw *bodyWriter) str(s string) {
	bw.b = append(bw.b, s...)
}

func (bw *bodyWriter) bytes(p []byte) {
	bw.b = append(bw.b, p...)
}

// writeFrame emits the kind and size prefix followed by the body.
func writeFrame(w io.Writer, kind RecordKind, body []byte) (int64, error) {
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(kind))
	binary.LittleEndian.PutUint32(hdr[2:6], uint32(len(body)))

	var total int64
	n, err := w.Write(hdr[:])
	total += int64(n)
	if err != nil {
		return total, err
	}

	n, err = w.Write(body)
	total += int64(n)
	return total, err
}

// dataSize returns the on-wire size of a viewer-context payload, including
// the BOM prefix for textual data.
func dataSize(data []byte, text bool) int {
	if len(data) == 0 {
		return 0
	}
	if text {
		return len(bom) + len(data)
	}
	return len(data)
}

func (bw *bodyWriter) data(data []byte, text bool) {
	if len(data) == 0 {
		return
	}
	if text {
		bw.bytes(bom)
	}
	bw.bytes(data)
}
