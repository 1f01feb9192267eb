package protocol

// The wire protocol is a stream of self-delimited binary frames:
//
// <kind u16 LE> <body_size u32 LE> <body>
//
// After the connection handshake (one banner line in each direction,
// terminated by \n) the viewer acknowledges every frame with two bytes that
// carry no information. The client reads and discards them.

import (
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
)

// RecordKind identifies a frame's body layout on the wire.
type RecordKind uint16

// Wire identifiers for each record kind.
const (
	KindControlCommand RecordKind = 1
	KindLogEntry       RecordKind = 4
	KindWatch          RecordKind = 5
	KindProcessFlow    RecordKind = 6
	KindHeader         RecordKind = 7
	KindStream         RecordKind = 8
)

func (k RecordKind) String() string {
	switch k {
	case KindControlCommand:
		return "CONTROLCOMMAND"
	case KindLogEntry:
		return "LOGENTRY"
	case KindWatch:
		return "WATCH"
	case KindProcessFlow:
		return "PROCESSFLOW"
	case KindHeader:
		return "HEADER"
	case KindStream:
		return "STREAM"
	default:
		return "<invalid RecordKind>"
	}
}

// ClientBanner is the single ASCII line sent to the viewer after reading its
// banner. The trailing newline is added on the wire.
const ClientBanner = "loupe go library v1.0.0"

// AckSize is the number of acknowledgement bytes the viewer sends per frame.
const AckSize = 2

// frameHeaderSize is the number of bytes preceding a frame body.
const frameHeaderSize = 6

// estimateBase is the fixed per-record base used for queue accounting.
const estimateBase = 64

// bom is prepended to viewer-context payloads that represent textual data.
var bom = []byte{0xEF, 0xBB, 0xBF}

var errBodyTooLarge = errors.New("frame body too large")
var errShortBody = errors.New("frame body truncated")

// epochOffset is the automation-date value of the unix epoch: days between
// 1899-12-30 and 1970-01-01.
const epochOffset = 25569.0

const msPerDay = 86400000.0

// TimeToWire converts a time to its wire representation: days since
// 1899-12-30 00:00:00 UTC as an IEEE-754 double.
func TimeToWire(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMilli())/msPerDay + epochOffset
}

// WireToTime converts a wire timestamp back to a time in UTC.
func WireToTime(d float64) time.Time {
	if d == 0 {
		return time.Time{}
	}
	ms := (d - epochOffset) * msPerDay
	return time.UnixMilli(int64(math.Round(ms))).UTC()
}

// Color is a 32-bit RGBA color serialized as R | G<<8 | B<<16 | A<<24.
type Color uint32

// DefaultColor marks a record as having no explicit color.
const DefaultColor Color = 0x05000000

// NewColor packs color channels into the wire layout.
func NewColor(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// Record is one serializable datum delivered to the viewer. WriteTo emits the
// full frame including the kind and size prefix.
type Record interface {
	io.WriterTo
	Kind() RecordKind
	EstimatedSize() int
}
