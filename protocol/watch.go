package protocol

import (
	"fmt"
	"io"
	"time"
)

// WatchType describes the value type of a watch record.
type WatchType uint32

// Watch value types.
const (
	WatchChar      WatchType = 0
	WatchString    WatchType = 1
	WatchInteger   WatchType = 2
	WatchFloat     WatchType = 3
	WatchBoolean   WatchType = 4
	WatchAddress   WatchType = 5
	WatchTimestamp WatchType = 6
	WatchObject    WatchType = 7
)

// Watch is a named value tracked by the viewer's watch panel.
type Watch struct {
	Name      string
	Value     string
	Type      WatchType
	Timestamp time.Time
}

// NewWatch returns a watch record.
func NewWatch(name, value string, t WatchType) *Watch {
	return &Watch{
		Name:  name,
		Value: value,
		Type:  t,
	}
}

// Kind implements Record
func (w *Watch) Kind() RecordKind { return KindWatch }

// EstimatedSize implements Record
func (w *Watch) EstimatedSize() int {
	return estimateBase + len(w.Name) + len(w.Value)
}

// WriteTo implements io.WriterTo
func (w *Watch) WriteTo(dst io.Writer) (int64, error) {
	var bw bodyWriter
	bw.u32(uint32(len(w.Name)))
	bw.u32(uint32(len(w.Value)))
	bw.u32(uint32(w.Type))
	bw.f64(TimeToWire(w.Timestamp))
	bw.str(w.Name)
	bw.str(w.Value)
	return writeFrame(dst, KindWatch, bw.b)
}

func (w *Watch) String() string {
	return fmt.Sprintf("Watch<%s=%s>", w.Name, w.Value)
}

// ParseWatch decodes a watch frame body.
func ParseWatch(body []byte) (*Watch, error) {
	br := bodyReader{b: body}
	nameLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	valueLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	wt, err := br.u32()
	if err != nil {
		return nil, err
	}
	ts, err := br.f64()
	if err != nil {
		return nil, err
	}
	name, err := br.take(int(nameLen))
	if err != nil {
		return nil, err
	}
	value, err := br.take(int(valueLen))
	if err != nil {
		return nil, err
	}

	return &Watch{
		Name:      string(name),
		Value:     string(value),
		Type:      WatchType(wt),
		Timestamp: WireToTime(ts),
	}, nil
}
