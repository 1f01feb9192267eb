package protocol

import (
	"fmt"
	"io"
	"time"
)

// Stream carries free-form channel data, for example captured stdout or a
// binary attachment, outside the log entry panel.
type Stream struct {
	Channel     string
	Data        []byte
	ContentType string
	Timestamp   time.Time
}

// NewStream returns a stream record for a channel.
func NewStream(channel string, data []byte, contentType string) *Stream {
	return &Stream{
		Channel:     channel,
		Data:        data,
		ContentType: contentType,
	}
}

// Kind implements Record
func (s *Stream) Kind() RecordKind { return KindStream }

// EstimatedSize implements Record
func (s *Stream) EstimatedSize() int {
	return estimateBase + len(s.Channel) + len(s.Data) + len(s.ContentType)
}

// WriteTo implements io.WriterTo
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	var bw bodyWriter
	bw.u32(uint32(len(s.Channel)))
	bw.u32(uint32(len(s.Data)))
	bw.u32(uint32(len(s.ContentType)))
	bw.f64(TimeToWire(s.Timestamp))
	bw.str(s.Channel)
	bw.bytes(s.Data)
	bw.str(s.ContentType)
	return writeFrame(w, KindStream, bw.b)
}

func (s *Stream) String() string {
	return fmt.Sprintf("Stream<channel: %s, %d bytes>", s.Channel, len(s.Data))
}

// ParseStream decodes a stream frame body.
func ParseStream(body []byte) (*Stream, error) {
	br := bodyReader{b: body}
	channelLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	dataLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	typeLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	ts, err := br.f64()
	if err != nil {
		return nil, err
	}
	channel, err := br.take(int(channelLen))
	if err != nil {
		return nil, err
	}
	data, err := br.take(int(dataLen))
	if err != nil {
		return nil, err
	}
	contentType, err := br.take(int(typeLen))
	if err != nil {
		return nil, err
	}

	s := &Stream{
		Channel:     string(channel),
		ContentType: string(contentType),
		Timestamp:   WireToTime(ts),
	}
	if len(data) > 0 {
		s.Data = append([]byte(nil), data...)
	}
	return s, nil
}
