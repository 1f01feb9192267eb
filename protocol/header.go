package protocol

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Header is the first record on every connection. It conveys client metadata
// as key=value pairs so a shared viewer can partition incoming producers.
type Header struct {
	AppName  string
	HostName string
	Room     string
}

// NewHeader returns a header record. An empty room falls back to "default".
func NewHeader(appName, hostName, room string) *Header {
	if room == "" {
		room = "default"
	}
	return &Header{
		AppName:  appName,
		HostName: hostName,
		Room:     room,
	}
}

// Kind implements Record
func (h *Header) Kind() RecordKind { return KindHeader }

func (h *Header) content() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "hostname=%s\r\n", h.HostName)
	fmt.Fprintf(&sb, "appname=%s\r\n", h.AppName)
	fmt.Fprintf(&sb, "room=%s\r\n", h.Room)
	return sb.String()
}

// EstimatedSize implements Record
func (h *Header) EstimatedSize() int {
	return estimateBase + len(h.content())
}

// WriteTo implements io.WriterTo
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	content := h.content()

	var bw bodyWriter
	bw.u32(uint32(len(content)))
	bw.str(content)
	return writeFrame(w, KindHeader, bw.b)
}

func (h *Header) String() string {
	return fmt.Sprintf("Header<app: %s, host: %s, room: %s>", h.AppName, h.HostName, h.Room)
}

// ParseHeader decodes a header frame body.
func ParseHeader(body []byte) (*Header, error) {
	br := bodyReader{b: body}
	n, err := br.u32()
	if err != nil {
		return nil, err
	}
	content, err := br.take(int(n))
	if err != nil {
		return nil, err
	}

	h := &Header{}
	for _, line := range strings.Split(string(content), "\r\n") {
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, errors.Errorf("malformed header line: %q", line)
		}
		key, val := line[:eq], line[eq+1:]
		switch key {
		case "hostname":
			h.HostName = val
		case "appname":
			h.AppName = val
		case "room":
			h.Room = val
		}
	}
	return h, nil
}
