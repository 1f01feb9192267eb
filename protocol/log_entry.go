package protocol

import (
	"fmt"
	"io"
	"time"
)

// LogEntryType selects how the viewer renders a log entry.
type LogEntryType uint32

// Log entry types understood by the viewer.
const (
	EntrySeparator      LogEntryType = 0
	EntryEnterMethod    LogEntryType = 1
	EntryLeaveMethod    LogEntryType = 2
	EntryResetSeparator LogEntryType = 3
	EntryMessage        LogEntryType = 100
	EntryWarning        LogEntryType = 101
	EntryError          LogEntryType = 102
	EntryInternalError  LogEntryType = 103
	EntryComment        LogEntryType = 104
	EntryVariableValue  LogEntryType = 105
	EntryCheckpoint     LogEntryType = 106
	EntryDebug          LogEntryType = 107
	EntryVerbose        LogEntryType = 108
	EntryFatal          LogEntryType = 109
	EntryConditional    LogEntryType = 110
	EntryAssert         LogEntryType = 111
	EntryText           LogEntryType = 200
	EntryBinary         LogEntryType = 201
	EntryGraphic        LogEntryType = 202
	EntrySource         LogEntryType = 203
	EntryObject         LogEntryType = 204
	EntryWebContent     LogEntryType = 205
	EntrySystem         LogEntryType = 206
	EntryMemoryStat     LogEntryType = 207
	EntryDatabaseResult LogEntryType = 208
	EntryDatabaseStruct LogEntryType = 209
)

// ViewerID selects the viewer panel used to display a record's data payload.
type ViewerID uint32

// Viewer identifiers.
const (
	ViewerNone   ViewerID = 0xffffffff
	ViewerTitle  ViewerID = 0
	ViewerData   ViewerID = 1
	ViewerList   ViewerID = 2
	ViewerValues ViewerID = 3
	ViewerInspec ViewerID = 4
	ViewerTable  ViewerID = 5
	ViewerWeb    ViewerID = 6
	ViewerBinary ViewerID = 7
	ViewerSource ViewerID = 8
)

// Level is the numeric severity of a log entry. It is carried for producer
// policies and is not serialized.
type Level uint32

// Severity levels, lowest first.
const (
	LevelDebug   Level = 0
	LevelVerbose Level = 1
	LevelMessage Level = 2
	LevelWarning Level = 3
	LevelError   Level = 4
	LevelFatal   Level = 5
	LevelControl Level = 6
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelVerbose:
		return "VERBOSE"
	case LevelMessage:
		return "MESSAGE"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelControl:
		return "CONTROL"
	default:
		return "<invalid Level>"
	}
}

// LogEntry is the main record type: one timestamped message with optional
// viewer-context data.
type LogEntry struct {
	Type        LogEntryType
	ViewerID    ViewerID
	AppName     string
	SessionName string
	Title       string
	HostName    string
	Data        []byte
	DataIsText  bool
	PID         uint32
	TID         uint32
	Timestamp   time.Time
	Color       Color
	Level       Level
}

// NewLogEntry returns a log entry of the given type and viewer.
func NewLogEntry(t LogEntryType, v ViewerID) *LogEntry {
	return &LogEntry{
		Type:     t,
		ViewerID: v,
		Color:    DefaultColor,
	}
}

// Kind implements Record
func (e *LogEntry) Kind() RecordKind { return KindLogEntry }

// EstimatedSize implements Record
func (e *LogEntry) EstimatedSize() int {
	return estimateBase + len(e.Title) + len(e.AppName) + len(e.SessionName) +
		len(e.HostName) + len(e.Data)
}

// WriteTo implements io.WriterTo
func (e *LogEntry) WriteTo(w io.Writer) (int64, error) {
	var bw bodyWriter
	bw.u32(uint32(e.Type))
	bw.u32(uint32(e.ViewerID))
	bw.u32(uint32(len(e.AppName)))
	bw.u32(uint32(len(e.SessionName)))
	bw.u32(uint32(len(e.Title)))
	bw.u32(uint32(len(e.HostName)))
	bw.u32(uint32(dataSize(e.Data, e.DataIsText)))
	bw.u32(e.PID)
	bw.u32(e.TID)
	bw.f64(TimeToWire(e.Timestamp))
	bw.u32(uint32(e.Color))
	bw.str(e.AppName)
	bw.str(e.SessionName)
	bw.str(e.Title)
	bw.str(e.HostName)
	bw.data(e.Data, e.DataIsText)
	return writeFrame(w, KindLogEntry, bw.b)
}

func (e *LogEntry) String() string {
	return fmt.Sprintf("LogEntry<type: %d, session: %s, title: %q>", e.Type, e.SessionName, e.Title)
}

// ParseLogEntry decodes a log entry frame body.
func ParseLogEntry(body []byte) (*LogEntry, error) {
	br := bodyReader{b: body}
	e := &LogEntry{}

	fields := make([]uint32, 9)
	for i := range fields {
		v, err := br.u32()
		if err != nil {
			return nil, err
		}
		fields[i] = v
	}
	ts, err := br.f64()
	if err != nil {
		return nil, err
	}
	color, err := br.u32()
	if err != nil {
		return nil, err
	}

	e.Type = LogEntryType(fields[0])
	e.ViewerID = ViewerID(fields[1])
	e.PID = fields[7]
	e.TID = fields[8]
	e.Timestamp = WireToTime(ts)
	e.Color = Color(color)

	app, err := br.take(int(fields[2]))
	if err != nil {
		return nil, err
	}
	session, err := br.take(int(fields[3]))
	if err != nil {
		return nil, err
	}
	title, err := br.take(int(fields[4]))
	if err != nil {
		return nil, err
	}
	host, err := br.take(int(fields[5]))
	if err != nil {
		return nil, err
	}
	data, err := br.take(int(fields[6]))
	if err != nil {
		return nil, err
	}

	e.AppName = string(app)
	e.SessionName = string(session)
	e.Title = string(title)
	e.HostName = string(host)
	if len(data) > 0 {
		if len(data) >= len(bom) && data[0] == bom[0] && data[1] == bom[1] && data[2] == bom[2] {
			e.DataIsText = true
			data = data[len(bom):]
		}
		e.Data = append([]byte(nil), data...)
	}
	return e, nil
}
