package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func TestControlCommandWireLayout(t *testing.T) {
	var b bytes.Buffer
	c := NewControlCommand(ControlClearAll)
	n, err := c.WriteTo(&b)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	expected := []byte{
		0x01, 0x00, // kind
		0x08, 0x00, 0x00, 0x00, // body size
		0x03, 0x00, 0x00, 0x00, // command type
		0x00, 0x00, 0x00, 0x00, // data length
	}
	if !bytes.Equal(b.Bytes(), expected) {
		t.Fatalf("expected % x, got % x", expected, b.Bytes())
	}
	if n != int64(len(expected)) {
		t.Fatalf("expected %d bytes written, got %d", len(expected), n)
	}
}

func TestScanRoundtrip(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	hdr := NewHeader("myapp", "myhost", "ops")
	entry := NewLogEntry(EntryMessage, ViewerTitle)
	entry.AppName = "myapp"
	entry.SessionName = "Main"
	entry.Title = "hello"
	entry.HostName = "myhost"
	entry.PID = 41
	entry.TID = 42
	entry.Timestamp = ts
	watch := NewWatch("conns", "17", WatchInteger)
	watch.Timestamp = ts
	flow := NewProcessFlow(FlowEnterMethod, "handleRequest")
	flow.HostName = "myhost"
	flow.PID = 41
	flow.Timestamp = ts
	stream := NewStream("stdout", []byte("some output"), "text/plain")
	stream.Timestamp = ts
	control := NewControlCommand(ControlClearLog)

	var b bytes.Buffer
	for _, rec := range []Record{hdr, entry, watch, flow, stream, control} {
		if _, err := rec.WriteTo(&b); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
	}

	scanner := NewFrameScanner(&b)

	if !scanner.Scan() {
		t.Fatalf("expected header frame: %+v", scanner.Err())
	}
	gotHdr, err := ParseHeader(scanner.Frame().Body)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if gotHdr.AppName != "myapp" || gotHdr.HostName != "myhost" || gotHdr.Room != "ops" {
		t.Fatalf("unexpected header: %+v", gotHdr)
	}

	if !scanner.Scan() {
		t.Fatalf("expected log entry frame: %+v", scanner.Err())
	}
	rec, err := scanner.Frame().Record()
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	gotEntry, ok := rec.(*LogEntry)
	if !ok {
		t.Fatalf("expected *LogEntry, got %T", rec)
	}
	if gotEntry.Title != "hello" || gotEntry.SessionName != "Main" ||
		gotEntry.PID != 41 || gotEntry.TID != 42 {
		t.Fatalf("unexpected log entry: %+v", gotEntry)
	}
	if !gotEntry.Timestamp.Equal(ts) {
		t.Fatalf("expected timestamp %v, got %v", ts, gotEntry.Timestamp)
	}
	if gotEntry.Color != DefaultColor {
		t.Fatalf("expected default color, got %#x", uint32(gotEntry.Color))
	}

	if !scanner.Scan() {
		t.Fatalf("expected watch frame: %+v", scanner.Err())
	}
	rec, err = scanner.Frame().Record()
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	gotWatch := rec.(*Watch)
	if gotWatch.Name != "conns" || gotWatch.Value != "17" || gotWatch.Type != WatchInteger {
		t.Fatalf("unexpected watch: %+v", gotWatch)
	}

	if !scanner.Scan() {
		t.Fatalf("expected process flow frame: %+v", scanner.Err())
	}
	rec, err = scanner.Frame().Record()
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	gotFlow := rec.(*ProcessFlow)
	if gotFlow.Type != FlowEnterMethod || gotFlow.Title != "handleRequest" || gotFlow.PID != 41 {
		t.Fatalf("unexpected process flow: %+v", gotFlow)
	}

	if !scanner.Scan() {
		t.Fatalf("expected stream frame: %+v", scanner.Err())
	}
	rec, err = scanner.Frame().Record()
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	gotStream := rec.(*Stream)
	if gotStream.Channel != "stdout" || string(gotStream.Data) != "some output" ||
		gotStream.ContentType != "text/plain" {
		t.Fatalf("unexpected stream: %+v", gotStream)
	}

	if !scanner.Scan() {
		t.Fatalf("expected control command frame: %+v", scanner.Err())
	}
	rec, err = scanner.Frame().Record()
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	gotControl := rec.(*ControlCommand)
	if gotControl.Type != ControlClearLog {
		t.Fatalf("unexpected control command: %+v", gotControl)
	}

	if scanner.Scan() {
		t.Fatal("expected end of stream")
	}
	if err := scanner.Err(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %+v", err)
	}
}

func TestLogEntryTextData(t *testing.T) {
	entry := NewLogEntry(EntryText, ViewerData)
	entry.Title = "request body"
	entry.Data = []byte(`{"ok":true}`)
	entry.DataIsText = true

	var b bytes.Buffer
	if _, err := entry.WriteTo(&b); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	raw := b.Bytes()[frameHeaderSize:]
	if !bytes.Contains(raw, append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"ok":true}`)...)) {
		t.Fatal("expected BOM before textual data on the wire")
	}

	got, err := ParseLogEntry(raw)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if !got.DataIsText {
		t.Fatal("expected DataIsText after parse")
	}
	if string(got.Data) != `{"ok":true}` {
		t.Fatalf("unexpected data: %q", got.Data)
	}
}

func TestScannerTruncatedBody(t *testing.T) {
	var b bytes.Buffer
	watch := NewWatch("a", "b", WatchString)
	if _, err := watch.WriteTo(&b); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	short := b.Bytes()[:b.Len()-2]
	scanner := NewFrameScanner(bytes.NewReader(short))
	if scanner.Scan() {
		t.Fatal("expected scan to fail on truncated body")
	}
	if err := scanner.Err(); err == nil || err == io.EOF {
		t.Fatalf("expected a read error, got %+v", err)
	}
}

func TestScannerBodyTooLarge(t *testing.T) {
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(KindLogEntry))
	binary.LittleEndian.PutUint32(hdr[2:6], maxBodySize+1)

	scanner := NewFrameScanner(bytes.NewReader(hdr[:]))
	if scanner.Scan() {
		t.Fatal("expected scan to fail on oversized body")
	}
	if err := scanner.Err(); err != errBodyTooLarge {
		t.Fatalf("expected errBodyTooLarge, got %+v", err)
	}
}

func TestParseShortBody(t *testing.T) {
	if _, err := ParseWatch([]byte{1, 0}); err != errShortBody {
		t.Fatalf("expected errShortBody, got %+v", err)
	}
	if _, err := ParseLogEntry(nil); err != errShortBody {
		t.Fatalf("expected errShortBody, got %+v", err)
	}
}
