package loupe

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/loupelog/loupe/protocol"
	"github.com/loupelog/loupe/testhelper"
)

var errTest = errors.New("test failure")

func newTestLogger(t *testing.T) (*Logger, *testhelper.MockViewer) {
	t.Helper()
	viewer := testhelper.NewMockViewer()
	conf := testhelper.DefaultTestConfig(testing.Verbose())

	logger, err := New(conf)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	logger.SetDialer(viewer)
	if err := logger.ConnectWait(); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	return logger, viewer
}

func TestLoggerMessage(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.Message("hello %s", "world")

	records, ok := viewer.WaitForRecords(2, time.Second)
	if !ok {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	header, ok := records[0].(*protocol.Header)
	if !ok {
		t.Fatalf("expected header first, got %T", records[0])
	}
	if header.AppName != "test" || header.HostName != "testhost" {
		t.Fatalf("unexpected header: %+v", header)
	}

	entry, ok := records[1].(*protocol.LogEntry)
	if !ok {
		t.Fatalf("expected log entry, got %T", records[1])
	}
	if entry.Title != "hello world" {
		t.Fatalf("unexpected title: %q", entry.Title)
	}
	if entry.Type != protocol.EntryMessage || entry.Level != protocol.LevelMessage {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.SessionName != "Main" {
		t.Fatalf("unexpected session: %q", entry.SessionName)
	}
	if entry.AppName != "test" || entry.HostName != "testhost" {
		t.Fatalf("unexpected entry identity: %+v", entry)
	}
	if entry.PID == 0 {
		t.Fatal("expected a pid")
	}

	if banner := viewer.LastClientBanner(); banner != protocol.ClientBanner {
		t.Fatalf("unexpected client banner: %q", banner)
	}
}

func TestLoggerLevels(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.Debug("d")
	logger.Verbose("v")
	logger.Warning("w")
	logger.Error("e")
	logger.Fatal("f")

	records, ok := viewer.WaitForRecords(6, time.Second)
	if !ok {
		t.Fatalf("expected 6 records, got %d", len(records))
	}

	expected := []struct {
		entryType protocol.LogEntryType
		level     protocol.Level
	}{
		{protocol.EntryDebug, protocol.LevelDebug},
		{protocol.EntryVerbose, protocol.LevelVerbose},
		{protocol.EntryWarning, protocol.LevelWarning},
		{protocol.EntryError, protocol.LevelError},
		{protocol.EntryFatal, protocol.LevelFatal},
	}
	for i, want := range expected {
		entry := records[i+1].(*protocol.LogEntry)
		if entry.Type != want.entryType || entry.Level != want.level {
			t.Fatalf("record %d: unexpected entry: %+v", i+1, entry)
		}
	}
}

func TestWithSessionAndLevel(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	db := logger.WithSession("db").WithLevel(protocol.LevelWarning)
	db.Debug("filtered out")
	db.Verbose("also filtered")
	db.Warning("slow query")
	logger.Message("unfiltered parent")

	records, ok := viewer.WaitForRecords(3, time.Second)
	if !ok {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	warning := records[1].(*protocol.LogEntry)
	if warning.Title != "slow query" || warning.SessionName != "db" {
		t.Fatalf("unexpected entry: %+v", warning)
	}
	parent := records[2].(*protocol.LogEntry)
	if parent.Title != "unfiltered parent" || parent.SessionName != "Main" {
		t.Fatalf("unexpected entry: %+v", parent)
	}
}

func TestMethodTracking(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.EnterMethod("doWork")
	logger.LeaveMethod("doWork")

	records, ok := viewer.WaitForRecords(5, time.Second)
	if !ok {
		t.Fatalf("expected 5 records, got %d", len(records))
	}

	enter := records[1].(*protocol.LogEntry)
	if enter.Type != protocol.EntryEnterMethod || enter.Title != "doWork" {
		t.Fatalf("unexpected entry: %+v", enter)
	}
	enterFlow := records[2].(*protocol.ProcessFlow)
	if enterFlow.Type != protocol.FlowEnterMethod || enterFlow.Title != "doWork" {
		t.Fatalf("unexpected flow: %+v", enterFlow)
	}
	leave := records[3].(*protocol.LogEntry)
	if leave.Type != protocol.EntryLeaveMethod {
		t.Fatalf("unexpected entry: %+v", leave)
	}
	leaveFlow := records[4].(*protocol.ProcessFlow)
	if leaveFlow.Type != protocol.FlowLeaveMethod {
		t.Fatalf("unexpected flow: %+v", leaveFlow)
	}
}

func TestWatches(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.WatchString("name", "value")
	logger.WatchInt("count", 42)
	logger.WatchFloat("ratio", 0.5)
	logger.WatchBool("ready", true)

	records, ok := viewer.WaitForRecords(5, time.Second)
	if !ok {
		t.Fatalf("expected 5 records, got %d", len(records))
	}

	expected := []struct {
		name      string
		value     string
		watchType protocol.WatchType
	}{
		{"name", "value", protocol.WatchString},
		{"count", "42", protocol.WatchInteger},
		{"ratio", "0.5", protocol.WatchFloat},
		{"ready", "true", protocol.WatchBoolean},
	}
	for i, want := range expected {
		watch := records[i+1].(*protocol.Watch)
		if watch.Name != want.name || watch.Value != want.value || watch.Type != want.watchType {
			t.Fatalf("record %d: unexpected watch: %+v", i+1, watch)
		}
	}
}

func TestTextAndBinary(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.Text("query plan", "SELECT 1")
	logger.Binary("blob", []byte{0xde, 0xad})

	records, ok := viewer.WaitForRecords(3, time.Second)
	if !ok {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	text := records[1].(*protocol.LogEntry)
	if text.Type != protocol.EntryText || !text.DataIsText || string(text.Data) != "SELECT 1" {
		t.Fatalf("unexpected entry: %+v", text)
	}
	bin := records[2].(*protocol.LogEntry)
	if bin.Type != protocol.EntryBinary || bin.DataIsText || len(bin.Data) != 2 {
		t.Fatalf("unexpected entry: %+v", bin)
	}
}

func TestControlCommands(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.ClearLog()
	logger.ClearWatches()
	logger.ClearAll()

	records, ok := viewer.WaitForRecords(4, time.Second)
	if !ok {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	expected := []protocol.ControlCommandType{
		protocol.ControlClearLog,
		protocol.ControlClearWatches,
		protocol.ControlClearAll,
	}
	for i, want := range expected {
		cmd := records[i+1].(*protocol.ControlCommand)
		if cmd.Type != want {
			t.Fatalf("record %d: unexpected command type: %d", i+1, cmd.Type)
		}
	}
}

func TestStream(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.Stream("metrics", []byte(`{"rps":12}`), "application/json")

	records, ok := viewer.WaitForRecords(2, time.Second)
	if !ok {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	stream := records[1].(*protocol.Stream)
	if stream.Channel != "metrics" || stream.ContentType != "application/json" {
		t.Fatalf("unexpected stream: %+v", stream)
	}
	if string(stream.Data) != `{"rps":12}` {
		t.Fatalf("unexpected data: %q", stream.Data)
	}
}

func TestSeparatorAndLogErr(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	logger.Separator()
	logger.LogErr(nil)
	logger.LogErr(errTest)

	records, ok := viewer.WaitForRecords(3, time.Second)
	if !ok {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	sep := records[1].(*protocol.LogEntry)
	if sep.Type != protocol.EntrySeparator {
		t.Fatalf("unexpected entry: %+v", sep)
	}
	logged := records[2].(*protocol.LogEntry)
	if logged.Type != protocol.EntryError || logged.Title != "test failure" {
		t.Fatalf("unexpected entry: %+v", logged)
	}
}

func TestDialBadDSN(t *testing.T) {
	if _, err := Dial("bogus"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestStats(t *testing.T) {
	logger, viewer := newTestLogger(t)
	defer logger.Close()

	if _, ok := viewer.WaitForRecords(1, time.Second); !ok {
		t.Fatal("expected the header")
	}
	stats := logger.Stats()
	if stats.State != "CONNECTED" {
		t.Fatalf("unexpected state: %q", stats.State)
	}
	if stats.Failed {
		t.Fatal("expected failed to be clear")
	}
}
