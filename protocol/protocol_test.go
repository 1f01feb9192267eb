package protocol

import (
	"testing"
	"time"
)

func TestTimeToWire(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if d := TimeToWire(ts); d != 45292.0 {
		t.Fatalf("expected 45292.0, got %v", d)
	}

	ts = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if d := TimeToWire(ts); d != 25569.0 {
		t.Fatalf("expected 25569.0, got %v", d)
	}
}

func TestTimeToWireZero(t *testing.T) {
	if d := TimeToWire(time.Time{}); d != 0 {
		t.Fatalf("expected 0 for zero time, got %v", d)
	}
	if ts := WireToTime(0); !ts.IsZero() {
		t.Fatalf("expected zero time for 0, got %v", ts)
	}
}

func TestTimeRoundtrip(t *testing.T) {
	ts := time.Date(2024, 6, 15, 13, 37, 42, 250*1e6, time.UTC)
	got := WireToTime(TimeToWire(ts))
	if !got.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, got)
	}
}

func TestNewColor(t *testing.T) {
	c := NewColor(0x11, 0x22, 0x33, 0x44)
	if c != 0x44332211 {
		t.Fatalf("expected 0x44332211, got %#x", uint32(c))
	}
}

func TestRecordKindString(t *testing.T) {
	if s := KindLogEntry.String(); s != "LOGENTRY" {
		t.Fatalf("unexpected string: %q", s)
	}
	if s := RecordKind(200).String(); s != "<invalid RecordKind>" {
		t.Fatalf("unexpected string: %q", s)
	}
}
