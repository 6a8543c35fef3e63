package log

import (
	"errors"
	"testing"
	"time"

	"vblocks.ai/internal/build/placement"
)

func TestAuditRoundTripAcrossRotation(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	in := []placement.AuditEntry{
		{Avatar: "alice", Action: "CREATE", Cell: [3]int64{3, 0, 7}, ObjectID: 1, Material: "sw-brick16a"},
		{Avatar: "alice", Action: "CREATE", Cell: [3]int64{3, 1, 7}, ObjectID: 2},
		{Avatar: "bob", Action: "DELETE", Cell: [3]int64{3, 0, 7}, ObjectID: 1},
	}
	for i, e := range in {
		if i == 2 {
			clock = clock.Add(2 * time.Minute)
		}
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := AuditFiles(AuditDir(dir))
	if err != nil || len(files) != 2 {
		t.Fatalf("files=%v err=%v, want 2 hourly files", files, err)
	}

	var out []placement.AuditEntry
	if err := ReadAudit(AuditDir(dir), func(e placement.AuditEntry) error {
		out = append(out, e)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("read %d entries, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestAuditAppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		l := NewAuditLogger(dir)
		l.w.now = func() time.Time { return clock }
		if err := l.WriteAudit(placement.AuditEntry{Action: "CREATE", ObjectID: int64(i + 1)}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	n := 0
	if err := ReadAudit(AuditDir(dir), func(placement.AuditEntry) error { n++; return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 2 {
		t.Fatalf("read %d entries, want 2", n)
	}
}

func TestReadAuditStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	for i := 0; i < 3; i++ {
		_ = l.WriteAudit(placement.AuditEntry{ObjectID: int64(i)})
	}
	_ = l.Close()

	stop := errors.New("stop")
	n := 0
	err := ReadAudit(AuditDir(dir), func(placement.AuditEntry) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}

func TestReadAuditEmptyDir(t *testing.T) {
	if err := ReadAudit(t.TempDir(), func(placement.AuditEntry) error { return errors.New("unexpected") }); err != nil {
		t.Fatalf("read: %v", err)
	}
}
