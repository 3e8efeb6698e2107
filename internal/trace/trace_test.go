package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func sampleRecord(step, agentID int, action string) TickRecord {
	return TickRecord{
		Episode: "ep-1",
		Step:    step,
		AgentID: agentID,
		Role:    "miner",
		Phase:   "early",
		Action:  action,
		Energy:  100,
		HP:      10,
	}
}

func TestMemoryRecorder(t *testing.T) {
	m := &Memory{}
	if err := m.RecordTick(sampleRecord(1, 0, "move_south")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(m.Records) != 1 || m.Records[0].Action != "move_south" {
		t.Fatalf("records = %+v", m.Records)
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &Memory{}, &Memory{}
	multi := Multi{a, b}
	if err := multi.RecordTick(sampleRecord(1, 0, "noop")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(a.Records) != 1 || len(b.Records) != 1 {
		t.Fatalf("fan-out missed a sink: %d/%d", len(a.Records), len(b.Records))
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestTickRecordNilSafety(t *testing.T) {
	var r *TickRecord
	r.Skip("X", "satisfied")
	r.SetNavTarget(1, 2)
}

func TestJSONLZstdWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewJSONLZstdWriter(dir, "ep-1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	recA := sampleRecord(1, 0, "move_south")
	recA.SetNavTarget(3, 0)
	recB := sampleRecord(1, 1, "noop")
	recB.Skip("AcquireHeart", "deferred")
	for _, r := range []TickRecord{recA, recB} {
		if err := w.RecordTick(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "rollout-ep-1.jsonl.zst"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []TickRecord
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var r TickRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, r)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].NavTargetRow == nil || *got[0].NavTargetRow != 3 {
		t.Fatalf("nav target lost: %+v", got[0])
	}
	if len(got[1].Skips) != 1 || got[1].Skips[0].Goal != "AcquireHeart" {
		t.Fatalf("skips lost: %+v", got[1])
	}
}

func TestWriterRejectsRecordAfterClose(t *testing.T) {
	w, err := NewJSONLZstdWriter(t.TempDir(), "ep-2")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.RecordTick(sampleRecord(1, 0, "noop")); err == nil {
		t.Fatalf("record accepted after close")
	}
}

func TestSQLiteIndexSummaryAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.db")

	idx, err := NewSQLiteIndex(path)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	records := []TickRecord{
		sampleRecord(1, 0, "move_south"),
		sampleRecord(2, 0, "move_east"),
		sampleRecord(2, 1, "noop"),
	}
	records[2].Role = "scout"
	records[2].Skips = []SkipEntry{{Goal: "X", Reason: "deferred"}}
	for _, r := range records {
		if err := idx.RecordTick(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: the tallies must have been durably applied.
	idx2, err := NewSQLiteIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	sums, err := idx2.EpisodeSummary("ep-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("agents = %d, want 2", len(sums))
	}
	if sums[0].AgentID != 0 || sums[0].Ticks != 2 || sums[0].Moves != 2 {
		t.Fatalf("agent 0 summary = %+v", sums[0])
	}
	if sums[1].Role != "scout" || sums[1].Noops != 1 || sums[1].Skips != 1 {
		t.Fatalf("agent 1 summary = %+v", sums[1])
	}
}

func TestSQLiteIndexIgnoresRecordsAfterClose(t *testing.T) {
	idx, err := NewSQLiteIndex(filepath.Join(t.TempDir(), "traces.db"))
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.RecordTick(sampleRecord(1, 0, "noop")); err != nil {
		t.Fatalf("record after close should be a silent drop, got %v", err)
	}
}
