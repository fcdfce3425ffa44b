package orchestrator

import "testing"

func TestDisplayBuffer_ConfirmedCapEviction(t *testing.T) {
	var buf DisplayBuffer
	for i := int64(1); i <= 5; i++ {
		buf.update(SubtitleSegment{SegmentID: i, IsFinal: true, Text: "x"}, 4)
	}
	if len(buf.Confirmed) != 4 {
		t.Fatalf("expected confirmed capped at 4, got %d", len(buf.Confirmed))
	}
	if buf.Confirmed[0].SegmentID != 2 {
		t.Fatalf("expected oldest (segment 1) evicted, first remaining is %d", buf.Confirmed[0].SegmentID)
	}
	if buf.Current != nil {
		t.Fatal("expected current cleared after a final")
	}
}

func TestDisplayBuffer_NonFinalSetsCurrent(t *testing.T) {
	var buf DisplayBuffer
	buf.update(SubtitleSegment{SegmentID: 1, IsFinal: false, Text: "partial"}, 4)
	if buf.Current == nil || buf.Current.Text != "partial" {
		t.Fatal("expected current to hold the non-final segment")
	}
	if len(buf.Confirmed) != 0 {
		t.Fatal("expected confirmed untouched by a non-final update")
	}
}

func TestDisplayBuffer_SnapshotIsIndependentCopy(t *testing.T) {
	var buf DisplayBuffer
	buf.update(SubtitleSegment{SegmentID: 1, IsFinal: false}, 4)
	snap := buf.snapshot()
	buf.Current.Text = "mutated"
	if snap.Current.Text == "mutated" {
		t.Fatal("expected snapshot to be a defensive copy")
	}
}
