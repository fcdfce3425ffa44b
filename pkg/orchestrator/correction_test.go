package orchestrator

import (
	"context"
	"errors"
	"testing"
)

type fakeCorrector struct {
	response string
	err      error
}

func (f *fakeCorrector) CorrectBatch(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestCorrectionQueue_ProcessBatch_HappyPath(t *testing.T) {
	q := NewCorrectionQueue(2)
	q.Enqueue(1, "Welcome to AWS reinvent.")
	q.Enqueue(2, "no change here")

	corrector := &fakeCorrector{response: `{"corrections": ["Welcome to AWS re:Invent.", "no change here"]}`}
	out := q.ProcessBatch(context.Background(), corrector)

	if len(out) != 1 {
		t.Fatalf("expected exactly one changed correction, got %d: %v", len(out), out)
	}
	if out[0].SegmentID != 1 || out[0].CorrectedText != "Welcome to AWS re:Invent." {
		t.Fatalf("unexpected correction %+v", out[0])
	}
}

func TestCorrectionQueue_ProcessBatch_ToleratesSurroundingProse(t *testing.T) {
	q := NewCorrectionQueue(1)
	q.Enqueue(5, "teh quick fix")

	corrector := &fakeCorrector{response: "Sure, here you go:\n" + `{"corrections": ["the quick fix"]}` + "\nhope that helps"}
	out := q.ProcessBatch(context.Background(), corrector)

	if len(out) != 1 || out[0].CorrectedText != "the quick fix" {
		t.Fatalf("expected outermost-brace parse to recover the correction, got %v", out)
	}
}

func TestCorrectionQueue_ProcessBatch_MalformedJSONDropsSilently(t *testing.T) {
	q := NewCorrectionQueue(1)
	q.Enqueue(1, "original")

	corrector := &fakeCorrector{response: "not json at all"}
	out := q.ProcessBatch(context.Background(), corrector)
	if out != nil {
		t.Fatalf("expected nil result on unparsable response, got %v", out)
	}
}

func TestCorrectionQueue_ProcessBatch_OversizedCorrectionsRejected(t *testing.T) {
	q := NewCorrectionQueue(1)
	q.Enqueue(1, "one line")

	corrector := &fakeCorrector{response: `{"corrections": ["a", "b", "c"]}`}
	out := q.ProcessBatch(context.Background(), corrector)
	if out != nil {
		t.Fatalf("expected nil when corrections exceed batch size, got %v", out)
	}
}

func TestCorrectionQueue_ProcessBatch_NonStringElementSkippedIndexAdvances(t *testing.T) {
	q := NewCorrectionQueue(2)
	q.Enqueue(1, "first")
	q.Enqueue(2, "second")

	corrector := &fakeCorrector{response: `{"corrections": [42, "second fixed"]}`}
	out := q.ProcessBatch(context.Background(), corrector)
	if len(out) != 1 || out[0].SegmentID != 2 || out[0].CorrectedText != "second fixed" {
		t.Fatalf("expected only segment 2 corrected (index still advanced past the non-string), got %v", out)
	}
}

func TestCorrectionQueue_ProcessBatch_EmptyQueueReturnsNil(t *testing.T) {
	q := NewCorrectionQueue(2)
	out := q.ProcessBatch(context.Background(), &fakeCorrector{})
	if out != nil {
		t.Fatalf("expected nil for an empty queue, got %v", out)
	}
}

func TestCorrectionQueue_ProcessBatch_CorrectorErrorDropsSilently(t *testing.T) {
	q := NewCorrectionQueue(1)
	q.Enqueue(1, "text")

	out := q.ProcessBatch(context.Background(), &fakeCorrector{err: errors.New("boom")})
	if out != nil {
		t.Fatalf("expected nil on corrector error, got %v", out)
	}
}
