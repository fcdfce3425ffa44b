package orchestrator

import "testing"

func TestSmartSplitText_SentenceBreak(t *testing.T) {
	cfg := DefaultConfig()

	sentences, remainder := smartSplitText("Hello world. This is a test", cfg)
	if len(sentences) != 1 || sentences[0] != "Hello world." {
		t.Fatalf("expected one sentence %q, got %v", "Hello world.", sentences)
	}
	if remainder != "This is a test" {
		t.Fatalf("expected remainder %q, got %q", "This is a test", remainder)
	}
}

func TestSmartSplitText_ForceSplitWithoutSpace(t *testing.T) {
	cfg := DefaultConfig()
	long := ""
	for i := 0; i < 70; i++ {
		long += "a"
	}
	sentences, remainder := smartSplitText(long, cfg)
	if len(sentences) != 1 || len(sentences[0]) != cfg.ForceSplitChars {
		t.Fatalf("expected one force-split sentence of %d chars, got %v", cfg.ForceSplitChars, sentences)
	}
	if len(remainder) != 70-cfg.ForceSplitChars {
		t.Fatalf("unexpected remainder length %d", len(remainder))
	}
}

func TestExtractPartialEmit_S1_PartialReservesSegmentID(t *testing.T) {
	cfg := DefaultConfig()
	var counter int64
	next := func() int64 { counter++; return counter }

	emit, state := extractPartialEmit(nil, 1000, "Hello world this is a test", cfg, next)
	if emit == nil {
		t.Fatal("expected first partial (len>=18, first-trigger) to emit")
	}
	if emit.SegmentID != 1 {
		t.Fatalf("expected segment id 1, got %d", emit.SegmentID)
	}
	if emit.CaptionText != "Hello world this is a test" {
		t.Fatalf("unexpected caption %q", emit.CaptionText)
	}
	if !state.hasSegmentID || state.segmentID != 1 {
		t.Fatal("expected segment id reserved on state")
	}
}

func TestExtractPartialEmit_S2_ThrottledPartial(t *testing.T) {
	cfg := DefaultConfig()
	var counter int64
	next := func() int64 { counter++; return counter }

	emit1, state := extractPartialEmit(nil, 1000, "We are now discussing", cfg, next)
	if emit1 == nil {
		t.Fatal("expected first partial to emit (first-trigger)")
	}

	emit2, state := extractPartialEmit(state, 1300, "We are now discussing the", cfg, next)
	if emit2 != nil {
		t.Fatal("expected second partial to be suppressed (only 300ms elapsed, no boundary change)")
	}

	emit3, _ := extractPartialEmit(state, 2100, "We are now discussing the roadmap", cfg, next)
	if emit3 == nil {
		t.Fatal("expected third partial to emit (time-triggered, 1100ms elapsed and grown)")
	}
}

func TestExtractPartialEmit_ShortNoBoundarySuppressed(t *testing.T) {
	cfg := DefaultConfig()
	var counter int64
	next := func() int64 { counter++; return counter }

	emit, _ := extractPartialEmit(nil, 1000, "short text", cfg, next)
	if emit != nil {
		t.Fatal("expected partial shorter than PartialMinLength with no boundary change to be suppressed")
	}
}

func TestExtractPartialEmit_RepeatedLastSentenceDoesNotRetrigger(t *testing.T) {
	cfg := DefaultConfig()
	var counter int64
	next := func() int64 { counter++; return counter }

	emit1, state := extractPartialEmit(nil, 1000, "This is a complete sentence.", cfg, next)
	if emit1 == nil || !emit1.HasTranslation {
		t.Fatal("expected first partial to emit with a translation trigger")
	}

	emit2, _ := extractPartialEmit(state, 2500, "This is a complete sentence. And then we continue", cfg, next)
	if emit2 == nil {
		t.Fatal("expected second partial to emit (time-triggered)")
	}
	if emit2.HasTranslation {
		t.Fatal("expected no new translation trigger: last complete sentence unchanged")
	}
}
