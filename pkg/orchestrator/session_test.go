package orchestrator

import "testing"

func TestSession_AddFinalTranscript_ReusesReservedSegmentID(t *testing.T) {
	s := NewSession("test", DefaultConfig())

	emit := s.ExtractPartialEmit(1000, "Hello world this is a test")
	if emit == nil {
		t.Fatal("expected partial to emit and reserve a segment id")
	}

	text, segmentID := s.AddFinalTranscript("spk_1", "Hello world this is a test.", 1500)
	if segmentID != emit.SegmentID {
		t.Fatalf("expected final to reuse reserved segment id %d, got %d", emit.SegmentID, segmentID)
	}
	if text != "Hello world this is a test." {
		t.Fatalf("unexpected trimmed text %q", text)
	}

	// A second final with no preceding partial must allocate a new id.
	_, segmentID2 := s.AddFinalTranscript("spk_1", "Another sentence.", 2000)
	if segmentID2 == segmentID {
		t.Fatal("expected a fresh segment id for an unrelated final")
	}
}

func TestSession_ShouldUpdateSuggestions_S5Cadence(t *testing.T) {
	s := NewSession("test", DefaultConfig())

	if s.ShouldUpdateSuggestions() {
		t.Fatal("expected no suggestion with zero transcripts")
	}

	s.AddFinalTranscript("spk_1", "first.", 1000)
	if !s.ShouldUpdateSuggestions() {
		t.Fatal("expected suggestion to fire after the first transcript")
	}
	s.MarkSuggestionsUpdated()

	s.AddFinalTranscript("spk_1", "second.", 2000)
	if s.ShouldUpdateSuggestions() {
		t.Fatal("expected no suggestion after only one further final")
	}

	s.AddFinalTranscript("spk_1", "third.", 3000)
	if !s.ShouldUpdateSuggestions() {
		t.Fatal("expected suggestion to fire after two further finals")
	}
}

func TestSession_RecentContext_CountsSentencesNotEntries(t *testing.T) {
	s := NewSession("test", DefaultConfig())
	s.AddFinalTranscript("spk_1", "One. Two.", 1000)
	s.AddFinalTranscript("spk_1", "Three.", 2000)
	s.AddFinalTranscript("spk_1", "Four.", 3000)

	ctx := s.RecentContext(3, 0, false)
	if len(ctx) != 3 {
		t.Fatalf("expected all 3 entries to cover >=3 sentences (1+1+2), got %d: %v", len(ctx), ctx)
	}
	if ctx[0] != "spk_1: One. Two." || ctx[1] != "spk_1: Three." || ctx[2] != "spk_1: Four." {
		t.Fatalf("expected chronological order, got %v", ctx)
	}
}

func TestSession_RecentContext_ExcludesTimestamp(t *testing.T) {
	s := NewSession("test", DefaultConfig())
	s.AddFinalTranscript("spk_1", "One.", 1000)
	s.AddFinalTranscript("spk_1", "Two.", 2000)

	ctx := s.RecentContext(5, 2000, true)
	if len(ctx) != 1 || ctx[0] != "spk_1: One." {
		t.Fatalf("expected only the non-excluded entry, got %v", ctx)
	}
}

func TestSession_IsPartialTranslationCurrent(t *testing.T) {
	s := NewSession("test", DefaultConfig())
	emit := s.ExtractPartialEmit(1000, "This is a complete sentence.")
	if emit == nil || !emit.HasTranslation {
		t.Fatal("expected a translation trigger")
	}

	if !s.IsPartialTranslationCurrent(1000, emit.TranslationText, emit.SegmentID) {
		t.Fatal("expected the just-recorded trigger to be current")
	}
	if s.IsPartialTranslationCurrent(1000, "stale text", emit.SegmentID) {
		t.Fatal("expected a mismatched text to be stale")
	}
}
