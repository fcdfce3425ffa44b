package orchestrator

import (
	"fmt"
	"strings"
	"sync"
)

// TranscriptEntry is one finalized line of transcript. Immutable once
// appended; corrections are carried as separate events, never rewritten here.
type TranscriptEntry struct {
	Speaker string
	Ts      int64
	Text    string
}

// TranslationEntry is one finalized translation, recorded after a successful
// translator call for a final segment. No deduplication.
type TranslationEntry struct {
	Speaker        string
	SourceTs       int64
	SourceText     string
	TranslatedText string
}

// Session is the in-memory data model owned exclusively by one
// ManagedSession for the lifetime of its connection. All mutation happens
// through its methods, which take the session's own lock —
// the orchestrator's main loop and the STT result pump both call into it
// concurrently in this implementation, even though the original assumed a
// single-threaded cooperative scheduler.
type Session struct {
	ID string

	mu                  sync.Mutex
	cfg                 Config
	segmentCounter      int64
	transcripts         []TranscriptEntry
	translations        []TranslationEntry
	partialState        *partialTranslationState
	display             DisplayBuffer
	sinceLastSuggestion int
	suggestionsPrompt   string
}

func NewSession(id string, cfg Config) *Session {
	return &Session{
		ID:  id,
		cfg: cfg,
	}
}

func (s *Session) nextSegmentIDLocked() int64 {
	s.segmentCounter++
	return s.segmentCounter
}

// ExtractPartialEmit runs the partial-emit state machine over one incoming
// partial STT result. Returns nil if the partial should be suppressed.
func (s *Session) ExtractPartialEmit(ts int64, text string) *PartialEmit {
	s.mu.Lock()
	defer s.mu.Unlock()

	emit, newState := extractPartialEmit(s.partialState, ts, text, s.cfg, s.nextSegmentIDLocked)
	s.partialState = newState
	return emit
}

// IsPartialTranslationCurrent re-verifies a partial-translation task's
// trigger still matches the session's recorded tuple before emitting, since
// a newer partial may have superseded it while the LLM call was in flight.
func (s *Session) IsPartialTranslationCurrent(ts int64, text string, segmentID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.partialState
	if state == nil || !state.hasTranslation {
		return false
	}
	return state.lastTranslationTs == ts && state.lastTranslationText == text && state.lastTranslationSegmentID == segmentID
}

// AddFinalTranscript clears the partial state, reuses its reserved segment id
// if one exists, appends a TranscriptEntry, and returns the trimmed text plus
// the segment id to use for the final event.
func (s *Session) AddFinalTranscript(speaker, text string, ts int64) (string, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partial := s.partialState
	s.partialState = nil

	var segmentID int64
	if partial != nil && partial.hasSegmentID {
		segmentID = partial.segmentID
	} else {
		segmentID = s.nextSegmentIDLocked()
	}

	trimmed := strings.TrimSpace(text)
	s.sinceLastSuggestion++
	s.transcripts = append(s.transcripts, TranscriptEntry{
		Speaker: s.cfg.DisplaySpeaker,
		Ts:      ts,
		Text:    trimmed,
	})

	return trimmed, segmentID
}

// UpdateDisplayBuffer applies a new segment to the display buffer and
// returns a defensive snapshot of the resulting view.
func (s *Session) UpdateDisplayBuffer(seg SubtitleSegment) DisplayBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.display.update(seg, s.cfg.ConfirmedSubtitleCap)
	return s.display.snapshot()
}

// CurrentForSegment returns the display buffer's current segment if it is
// the in-flight representation of segmentID, so a final event can inherit
// its StartTime instead of starting a new clock.
func (s *Session) CurrentForSegment(segmentID int64) *SubtitleSegment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.display.Current != nil && s.display.Current.SegmentID == segmentID {
		c := *s.display.Current
		return &c
	}
	return nil
}

func (s *Session) AddTranslation(speaker string, sourceTs int64, sourceText, translatedText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.translations = append(s.translations, TranslationEntry{
		Speaker:        speaker,
		SourceTs:       sourceTs,
		SourceText:     sourceText,
		TranslatedText: translatedText,
	})
}

func (s *Session) SetSuggestionsPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestionsPrompt = strings.TrimSpace(prompt)
}

func (s *Session) SuggestionsPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestionsPrompt
}

// ShouldUpdateSuggestions implements the suggestion cadence: fire when
// transcripts.length >= 1 AND sinceLastSuggestion >= 2, OR when
// transcripts.length == 1 AND sinceLastSuggestion > 0.
func (s *Session) ShouldUpdateSuggestions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.transcripts)
	if n < 1 {
		return false
	}
	if s.sinceLastSuggestion == 0 {
		return false
	}
	if n == 1 {
		return true
	}
	return s.sinceLastSuggestion >= 2
}

func (s *Session) MarkSuggestionsUpdated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinceLastSuggestion = 0
}

// RecentTranscripts returns the chronological tail of the transcript log,
// up to limit entries.
func (s *Session) RecentTranscripts(limit int) []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || len(s.transcripts) == 0 {
		return nil
	}
	start := len(s.transcripts) - limit
	if start < 0 {
		start = 0
	}
	out := make([]TranscriptEntry, len(s.transcripts)-start)
	copy(out, s.transcripts[start:])
	return out
}

// RecentContext walks the transcript log backward, skipping the excluded
// timestamp and empty text, accumulating entries until at least maxSentences
// sentences have been collected (counting possibly more than one sentence
// per entry), then returns them in chronological order formatted as
// "speaker: text". This refines the "up to 5 most recent entries" wording by
// counting sentences rather than entries, per original_source.
func (s *Session) RecentContext(maxSentences int, excludeTs int64, hasExclude bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxSentences <= 0 {
		return nil
	}

	var collected []TranscriptEntry
	sentenceTotal := 0
	for i := len(s.transcripts) - 1; i >= 0; i-- {
		entry := s.transcripts[i]
		if hasExclude && entry.Ts == excludeTs {
			continue
		}
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		sentenceCount := countSentences(text, s.cfg)
		if sentenceCount == 0 {
			continue
		}
		collected = append(collected, entry)
		sentenceTotal += sentenceCount
		if sentenceTotal >= maxSentences {
			break
		}
	}

	out := make([]string, len(collected))
	for i, entry := range collected {
		out[len(collected)-1-i] = fmt.Sprintf("%s: %s", entry.Speaker, entry.Text)
	}
	return out
}
