package orchestrator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	sentenceEndRe = regexp.MustCompile(`[.!?。？！]`)
	clauseBreakRe = regexp.MustCompile(`[,;:，、—]`)
	softBoundaryRe = regexp.MustCompile(
		`(?i)(?:[,;:]$|\b(?:and|but|so|because|if|when|which|that|or|while|then|however|therefore)$)`,
	)
)

// partialTranslationState tracks the one in-flight partial translation a
// session has outstanding at a time; it is cleared whenever a final arrives
// for the same segment.
type partialTranslationState struct {
	lastCompleteSentence     string
	lastCaptionText          string
	lastEmitTs               int64
	lastEmitLength           int
	lastTranslationText      string
	lastTranslationTs        int64
	lastTranslationSegmentID int64
	hasTranslation           bool
	segmentID                int64
	hasSegmentID             bool
}

// PartialEmit is what ExtractPartialEmit returns when a partial is worth
// sending to the client: a caption, an optional translation trigger, and the
// segment id reserved for this in-flight utterance.
type PartialEmit struct {
	CaptionText     string
	TranslationText string
	HasTranslation  bool
	SegmentID       int64
}

// smartSplitText walks text rune by rune, closing a sentence at a sentence
// terminator, at a clause break once the running segment is at least
// minCharsForClauseBreak runes long, or by force-splitting once the running
// segment exceeds maxSegmentChars (breaking at the last space, or at
// forceSplitChars verbatim if no space exists). It returns the complete
// sentences found and the trailing unterminated remainder.
func smartSplitText(text string, cfg Config) (sentences []string, remainder string) {
	var current []rune
	runes := []rune(text)

	flush := func(upto int) {
		seg := strings.TrimSpace(string(current[:upto]))
		if seg != "" {
			sentences = append(sentences, seg)
		}
	}

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		current = append(current, ch)

		if sentenceEndRe.MatchString(string(ch)) {
			flush(len(current))
			current = current[:0]
			continue
		}

		if clauseBreakRe.MatchString(string(ch)) && len(current) >= cfg.MinCharsForClauseBreak {
			flush(len(current))
			current = current[:0]
			continue
		}

		if len(current) > cfg.MaxSegmentChars {
			lastSpace := lastIndexRune(current, ' ')
			if lastSpace > 0 {
				flush(lastSpace)
				current = append([]rune{}, current[lastSpace+1:]...)
			} else if len(current) > cfg.ForceSplitChars {
				flush(cfg.ForceSplitChars)
				current = append([]rune{}, []rune(strings.TrimLeft(string(current[cfg.ForceSplitChars:]), " "))...)
			}
		}
	}

	remainder = strings.TrimSpace(string(current))
	return sentences, remainder
}

func lastIndexRune(rs []rune, target rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == target {
			return i
		}
	}
	return -1
}

func countSentences(text string, cfg Config) int {
	sentences, remainder := smartSplitText(text, cfg)
	count := len(sentences)
	if remainder != "" {
		count++
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return count
}

func buildPartialCaption(sentences []string, remainder string) string {
	parts := append([]string{}, sentences...)
	if remainder != "" {
		parts = append(parts, remainder)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func buildTranslationChunk(sentences []string) (string, bool) {
	if len(sentences) == 0 {
		return "", false
	}
	return strings.TrimSpace(sentences[len(sentences)-1]), true
}

// extractPartialEmit decides whether a growing partial transcript should be
// emitted, split into a finalized clause, or force-split on length, and
// advances partialTranslationState accordingly. Caller holds the session
// lock.
func extractPartialEmit(state *partialTranslationState, ts int64, text string, cfg Config, nextSegmentID func() int64) (*PartialEmit, *partialTranslationState) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, state
	}
	if state == nil {
		state = &partialTranslationState{}
	}

	boundaryChanged := false
	sentences, remainder := smartSplitText(trimmed, cfg)
	if len(sentences) > 0 {
		candidate := sentences[len(sentences)-1]
		if candidate != state.lastCompleteSentence {
			boundaryChanged = true
			state.lastCompleteSentence = candidate
		}
	}

	captionText := buildPartialCaption(sentences, remainder)
	if captionText == "" {
		return nil, state
	}
	captionLen := utf8.RuneCountInString(captionText)
	if captionLen < cfg.PartialMinLength && !boundaryChanged {
		return nil, state
	}

	softBoundary := softBoundaryRe.MatchString(trimmed)

	var growth int
	if state.lastEmitLength != 0 {
		growth = captionLen - state.lastEmitLength
	} else {
		growth = captionLen
	}

	timeTriggered := false
	if state.lastEmitTs > 0 {
		timeSince := ts - state.lastEmitTs
		timeTriggered = timeSince >= int64(cfg.PartialIntervalMS) && growth >= cfg.PartialMinGrowth
	}
	firstTrigger := state.lastEmitTs == 0 && growth >= cfg.PartialMinGrowth

	if !(boundaryChanged || softBoundary || timeTriggered || firstTrigger) {
		return nil, state
	}

	if captionText == state.lastCaptionText {
		return nil, state
	}

	state.lastCaptionText = captionText
	state.lastEmitTs = ts
	state.lastEmitLength = captionLen
	if !state.hasSegmentID {
		state.segmentID = nextSegmentID()
		state.hasSegmentID = true
	}

	emit := &PartialEmit{
		CaptionText: captionText,
		SegmentID:   state.segmentID,
	}

	if chunk, ok := buildTranslationChunk(sentences); ok && chunk != state.lastTranslationText {
		state.lastTranslationText = chunk
		state.lastTranslationTs = ts
		state.lastTranslationSegmentID = state.segmentID
		state.hasTranslation = true
		emit.TranslationText = chunk
		emit.HasTranslation = true
	}

	return emit, state
}
