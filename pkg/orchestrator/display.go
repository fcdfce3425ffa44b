package orchestrator

// SubtitleSegment is the display-layer representation of one segment, sent
// verbatim as part of display.update and echoed (minus a few fields) in the
// transcript/translation events. EndTime is set only once IsFinal is true.
// LLMCorrected is a supplemental display detail set once a correction has
// been applied to this segment.
type SubtitleSegment struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Speaker      string  `json:"speaker"`
	StartTime    int64   `json:"startTime"`
	EndTime      *int64  `json:"endTime,omitempty"`
	IsFinal      bool    `json:"isFinal"`
	SegmentID    int64   `json:"segmentId"`
	Translation  *string `json:"translation,omitempty"`
	LLMCorrected bool    `json:"llmCorrected,omitempty"`
}

// DisplayBuffer is the bounded client-facing view: up to confirmedCap
// finalized segments plus at most one in-flight current segment.
type DisplayBuffer struct {
	Confirmed []SubtitleSegment
	Current   *SubtitleSegment
}

// update moves a final segment into confirmed (evicting the oldest once the
// cap is exceeded) and clears current; a non-final segment replaces current.
func (b *DisplayBuffer) update(seg SubtitleSegment, confirmedCap int) {
	if seg.IsFinal {
		b.Confirmed = append(b.Confirmed, seg)
		if len(b.Confirmed) > confirmedCap {
			b.Confirmed = b.Confirmed[1:]
		}
		b.Current = nil
		return
	}
	b.Current = &seg
}

// snapshot returns a defensive copy suitable for handing to a DisplayUpdateEvent
// without the caller's buffer later mutating it out from under a pending send.
func (b *DisplayBuffer) snapshot() DisplayBuffer {
	confirmed := make([]SubtitleSegment, len(b.Confirmed))
	copy(confirmed, b.Confirmed)
	var current *SubtitleSegment
	if b.Current != nil {
		c := *b.Current
		current = &c
	}
	return DisplayBuffer{Confirmed: confirmed, Current: current}
}
