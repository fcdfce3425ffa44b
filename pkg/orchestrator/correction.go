package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Correction is one reconciled line: the original text of segmentID replaced
// by a minimally-edited correctedText that differs from the original.
type Correction struct {
	SegmentID     int64
	OriginalText  string
	CorrectedText string
}

type correctionItem struct {
	segmentID int64
	text      string
}

// CorrectionQueue is an unbounded FIFO of finalized segments awaiting a
// lower-priority LLM correction pass, drained in fixed-size batches.
type CorrectionQueue struct {
	mu        sync.Mutex
	items     []correctionItem
	batchSize int
}

func NewCorrectionQueue(batchSize int) *CorrectionQueue {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &CorrectionQueue{batchSize: batchSize}
}

// Enqueue appends a finalized segment to the FIFO. Non-blocking.
func (q *CorrectionQueue) Enqueue(segmentID int64, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, correctionItem{segmentID: segmentID, text: text})
}

func (q *CorrectionQueue) drainBatch() []correctionItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	n := q.batchSize
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[:n]
	q.items = q.items[n:]
	return batch
}

// ProcessBatch drains up to batchSize items, asks the corrector for minimal
// edits over the whole batch in one prompt, and returns only the lines that
// actually changed. Any failure to invoke the corrector or to parse its
// response yields an empty result — no retry, no dead-letter, matching the
// documented silent-drop policy.
func (q *CorrectionQueue) ProcessBatch(ctx context.Context, corrector Corrector) []Correction {
	batch := q.drainBatch()
	if len(batch) == 0 {
		return nil
	}
	metricCorrectionBatchSize.Observe(float64(len(batch)))

	prompt := buildCorrectionPrompt(batch)
	raw, err := corrector.CorrectBatch(ctx, prompt)
	if err != nil {
		return nil
	}

	corrected := parseCorrections(raw, len(batch))
	if corrected == nil {
		return nil
	}

	var out []Correction
	for i, item := range batch {
		if i >= len(corrected) {
			break
		}
		c := strings.TrimSpace(corrected[i])
		if c == "" || c == item.text {
			continue
		}
		out = append(out, Correction{
			SegmentID:     item.segmentID,
			OriginalText:  item.text,
			CorrectedText: c,
		})
	}
	return out
}

func buildCorrectionPrompt(batch []correctionItem) string {
	var b strings.Builder
	b.WriteString("Fix typos and spacing in the following live transcript lines.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Preserve meaning.\n")
	b.WriteString("- Keep proper nouns consistent (e.g., AWS, API).\n")
	b.WriteString("- Make minimal edits.\n")
	b.WriteString("Input:\n")
	for i, item := range batch {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.text)
	}
	b.WriteString("\nRespond in JSON:\n")
	b.WriteString(`{"corrections": ["corrected 1", "corrected 2", "..."]}`)
	return b.String()
}

type correctionsResponse struct {
	Corrections []any `json:"corrections"`
}

// parseCorrections tolerates a JSON object possibly wrapped in prose: it
// tries a direct parse first, then retries against the outermost {...} span.
// Any non-string element is skipped without stopping the scan (its index
// still advances), and a result longer than the input batch is rejected.
func parseCorrections(raw string, batchSize int) []string {
	resp, ok := loadJSON(raw)
	if !ok {
		return nil
	}
	if len(resp.Corrections) > batchSize {
		return nil
	}

	out := make([]string, len(resp.Corrections))
	for i, elem := range resp.Corrections {
		s, ok := elem.(string)
		if !ok {
			continue
		}
		out[i] = s
	}
	return out
}

func loadJSON(raw string) (correctionsResponse, bool) {
	var resp correctionsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return correctionsResponse{}, false
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return correctionsResponse{}, false
	}
	return resp, true
}
