package llm

import (
	"context"
	"strings"
)

const summarizerSystemPrompt = "You are writing a meeting summary. Return Markdown only, no code fences, no extra text."

const maxSummaryContextChars = 12000

// Summarizer adapts a Client into orchestrator.Summarizer. Transcript lines
// are kept most-recent-first up to a character budget before being handed to
// the model, so a long meeting degrades to "recent discussion" rather than
// failing outright.
type Summarizer struct {
	client Client
}

func NewSummarizer(client Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) GenerateSummary(ctx context.Context, transcripts []string) (string, error) {
	lines := truncateToBudget(transcripts, maxSummaryContextChars)
	if len(lines) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Format:\n## Summary\n- Provide exactly 5 short bullet lines.\n")
	b.WriteString("## Key points\n- Provide 3 to 7 bullet lines.\n")
	b.WriteString("## Action items\n- Provide bullet lines only if action items exist. Otherwise omit this section.\n")
	b.WriteString("Rules:\n- Keep language simple and natural.\n- Focus on outcomes and decisions.\n")
	b.WriteString("Transcript:\n")
	b.WriteString(strings.Join(lines, "\n"))

	resp, err := s.client.Complete(ctx, summarizerSystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func truncateToBudget(lines []string, budget int) []string {
	var nonEmpty []string
	total := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nonEmpty = append(nonEmpty, line)
		total += len(line)
	}
	if total <= budget {
		return nonEmpty
	}

	var trimmed []string
	current := 0
	for i := len(nonEmpty) - 1; i >= 0; i-- {
		line := nonEmpty[i]
		if current+len(line) > budget {
			break
		}
		trimmed = append(trimmed, line)
		current += len(line)
	}
	for i, j := 0, len(trimmed)-1; i < j; i, j = i+1, j-1 {
		trimmed[i], trimmed[j] = trimmed[j], trimmed[i]
	}
	return trimmed
}
