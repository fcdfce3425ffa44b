package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

const suggesterSystemPrompt = "You are helping a non-native speaker participate in a meeting."

var suggestionArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// Suggester adapts a Client into orchestrator.Suggester. It asks for five
// short source/target sentence pairs as a JSON array and falls back to a
// line-oriented "source | target" parse if the model ignores the JSON
// instruction.
type Suggester struct {
	client Client
}

func NewSuggester(client Client) *Suggester {
	return &Suggester{client: client}
}

func (s *Suggester) GenerateSuggestions(ctx context.Context, recentTranscripts []string, systemPrompt string) ([]orchestrator.SuggestionPair, error) {
	var b strings.Builder
	b.WriteString("Suggest 5 short, natural English sentences they can say. Mix questions and answers.\n")
	b.WriteString("Rules:\n- Use simple, easy-to-edit phrases.\n- Keep each sentence under 12 words.\n")
	b.WriteString("- Avoid jargon and idioms.\n- Make them sound polite and natural.\n")
	b.WriteString(`Return a JSON array of objects with keys "source" and "target" only.` + "\n")
	b.WriteString("Context:\n")
	for _, line := range recentTranscripts {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		systemPrompt = suggesterSystemPrompt
	}

	resp, err := s.client.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		return nil, err
	}
	return parseSuggestions(resp), nil
}

func parseSuggestions(response string) []orchestrator.SuggestionPair {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil
	}

	if pairs := tryParseSuggestionJSON(response); pairs != nil {
		return capSuggestions(pairs)
	}

	var pairs []orchestrator.SuggestionPair
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" {
			continue
		}
		var source, target string
		if idx := strings.Index(line, "|"); idx >= 0 {
			source, target = line[:idx], line[idx+1:]
		} else if idx := strings.Index(line, "-"); idx >= 0 {
			source, target = line[:idx], line[idx+1:]
		} else {
			continue
		}
		source, target = strings.TrimSpace(source), strings.TrimSpace(target)
		if source != "" && target != "" {
			pairs = append(pairs, orchestrator.SuggestionPair{Source: source, Target: target})
		}
	}
	return capSuggestions(pairs)
}

func tryParseSuggestionJSON(response string) []orchestrator.SuggestionPair {
	raw := response
	var data []map[string]string
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		match := suggestionArrayRe.FindString(raw)
		if match == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(match), &data); err != nil {
			return nil
		}
	}

	var pairs []orchestrator.SuggestionPair
	for _, item := range data {
		source := strings.TrimSpace(item["source"])
		target := strings.TrimSpace(item["target"])
		if source != "" && target != "" {
			pairs = append(pairs, orchestrator.SuggestionPair{Source: source, Target: target})
		}
	}
	return pairs
}

func capSuggestions(pairs []orchestrator.SuggestionPair) []orchestrator.SuggestionPair {
	if len(pairs) > 5 {
		return pairs[:5]
	}
	return pairs
}
