package llm

import (
	"context"
	"fmt"
	"strings"
)

const translateSystemPrompt = "You are a translator. Translate English to natural Korean. " +
	"Never ask questions, request more context, or mention language selection. " +
	"Respond in Korean only, without quotes or extra text."

// Translator adapts a Client into orchestrator.Translator by prompting it to
// translate a single line, optionally with recent confirmed lines as context.
type Translator struct {
	client Client
}

func NewTranslator(client Client) *Translator {
	return &Translator{client: client}
}

func (t *Translator) Name() string { return t.client.Name() + "-translator" }

func (t *Translator) TranslateFast(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Translate the following English text to natural Korean.\n%q\n"+
		"Return only the Korean translation. Do not ask questions or add explanations.", text)
	resp, err := t.client.Complete(ctx, translateSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func (t *Translator) TranslateWithContext(ctx context.Context, text string, recentContext []string) (string, error) {
	var b strings.Builder
	b.WriteString("Use context for coherence but translate only the current line. ")
	b.WriteString("If the line is unclear or incomplete, make the best possible inference.\n")
	if len(recentContext) > 0 {
		b.WriteString("Recent context:\n")
		for _, entry := range recentContext {
			fmt.Fprintf(&b, "- %s\n", entry)
		}
	}
	fmt.Fprintf(&b, "Current line: %q\nReturn only the translation.", text)

	resp, err := t.client.Complete(ctx, translateSystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
