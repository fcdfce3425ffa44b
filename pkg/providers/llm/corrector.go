package llm

import "context"

// Corrector is a thin pass-through adapter: CorrectionQueue owns the whole
// prompt-build/parse/diff policy, so all this does is forward the prompt to
// the underlying Client with no system prompt of its own.
type Corrector struct {
	client Client
}

func NewCorrector(client Client) *Corrector {
	return &Corrector{client: client}
}

func (c *Corrector) CorrectBatch(ctx context.Context, prompt string) (string, error) {
	return c.client.Complete(ctx, "", prompt)
}
