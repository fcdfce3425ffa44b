// Package llm adapts plain HTTP chat-completion APIs (Anthropic, OpenAI,
// Google) into the single-prompt Client interface that every text-generation
// collaborator in this module — translation, suggestion, correction,
// summary — is built on top of.
package llm

import "context"

// Client sends one system/user prompt pair to a hosted LLM and returns its
// text response. Each provider's payload shape differs; Client hides that
// behind one call so the same adapters (translator.go, suggester.go,
// corrector.go, summarizer.go) work against any of them.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}
