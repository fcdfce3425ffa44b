// Package translate provides a direct machine-translation backed
// orchestrator.Translator, as an alternative to routing translation through
// an LLM prompt.
package translate

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

// AWSTranslate implements orchestrator.Translator on top of Amazon Translate.
// It ignores recentContext: the service translates each call independently,
// so TranslateFast and TranslateWithContext behave identically here. Callers
// that need context-aware phrasing should use an LLM-backed Translator
// instead.
type AWSTranslate struct {
	client     *translate.Client
	sourceLang string
	targetLang string
}

func NewAWSTranslate(cfg aws.Config, sourceLang, targetLang string) *AWSTranslate {
	return &AWSTranslate{
		client:     translate.NewFromConfig(cfg),
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

func (a *AWSTranslate) Name() string { return "aws-translate" }

func (a *AWSTranslate) TranslateFast(ctx context.Context, text string) (string, error) {
	return a.translate(ctx, text)
}

func (a *AWSTranslate) TranslateWithContext(ctx context.Context, text string, recentContext []string) (string, error) {
	return a.translate(ctx, text)
}

func (a *AWSTranslate) translate(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if a.sourceLang == a.targetLang {
		return text, nil
	}

	result, err := a.client.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(a.sourceLang),
		TargetLanguageCode: aws.String(a.targetLang),
	})
	if err != nil {
		return "", fmt.Errorf("aws translate: %w", err)
	}

	return aws.ToString(result.TranslatedText), nil
}
