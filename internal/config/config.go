// Package config centralizes environment-driven settings for the server,
// built once at startup and passed down explicitly rather than read ad hoc
// via os.Getenv scattered through the codebase.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

type Config struct {
	ListenAddr string

	STTProvider string
	LLMProvider string

	AWSRegion string

	GroqAPIKey       string
	GroqSTTModel     string
	OpenAIAPIKey     string
	OpenAIModel      string
	AnthropicAPIKey  string
	AnthropicModel   string
	GoogleAPIKey     string
	GoogleModel      string
	DeepgramAPIKey   string
	AssemblyAIAPIKey string

	SourceLanguage string
	TargetLanguage string

	// UseAWSTranslate routes the translation collaborator through Amazon
	// Translate instead of the selected LLM, independent of LLMProvider
	// (which still backs suggestions, corrections and summaries).
	UseAWSTranslate bool

	CORSAllowedOrigins []string

	Orchestrator orchestrator.Config
}

// Load reads environment variables, applies defaults, and fails fast if a
// required key for the selected provider is missing.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     getEnvDefault("LISTEN_ADDR", ":8080"),
		STTProvider:    getEnvDefault("STT_PROVIDER", "aws"),
		LLMProvider:    getEnvDefault("LLM_PROVIDER", "anthropic"),
		AWSRegion:      getEnvDefault("AWS_REGION", "us-east-1"),
		SourceLanguage: getEnvDefault("SOURCE_LANGUAGE", "en-US"),
		TargetLanguage: getEnvDefault("TARGET_LANGUAGE", "ko"),

		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		GroqSTTModel:     getEnvDefault("GROQ_STT_MODEL", "whisper-large-v3-turbo"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      os.Getenv("OPENAI_MODEL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   os.Getenv("ANTHROPIC_MODEL"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		GoogleModel:      os.Getenv("GOOGLE_MODEL"),
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		AssemblyAIAPIKey: os.Getenv("ASSEMBLYAI_API_KEY"),

		UseAWSTranslate: getEnvDefault("TRANSLATION_BACKEND", "llm") == "aws",

		CORSAllowedOrigins: splitNonEmpty(getEnvDefault("CORS_ALLOWED_ORIGINS", "*")),

		Orchestrator: orchestrator.DefaultConfig(),
	}

	if v := os.Getenv("CORRECTION_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid CORRECTION_ENABLED: %w", err)
		}
		cfg.Orchestrator.CorrectionEnabled = enabled
	}

	switch cfg.STTProvider {
	case "aws":
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("config: GROQ_API_KEY must be set for STT_PROVIDER=groq")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("config: OPENAI_API_KEY must be set for STT_PROVIDER=openai")
		}
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("config: DEEPGRAM_API_KEY must be set for STT_PROVIDER=deepgram")
		}
	case "assemblyai":
		if cfg.AssemblyAIAPIKey == "" {
			return nil, fmt.Errorf("config: ASSEMBLYAI_API_KEY must be set for STT_PROVIDER=assemblyai")
		}
	default:
		return nil, fmt.Errorf("config: unknown STT_PROVIDER %q", cfg.STTProvider)
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("config: ANTHROPIC_API_KEY must be set for LLM_PROVIDER=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("config: OPENAI_API_KEY must be set for LLM_PROVIDER=openai")
		}
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("config: GOOGLE_API_KEY must be set for LLM_PROVIDER=google")
		}
	default:
		return nil, fmt.Errorf("config: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
