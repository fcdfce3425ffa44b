package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hashing-labs/meetassist-orchestrator/internal/config"
	"github.com/hashing-labs/meetassist-orchestrator/internal/httpapi"
	"github.com/hashing-labs/meetassist-orchestrator/internal/obslog"
	"github.com/hashing-labs/meetassist-orchestrator/internal/wsserver"
	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
	"github.com/hashing-labs/meetassist-orchestrator/pkg/providers/llm"
	"github.com/hashing-labs/meetassist-orchestrator/pkg/providers/stt"
	"github.com/hashing-labs/meetassist-orchestrator/pkg/providers/translate"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("note: no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := obslog.NewJSONLogger(slog.LevelInfo)
	slogLogger := obslog.NewSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, llmClient, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("provider setup: %v", err)
	}

	newSession := func(sessCtx context.Context, sessionID string) (*orchestrator.ManagedSession, error) {
		sttProvider, err := buildSTTProvider(cfg, awsCfg)
		if err != nil {
			return nil, err
		}
		translator := buildTranslator(cfg, awsCfg, llmClient)
		suggester := llm.NewSuggester(llmClient)
		corrector := llm.NewCorrector(llmClient)
		summarizer := llm.NewSummarizer(llmClient)

		return orchestrator.NewManagedSession(
			sessCtx, sessionID, cfg.Orchestrator,
			sttProvider, translator, suggester, corrector, summarizer,
			slogLogger,
		), nil
	}

	wsHandler := wsserver.NewHandler(newSession, logger)
	translator := buildTranslator(cfg, awsCfg, llmClient)
	server := httpapi.NewServer(wsHandler, translator, cfg.CORSAllowedOrigins, logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "addr", cfg.ListenAddr, "sttProvider", cfg.STTProvider, "llmProvider", cfg.LLMProvider)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}

// buildProviders prepares the shared collaborators concurrently at startup:
// loading the AWS SDK config (when needed) and constructing the configured
// LLM client are independent steps, so they run through an errgroup rather
// than sequentially, the way a fan-out of independent readiness checks does
// in MrWong99-glyphoxa/internal/hotctx/assembler.go. Constructing the LLM
// client makes no request to the provider, so an invalid key is not detected
// here.
func buildProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (awssdk.Config, llm.Client, error) {
	var awsCfg awssdk.Config
	var llmClient llm.Client

	g, gctx := errgroup.WithContext(ctx)

	needsAWS := cfg.STTProvider == "aws" || cfg.UseAWSTranslate
	if needsAWS {
		g.Go(func() error {
			loaded, err := awsconfig.LoadDefaultConfig(gctx, awsconfig.WithRegion(cfg.AWSRegion))
			if err != nil {
				return fmt.Errorf("load aws config: %w", err)
			}
			awsCfg = loaded
			return nil
		})
	}

	g.Go(func() error {
		client, err := newLLMClient(cfg)
		if err != nil {
			return err
		}
		llmClient = client
		return nil
	})

	if err := g.Wait(); err != nil {
		return awssdk.Config{}, nil, err
	}

	logger.Info("providers ready", "needsAWS", needsAWS)
	return awsCfg, llmClient, nil
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return llm.NewAnthropicLLM(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case "openai":
		return llm.NewOpenAILLM(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "google":
		return llm.NewGoogleLLM(cfg.GoogleAPIKey, cfg.GoogleModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q for LLM text generation", cfg.LLMProvider)
	}
}

func buildSTTProvider(cfg *config.Config, awsCfg awssdk.Config) (orchestrator.StreamingSTTProvider, error) {
	switch cfg.STTProvider {
	case "aws":
		return stt.NewAWSTranscribeStream(awsCfg, cfg.SourceLanguage), nil
	case "groq":
		return stt.NewPollingStream(stt.NewGroqSTT(cfg.GroqAPIKey, cfg.GroqSTTModel, cfg.SourceLanguage), 1500*time.Millisecond, 16000), nil
	case "openai":
		return stt.NewPollingStream(stt.NewOpenAISTT(cfg.OpenAIAPIKey, "whisper-1", cfg.SourceLanguage), 1500*time.Millisecond, 16000), nil
	case "deepgram":
		return stt.NewPollingStream(stt.NewDeepgramSTT(cfg.DeepgramAPIKey, cfg.SourceLanguage), 1500*time.Millisecond, 16000), nil
	case "assemblyai":
		return stt.NewPollingStream(stt.NewAssemblyAISTT(cfg.AssemblyAIAPIKey, cfg.SourceLanguage), 2*time.Second, 16000), nil
	default:
		return nil, fmt.Errorf("unsupported STT_PROVIDER %q", cfg.STTProvider)
	}
}

func buildTranslator(cfg *config.Config, awsCfg awssdk.Config, llmClient llm.Client) orchestrator.Translator {
	if cfg.UseAWSTranslate {
		return translate.NewAWSTranslate(awsCfg, cfg.SourceLanguage, cfg.TargetLanguage)
	}
	return llm.NewTranslator(llmClient)
}
