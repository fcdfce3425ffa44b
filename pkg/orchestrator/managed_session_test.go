package orchestrator

import (
	"context"
	"testing"
	"time"
)

type fakeSTT struct {
	results chan TranscriptResult
	audioIn chan []byte
	startErr error
}

func (f *fakeSTT) StartStream(ctx context.Context, sessionID string, sampleRateHz int) (chan<- []byte, <-chan TranscriptResult, error) {
	if f.startErr != nil {
		return nil, nil, f.startErr
	}
	return f.audioIn, f.results, nil
}

func (f *fakeSTT) Name() string { return "fake-stt" }

type fakeTranslator struct {
	translated string
}

func (f *fakeTranslator) TranslateFast(ctx context.Context, text string) (string, error) {
	return f.translated, nil
}

func (f *fakeTranslator) TranslateWithContext(ctx context.Context, text string, recentContext []string) (string, error) {
	return f.translated, nil
}

func (f *fakeTranslator) Name() string { return "fake-translator" }

type fakeSuggester struct{}

func (fakeSuggester) GenerateSuggestions(ctx context.Context, recent []string, systemPrompt string) ([]SuggestionPair, error) {
	return []SuggestionPair{{Source: "hi", Target: "hola"}}, nil
}

func newTestManagedSession(t *testing.T, stt *fakeSTT) *ManagedSession {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CorrectionEnabled = false
	ms := NewManagedSession(context.Background(), "test-session", cfg, stt, &fakeTranslator{translated: "hola"}, fakeSuggester{}, nil, nil, nil)
	return ms
}

func TestManagedSession_FinalBeforeTranslation_OrderPreserved(t *testing.T) {
	stt := &fakeSTT{results: make(chan TranscriptResult, 4), audioIn: make(chan []byte, 4)}
	ms := newTestManagedSession(t, stt)

	if err := ms.Start(); err != nil {
		t.Fatalf("unexpected Start error: %v", err)
	}
	defer ms.Close()

	stt.results <- TranscriptResult{IsPartial: false, Text: "Hello.", Timestamp: time.UnixMilli(1000)}

	var sawFinal, sawTranslation bool
	deadline := time.After(2 * time.Second)
	for !sawTranslation {
		select {
		case ev := <-ms.Events():
			switch e := ev.(type) {
			case TranscriptFinalEvent:
				sawFinal = true
				_ = e
			case TranslationFinalEvent:
				if !sawFinal {
					t.Fatal("translation.final arrived before transcript.final")
				}
				sawTranslation = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for translation.final")
		}
	}
}

func TestManagedSession_StartErrorWraps(t *testing.T) {
	stt := &fakeSTT{startErr: ErrTranscribeStreamFailed}
	ms := newTestManagedSession(t, stt)

	err := ms.Start()
	if err == nil {
		t.Fatal("expected Start to surface the STT error")
	}
}

func TestManagedSession_GracefulShutdown_S6(t *testing.T) {
	stt := &fakeSTT{results: make(chan TranscriptResult, 1), audioIn: make(chan []byte, 1)}
	ms := newTestManagedSession(t, stt)
	if err := ms.Start(); err != nil {
		t.Fatalf("unexpected Start error: %v", err)
	}

	ms.HandleControlMessage([]byte(`{"type":"session.stop"}`))

	var sawSessionStop bool
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range ms.Events() {
			if _, ok := ev.(SessionStopEvent); ok {
				sawSessionStop = true
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		ms.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return within the shutdown timeout")
	}

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was never closed after Close")
	}

	if !sawSessionStop {
		t.Fatal("expected a session.stop event before the events channel closed")
	}

	// Close is idempotent.
	ms.Close()

	if !ms.isClosing() {
		t.Fatal("expected session to be marked closing after Close")
	}
}

func TestManagedSession_HandleControlMessage_InvalidJSON(t *testing.T) {
	stt := &fakeSTT{results: make(chan TranscriptResult, 1), audioIn: make(chan []byte, 1)}
	ms := newTestManagedSession(t, stt)
	if err := ms.Start(); err != nil {
		t.Fatalf("unexpected Start error: %v", err)
	}
	defer ms.Close()

	ms.HandleControlMessage([]byte(`not json`))

	select {
	case ev := <-ms.Events():
		errEv, ok := ev.(ErrorEvent)
		if !ok || errEv.Code != ErrCodeInvalidMessage {
			t.Fatalf("expected INVALID_MESSAGE error event, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an error event for invalid JSON")
	}
}

func TestManagedSession_Ping_RepliesPong(t *testing.T) {
	stt := &fakeSTT{results: make(chan TranscriptResult, 1), audioIn: make(chan []byte, 1)}
	ms := newTestManagedSession(t, stt)
	if err := ms.Start(); err != nil {
		t.Fatalf("unexpected Start error: %v", err)
	}
	defer ms.Close()

	ms.HandleControlMessage([]byte(`{"type":"client.ping","ts":123}`))

	select {
	case ev := <-ms.Events():
		if _, ok := ev.(ServerPongEvent); !ok {
			t.Fatalf("expected server.pong, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a pong event")
	}
}
