// Package stt adapts hosted speech-to-text APIs to orchestrator.StreamingSTTProvider.
//
// AssemblyAI, Groq, Deepgram and OpenAI all expose batch transcription: send a
// buffer of audio, get back one transcript. None of them stream interim
// results over the wire the way AWS Transcribe does. PollingStream turns a
// BatchTranscriber into a streaming provider by re-transcribing the
// session's accumulated audio on a fixed tick, which is exactly what a
// batch API can support: each tick's result supersedes the last as a new
// partial, and a final re-transcription runs once the caller stops sending
// audio.
package stt

import (
	"context"
	"sync"
	"time"

	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

// BatchTranscriber transcribes one buffer of 16-bit PCM audio in full.
type BatchTranscriber interface {
	TranscribeChunk(ctx context.Context, pcm []byte) (string, error)
	Name() string
}

// PollingStream wraps a BatchTranscriber as an orchestrator.StreamingSTTProvider
// by polling it on a fixed interval against the session's growing audio buffer.
type PollingStream struct {
	bt       BatchTranscriber
	interval time.Duration
	minBytes int
}

func NewPollingStream(bt BatchTranscriber, interval time.Duration, minBytes int) *PollingStream {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	if minBytes <= 0 {
		minBytes = 8000
	}
	return &PollingStream{bt: bt, interval: interval, minBytes: minBytes}
}

func (p *PollingStream) Name() string { return p.bt.Name() }

func (p *PollingStream) StartStream(ctx context.Context, sessionID string, sampleRateHz int) (chan<- []byte, <-chan orchestrator.TranscriptResult, error) {
	if sr, ok := p.bt.(interface{ SetSampleRate(int) }); ok && sampleRateHz > 0 {
		sr.SetSampleRate(sampleRateHz)
	}

	audioIn := make(chan []byte, 32)
	results := make(chan orchestrator.TranscriptResult, 8)

	go p.run(ctx, audioIn, results)

	return audioIn, results, nil
}

func (p *PollingStream) run(ctx context.Context, audioIn <-chan []byte, results chan<- orchestrator.TranscriptResult) {
	defer close(results)

	var mu sync.Mutex
	var buf []byte
	sinceFlush := 0
	closed := false

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	flush := func(final bool) {
		mu.Lock()
		data := append([]byte(nil), buf...)
		mu.Unlock()
		if len(data) == 0 {
			return
		}
		text, err := p.bt.TranscribeChunk(ctx, data)
		if err != nil || text == "" {
			return
		}
		select {
		case results <- orchestrator.TranscriptResult{IsPartial: !final, Text: text, Timestamp: time.Now()}:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush(true)
			return
		case chunk, ok := <-audioIn:
			if !ok {
				if !closed {
					closed = true
					flush(true)
				}
				return
			}
			mu.Lock()
			buf = append(buf, chunk...)
			sinceFlush += len(chunk)
			mu.Unlock()
			if sinceFlush >= p.minBytes {
				sinceFlush = 0
				flush(false)
			}
		case <-ticker.C:
			flush(false)
		}
	}
}
