package stt

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"

	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

// AWSTranscribeStream is the primary StreamingSTTProvider, backed by Amazon
// Transcribe's bidirectional event stream. Unlike the batch providers in this
// package it receives true interim results from the upstream API rather than
// re-transcribing on a timer.
type AWSTranscribeStream struct {
	client       *transcribestreaming.Client
	languageCode types.LanguageCode
	sendInterval time.Duration
}

func NewAWSTranscribeStream(cfg aws.Config, languageCode string) *AWSTranscribeStream {
	lc, ok := transcribeLangCodes[languageCode]
	if !ok {
		lc = types.LanguageCodeEnUs
	}
	return &AWSTranscribeStream{
		client:       transcribestreaming.NewFromConfig(cfg),
		languageCode: lc,
		sendInterval: 100 * time.Millisecond,
	}
}

func (a *AWSTranscribeStream) Name() string { return "aws-transcribe" }

var transcribeLangCodes = map[string]types.LanguageCode{
	"ko-KR": types.LanguageCodeKoKr,
	"en-US": types.LanguageCodeEnUs,
	"ja-JP": types.LanguageCodeJaJp,
	"zh-CN": types.LanguageCodeZhCn,
	"es-ES": types.LanguageCodeEsEs,
	"fr-FR": types.LanguageCodeFrFr,
	"de-DE": types.LanguageCodeDeDe,
}

func (a *AWSTranscribeStream) StartStream(ctx context.Context, sessionID string, sampleRateHz int) (chan<- []byte, <-chan orchestrator.TranscriptResult, error) {
	resp, err := a.client.StartStreamTranscription(ctx, &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         a.languageCode,
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(int32(sampleRateHz)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start transcription stream: %w", err)
	}

	stream := resp.GetStream()
	if stream == nil {
		return nil, nil, fmt.Errorf("transcribe stream is nil")
	}

	audioIn := make(chan []byte, 64)
	results := make(chan orchestrator.TranscriptResult, 32)

	go a.pumpAudio(ctx, stream, audioIn)
	go a.pumpResults(stream, results)

	return audioIn, results, nil
}

func (a *AWSTranscribeStream) pumpAudio(ctx context.Context, stream *transcribestreaming.StartStreamTranscriptionEventStream, audioIn <-chan []byte) {
	defer stream.Close()

	buf := make([]byte, 0, 32000)
	ticker := time.NewTicker(a.sendInterval)
	defer ticker.Stop()

	send := func() {
		if len(buf) == 0 {
			return
		}
		event := &types.AudioStreamMemberAudioEvent{Value: types.AudioEvent{AudioChunk: buf}}
		stream.Send(ctx, event)
		buf = make([]byte, 0, 32000)
	}

	for {
		select {
		case <-ctx.Done():
			send()
			return
		case chunk, ok := <-audioIn:
			if !ok {
				send()
				return
			}
			buf = append(buf, chunk...)
		case <-ticker.C:
			send()
		}
	}
}

func (a *AWSTranscribeStream) pumpResults(stream *transcribestreaming.StartStreamTranscriptionEventStream, results chan<- orchestrator.TranscriptResult) {
	defer close(results)

	for event := range stream.Events() {
		transcriptEvent, ok := event.(*types.TranscriptResultStreamMemberTranscriptEvent)
		if !ok || transcriptEvent.Value.Transcript == nil {
			continue
		}

		for _, result := range transcriptEvent.Value.Transcript.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			text := aws.ToString(result.Alternatives[0].Transcript)
			if text == "" {
				continue
			}
			results <- orchestrator.TranscriptResult{
				IsPartial: result.IsPartial,
				Text:      text,
				Timestamp: time.Now(),
			}
		}
	}
}
