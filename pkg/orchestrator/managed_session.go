package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	shutdownJoinTimeout    = 1 * time.Second
	defaultSampleRateHz    = 16000
	translationConcurrency = 2
)

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// ManagedSession owns the socket-facing side of one meeting connection: the
// STT stream, the session's in-memory state, the bounded pools of
// translation/suggestion work, and the correction pump, with guaranteed
// clean teardown on any exit path.
type ManagedSession struct {
	ID     string
	logger Logger
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc

	session         *Session
	stt             StreamingSTTProvider
	translator      Translator
	suggester       Suggester
	corrector       Corrector
	summarizer      Summarizer
	correctionQueue *CorrectionQueue

	events chan any

	mu           sync.Mutex
	closing      bool
	sampleRateHz int
	audioIn      chan<- []byte

	translationSem chan struct{}
	suggestionSem  chan struct{}
	summarySem     chan struct{}

	tasksMu sync.Mutex
	tasks   map[int]context.CancelFunc
	nextTID int
	tasksWG sync.WaitGroup

	resultsDone chan struct{}
	closeOnce   sync.Once
}

// NewManagedSession constructs a session. Collaborators are injected
// explicitly by the caller at connection-accept time — no process-wide
// singleton lookup.
func NewManagedSession(
	ctx context.Context,
	id string,
	cfg Config,
	stt StreamingSTTProvider,
	translator Translator,
	suggester Suggester,
	corrector Corrector,
	summarizer Summarizer,
	logger Logger,
) *ManagedSession {
	if logger == nil {
		logger = NoOpLogger{}
	}
	sessCtx, cancel := context.WithCancel(ctx)
	ms := &ManagedSession{
		ID:              id,
		logger:          logger,
		cfg:             cfg,
		ctx:             sessCtx,
		cancel:          cancel,
		session:         NewSession(id, cfg),
		stt:             stt,
		translator:      translator,
		suggester:       suggester,
		corrector:       corrector,
		summarizer:      summarizer,
		correctionQueue: NewCorrectionQueue(cfg.CorrectionBatchSize),
		events:          make(chan any, 256),
		sampleRateHz:    defaultSampleRateHz,
		translationSem:  make(chan struct{}, translationConcurrency),
		suggestionSem:   make(chan struct{}, 1),
		summarySem:      make(chan struct{}, 1),
		tasks:           make(map[int]context.CancelFunc),
	}
	return ms
}

// SetSampleRate overrides the sample rate the STT stream will be opened
// with. Only effective before Start(); a session.start control message that
// arrives after the stream is already open cannot retroactively change it,
// so the transport layer applies this from an initial session.start frame
// before calling Start().
func (ms *ManagedSession) SetSampleRate(hz int) {
	ms.mu.Lock()
	ms.sampleRateHz = hz
	ms.mu.Unlock()
}

// Events is the outbound event stream. A single consumer (the transport
// layer) must drain it and write each value to the socket as JSON, acting as
// the sole writer and thereby serializing outbound frames without a separate
// mutex.
func (ms *ManagedSession) Events() <-chan any {
	return ms.events
}

// Start opens the STT stream and spawns the result pump, plus the correction
// pump if corrections are enabled. Returns an error wrapping
// ErrTranscribeStreamFailed on failure; the caller must emit
// ErrorEvent{TRANSCRIBE_STREAM_ERROR} and close.
func (ms *ManagedSession) Start() error {
	audioIn, results, err := ms.stt.StartStream(ms.ctx, ms.ID, ms.sampleRateHz)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTranscribeStreamFailed, err)
	}
	ms.mu.Lock()
	ms.audioIn = audioIn
	ms.mu.Unlock()

	ms.resultsDone = make(chan struct{})
	go func() {
		defer close(ms.resultsDone)
		for result := range results {
			ms.handleTranscriptResult(result)
		}
	}()

	if ms.cfg.CorrectionEnabled {
		ms.scheduleTask(ms.runCorrectionPump)
	}

	return nil
}

func (ms *ManagedSession) isClosing() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.closing
}

func (ms *ManagedSession) emit(event any) {
	if ms.isClosing() {
		return
	}
	defer func() {
		recover() // events channel closed concurrently during shutdown
	}()
	select {
	case ms.events <- event:
	case <-ms.ctx.Done():
	}
}

// HandleAudio forwards a raw PCM frame to the STT provider. Never blocks on
// translator calls; the only suspension point is the provider's own
// backpressure on audioIn.
func (ms *ManagedSession) HandleAudio(chunk []byte) {
	ms.mu.Lock()
	in := ms.audioIn
	closing := ms.closing
	ms.mu.Unlock()
	if closing || in == nil {
		return
	}
	select {
	case in <- chunk:
	case <-ms.ctx.Done():
	}
}

// HandleControlMessage parses and dispatches one inbound text frame.
func (ms *ManagedSession) HandleControlMessage(raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		ms.emitError(ErrCodeInvalidMessage, "malformed control message", false)
		return
	}

	switch msg.Type {
	case "client.ping":
		ms.emit(ServerPongEvent{OutboundEvent: OutboundEvent{Type: EventServerPong, Ts: nowMs()}})

	case "suggestions.prompt":
		if msg.Prompt == "" {
			ms.emitError(ErrCodeInvalidMessage, "suggestions.prompt requires a string prompt", false)
			return
		}
		ms.session.SetSuggestionsPrompt(msg.Prompt)

	case "session.start":
		// The transport layer already applies an initial sample rate via
		// SetSampleRate before Start() opens the STT stream. A session.start
		// received here (after Start()) only updates the recorded value for
		// visibility; it cannot reopen the stream at a new rate.
		if msg.SampleRate != nil {
			ms.mu.Lock()
			ms.sampleRateHz = *msg.SampleRate
			ms.mu.Unlock()
		}

	case "session.stop":
		ms.logger.Info("session.stop received", "sessionId", ms.ID)

	case "summary.request":
		ms.RequestSummary()

	default:
		ms.emitError(ErrCodeInvalidMessage, fmt.Sprintf("unknown message type %q", msg.Type), false)
	}
}

func (ms *ManagedSession) emitError(code, message string, retryable bool) {
	ev := ErrorEvent{
		OutboundEvent: OutboundEvent{Type: EventError, Ts: nowMs()},
		Code:          code,
		Message:       message,
	}
	if retryable {
		ev.Retryable = boolPtr(true)
	}
	ms.emit(ev)
}

// handleTranscriptResult is the STT-result pump body: partials feed the
// state machine, finals update the display buffer and fan out the
// translation/correction/suggestion work.
func (ms *ManagedSession) handleTranscriptResult(r TranscriptResult) {
	if r.IsPartial {
		ms.handlePartial(r)
		return
	}
	ms.handleFinal(r)
}

func (ms *ManagedSession) handlePartial(r TranscriptResult) {
	ts := tsOrNow(r.Timestamp)
	emit := ms.session.ExtractPartialEmit(ts, r.Text)
	if emit == nil {
		return
	}

	ms.emit(TranscriptPartialEvent{
		OutboundEvent: OutboundEvent{Type: EventTranscriptPartial, Ts: nowMs()},
		SessionID:     ms.ID,
		Speaker:       ms.cfg.DisplaySpeaker,
		Text:          emit.CaptionText,
		SegmentID:     emit.SegmentID,
	})

	seg := SubtitleSegment{
		ID:        fmt.Sprintf("seg_%d", emit.SegmentID),
		Text:      emit.CaptionText,
		Speaker:   ms.cfg.DisplaySpeaker,
		StartTime: ts,
		IsFinal:   false,
		SegmentID: emit.SegmentID,
	}
	display := ms.session.UpdateDisplayBuffer(seg)
	ms.emit(DisplayUpdateEvent{
		OutboundEvent: OutboundEvent{Type: EventDisplayUpdate, Ts: nowMs()},
		SessionID:     ms.ID,
		Confirmed:     display.Confirmed,
		Current:       display.Current,
	})

	if emit.HasTranslation {
		ms.scheduleTask(func(taskCtx context.Context) {
			ms.translatePartial(taskCtx, ts, emit.TranslationText, emit.SegmentID)
		})
	}
}

func (ms *ManagedSession) handleFinal(r TranscriptResult) {
	ts := tsOrNow(r.Timestamp)
	text, segmentID := ms.session.AddFinalTranscript(ms.cfg.DisplaySpeaker, r.Text, ts)
	if text == "" {
		return
	}

	startTime := ts
	if cur := ms.session.CurrentForSegment(segmentID); cur != nil {
		startTime = cur.StartTime
	}
	endTime := ts
	seg := SubtitleSegment{
		ID:        fmt.Sprintf("seg_%d", segmentID),
		Text:      text,
		Speaker:   ms.cfg.DisplaySpeaker,
		StartTime: startTime,
		EndTime:   &endTime,
		IsFinal:   true,
		SegmentID: segmentID,
	}
	display := ms.session.UpdateDisplayBuffer(seg)

	ms.emit(DisplayUpdateEvent{
		OutboundEvent: OutboundEvent{Type: EventDisplayUpdate, Ts: nowMs()},
		SessionID:     ms.ID,
		Confirmed:     display.Confirmed,
		Current:       display.Current,
	})
	ms.emit(TranscriptFinalEvent{
		OutboundEvent: OutboundEvent{Type: EventTranscriptFinal, Ts: nowMs()},
		SessionID:     ms.ID,
		Speaker:       ms.cfg.DisplaySpeaker,
		Text:          text,
		SegmentID:     segmentID,
	})

	if ms.cfg.CorrectionEnabled {
		ms.correctionQueue.Enqueue(segmentID, text)
	}

	recentContext := ms.session.RecentContext(ms.cfg.MaxContextMessages, ts, true)
	ms.scheduleTask(func(taskCtx context.Context) {
		ms.translateFinal(taskCtx, ts, segmentID, text, recentContext)
	})

	if ms.session.ShouldUpdateSuggestions() {
		ms.tryScheduleSuggestion()
	}
}

func tsOrNow(t time.Time) int64 {
	if t.IsZero() {
		return nowMs()
	}
	return t.UnixMilli()
}

// translatePartial runs the fast, context-free translation path for a
// partial trigger and re-validates staleness against IsPartialTranslationCurrent
// before emitting, since a newer partial or a final may have superseded the
// text by the time the translation call returns.
func (ms *ManagedSession) translatePartial(ctx context.Context, ts int64, text string, segmentID int64) {
	if !ms.acquireTranslation(ctx) {
		return
	}
	defer ms.releaseTranslation()

	start := time.Now()
	translated, err := ms.translator.TranslateFast(ctx, text)
	metricTranslationLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		ms.logger.Warn("partial translation failed", "sessionId", ms.ID, "error", err)
		ms.emitError(ErrCodeTranslation, "translation failed", true)
		return
	}
	if ms.isClosing() {
		return
	}
	if !ms.session.IsPartialTranslationCurrent(ts, text, segmentID) {
		return
	}

	sid := segmentID
	ms.emit(TranslationFinalEvent{
		OutboundEvent:  OutboundEvent{Type: EventTranslationFinal, Ts: nowMs()},
		SessionID:      ms.ID,
		SourceTs:       ts,
		SegmentID:      &sid,
		Speaker:        ms.cfg.DisplaySpeaker,
		SourceText:     text,
		TranslatedText: translated,
	})
}

// translateFinal runs the context-aware translation path for a finalized
// segment and unconditionally records the result (finals are never stale —
// each is a distinct, never-reused segment id).
func (ms *ManagedSession) translateFinal(ctx context.Context, ts int64, segmentID int64, text string, recentContext []string) {
	if !ms.acquireTranslation(ctx) {
		return
	}
	defer ms.releaseTranslation()

	start := time.Now()
	translated, err := ms.translator.TranslateWithContext(ctx, text, recentContext)
	metricTranslationLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		ms.logger.Warn("final translation failed", "sessionId", ms.ID, "error", err)
		ms.emitError(ErrCodeTranslation, "translation failed", true)
		return
	}
	if ms.isClosing() {
		return
	}

	ms.session.AddTranslation(ms.cfg.DisplaySpeaker, ts, text, translated)

	sid := segmentID
	ms.emit(TranslationFinalEvent{
		OutboundEvent:  OutboundEvent{Type: EventTranslationFinal, Ts: nowMs()},
		SessionID:      ms.ID,
		SourceTs:       ts,
		SegmentID:      &sid,
		Speaker:        ms.cfg.DisplaySpeaker,
		SourceText:     text,
		TranslatedText: translated,
	})
}

func (ms *ManagedSession) translateCorrected(ctx context.Context, segmentID int64, correctedText string) {
	if !ms.acquireTranslation(ctx) {
		return
	}
	defer ms.releaseTranslation()

	start := time.Now()
	translated, err := ms.translator.TranslateWithContext(ctx, correctedText, nil)
	metricTranslationLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		ms.logger.Warn("corrected translation failed", "sessionId", ms.ID, "error", err)
		ms.emitError(ErrCodeTranslation, "translation failed", true)
		return
	}
	if ms.isClosing() {
		return
	}

	ms.emit(TranslationCorrectedEvent{
		OutboundEvent:  OutboundEvent{Type: EventTranslationCorrected, Ts: nowMs()},
		SessionID:      ms.ID,
		SegmentID:      segmentID,
		Speaker:        ms.cfg.DisplaySpeaker,
		SourceText:     correctedText,
		TranslatedText: translated,
	})
}

func (ms *ManagedSession) acquireTranslation(ctx context.Context) bool {
	select {
	case ms.translationSem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (ms *ManagedSession) releaseTranslation() {
	<-ms.translationSem
}

// tryScheduleSuggestion implements the drop-not-queue policy: if a
// suggestion is already running, the trigger is simply dropped.
func (ms *ManagedSession) tryScheduleSuggestion() {
	select {
	case ms.suggestionSem <- struct{}{}:
	default:
		return
	}
	ms.scheduleTask(func(taskCtx context.Context) {
		defer func() { <-ms.suggestionSem }()
		ms.generateSuggestions(taskCtx)
	})
}

func (ms *ManagedSession) generateSuggestions(ctx context.Context) {
	recent := ms.session.RecentTranscripts(10)
	lines := make([]string, len(recent))
	for i, t := range recent {
		lines[i] = fmt.Sprintf("%s: %s", t.Speaker, t.Text)
	}

	pairs, err := ms.suggester.GenerateSuggestions(ctx, lines, ms.session.SuggestionsPrompt())
	if err != nil {
		ms.logger.Warn("suggestion generation failed", "sessionId", ms.ID, "error", err)
		ms.emitError(ErrCodeSuggestion, "suggestion generation failed", true)
		return
	}
	if ms.isClosing() {
		return
	}

	ms.session.MarkSuggestionsUpdated()
	ms.emit(SuggestionsUpdateEvent{
		OutboundEvent: OutboundEvent{Type: EventSuggestionsUpdate, Ts: nowMs()},
		SessionID:     ms.ID,
		Items:         pairs,
	})
}

// RequestSummary handles an inbound summary.request control message.
func (ms *ManagedSession) RequestSummary() {
	if ms.summarizer == nil {
		return
	}
	select {
	case ms.summarySem <- struct{}{}:
	default:
		return
	}
	ms.scheduleTask(func(taskCtx context.Context) {
		defer func() { <-ms.summarySem }()
		ms.generateSummary(taskCtx)
	})
}

func (ms *ManagedSession) generateSummary(ctx context.Context) {
	recent := ms.session.RecentTranscripts(1 << 30)
	lines := make([]string, len(recent))
	for i, t := range recent {
		lines[i] = fmt.Sprintf("%s: %s", t.Speaker, t.Text)
	}

	summary, err := ms.summarizer.GenerateSummary(ctx, lines)
	if ms.isClosing() {
		return
	}
	if err != nil {
		ms.logger.Warn("summary generation failed", "sessionId", ms.ID, "error", err)
		ms.emit(SummaryUpdateEvent{
			OutboundEvent: OutboundEvent{Type: EventSummaryUpdate, Ts: nowMs()},
			SessionID:     ms.ID,
			Error:         "summary generation failed",
		})
		return
	}

	ms.emit(SummaryUpdateEvent{
		OutboundEvent:   OutboundEvent{Type: EventSummaryUpdate, Ts: nowMs()},
		SessionID:       ms.ID,
		SummaryMarkdown: summary,
	})
}

func (ms *ManagedSession) runCorrectionPump(ctx context.Context) {
	interval := time.Duration(ms.cfg.CorrectionIntervalSec) * time.Second
	if interval <= 0 {
		interval = 8 * time.Second
	}
	for {
		if ms.isClosing() {
			return
		}
		corrections := ms.correctionQueue.ProcessBatch(ctx, ms.corrector)
		for _, c := range corrections {
			if ms.isClosing() {
				return
			}
			ms.emit(TranscriptCorrectedEvent{
				OutboundEvent: OutboundEvent{Type: EventTranscriptCorrected, Ts: nowMs()},
				SessionID:     ms.ID,
				SegmentID:     c.SegmentID,
				OriginalText:  c.OriginalText,
				CorrectedText: c.CorrectedText,
			})
			segmentID, correctedText := c.SegmentID, c.CorrectedText
			ms.scheduleTask(func(taskCtx context.Context) {
				ms.translateCorrected(taskCtx, segmentID, correctedText)
			})
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}

// scheduleTask runs fn as a tracked, cancellable background task. Every
// spawned task is registered with a completion callback that drops it on
// return; Close cancels all outstanding tasks and joins them.
func (ms *ManagedSession) scheduleTask(fn func(ctx context.Context)) {
	taskCtx, cancel := context.WithCancel(ms.ctx)

	ms.tasksMu.Lock()
	id := ms.nextTID
	ms.nextTID++
	ms.tasks[id] = cancel
	ms.tasksMu.Unlock()

	ms.tasksWG.Add(1)
	go func() {
		defer ms.tasksWG.Done()
		defer func() {
			if r := recover(); r != nil {
				ms.logger.Error("background task panicked", "sessionId", ms.ID, "panic", r)
			}
		}()
		defer func() {
			ms.tasksMu.Lock()
			delete(ms.tasks, id)
			ms.tasksMu.Unlock()
			cancel()
		}()
		fn(taskCtx)
	}()
}

// Close enters graceful shutdown: marks closing, stops the STT stream,
// cancels every outstanding background task and waits for them, waits up to
// shutdownJoinTimeout for the result pump to drain, then closes the event
// channel. Idempotent.
func (ms *ManagedSession) Close() {
	ms.closeOnce.Do(func() {
		// emit() no-ops once closing is set, so the terminal frame must go
		// out first or it is never delivered on any close path.
		ms.emit(SessionStopEvent{OutboundEvent: OutboundEvent{Type: EventSessionStop, Ts: nowMs()}})

		ms.mu.Lock()
		ms.closing = true
		ms.mu.Unlock()

		ms.tasksMu.Lock()
		cancels := make([]context.CancelFunc, 0, len(ms.tasks))
		for _, c := range ms.tasks {
			cancels = append(cancels, c)
		}
		ms.tasksMu.Unlock()
		for _, c := range cancels {
			c()
		}

		ms.cancel()

		done := make(chan struct{})
		go func() {
			ms.tasksWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownJoinTimeout):
			ms.logger.Warn("background tasks did not join before timeout", "sessionId", ms.ID)
		}

		if ms.resultsDone != nil {
			select {
			case <-ms.resultsDone:
			case <-time.After(shutdownJoinTimeout):
				ms.logger.Warn("result pump did not drain before timeout", "sessionId", ms.ID)
			}
		}

		close(ms.events)
	})
}
