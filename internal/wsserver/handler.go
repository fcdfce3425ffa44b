// Package wsserver bridges one accepted WebSocket connection to one
// orchestrator.ManagedSession: a read loop feeds inbound audio/control
// frames in, a single writer goroutine drains the session's event channel
// and serializes every outbound frame. Only one goroutine ever calls
// conn.Write, since coder/websocket connections are not safe for
// concurrent writers.
package wsserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/hashing-labs/meetassist-orchestrator/internal/metrics"
	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

// SessionFactory builds a ManagedSession for one accepted connection,
// wiring in whatever provider collaborators the server was configured with.
type SessionFactory func(ctx context.Context, sessionID string) (*orchestrator.ManagedSession, error)

type Handler struct {
	newSession SessionFactory
	logger     *slog.Logger
}

func NewHandler(newSession SessionFactory, logger *slog.Logger) *Handler {
	return &Handler{newSession: newSession, logger: logger}
}

// ServeMeeting handles one /ws/v1/meetings/{sessionId} connection for its
// entire lifetime; it does not return until the socket closes.
func (h *Handler) ServeMeeting(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "sessionId", sessionID, "error", err)
		return
	}

	ctx := r.Context()

	if sessionID == "" {
		h.writeErrorAndClose(ctx, conn, orchestrator.ErrCodeSessionNotFound, orchestrator.ErrSessionIDRequired.Error())
		return
	}

	ms, err := h.newSession(ctx, sessionID)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "failed to create session")
		h.logger.Error("session construction failed", "sessionId", sessionID, "error", err)
		return
	}

	leftover, ok := h.primeSampleRate(ctx, conn, ms, sessionID)
	if !ok {
		return
	}

	if err := ms.Start(); err != nil {
		h.writeErrorAndClose(ctx, conn, orchestrator.ErrCodeTranscribeStream, "failed to start transcription stream")
		h.logger.Error("session start failed", "sessionId", sessionID, "error", err)
		return
	}

	metrics.SessionsStarted.Inc()
	defer metrics.SessionsClosed.Inc()

	done := make(chan struct{})
	go h.writeLoop(ctx, conn, ms, done)

	if leftover != nil {
		h.dispatch(ms, leftover.msgType, leftover.data)
	}
	h.readLoop(ctx, conn, ms)

	ms.Close()
	<-done
	conn.Close(websocket.StatusNormalClosure, "")
}

type pendingFrame struct {
	msgType websocket.MessageType
	data    []byte
}

// primeSampleRate reads the connection's first frame looking for a
// session.start sample-rate announcement, since that must reach the STT
// provider before ManagedSession.Start() opens its stream. Any other first
// frame (audio arriving without a preceding session.start, or a different
// control message) is held and replayed through the normal dispatch path
// once the session is started, so nothing sent before session.start is
// lost. The bool result is false if the connection died before Start()
// could run, in which case the caller must not proceed.
func (h *Handler) primeSampleRate(ctx context.Context, conn *websocket.Conn, ms *orchestrator.ManagedSession, sessionID string) (*pendingFrame, bool) {
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return nil, false
	}

	if msgType == websocket.MessageText {
		var msg orchestrator.InboundMessage
		if json.Unmarshal(data, &msg) == nil && msg.Type == "session.start" {
			if msg.SampleRate != nil {
				ms.SetSampleRate(*msg.SampleRate)
			}
			h.logger.Info("session.start received", "sessionId", sessionID, "sampleRate", msg.SampleRate)
			return nil, true
		}
	}

	return &pendingFrame{msgType: msgType, data: data}, true
}

func (h *Handler) dispatch(ms *orchestrator.ManagedSession, msgType websocket.MessageType, data []byte) {
	switch msgType {
	case websocket.MessageBinary:
		ms.HandleAudio(data)
	case websocket.MessageText:
		ms.HandleControlMessage(data)
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, ms *orchestrator.ManagedSession) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		h.dispatch(ms, msgType, data)
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, ms *orchestrator.ManagedSession, done chan<- struct{}) {
	defer close(done)
	for event := range ms.Events() {
		recordEventMetric(event)
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal outbound event", "error", err)
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			return
		}
	}
}

func (h *Handler) writeErrorAndClose(ctx context.Context, conn *websocket.Conn, code, message string) {
	ev := orchestrator.ErrorEvent{
		OutboundEvent: orchestrator.OutboundEvent{Type: orchestrator.EventError, Ts: time.Now().UnixMilli()},
		Code:          code,
		Message:       message,
	}
	payload, _ := json.Marshal(ev)
	conn.Write(ctx, websocket.MessageText, payload)
	conn.Close(websocket.StatusInternalError, message)
}

func recordEventMetric(event any) {
	switch e := event.(type) {
	case orchestrator.TranscriptFinalEvent:
		metrics.TranscriptsFinal.Inc()
	case orchestrator.ErrorEvent:
		metrics.ErrorsByCode.WithLabelValues(e.Code).Inc()
	}
}
