// Package httpapi assembles the HTTP surface: health check, a synchronous
// translate endpoint, Prometheus metrics, and the WebSocket meeting endpoint,
// behind a CORS middleware mirroring the original's CORSMiddleware intent
// without adopting a web framework.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hashing-labs/meetassist-orchestrator/internal/metrics"
	"github.com/hashing-labs/meetassist-orchestrator/internal/wsserver"
	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

type Server struct {
	mux            *http.ServeMux
	allowedOrigins []string
	logger         *slog.Logger
}

func NewServer(wsHandler *wsserver.Handler, translator orchestrator.Translator, allowedOrigins []string, logger *slog.Logger) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/translate/ko-en", s.handleTranslate(translator))
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("/ws/v1/meetings/{sessionId}", wsHandler.ServeMeeting)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.withRequestID(s.withCORS(s.mux)).ServeHTTP(w, r)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// withRequestID attaches a correlation id to every request's logs, grounded
// on the request-scoped correlation-id pattern used for session/request
// tracking elsewhere in the retrieved corpus.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http request", "requestId", reqID, "method", r.Method, "path", r.URL.Path, "durationMs", time.Since(start).Milliseconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (s *Server) handleTranslate(translator orchestrator.Translator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}

		translated, err := translator.TranslateFast(r.Context(), req.Text)
		if err != nil {
			s.logger.Error("quick translate failed", "error", err)
			http.Error(w, "translation failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(translateResponse{TranslatedText: translated})
	}
}
