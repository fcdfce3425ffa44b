package orchestrator

import "errors"

var (
	ErrSessionIDRequired      = errors.New("orchestrator: session id required")
	ErrInvalidMessage         = errors.New("orchestrator: invalid control message")
	ErrTranscribeStreamFailed = errors.New("orchestrator: transcribe stream failed to start")
	ErrTranslationFailed      = errors.New("orchestrator: translation failed")
	ErrCorrectionFailed       = errors.New("orchestrator: correction failed")
	ErrSuggestionFailed       = errors.New("orchestrator: suggestion generation failed")
	ErrSummaryFailed          = errors.New("orchestrator: summary generation failed")
	ErrSessionClosed          = errors.New("orchestrator: session already closed")
)
