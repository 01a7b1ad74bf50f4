package workflow

import (
	"errors"
	"fmt"

	"github.com/apmishra/gai-symptom-resolver/internal/document"
	"github.com/apmishra/gai-symptom-resolver/internal/engine"
	"github.com/apmishra/gai-symptom-resolver/internal/gateway"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
)

// Error taxonomy seen by callers of the orchestrator.
type (
	ValidationError  = gateway.ValidationError
	GenerationError  = gateway.GenerationError
	ExtractionError  = document.ExtractionError
	PersistenceError = session.PersistenceError
)

var (
	ErrBusy              = errors.New("an action is already in progress for this session")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoResults         = errors.New("session has no analysis results")
	ErrTabLocked         = session.ErrTabLocked
	ErrInvalidTransition = session.ErrInvalidTransition
)

// User-facing messages. Full detail goes to the audit log.
const (
	MsgEmptyInput       = "Please provide some text or upload a PDF to analyze."
	MsgNotPDF           = "Please upload a PDF file."
	MsgPDFFailed        = "Failed to process PDF. Please try again or paste the text manually."
	MsgExtractFailed    = "Failed to extract symptoms. Please check the debug log for more details."
	MsgNoSymptoms       = "Please select or add at least one symptom."
	MsgAnalysisFailed   = "Failed to get analysis. Please check the debug log for more details."
	MsgEmptyQuestion    = "Please enter a question."
	MsgQueryFailed      = "Sorry, I couldn't get an answer. Please try again."
	MsgSaveFailed       = "Failed to save the session. Your last change was not kept."
	MsgStepNotAvailable = "That step is not available yet."
	MsgInvalidKey       = "The API key was rejected. Please check it and try again."
	MsgRateLimited      = "The generation service is rate limiting requests. Please try again later."
	MsgUnavailable      = "The generation service is unavailable right now. Please try again in a moment."
)

// UserMessage maps an orchestrator error to the short text shown to the
// user. Provider failures are told apart by their classification; anything
// else gets fallback.
func UserMessage(err error, fallback string) string {
	var pe *PersistenceError
	var ee *engine.EngineError
	switch {
	case errors.As(err, &pe):
		return MsgSaveFailed
	case errors.Is(err, ErrInvalidTransition):
		return MsgStepNotAvailable
	case errors.As(err, &ee):
		switch {
		case ee.IsAuth:
			return MsgInvalidKey
		case ee.IsRateLimit, ee.IsQuota:
			if ee.RetryAfter != "" {
				return fmt.Sprintf("%s (retry after %s)", MsgRateLimited, ee.RetryAfter)
			}
			return MsgRateLimited
		case ee.Class == engine.RetryClassRetryable:
			return MsgUnavailable
		}
	}
	return fallback
}
