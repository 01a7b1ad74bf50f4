package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
)

// Listener receives orchestrator events. Calls are synchronous, on the
// goroutine that performed the action, after all state changes are applied.
type Listener interface {
	OnEvent(ctx context.Context, e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, e Event)

func (f ListenerFunc) OnEvent(ctx context.Context, e Event) { f(ctx, e) }

// Listeners fans an event out in order.
type Listeners []Listener

func (ls Listeners) OnEvent(ctx context.Context, e Event) {
	for _, l := range ls {
		l.OnEvent(ctx, e)
	}
}

// AuditListener writes workflow milestones to the debug log. Generation
// requests and responses are recorded by the gateway itself.
type AuditListener struct{ R audit.Recorder }

func (a AuditListener) OnEvent(_ context.Context, e Event) {
	switch ev := e.(type) {
	case SessionCreated:
		a.R.Record(audit.TypeInfo, "New analysis started.", map[string]any{"id": ev.Session, "name": ev.Name})
	case SessionDeleted:
		a.R.Record(audit.TypeInfo, "Analysis deleted.", map[string]any{"id": ev.Session})
	case SessionReset:
		a.R.Record(audit.TypeInfo, "Workflow reset by user.", nil)
	case ExtractionFailed:
		if ev.Source == SourceDocument {
			a.R.Record(audit.TypeError, "Failed to process PDF.", map[string]any{"error": errString(ev.Err)})
		}
	case ExtractionSucceeded:
		a.R.Record(audit.TypeSuccess, "Symptoms ready for confirmation.", map[string]any{"count": ev.Symptoms})
	case AnalysisSucceeded:
		a.R.Record(audit.TypeSuccess, "Analysis complete.", map[string]any{"potentialReasons": ev.Reasons})
	}
}

// LoggerListener mirrors events to zap.
type LoggerListener struct{ L *zap.Logger }

func (h LoggerListener) OnEvent(_ context.Context, e Event) {
	fields := []zap.Field{zap.String("event", e.Kind()), zap.String("session_id", e.SessionID())}
	switch ev := e.(type) {
	case ExtractionFailed:
		h.L.Warn("workflow step failed", append(fields, zap.String("source", ev.Source), zap.Error(ev.Err))...)
	case AnalysisFailed:
		h.L.Warn("workflow step failed", append(fields, zap.Error(ev.Err))...)
	case QueryFailed:
		h.L.Warn("workflow step failed", append(fields,
			zap.String("category", string(ev.Category)), zap.Int("index", ev.Index), zap.Error(ev.Err))...)
	case AnalysisStarted:
		h.L.Info("workflow event", append(fields, zap.Strings("symptoms", ev.Symptoms))...)
	case QueryStarted, QuerySucceeded, TabChanged:
		h.L.Debug("workflow event", fields...)
	default:
		h.L.Info("workflow event", fields...)
	}
}

// ChanListener forwards events to a channel. Sends never block: when the
// channel is full the event is dropped.
type ChanListener struct{ Ch chan<- Event }

func (h ChanListener) OnEvent(_ context.Context, e Event) {
	select {
	case h.Ch <- e:
	default:
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
