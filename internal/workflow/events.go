package workflow

import (
	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
)

// Event is published by the orchestrator after every user action.
type Event interface {
	Kind() string
	SessionID() string
}

// Extraction sources.
const (
	SourceText     = "text"
	SourceDocument = "document"
)

type ExtractionStarted struct {
	Session string
	Source  string
}

type ExtractionSucceeded struct {
	Session  string
	Symptoms int
}

type ExtractionFailed struct {
	Session string
	Source  string
	Message string
	Err     error
}

type AnalysisStarted struct {
	Session  string
	Symptoms []string
}

type AnalysisSucceeded struct {
	Session string
	Reasons int
}

type AnalysisFailed struct {
	Session string
	Message string
	Err     error
}

type QueryStarted struct {
	Session  string
	Category contracts.Category
	Index    int
	Question string
}

type QuerySucceeded struct {
	Session  string
	Category contracts.Category
	Index    int
	Turns    int
}

type QueryFailed struct {
	Session  string
	Category contracts.Category
	Index    int
	Message  string
	Err      error
}

type SessionCreated struct {
	Session string
	Name    string
}

type SessionSelected struct {
	Session string
	Tab     session.Tab
}

// SessionDeleted carries the active session after the delete, "" if none.
type SessionDeleted struct {
	Session string
	Active  string
}

type SessionReset struct {
	Session string
}

type TabChanged struct {
	Session string
	Tab     session.Tab
}

func (ExtractionStarted) Kind() string   { return "extraction_started" }
func (ExtractionSucceeded) Kind() string { return "extraction_succeeded" }
func (ExtractionFailed) Kind() string    { return "extraction_failed" }
func (AnalysisStarted) Kind() string     { return "analysis_started" }
func (AnalysisSucceeded) Kind() string   { return "analysis_succeeded" }
func (AnalysisFailed) Kind() string      { return "analysis_failed" }
func (QueryStarted) Kind() string        { return "query_started" }
func (QuerySucceeded) Kind() string      { return "query_succeeded" }
func (QueryFailed) Kind() string         { return "query_failed" }
func (SessionCreated) Kind() string      { return "session_created" }
func (SessionSelected) Kind() string     { return "session_selected" }
func (SessionDeleted) Kind() string      { return "session_deleted" }
func (SessionReset) Kind() string        { return "session_reset" }
func (TabChanged) Kind() string          { return "tab_changed" }

func (e ExtractionStarted) SessionID() string   { return e.Session }
func (e ExtractionSucceeded) SessionID() string { return e.Session }
func (e ExtractionFailed) SessionID() string    { return e.Session }
func (e AnalysisStarted) SessionID() string     { return e.Session }
func (e AnalysisSucceeded) SessionID() string   { return e.Session }
func (e AnalysisFailed) SessionID() string      { return e.Session }
func (e QueryStarted) SessionID() string        { return e.Session }
func (e QuerySucceeded) SessionID() string      { return e.Session }
func (e QueryFailed) SessionID() string         { return e.Session }
func (e SessionCreated) SessionID() string      { return e.Session }
func (e SessionSelected) SessionID() string     { return e.Session }
func (e SessionDeleted) SessionID() string      { return e.Session }
func (e SessionReset) SessionID() string        { return e.Session }
func (e TabChanged) SessionID() string          { return e.Session }
