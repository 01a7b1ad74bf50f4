package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
)

func TestCombineSymptoms(t *testing.T) {
	suggested := []session.ConfirmedSymptom{
		{Confirmed: true}, {Confirmed: true},
	}
	suggested[0].Name, suggested[1].Name = "Fever", "Cough"

	got := CombineSymptoms(suggested, "Fatigue, Headache\nChills")
	assert.Equal(t, []string{"Fever", "Cough", "Fatigue", "Headache", "Chills"}, got)
}

func TestSplitAdditional(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{" , \n,", []string{}},
		{"Nausea", []string{"Nausea"}},
		{"Nausea,,nausea\r\n Nausea ", []string{"Nausea", "nausea", "Nausea"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitAdditional(tt.in), "%q", tt.in)
	}
}

func TestListeners_FanOutInOrder(t *testing.T) {
	var got []string
	ls := Listeners{
		ListenerFunc(func(_ context.Context, e Event) { got = append(got, "a:"+e.Kind()) }),
		ListenerFunc(func(_ context.Context, e Event) { got = append(got, "b:"+e.Kind()) }),
	}
	ls.OnEvent(context.Background(), SessionReset{Session: "s1"})
	assert.Equal(t, []string{"a:session_reset", "b:session_reset"}, got)
}

func TestAuditListener(t *testing.T) {
	log := audit.New()
	l := AuditListener{R: log}
	ctx := context.Background()

	l.OnEvent(ctx, SessionReset{Session: "s1"})
	l.OnEvent(ctx, ExtractionFailed{Session: "s1", Source: SourceDocument, Err: errors.New("bad xref")})
	l.OnEvent(ctx, ExtractionFailed{Session: "s1", Source: SourceText, Err: errors.New("ignored")})
	l.OnEvent(ctx, AnalysisSucceeded{Session: "s1", Reasons: 2})
	l.OnEvent(ctx, TabChanged{Session: "s1", Tab: session.TabInput})

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, audit.TypeInfo, entries[0].Type)
	assert.Equal(t, "Workflow reset by user.", entries[0].Message)
	assert.Equal(t, audit.TypeError, entries[1].Type)
	assert.Equal(t, map[string]any{"error": "bad xref"}, entries[1].Data)
	assert.Equal(t, audit.TypeSuccess, entries[2].Type)
}

func TestLoggerListener(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := LoggerListener{L: zap.New(core)}
	ctx := context.Background()

	l.OnEvent(ctx, AnalysisFailed{Session: "s1", Err: errors.New("schema mismatch")})
	l.OnEvent(ctx, SessionCreated{Session: "s2"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "analysis_failed", entries[0].ContextMap()["event"])
	assert.Equal(t, "s1", entries[0].ContextMap()["session_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestChanListener_DropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	l := ChanListener{Ch: ch}

	l.OnEvent(context.Background(), SessionCreated{Session: "s1"})
	l.OnEvent(context.Background(), SessionCreated{Session: "s2"})

	require.Len(t, ch, 1)
	assert.Equal(t, "s1", (<-ch).SessionID())
}
