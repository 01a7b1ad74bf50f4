package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendOnly(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var mirrored []Entry
	l := New(
		WithClock(func() time.Time { return at }),
		WithMirror(func(e Entry) { mirrored = append(mirrored, e) }),
	)

	l.Record(TypeAPIRequest, "Extracting symptoms...", map[string]string{"prompt": "p"})
	l.Record(TypeAPIResponse, "Symptoms extracted successfully.", nil)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, TypeAPIRequest, entries[0].Type)
	assert.Equal(t, TypeAPIResponse, entries[1].Type)
	assert.Equal(t, at, entries[0].Timestamp)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.Equal(t, entries, mirrored)

	// Callers get a copy.
	entries[0].Message = "changed"
	assert.Equal(t, "Extracting symptoms...", l.Entries()[0].Message)
}

func TestLog_Clear(t *testing.T) {
	l := New()
	l.Record(TypeInfo, "one", nil)
	l.Record(TypeError, "two", nil)
	assert.Equal(t, 2, l.Len())

	l.Clear()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Entries())

	l.Record(TypeSuccess, "three", nil)
	assert.Equal(t, 1, l.Len())
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.Record(TypeInfo, "ignored", nil)
}
