package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/storage"
)

// fakeRecord is an in-memory Persister whose failures can be switched on.
type fakeRecord struct {
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeRecord) Load(context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.data == nil {
		return nil, storage.ErrNotFound
	}
	return f.data, nil
}

func (f *fakeRecord) Save(_ context.Context, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data = append([]byte(nil), data...)
	return nil
}

func newTestStore(t *testing.T, rec Persister) *Store {
	t.Helper()
	base := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	n := 0
	store := NewStore(rec,
		WithClock(func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Minute)
		}),
		WithIDGenerator(func() string { return fmt.Sprintf("s%d", n) }),
	)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func sampleResults() *contracts.AnalysisResults {
	return &contracts.AnalysisResults{
		PotentialReasons: []contracts.Reason{{Name: "Influenza", Description: "Viral"}},
		Solutions: contracts.Solutions{
			CommonSense: []contracts.Solution{{
				Name:        "Rest",
				Description: "Sleep",
				Sources:     []contracts.Source{{Title: "NHS", URL: "https://www.nhs.uk"}},
			}},
			Ayurvedic:    []contracts.Solution{},
			Homeopathic:  []contracts.Solution{},
			Allopathic:   []contracts.Solution{},
			Naturopathic: []contracts.Solution{},
		},
	}
}

func TestStore_CreateIsNewestFirstAndActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeRecord{})

	first, err := store.Create(ctx)
	require.NoError(t, err)
	second, err := store.Create(ctx)
	require.NoError(t, err)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, second, store.ActiveID())

	s := list[0]
	assert.Equal(t, StatusInput, s.Status)
	assert.Empty(t, s.InputText)
	assert.NotNil(t, s.SuggestedSymptoms)
	assert.Nil(t, s.AnalysisResults)
	assert.Equal(t, "Analysis - Mar 14, 2026 3:11:26 PM", s.Name)
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecord{}
	store := newTestStore(t, rec)

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, id, func(s *Session) error {
		s.InputText = "fever"
		return nil
	}))
	require.NoError(t, store.Delete(ctx, id))
	assert.Equal(t, 3, rec.saves)

	reloaded := NewStore(rec)
	require.NoError(t, reloaded.Init(ctx))
	assert.Empty(t, reloaded.List())
}

func TestStore_UpdateMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecord{}
	store := newTestStore(t, rec)

	called := false
	err := store.Update(ctx, "nope", func(*Session) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Zero(t, rec.saves)
}

func TestStore_UpdateRejectsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeRecord{})
	id, err := store.Create(ctx)
	require.NoError(t, err)

	err = store.Update(ctx, id, func(s *Session) error {
		s.AnalysisResults = sampleResults()
		return nil
	})
	require.Error(t, err)

	s, ok := store.Get(id)
	require.True(t, ok)
	assert.Nil(t, s.AnalysisResults)
	assert.Equal(t, StatusInput, s.Status)
}

func TestStore_UpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeRecord{})
	id, err := store.Create(ctx)
	require.NoError(t, err)
	before, _ := store.Get(id)

	require.NoError(t, store.Update(ctx, id, func(s *Session) error {
		s.ID = "other"
		s.CreatedAt = time.Time{}
		return nil
	}))

	after, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestStore_FailedSaveLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecord{}
	store := newTestStore(t, rec)
	id, err := store.Create(ctx)
	require.NoError(t, err)

	rec.saveErr = errors.New("disk full")

	err = store.Update(ctx, id, func(s *Session) error {
		s.InputText = "lost"
		return nil
	})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)

	s, _ := store.Get(id)
	assert.Empty(t, s.InputText)

	_, err = store.Create(ctx)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, id, store.ActiveID())

	require.ErrorAs(t, store.Delete(ctx, id), &perr)
	assert.Equal(t, 1, store.Len())
}

func TestStore_DeleteActiveMovesToFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeRecord{})

	a, _ := store.Create(ctx)
	b, _ := store.Create(ctx)
	c, _ := store.Create(ctx)
	// Order is c, b, a. Make b active, then delete it.
	require.True(t, store.Select(b))

	require.NoError(t, store.Delete(ctx, b))
	assert.Equal(t, c, store.ActiveID())

	// Deleting a non-active session leaves the pointer alone.
	require.NoError(t, store.Delete(ctx, a))
	assert.Equal(t, c, store.ActiveID())

	require.NoError(t, store.Delete(ctx, c))
	assert.Empty(t, store.ActiveID())
	assert.Empty(t, store.List())
	_, ok := store.Active()
	assert.False(t, ok)
}

func TestStore_DeleteActiveOfThree(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeRecord{})

	store.Create(ctx)
	store.Create(ctx)
	active, _ := store.Create(ctx)
	require.Equal(t, active, store.ActiveID())

	require.NoError(t, store.Delete(ctx, active))
	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, list[0].ID, store.ActiveID())
}

func TestStore_SelectUnknown(t *testing.T) {
	store := newTestStore(t, &fakeRecord{})
	assert.False(t, store.Select("missing"))
}

func TestStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeRecord{})
	id, _ := store.Create(ctx)
	require.NoError(t, store.Update(ctx, id, func(s *Session) error {
		ApplyExtraction(s, "text", []contracts.Symptom{{Name: "Fever", Explanation: "x"}})
		return ApplyAnalysis(s, sampleResults(), []string{"Fever"})
	}))

	s, _ := store.Get(id)
	s.SuggestedSymptoms[0].Confirmed = false
	s.AnalyzedSymptoms[0] = "changed"
	s.AnalysisResults.Solutions.CommonSense[0].Sources[0].URL = "changed"

	again, _ := store.Get(id)
	assert.True(t, again.SuggestedSymptoms[0].Confirmed)
	assert.Equal(t, []string{"Fever"}, again.AnalyzedSymptoms)
	assert.Equal(t, "https://www.nhs.uk", again.AnalysisResults.Solutions.CommonSense[0].Sources[0].URL)
}

func TestStore_InitActiveIsFirst(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecord{}
	store := newTestStore(t, rec)
	store.Create(ctx)
	newest, _ := store.Create(ctx)

	reloaded := NewStore(rec)
	require.NoError(t, reloaded.Init(ctx))
	assert.Equal(t, newest, reloaded.ActiveID())
	assert.Len(t, reloaded.Metas(), 2)
	assert.True(t, reloaded.Metas()[0].Active)
}

func TestStore_InitDegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	tests := map[string]*fakeRecord{
		"corrupt json":      {data: []byte(`[{"id":`)},
		"wrong shape":       {data: []byte(`{"id":"a"}`)},
		"broken invariant":  {data: []byte(`[{"id":"a","status":"input","analysisResults":{"potentialReasons":[],"solutions":{}}}]`)},
		"unknown status":    {data: []byte(`[{"id":"a","status":"done"}]`)},
		"unreadable record": {loadErr: errors.New("permission denied")},
	}

	for name, rec := range tests {
		t.Run(name, func(t *testing.T) {
			store := NewStore(rec)
			err := store.Init(ctx)
			var perr *PersistenceError
			require.ErrorAs(t, err, &perr)
			assert.Empty(t, store.List())
			assert.Empty(t, store.ActiveID())

			// Still usable after the failed load.
			rec.loadErr = nil
			_, err = store.Create(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestStore_InitAbsentIsNotAnError(t *testing.T) {
	store := NewStore(&fakeRecord{})
	require.NoError(t, store.Init(context.Background()))
	assert.Zero(t, store.Len())
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sessions := []Session{
		{
			ID:        "b",
			Name:      "Analysis - Jan 2, 2026 3:04:05 AM",
			CreatedAt: created.Add(time.Hour),
			Status:    StatusComplete,
			InputText: "fever and cough",
			SuggestedSymptoms: []ConfirmedSymptom{
				{Symptom: contracts.Symptom{Name: "Fever", Explanation: "noted"}, Confirmed: true},
				{Symptom: contracts.Symptom{Name: "Cough", Explanation: "noted"}, Confirmed: false},
			},
			AnalyzedSymptoms: []string{"Fever", "Chills"},
			AnalysisResults:  sampleResults(),
		},
		{
			ID:                "a",
			Name:              "Analysis - Jan 2, 2026 2:04:05 AM",
			CreatedAt:         created,
			Status:            StatusInput,
			SuggestedSymptoms: []ConfirmedSymptom{},
		},
	}

	data, err := Encode(sessions)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sessions, decoded)

	// Wire field names are camelCase.
	assert.Contains(t, string(data), `"suggestedSymptoms":[{"name":"Fever","explanation":"noted","confirmed":true}`)
	assert.Contains(t, string(data), `"analysisResults":null`)
}

func TestEncodeDecode_Empty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, decoded)
	assert.Empty(t, decoded)
}

func TestDecode_DuplicateIDs(t *testing.T) {
	_, err := Decode([]byte(`[{"id":"a","status":"input"},{"id":"a","status":"input"}]`))
	assert.Error(t, err)
}
