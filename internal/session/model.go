package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
)

// Status is the step a session has reached.
type Status string

const (
	StatusInput        Status = "input"
	StatusConfirmation Status = "confirmation"
	StatusComplete     Status = "complete"
)

// Ordinal orders statuses: input=0, confirmation=1, complete=2. Unknown
// values are -1.
func (s Status) Ordinal() int {
	switch s {
	case StatusInput:
		return 0
	case StatusConfirmation:
		return 1
	case StatusComplete:
		return 2
	}
	return -1
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool { return s.Ordinal() >= 0 }

// ConfirmedSymptom is a suggested symptom plus the user's inclusion toggle.
type ConfirmedSymptom struct {
	contracts.Symptom
	Confirmed bool `json:"confirmed"`
}

// Session represents one analysis run.
type Session struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	CreatedAt         time.Time                  `json:"createdAt"`
	Status            Status                     `json:"status"`
	InputText         string                     `json:"inputText"`
	SuggestedSymptoms []ConfirmedSymptom         `json:"suggestedSymptoms"`
	AnalyzedSymptoms  []string                   `json:"analyzedSymptoms,omitempty"`
	AnalysisResults   *contracts.AnalysisResults `json:"analysisResults"`
}

// ConfirmedNames returns the names of the confirmed symptoms in display order.
func (s *Session) ConfirmedNames() []string {
	names := make([]string, 0, len(s.SuggestedSymptoms))
	for _, sym := range s.SuggestedSymptoms {
		if sym.Confirmed {
			names = append(names, sym.Name)
		}
	}
	return names
}

var (
	errResultsWithoutComplete = errors.New("analysis results present while status is not complete")
	errResultsWithoutSymptoms = errors.New("analysis results present without analysed symptoms")
)

// Validate checks the consistency rules every stored session must satisfy.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is empty")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("session %s: unknown status %q", s.ID, s.Status)
	}
	if s.AnalysisResults != nil {
		if s.Status != StatusComplete {
			return fmt.Errorf("session %s: %w", s.ID, errResultsWithoutComplete)
		}
		if len(s.AnalyzedSymptoms) == 0 {
			return fmt.Errorf("session %s: %w", s.ID, errResultsWithoutSymptoms)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	if s.SuggestedSymptoms != nil {
		out.SuggestedSymptoms = append([]ConfirmedSymptom(nil), s.SuggestedSymptoms...)
	}
	if s.AnalyzedSymptoms != nil {
		out.AnalyzedSymptoms = append([]string(nil), s.AnalyzedSymptoms...)
	}
	out.AnalysisResults = cloneResults(s.AnalysisResults)
	return out
}

func cloneResults(r *contracts.AnalysisResults) *contracts.AnalysisResults {
	if r == nil {
		return nil
	}
	out := &contracts.AnalysisResults{}
	if r.PotentialReasons != nil {
		out.PotentialReasons = append([]contracts.Reason(nil), r.PotentialReasons...)
	}
	out.Solutions = contracts.Solutions{
		CommonSense:  cloneSolutions(r.Solutions.CommonSense),
		Ayurvedic:    cloneSolutions(r.Solutions.Ayurvedic),
		Homeopathic:  cloneSolutions(r.Solutions.Homeopathic),
		Allopathic:   cloneSolutions(r.Solutions.Allopathic),
		Naturopathic: cloneSolutions(r.Solutions.Naturopathic),
	}
	return out
}

func cloneSolutions(in []contracts.Solution) []contracts.Solution {
	if in == nil {
		return nil
	}
	out := make([]contracts.Solution, len(in))
	for i, sol := range in {
		out[i] = sol
		if sol.Sources != nil {
			out[i].Sources = append([]contracts.Source(nil), sol.Sources...)
		}
	}
	return out
}

// Meta is a lightweight representation for history listings.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}
