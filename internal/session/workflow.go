package session

import (
	"errors"
	"fmt"

	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
)

// ErrInvalidTransition is returned when a step is applied to a session whose
// status does not allow it.
var ErrInvalidTransition = errors.New("invalid status transition")

// ApplyExtraction records a successful extraction. All suggested symptoms
// start confirmed. Any earlier analysis is discarded, even from complete, so
// stale results never sit next to new symptoms.
func ApplyExtraction(s *Session, text string, symptoms []contracts.Symptom) {
	suggested := make([]ConfirmedSymptom, len(symptoms))
	for i, sym := range symptoms {
		suggested[i] = ConfirmedSymptom{Symptom: sym, Confirmed: true}
	}
	s.InputText = text
	s.SuggestedSymptoms = suggested
	s.AnalyzedSymptoms = nil
	s.AnalysisResults = nil
	s.Status = StatusConfirmation
}

// ApplyAnalysis attaches results and completes the session. names is the
// full list sent to the analysis; it replaces AnalyzedSymptoms and leaves the
// suggested list as extraction produced it.
func ApplyAnalysis(s *Session, results *contracts.AnalysisResults, names []string) error {
	if s.Status.Ordinal() < StatusConfirmation.Ordinal() {
		return fmt.Errorf("%w: analysis from %s", ErrInvalidTransition, s.Status)
	}
	if results == nil {
		return fmt.Errorf("%w: nil analysis results", ErrInvalidTransition)
	}

	if len(names) == 0 {
		return fmt.Errorf("%w: analysis without symptoms", ErrInvalidTransition)
	}

	s.AnalyzedSymptoms = append([]string(nil), names...)
	s.AnalysisResults = results
	s.Status = StatusComplete
	return nil
}

// ToggleSymptom flips the confirmed flag of the symptom at index i.
func ToggleSymptom(s *Session, i int) error {
	if s.Status.Ordinal() < StatusConfirmation.Ordinal() {
		return fmt.Errorf("%w: toggle from %s", ErrInvalidTransition, s.Status)
	}
	if i < 0 || i >= len(s.SuggestedSymptoms) {
		return fmt.Errorf("symptom index %d out of range [0,%d)", i, len(s.SuggestedSymptoms))
	}
	s.SuggestedSymptoms[i].Confirmed = !s.SuggestedSymptoms[i].Confirmed
	return nil
}

// Reset returns the session to a clean input step ("Start Over").
func Reset(s *Session) {
	s.Status = StatusInput
	s.InputText = ""
	s.SuggestedSymptoms = []ConfirmedSymptom{}
	s.AnalyzedSymptoms = nil
	s.AnalysisResults = nil
}
