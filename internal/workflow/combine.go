package workflow

import (
	"strings"

	"github.com/apmishra/gai-symptom-resolver/internal/session"
)

// SplitAdditional splits freeform symptom input on commas and newlines.
// Entries are trimmed and empty ones dropped; duplicates are kept.
func SplitAdditional(additional string) []string {
	parts := strings.FieldsFunc(additional, func(r rune) bool { return r == ',' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CombineSymptoms returns the confirmed suggested names in display order
// followed by the freeform names.
func CombineSymptoms(suggested []session.ConfirmedSymptom, additional string) []string {
	names := make([]string, 0, len(suggested))
	for _, s := range suggested {
		if s.Confirmed {
			names = append(names, s.Name)
		}
	}
	return append(names, SplitAdditional(additional)...)
}
