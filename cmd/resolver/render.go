package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/engine"
	"github.com/apmishra/gai-symptom-resolver/internal/prompts"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
	"github.com/apmishra/gai-symptom-resolver/internal/workflow"
)

const timeLayout = "2006-01-02 15:04:05"

func renderView(w io.Writer, v workflow.View) {
	unlocked := make([]string, len(v.Unlocked))
	for i, t := range v.Unlocked {
		unlocked[i] = string(t)
	}
	fmt.Fprintf(w, "%s  [%s]  tab=%s  (unlocked: %s)\n", v.Session.Name, v.Session.Status, v.Tab, strings.Join(unlocked, ", "))
	if v.Busy {
		fmt.Fprintln(w, "working...")
	}
	if v.Error != "" {
		fmt.Fprintf(w, "error: %s\n", v.Error)
	}

	switch v.Tab {
	case session.TabInput:
		if v.Session.InputText == "" {
			fmt.Fprintln(w, "Paste your symptoms with `analyze <text>` or load a report with `pdf <path>`.")
			return
		}
		fmt.Fprintf(w, "input:\n%s\n", indent(v.Session.InputText))
	case session.TabConfirmation:
		renderSymptoms(w, v.Session.SuggestedSymptoms)
	case session.TabResults:
		if v.Session.AnalysisResults != nil {
			fmt.Fprintf(w, "analysed: %s\n", strings.Join(v.Session.AnalyzedSymptoms, ", "))
			renderResults(w, v.Session.AnalysisResults)
		}
	}
}

func renderSymptoms(w io.Writer, symptoms []session.ConfirmedSymptom) {
	if len(symptoms) == 0 {
		fmt.Fprintln(w, "No symptoms were found. Add your own with `confirm <symptom, symptom>`.")
		return
	}
	fmt.Fprintln(w, "symptoms:")
	for i, s := range symptoms {
		mark := " "
		if s.Confirmed {
			mark = "x"
		}
		fmt.Fprintf(w, "  %d. [%s] %s - %s\n", i+1, mark, s.Name, s.Explanation)
	}
}

func renderResults(w io.Writer, r *contracts.AnalysisResults) {
	fmt.Fprintln(w, "potential reasons:")
	for _, reason := range r.PotentialReasons {
		fmt.Fprintf(w, "  - %s: %s\n", reason.Name, reason.Description)
	}
	r.Solutions.Each(func(c contracts.Category, sols []contracts.Solution) {
		fmt.Fprintf(w, "%s (%s):\n", c.Title(), c)
		if len(sols) == 0 {
			fmt.Fprintln(w, "  (none)")
			return
		}
		for i, sol := range sols {
			fmt.Fprintf(w, "  %d. %s: %s\n", i+1, sol.Name, sol.Description)
			for _, src := range sol.Sources {
				fmt.Fprintf(w, "       %s <%s>\n", src.Title, src.URL)
			}
		}
	})
}

func renderHistory(w io.Writer, metas []session.Meta) {
	if len(metas) == 0 {
		fmt.Fprintln(w, "no sessions")
		return
	}
	for i, m := range metas {
		active := " "
		if m.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%s %d. %s\t%s\t%s\t%s\n", active, i+1, m.ID, m.Name, m.Status, m.CreatedAt.Local().Format(timeLayout))
	}
}

func renderChat(w io.Writer, history []engine.ChatMessage) {
	if len(history) == 0 {
		fmt.Fprintln(w, "no questions asked yet")
		return
	}
	for _, m := range history {
		who := "you"
		if m.Role == engine.RoleAssistant {
			who = "source"
		}
		fmt.Fprintf(w, "%s> %s\n", who, m.Content)
	}
}

// renderLog lists entries oldest first.
func renderLog(w io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "debug log is empty")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-12s %s\n", e.Timestamp.Local().Format(timeLayout), e.Type, e.Message)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}

// renderPrompts lists every template id with its versions; the one used by
// default is starred and deprecated versions are marked.
func renderPrompts(w io.Writer, registry *prompts.PromptRegistry) error {
	for _, id := range registry.List() {
		latest, err := registry.GetLatest(id)
		if err != nil {
			return err
		}
		versions := registry.Versions(id)
		labels := make([]string, len(versions))
		for i, v := range versions {
			labels[i] = string(v)
			if p, err := registry.Get(id, v); err == nil && p.Deprecated {
				labels[i] += " (deprecated)"
			}
			if v == latest.Version {
				labels[i] += "*"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, strings.Join(labels, ", "), latest.Description)
	}
	return nil
}
