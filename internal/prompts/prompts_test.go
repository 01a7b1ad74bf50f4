package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	assert.Equal(t, []string{IDAnalysis, IDPreamble, IDSourceQA, IDSymptomExtraction}, DefaultRegistry().List())
}

func TestExtractionPrompt(t *testing.T) {
	p, err := ExtractionPrompt("Patient reports fever of 38.5C.")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "From now on, act as my expert medical research assistant"))
	assert.Contains(t, p, "DISCLAIMER: I am an AI assistant")
	assert.Contains(t, p, "Medical Text:\n---\nPatient reports fever of 38.5C.\n---")
}

func TestExtractionPrompt_PlaceholderInInput(t *testing.T) {
	p, err := ExtractionPrompt("literal {{text}} stays")
	require.NoError(t, err)
	assert.Contains(t, p, "literal {{text}} stays")
}

func TestAnalysisPrompt(t *testing.T) {
	p, err := AnalysisPrompt([]string{"Fever", "Cough", "Fatigue"})
	require.NoError(t, err)
	assert.Contains(t, p, "Confirmed Symptoms:\n---\n- Fever\n- Cough\n- Fatigue\n---")
}

func TestSourceQAInstruction(t *testing.T) {
	p, err := SourceQAInstruction("Rest", "Sleep eight hours.", []string{"https://a.example", "https://b.example"})
	require.NoError(t, err)

	assert.Contains(t, p, "Source Name: Rest")
	assert.Contains(t, p, "---\nSleep eight hours.\nURL: https://a.example\nURL: https://b.example\n---")
	assert.Contains(t, p, RefusalText)
	assert.Contains(t, p, "Do not use outside knowledge.")
}

func TestBuilder_UnknownVariable(t *testing.T) {
	b, err := NewPromptBuilder(DefaultRegistry(), IDAnalysis, PromptV1)
	require.NoError(t, err)
	_, err = b.SetVariable("missing", "x").Build()
	assert.Error(t, err)
}

func TestRegistry_Versions(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "p", Version: "1.9.0", Content: "old"})
	r.Register(&Prompt{ID: "p", Version: "1.10.0", Content: "new"})
	r.Register(&Prompt{ID: "p", Version: "2.0.0", Content: "draft", Deprecated: true})
	r.Register(nil)

	assert.Equal(t, []PromptVersion{"1.9.0", "1.10.0", "2.0.0"}, r.Versions("p"))

	latest, err := r.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, "new", latest.Content)

	_, err = r.Get("p", "3.0.0")
	assert.Error(t, err)
	_, err = r.GetLatest("q")
	assert.Error(t, err)
	assert.Nil(t, r.Versions("q"))
}
