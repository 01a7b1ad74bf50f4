package prompts

import (
	"fmt"
	"strings"
)

// PromptBuilder helps compose prompts from fragments and variables.
type PromptBuilder struct {
	registry  *PromptRegistry
	fragments []string
	variables map[string]string
}

// NewPromptBuilder creates a new prompt builder based on a registered prompt.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	basePrompt, err := registry.Get(id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}

	return &PromptBuilder{
		registry:  registry,
		fragments: []string{basePrompt.Content},
		variables: make(map[string]string),
	}, nil
}

// WithPreamble puts the directive preamble in front of the prompt.
func (b *PromptBuilder) WithPreamble() (*PromptBuilder, error) {
	preamble, err := b.registry.GetLatest(IDPreamble)
	if err != nil {
		return nil, fmt.Errorf("failed to get preamble: %w", err)
	}
	b.fragments = append([]string{preamble.Content}, b.fragments...)
	return b, nil
}

// SetVariable sets a variable for template substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string. Substitution is a single pass, so
// placeholder-like text inside a value is left alone.
func (b *PromptBuilder) Build() (string, error) {
	result := strings.Join(b.fragments, "\n\n")

	pairs := make([]string, 0, len(b.variables)*2)
	for key, value := range b.variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		if !strings.Contains(result, placeholder) {
			return "", fmt.Errorf("variable %q has no placeholder", key)
		}
		pairs = append(pairs, placeholder, value)
	}

	return strings.NewReplacer(pairs...).Replace(result), nil
}

// ExtractionPrompt composes the symptom extraction instruction for text.
func ExtractionPrompt(text string) (string, error) {
	b, err := preambled(IDSymptomExtraction)
	if err != nil {
		return "", err
	}
	return b.SetVariable("text", text).Build()
}

// AnalysisPrompt composes the analysis instruction listing each name as a
// "- name" bullet.
func AnalysisPrompt(names []string) (string, error) {
	b, err := preambled(IDAnalysis)
	if err != nil {
		return "", err
	}
	return b.SetVariable("symptoms", "- "+strings.Join(names, "\n- ")).Build()
}

// SourceQAInstruction composes the system instruction that limits answers to
// one solution and its sources.
func SourceQAInstruction(name, description string, urls []string) (string, error) {
	b, err := preambled(IDSourceQA)
	if err != nil {
		return "", err
	}

	lines := make([]string, len(urls))
	for i, u := range urls {
		lines[i] = "URL: " + u
	}
	return b.SetVariable("name", name).
		SetVariable("description", description).
		SetVariable("urls", strings.Join(lines, "\n")).
		Build()
}

func preambled(id string) (*PromptBuilder, error) {
	b, err := NewPromptBuilder(DefaultRegistry(), id, PromptV1)
	if err != nil {
		return nil, err
	}
	return b.WithPreamble()
}
