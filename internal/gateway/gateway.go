// Package gateway issues the schema-constrained generation calls and the
// solution chat calls. Every payload is validated against its contract before
// it is returned, and every call leaves an audit trail.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/engine"
	"github.com/apmishra/gai-symptom-resolver/internal/prompts"
)

// Operation names used in errors and logs.
const (
	OpExtractSymptoms = "extract_symptoms"
	OpGetAnalysis     = "get_analysis"
	OpQuerySource     = "query_source"
)

// ValidationError rejects empty or invalid input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GenerationError reports an upstream failure or a response that broke its
// contract. Err is an *engine.EngineError or a *contracts.ContractError in the
// common cases.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Gateway is stateless between calls.
type Gateway struct {
	llm      engine.LLMClient
	model    string
	recorder audit.Recorder
	logger   *zap.Logger
	opts     engine.ChatOptions
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder sets where api-request/api-response/error entries go.
func WithRecorder(r audit.Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithTemperature sets the sampling temperature for every call.
func WithTemperature(t float32) Option {
	return func(g *Gateway) { g.opts.Temperature = t }
}

// New creates a gateway that sends every call to model through llm.
func New(llm engine.LLMClient, model string, opts ...Option) *Gateway {
	g := &Gateway{
		llm:      llm,
		model:    model,
		recorder: audit.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the model name calls are sent to.
func (g *Gateway) Model() string { return g.model }

// ExtractSymptoms asks for the symptoms found in text. An empty result is a
// valid answer.
func (g *Gateway) ExtractSymptoms(ctx context.Context, text string) ([]contracts.Symptom, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	prompt, err := prompts.ExtractionPrompt(text)
	if err != nil {
		return nil, &GenerationError{Op: OpExtractSymptoms, Err: err}
	}

	g.recorder.Record(audit.TypeAPIRequest, "Extracting symptoms...", map[string]any{"prompt": prompt})

	raw, err := g.structured(ctx, OpExtractSymptoms, prompt, contracts.SymptomExtractionSchemaName, contracts.SymptomExtractionSchema)
	if err != nil {
		return nil, g.fail(OpExtractSymptoms, "Failed to extract symptoms.", err)
	}
	symptoms, err := contracts.DecodeSymptomExtraction(raw)
	if err != nil {
		return nil, g.fail(OpExtractSymptoms, "Failed to extract symptoms.", err)
	}

	g.recorder.Record(audit.TypeAPIResponse, "Symptoms extracted successfully.",
		contracts.SymptomExtractionResponse{Symptoms: symptoms})
	return symptoms, nil
}

// GetAnalysis asks for potential reasons and categorized solutions for the
// given symptom names.
func (g *Gateway) GetAnalysis(ctx context.Context, names []string) (*contracts.AnalysisResults, error) {
	if len(names) == 0 {
		return nil, &ValidationError{Field: "symptoms", Reason: "at least one symptom is required"}
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, &ValidationError{Field: "symptoms", Reason: "symptom names must not be blank"}
		}
	}

	prompt, err := prompts.AnalysisPrompt(names)
	if err != nil {
		return nil, &GenerationError{Op: OpGetAnalysis, Err: err}
	}

	g.recorder.Record(audit.TypeAPIRequest, "Getting analysis...", map[string]any{"prompt": prompt})

	raw, err := g.structured(ctx, OpGetAnalysis, prompt, contracts.AnalysisSchemaName, contracts.AnalysisSchema)
	if err != nil {
		return nil, g.fail(OpGetAnalysis, "Failed to get analysis.", err)
	}
	results, err := contracts.DecodeAnalysis(raw)
	if err != nil {
		return nil, g.fail(OpGetAnalysis, "Failed to get analysis.", err)
	}

	g.recorder.Record(audit.TypeAPIResponse, "Analysis received successfully.", results)
	return results, nil
}

// QuerySource answers question using only the given solution and its
// sources. history holds the earlier turns of this solution's chat; it is
// not modified.
func (g *Gateway) QuerySource(ctx context.Context, solution contracts.Solution, question string, history []engine.ChatMessage) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	for _, m := range history {
		if m.Role == engine.RoleSystem {
			return "", &ValidationError{Field: "history", Reason: "must not contain system turns"}
		}
		if err := m.Validate(); err != nil {
			return "", &ValidationError{Field: "history", Reason: err.Error()}
		}
	}

	urls := make([]string, len(solution.Sources))
	for i, s := range solution.Sources {
		urls[i] = s.URL
	}
	instruction, err := prompts.SourceQAInstruction(solution.Name, solution.Description, urls)
	if err != nil {
		return "", &GenerationError{Op: OpQuerySource, Err: err}
	}

	g.recorder.Record(audit.TypeAPIRequest, "Querying source...", map[string]any{
		"systemInstruction": instruction,
		"question":          question,
		"chatHistory":       history,
	})

	msgs := make([]engine.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, engine.ChatMessage{Role: engine.RoleSystem, Content: instruction})
	msgs = append(msgs, history...)
	msgs = append(msgs, engine.ChatMessage{Role: engine.RoleUser, Content: question})

	g.logger.Debug("dispatching generation call", zap.String("op", OpQuerySource), zap.Int("turns", len(msgs)))

	resp, err := g.llm.Chat(ctx, g.model, msgs, g.opts)
	if err != nil {
		return "", g.fail(OpQuerySource, "Failed to query source.", err)
	}
	answer := strings.TrimSpace(resp.Assistant.Content)
	if answer == "" {
		return "", g.fail(OpQuerySource, "Failed to query source.", errors.New("empty answer"))
	}

	g.recorder.Record(audit.TypeAPIResponse, "Source query successful.", map[string]any{"text": answer})
	return answer, nil
}

func (g *Gateway) structured(ctx context.Context, op, prompt, schemaName, schema string) ([]byte, error) {
	opts := g.opts
	opts.ResponseSchema = &engine.ResponseSchema{Name: schemaName, JSONSchema: schema}

	g.logger.Debug("dispatching generation call", zap.String("op", op), zap.String("schema", schemaName))

	resp, err := g.llm.Chat(ctx, g.model, []engine.ChatMessage{
		{Role: engine.RoleUser, Content: prompt},
	}, opts)
	if err != nil {
		return nil, err
	}
	if resp.FinishReason == "length" {
		return nil, fmt.Errorf("response truncated at the output token limit")
	}
	return []byte(resp.Assistant.Content), nil
}

func (g *Gateway) fail(op, message string, err error) error {
	data := map[string]any{"error": err.Error()}
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		data["class"] = string(ee.Class)
		if ee.HTTPStatus != 0 {
			data["status"] = ee.HTTPStatus
		}
	}
	g.recorder.Record(audit.TypeError, message, data)
	g.logger.Warn("generation call failed", zap.String("op", op), zap.Error(err))
	return &GenerationError{Op: op, Err: err}
}
