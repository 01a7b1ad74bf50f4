package providers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/engine"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIClient implements engine.LLMClient against any OpenAI-compatible chat
// completions endpoint (OpenAI, Gemini's compatibility layer, Ollama).
type OpenAIClient struct {
	client  *openai.Client
	model   string
	baseURL string
	logger  *zap.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(apiKey, modelName, baseURL string, logger *zap.Logger) (*OpenAIClient, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		model:   modelName,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// Model returns the default model name.
func (c *OpenAIClient) Model() string { return c.model }

// Chat implements engine.LLMClient.Chat.
func (c *OpenAIClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	if modelName == "" {
		modelName = c.model
	}

	var systemParts []string
	openaiMsgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case engine.RoleUser:
			openaiMsgs = append(openaiMsgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		case engine.RoleAssistant:
			openaiMsgs = append(openaiMsgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			})
		default:
			return engine.LLMResponse{}, fmt.Errorf("invalid message role: %s", msg.Role)
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: openaiMsgs,
	}

	if opts.Structured() {
		systemParts = append(systemParts, SchemaInstruction(opts.ResponseSchema))
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if len(systemParts) > 0 {
		req.Messages = append([]openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(systemParts, "\n\n"),
		}}, req.Messages...)
	}

	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}

	c.logger.Debug("chat completion request",
		zap.String("model", modelName),
		zap.Int("messages", len(req.Messages)),
		zap.Bool("structured", opts.Structured()),
	)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		httpStatus, retryAfter := engine.ExtractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	if len(resp.Choices) == 0 {
		return engine.LLMResponse{}, engine.WrapLLMError(fmt.Errorf("empty response from provider"), 0, "")
	}

	choice := resp.Choices[0]

	finishReason := "stop"
	switch choice.FinishReason {
	case openai.FinishReasonLength:
		finishReason = "length"
	case openai.FinishReasonContentFilter:
		finishReason = "content_filter"
	}

	c.logger.Debug("chat completion response",
		zap.String("finish", finishReason),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:    engine.RoleAssistant,
			Content: choice.Message.Content,
		},
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		FinishReason: finishReason,
	}, nil
}

// SchemaInstruction tells the model to answer with a document matching s.
func SchemaInstruction(s *engine.ResponseSchema) string {
	return fmt.Sprintf("Respond with a single JSON object named %s that conforms to this JSON schema. Output only the JSON, with no commentary and no Markdown.\n\n%s",
		s.Name, s.JSONSchema)
}
