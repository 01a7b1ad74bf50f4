package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements engine.LLMClient by calling the Anthropic
// Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, modelName string, logger *zap.Logger, opts ...anthropic.ClientOption) (*AnthropicClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  modelName,
		logger: logger,
	}, nil
}

// Model returns the default model name.
func (c *AnthropicClient) Model() string { return c.model }

// Chat implements engine.LLMClient.Chat. Structured calls carry the schema as
// an extra system part; the text reply is validated by the caller.
func (c *AnthropicClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	if modelName == "" {
		modelName = c.model
	}

	var systemParts []anthropic.MessageSystemPart
	var anthropicMsgs []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{
				Type: "text",
				Text: msg.Content,
			})
		case engine.RoleUser:
			anthropicMsgs = append(anthropicMsgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		case engine.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		default:
			return engine.LLMResponse{}, fmt.Errorf("invalid message role: %s", msg.Role)
		}
	}

	if opts.Structured() {
		systemParts = append(systemParts, anthropic.MessageSystemPart{
			Type: "text",
			Text: SchemaInstruction(opts.ResponseSchema),
		})
	}

	maxTokens := 8192
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}

	temperature := float32(0.2)
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(modelName),
		Messages:    anthropicMsgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if len(systemParts) > 0 {
		req.MultiSystem = systemParts
	}

	c.logger.Debug("messages request",
		zap.String("model", modelName),
		zap.Int("messages", len(anthropicMsgs)),
		zap.Bool("structured", opts.Structured()),
	)

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		httpStatus, retryAfter := engine.ExtractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var textContent string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			textContent += *block.Text
		}
	}

	finishReason := "stop"
	if resp.StopReason == "max_tokens" {
		finishReason = "length"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:    engine.RoleAssistant,
			Content: textContent,
		},
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason,
	}, nil
}
