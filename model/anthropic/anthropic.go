// Package anthropic adapts Anthropic's Claude API to the model.ChatModel
// interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/patchpilot/patchpilot/model"
)

const defaultModel = "claude-3-5-sonnet-20241022"

// maxTokens caps the completion length; analyzer responses are JSON arrays,
// never long-form prose.
const maxTokens = 4096

// ChatModel implements model.ChatModel using the official anthropic-sdk-go
// client. Safe for concurrent use after creation.
type ChatModel struct {
	client *sdk.Client
	model  string
}

// NewChatModel creates a Claude-backed ChatModel. An empty modelName selects
// a default model.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{client: &client, model: modelName}
}

// Chat sends the conversation to the Claude API. Anthropic takes the system
// prompt as a separate parameter, so system messages are extracted from the
// conversation before the call.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	system, conversation := splitSystem(messages)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(m.model),
		MaxTokens: maxTokens,
		Messages:  make([]sdk.MessageParam, 0, len(conversation)),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	for _, msg := range conversation {
		block := sdk.NewTextBlock(msg.Content)
		if msg.Role == model.RoleAssistant {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic chat failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return model.ChatOut{
		Text:       text.String(),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}

// splitSystem separates system messages from the conversation; Anthropic's
// API rejects them inside the messages array. Multiple system messages are
// concatenated.
func splitSystem(messages []model.Message) (string, []model.Message) {
	var system strings.Builder
	conversation := make([]model.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
			continue
		}
		conversation = append(conversation, msg)
	}
	return system.String(), conversation
}
