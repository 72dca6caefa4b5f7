// Package openai adapts OpenAI's chat completions API to the model.ChatModel
// interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/patchpilot/patchpilot/model"
)

const defaultModel = "gpt-4o-mini"

// ChatModel implements model.ChatModel using the official openai-go client.
// Safe for concurrent use after creation.
type ChatModel struct {
	client *sdk.Client
	model  string
}

// NewChatModel creates a GPT-backed ChatModel. An empty modelName selects a
// default model.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{client: &client, model: modelName}
}

// Chat sends the conversation to the chat completions API.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			params.Messages = append(params.Messages, sdk.SystemMessage(msg.Content))
		case model.RoleAssistant:
			params.Messages = append(params.Messages, sdk.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, sdk.UserMessage(msg.Content))
		}
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("openai chat failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return model.ChatOut{}, errors.New("no response from OpenAI API")
	}

	return model.ChatOut{
		Text:       completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
	}, nil
}
