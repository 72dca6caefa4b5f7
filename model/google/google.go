// Package google adapts Google's Gemini API to the model.ChatModel interface.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/patchpilot/patchpilot/model"
)

const defaultModel = "gemini-1.5-flash"

// ChatModel implements model.ChatModel using the official generative-ai-go
// client. Safe for concurrent use after creation. Close releases the
// underlying gRPC connection.
type ChatModel struct {
	client *genai.Client
	model  string
}

// NewChatModel creates a Gemini-backed ChatModel. An empty modelName selects
// a default model.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if modelName == "" {
		modelName = defaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	return &ChatModel{client: client, model: modelName}, nil
}

// Chat sends the conversation to the Gemini API. System messages become the
// model's system instruction; the remaining turns are sent as text parts.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	gm := m.client.GenerativeModel(m.model)

	var system strings.Builder
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	if system.Len() > 0 {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system.String())}}
	}
	if len(parts) == 0 {
		return model.ChatOut{}, errors.New("no user content to send")
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google chat failed: %w", err)
	}

	out := model.ChatOut{}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return out, nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out, nil
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out.Text = text.String()
	return out, nil
}

// Close releases the underlying client connection.
func (m *ChatModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
