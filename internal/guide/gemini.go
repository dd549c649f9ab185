package guide

import (
	"context"
	"net/http"

	"google.golang.org/genai"

	"brickwall.dev/internal/protocol"
)

// GeminiModel is a Model backed by the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a client for apiKey. httpClient may be nil.
func NewGeminiModel(ctx context.Context, apiKey, model string, httpClient *http.Client) (*GeminiModel, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) Generate(ctx context.Context, system string, history []protocol.ChatMessage) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, Contents(history), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Contents converts chat turns into role-tagged model contents.
func Contents(history []protocol.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == protocol.RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Text, role))
	}
	return out
}
