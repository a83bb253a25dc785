package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

const jsonOnlyInstruction = "You are a precise recruiting assistant. Return only valid JSON, no markdown and no explanation."

// TextGenerator produce JSON text answer for a prompt
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// OpenAI calls an OpenAI compatible chat completions endpoint
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAI create generator, disabled when apiKey is empty
func NewOpenAI(baseURL string, apiKey string, model string) *OpenAI {
	return &OpenAI{baseURL: baseURL, apiKey: apiKey, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateJSON implements TextGenerator
func (o *OpenAI) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if o == nil || o.apiKey == "" || o.baseURL == "" {
		return "", ErrDisabled
	}

	var result chatResponse
	resp, err := newClient(o.baseURL, 90*time.Second).R().
		SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetBody(map[string]interface{}{
			"model": o.model,
			"messages": []chatMessage{
				{Role: "system", Content: jsonOnlyInstruction},
				{Role: "user", Content: prompt},
			},
			"temperature":     0.1,
			"response_format": map[string]string{"type": "json_object"},
		}).
		SetResult(&result).
		ForceContentType(jsonContentType).
		Post("/chat/completions")
	if err := checkResponse("openai", resp, err); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Vertex generates with Gemini models on Vertex AI
type Vertex struct {
	client *genai.Client
	model  string
}

// NewVertex create generator backed by Vertex AI. Credentials come from
// application default credentials.
func NewVertex(ctx context.Context, project string, location string, model string) (*Vertex, error) {
	if project == "" {
		return nil, ErrDisabled
	}
	client, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}
	return &Vertex{client: client, model: model}, nil
}

// GenerateJSON implements TextGenerator
func (v *Vertex) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if v == nil || v.client == nil {
		return "", ErrDisabled
	}
	model := v.client.GenerativeModel(v.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(jsonOnlyInstruction)}}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", errors.New("vertex returned empty answer")
	}
	return sb.String(), nil
}

// Close release vertex client
func (v *Vertex) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}

// cleanJSON strips markdown code fence some model wrap around JSON
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
