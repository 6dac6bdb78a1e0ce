package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient implements Client using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("completion: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("completion: failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

// Complete replays all but the last turn as chat history and sends the last
// turn as the new message.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("completion: gemini requires at least one message")
	}

	modelID := c.modelID
	if strings.TrimSpace(req.Model) != "" && !strings.Contains(req.Model, "/") {
		// OpenRouter style ids ("vendor/model") never name a Gemini model.
		modelID = req.Model
	}
	model := c.client.GenerativeModel(modelID)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	system := make([]string, 0, len(req.System))
	for _, s := range req.System {
		if strings.TrimSpace(s) != "" {
			system = append(system, s)
		}
	}
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem && strings.TrimSpace(msg.Content) != "" {
			system = append(system, msg.Content)
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(system, "\n\n")))
	}

	cs := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		if msg.Role == RoleSystem || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	last := req.Messages[len(req.Messages)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		upErr := &UpstreamError{Provider: c.Provider(), Err: err}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			upErr.Status = apiErr.Code
			upErr.Message = apiErr.Message
		}
		return Response{}, upErr
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}, ErrEmptyResponse
	}
	candidate := resp.Candidates[0]

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, ErrEmptyResponse
	}

	out := Response{
		Text:       text.String(),
		StopReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
