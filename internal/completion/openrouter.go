package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultUserAgent         = "lifevault-relay/0.1"
	maxResponseBytes         = 4 << 20
)

// OpenRouterConfig controls how the OpenRouter client behaves.
type OpenRouterConfig struct {
	BaseURL    string
	APIKey     string
	Referer    string
	Title      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// OpenRouterClient calls the OpenAI-compatible /chat/completions endpoint.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	referer    string
	title      string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// NewOpenRouterClient creates a configured client with sane defaults.
func NewOpenRouterClient(cfg OpenRouterConfig) (*OpenRouterClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("completion: openrouter API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &OpenRouterClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		referer:    cfg.Referer,
		title:      cfg.Title,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

func (c *OpenRouterClient) Provider() string { return "openrouter" }

type chatCompletionRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	MaxTokens   int32   `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int32 `json:"prompt_tokens"`
		CompletionTokens int32 `json:"completion_tokens"`
		TotalTokens      int32 `json:"total_tokens"`
	} `json:"usage"`
}

// Complete posts the conversation once. There is no retry: a failed call is
// reported to the caller, who may resubmit.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]Turn, 0, len(req.System)+len(req.Messages))
	for _, system := range req.System {
		if strings.TrimSpace(system) == "" {
			continue
		}
		messages = append(messages, Turn{Role: RoleSystem, Content: system})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("completion: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("completion: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upErr := &UpstreamError{
			Provider: c.Provider(),
			Status:   resp.StatusCode,
			Message:  upstreamMessage(data),
		}
		c.logger.Error("openrouter request failed", "status", resp.StatusCode, "error", upErr.Message)
		return Response{}, upErr
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return Response{}, &UpstreamError{
			Provider: c.Provider(),
			Status:   resp.StatusCode,
			Message:  "malformed completion response",
			Err:      err,
		}
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == nil ||
		strings.TrimSpace(*decoded.Choices[0].Message.Content) == "" {
		return Response{}, ErrEmptyResponse
	}

	out := Response{
		Text:       *decoded.Choices[0].Message.Content,
		StopReason: decoded.Choices[0].FinishReason,
	}
	if decoded.Usage != nil {
		out.Usage = TokenUsage{
			InputTokens:  decoded.Usage.PromptTokens,
			OutputTokens: decoded.Usage.CompletionTokens,
			TotalTokens:  decoded.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (c *OpenRouterClient) transportError(ctx context.Context, err error) error {
	upErr := &UpstreamError{Provider: c.Provider(), Err: err}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		upErr.Status = http.StatusGatewayTimeout
		upErr.Message = "completion request timed out"
	}
	c.logger.Error("openrouter transport error", "error", err)
	return upErr
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
