package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/lifevault-relay/internal/completion"
	appconfig "github.com/wolfman30/lifevault-relay/internal/config"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// BuildCompletionClient wires the configured completion provider. A missing
// credential is not an error: it returns a nil client and the relay answers
// chat calls with a service-unavailable error.
func BuildCompletionClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (completion.Client, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	noop := func() {}

	if !cfg.CompletionConfigured() {
		logger.Warn("completion credential missing; chat endpoint disabled", "provider", cfg.CompletionProvider)
		return nil, noop, nil
	}

	switch cfg.CompletionProvider {
	case "", "openrouter":
		client, err := completion.NewOpenRouterClient(completion.OpenRouterConfig{
			BaseURL: cfg.OpenRouterBaseURL,
			APIKey:  cfg.OpenRouterAPIKey,
			Referer: cfg.FrontendURL,
			Title:   cfg.AppTitle,
			Timeout: cfg.CompletionTimeout,
			Logger:  logger.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("completion provider ready", "provider", "openrouter", "model", cfg.AIModel)
		return client, noop, nil

	case "gemini":
		client, err := completion.NewGeminiClient(ctx, cfg.GeminiAPIKey, geminiModel(cfg.AIModel))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("completion provider ready", "provider", "gemini")
		return client, func() { _ = client.Close() }, nil

	case "bedrock":
		if loadAWS == nil {
			return nil, nil, fmt.Errorf("bootstrap: bedrock provider requires AWS config")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		logger.Info("completion provider ready", "provider", "bedrock", "model", cfg.BedrockModelID)
		return completion.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), noop, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown completion provider %q", cfg.CompletionProvider)
	}
}

// geminiModel ignores OpenRouter-style "vendor/model" identifiers.
func geminiModel(model string) string {
	model = strings.TrimSpace(model)
	if strings.Contains(model, "/") {
		return ""
	}
	return model
}
