package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/lifevault-relay/cmd/mainconfig"
	"github.com/wolfman30/lifevault-relay/internal/app/bootstrap"
	"github.com/wolfman30/lifevault-relay/internal/completion"
	appconfig "github.com/wolfman30/lifevault-relay/internal/config"
	"github.com/wolfman30/lifevault-relay/internal/relay"
	"github.com/wolfman30/lifevault-relay/internal/triage"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CompletionTimeout+10*time.Second)
	defer cancel()

	client, cleanup, err := bootstrap.BuildCompletionClient(ctx, cfg, func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	}, logger)
	if err != nil {
		fmt.Printf("failed to build %s client: %v\n", cfg.CompletionProvider, err)
		os.Exit(1)
	}
	defer cleanup()
	if client == nil {
		fmt.Printf("no credential configured for provider %q\n", cfg.CompletionProvider)
		os.Exit(1)
	}

	// Multi-turn symptom conversation that should end in a severity trailer
	req := completion.Request{
		Model:  cfg.AIModel,
		System: []string{relay.SystemPrompt},
		Messages: []completion.Turn{
			{Role: completion.RoleUser, Content: "I've had a headache and a fever since yesterday."},
			{Role: completion.RoleAssistant, Content: "I'm sorry you're feeling unwell. How high is the fever, and do you have a stiff neck or sensitivity to light?"},
			{Role: completion.RoleUser, Content: "About 38.5C, no stiff neck, light bothers me a little."},
		},
		MaxTokens:   relay.DefaultMaxTokens,
		Temperature: relay.DefaultTemperature,
	}

	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Printf("Completion provider test (%s)\n", completion.ProviderName(client))
	fmt.Println(rule)

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("\nrequest failed after %v: %v\n", elapsed.Round(time.Millisecond), err)
		os.Exit(1)
	}

	fmt.Printf("\nresponse (%v):\n%s\n", elapsed.Round(time.Millisecond), resp.Text)
	fmt.Printf("\ntokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)

	result := triage.Assess(resp.Text)
	fmt.Println()
	fmt.Println(rule)
	switch {
	case !result.Found:
		fmt.Println("no severity marker found; the system prompt was not followed")
	case result.Urgent:
		fmt.Printf("severity %d/10: urgent referral would be shown\n", result.Severity)
	default:
		fmt.Printf("severity %d/10\n", result.Severity)
	}
}
