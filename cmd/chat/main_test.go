package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/lifevault-relay/internal/api/router"
	"github.com/wolfman30/lifevault-relay/internal/completion"
	"github.com/wolfman30/lifevault-relay/internal/registry"
	"github.com/wolfman30/lifevault-relay/internal/relay"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

type cannedCompletion struct{ replies []string }

func (c *cannedCompletion) Complete(context.Context, completion.Request) (completion.Response, error) {
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return completion.Response{Text: reply}, nil
}

func TestRunChatsThroughRelay(t *testing.T) {
	logger := logging.Discard()
	callers := registry.New(nil, logger)
	llm := &cannedCompletion{replies: []string{
		"Could be a cold.\n**Severity: 3/10**",
		"This could be serious.\n**Severity: 9/10**",
	}}
	svc := relay.NewService(callers, llm, relay.Options{}, logger, nil)
	srv := httptest.NewServer(router.New(&router.Config{
		Logger:          logger,
		RegistryHandler: registry.NewHandler(callers, logger),
		RelayHandler:    relay.NewHandler(svc, logger, nil),
		Registry:        callers,
	}))
	defer srv.Close()

	in := strings.NewReader("runny nose\n\nnow chest pain\n/history\n/quit\n")
	var out bytes.Buffer
	if err := run(context.Background(), in, &out, srv.URL, "u-chat", "", "Pat"); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"LifeVault backend is running",
		"Could be a cold.",
		"High severity detected: 9/10",
		"1. runny nose (5 messages)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
	if strings.Count(got, "High severity detected") != 1 {
		t.Fatalf("expected exactly one urgent banner")
	}

	ok, err := callers.IsRegistered(context.Background(), "u-chat")
	if err != nil || !ok {
		t.Fatalf("expected caller to be registered")
	}
}

func TestRunReportsRelayErrors(t *testing.T) {
	logger := logging.Discard()
	callers := registry.New(nil, logger)
	srv := httptest.NewServer(router.New(&router.Config{
		Logger:          logger,
		RegistryHandler: registry.NewHandler(callers, logger),
		RelayHandler:    relay.NewHandler(relay.NewService(callers, nil, relay.Options{}, logger, nil), logger, nil),
		Registry:        callers,
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := run(context.Background(), strings.NewReader("hello\n"), &out, srv.URL, "", "", ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Error: AI key missing. Please try again.") {
		t.Fatalf("expected relay error to be shown, got:\n%s", out.String())
	}
}
