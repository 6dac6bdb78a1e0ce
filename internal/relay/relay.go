// Package relay authorizes chat calls against the session registry and
// forwards them to the completion service.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/lifevault-relay/internal/completion"
	"github.com/wolfman30/lifevault-relay/internal/observability/metrics"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

const (
	DefaultMaxTokens   int32   = 500
	DefaultTemperature float32 = 0.5
	DefaultTimeout             = 60 * time.Second
)

// Authorizer answers whether a caller may use the relay.
type Authorizer interface {
	IsRegistered(ctx context.Context, uid string) (bool, error)
}

// Options is the static, operator-controlled part of every upstream request.
type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int32
	Temperature  float32
	Timeout      time.Duration
}

// Service is the chat relay. It holds no per-conversation state: callers
// resend the full history on every call.
type Service struct {
	callers Authorizer
	client  completion.Client
	opts    Options
	logger  *logging.Logger
	metrics *metrics.RelayMetrics
	tracer  trace.Tracer
}

// NewService wires the relay. client may be nil when no credential is
// configured; Chat then fails with ErrServiceUnavailable.
func NewService(callers Authorizer, client completion.Client, opts Options, logger *logging.Logger, m *metrics.RelayMetrics) *Service {
	if callers == nil {
		panic("relay: authorizer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = SystemPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{
		callers: callers,
		client:  client,
		opts:    opts,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("lifevault.internal.relay"),
	}
}

// Chat validates the call, forwards the conversation exactly once and returns
// the assistant text verbatim.
func (s *Service) Chat(ctx context.Context, uid string, turns []completion.Turn) (reply string, err error) {
	ctx, span := s.tracer.Start(ctx, "relay.chat", trace.WithAttributes(
		attribute.String("caller.uid", uid),
		attribute.Int("conversation.turns", len(turns)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ok, err := s.callers.IsRegistered(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("relay: registry lookup failed: %w", err)
	}
	if !ok {
		return "", ErrUnauthorized
	}

	messages, err := conversation(turns)
	if err != nil {
		return "", err
	}

	if s.client == nil {
		s.logger.Error("chat rejected: completion credential missing")
		return "", ErrServiceUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	provider := completion.ProviderName(s.client)
	start := time.Now()
	resp, err := s.client.Complete(callCtx, completion.Request{
		Model:       s.opts.Model,
		System:      []string{s.opts.SystemPrompt},
		Messages:    messages,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		err = upstreamFailure(callCtx, provider, err)
		s.metrics.ObserveUpstream(provider, "error", elapsed.Seconds())
		s.logger.Error("completion call failed", "uid", uid, "provider", provider, "error", err, "duration_ms", elapsed.Milliseconds())
		return "", err
	}
	s.metrics.ObserveUpstream(provider, "ok", elapsed.Seconds())
	s.logger.Info("completion call succeeded",
		"uid", uid,
		"provider", provider,
		"turns", len(messages),
		"output_tokens", resp.Usage.OutputTokens,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp.Text, nil
}

// conversation validates caller turns and strips caller-supplied system
// turns; the relay's own system prompt is the only one forwarded.
func conversation(turns []completion.Turn) ([]completion.Turn, error) {
	if len(turns) == 0 {
		return nil, ErrInvalidRequest
	}
	out := make([]completion.Turn, 0, len(turns))
	for i, turn := range turns {
		if !completion.ValidRole(turn.Role) {
			return nil, fmt.Errorf("%w: turn %d has invalid role %q", ErrInvalidRequest, i, turn.Role)
		}
		if strings.TrimSpace(turn.Content) == "" {
			return nil, fmt.Errorf("%w: turn %d has empty content", ErrInvalidRequest, i)
		}
		if turn.Role == completion.RoleSystem {
			continue
		}
		out = append(out, turn)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no user or assistant turns", ErrInvalidRequest)
	}
	return out, nil
}

// upstreamFailure makes sure every failure of the outbound call surfaces as an
// UpstreamError or the empty-response sentinel, including deadline expiry.
func upstreamFailure(ctx context.Context, provider string, err error) error {
	if errors.Is(err, completion.ErrEmptyResponse) {
		return err
	}
	var existing *completion.UpstreamError
	if errors.As(err, &existing) {
		return err
	}
	upErr := &completion.UpstreamError{Provider: provider, Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		upErr.Status = 504
		upErr.Message = "completion request timed out"
	}
	return upErr
}
