// Package registry tracks which callers have registered and may use the chat
// relay.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/lifevault-relay/internal/observability/metrics"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// Registry is the session registry service. It owns all caller records.
type Registry struct {
	store   Store
	logger  *logging.Logger
	metrics *metrics.RelayMetrics
	now     func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithMetrics records registration outcomes.
func WithMetrics(m *metrics.RelayMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithClock overrides the registration timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a registry over store. A nil store falls back to memory.
func New(store Store, logger *logging.Logger, opts ...Option) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds the caller if the uid is new and reports whether a record was
// created. Repeating a uid is accepted and leaves the first record intact.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		r.metrics.ObserveRegistration("invalid")
		return false, err
	}
	caller := req.toCaller(r.now())
	created, err := r.store.Insert(ctx, caller)
	if err != nil {
		r.metrics.ObserveRegistration("error")
		return false, err
	}
	if created {
		r.metrics.ObserveRegistration("created")
		r.logger.Info("caller registered", "uid", caller.UID, "email", caller.Email)
	} else {
		r.metrics.ObserveRegistration("duplicate")
		r.logger.Debug("caller already registered", "uid", caller.UID)
	}
	return created, nil
}

// IsRegistered reports whether uid completed registration.
func (r *Registry) IsRegistered(ctx context.Context, uid string) (bool, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return false, nil
	}
	return r.store.Exists(ctx, uid)
}

// Size returns the number of registered callers.
func (r *Registry) Size(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Lookup returns the stored record for uid.
func (r *Registry) Lookup(ctx context.Context, uid string) (*Caller, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrCallerNotFound
	}
	return r.store.Get(ctx, uid)
}
