package shortener

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRedirectDelay is how long the "Redirecting" view is shown before
// navigation.
const DefaultRedirectDelay = time.Second

// Status is the outcome of resolving a short code.
type Status uint8

const (
	StatusMissing Status = iota
	StatusExpired
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusExpired:
		return "expired"
	case StatusValid:
		return "valid"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Visit describes the client following a short link.
type Visit struct {
	Referrer  string
	UserAgent string
}

// Resolution is the result of one resolution attempt.
type Resolution struct {
	Status Status
	Link   Link // zero unless Status is StatusExpired or StatusValid

	// RedirectAfter is the delay the caller waits before navigating to
	// Link.OriginalURL. Only meaningful for StatusValid.
	RedirectAfter time.Duration
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	Clock         func() time.Time
	RedirectDelay time.Duration
	Logger        *slog.Logger
}

// Resolver maps short codes to redirect decisions and records a click for
// every successful resolution.
type Resolver struct {
	registry *Registry
	now      func() time.Time
	delay    time.Duration
	logger   *slog.Logger
}

// NewResolver creates a resolver backed by registry.
func NewResolver(registry *Registry, config *ResolverConfig) *Resolver {
	if config == nil {
		config = &ResolverConfig{}
	}

	r := &Resolver{
		registry: registry,
		now:      config.Clock,
		delay:    config.RedirectDelay,
		logger:   config.Logger,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.delay <= 0 {
		r.delay = DefaultRedirectDelay
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve looks up code and decides whether the visitor may be redirected.
// Each call is an independent attempt: a valid link gets exactly one new click
// per call, recorded before Resolve returns. Missing and expired links are
// never touched.
func (r *Resolver) Resolve(ctx context.Context, code string, visit Visit) Resolution {
	now := time.UnixMilli(r.now().UnixMilli())

	referrer := visit.Referrer
	if referrer == "" {
		referrer = DirectReferrer
	}
	link, status := r.registry.visit(ctx, code, now, Click{
		Timestamp: now,
		Referrer:  referrer,
		UserAgent: visit.UserAgent,
	})

	switch status {
	case StatusMissing:
		r.logger.DebugContext(ctx, "short code not found", "short_code", code)
		return Resolution{Status: StatusMissing}
	case StatusExpired:
		r.logger.DebugContext(ctx, "short code expired",
			"short_code", code,
			"expired_at", link.ExpiryTime,
		)
		return Resolution{Status: StatusExpired, Link: link}
	}

	return Resolution{
		Status:        StatusValid,
		Link:          link,
		RedirectAfter: r.delay,
	}
}

// ScheduleRedirect calls navigate with the destination once RedirectAfter has
// elapsed. The pending navigation is dropped if ctx ends or cancel is called
// first; cancel reports whether it stopped a navigation that had not fired.
// Non-valid resolutions never navigate.
func (res Resolution) ScheduleRedirect(ctx context.Context, navigate func(url string)) (cancel func() bool) {
	if res.Status != StatusValid {
		return func() bool { return false }
	}

	target := res.Link.OriginalURL
	timer := time.AfterFunc(res.RedirectAfter, func() {
		if ctx.Err() == nil {
			navigate(target)
		}
	})
	stop := context.AfterFunc(ctx, func() { timer.Stop() })

	return func() bool {
		stop()
		return timer.Stop()
	}
}
