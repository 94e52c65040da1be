package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Result describes the caller's standing after a request was counted.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Fallback consults primary and switches to secondary for any request the
// primary cannot answer, so a redis outage degrades to per-process limits
// instead of failing open.
type Fallback struct {
	primary   Limiter
	secondary Limiter
	log       *slog.Logger
}

func NewFallback(primary, secondary Limiter, log *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

func (f *Fallback) Allow(ctx context.Context, key string) (Result, error) {
	res, err := f.primary.Allow(ctx, key)
	if err == nil {
		return res, nil
	}
	f.log.Warn("primary rate limiter unavailable, using in-memory fallback", "error", err)
	return f.secondary.Allow(ctx, key)
}
