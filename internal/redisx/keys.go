package redisx

import (
	"errors"
	"time"
)

const (
	// Rate limit window counter: ratelimit:{client} -> hits in current window
	KeyRateLimit = "ratelimit:%s"

	// Idempotent place-order replay: idem:order:place:{Idempotency-Key} -> order id
	KeyIdemPlaceOrder = "idem:order:place:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

const idemPending = "pending"

var ErrIdempotencyInFlight = errors.New("idempotency key in use by a request still in progress")

var (
	TTLIdempotency = 24 * time.Hour
	// TTLIdemPending outlives the HTTP request timeout so a claim never
	// lapses while its request is running.
	TTLIdemPending = time.Minute
	TTLDedup       = 48 * time.Hour
)
