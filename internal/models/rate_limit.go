package models

import (
	"time"
)

// RateLimitBucket is the persisted fixed-window counter for one caller key.
// Exactly one row exists per key; the window rolls forward through the
// conditional upsert in the repository, rows are never deleted on the hot
// path (expired rows are purged by the background cleanup).
type RateLimitBucket struct {
	Key      string // "user:<id>" or "ip:<address>"
	Points   int    // Requests observed in the current window
	ExpireAt time.Time
}

// RateLimitResult is the post-increment verdict surfaced to the middleware.
type RateLimitResult struct {
	Allowed    bool
	Limit      int // Effective limit for this caller
	Remaining  int
	Reset      time.Time
	FailedOpen bool // True when the store errored and the request was allowed through
}
