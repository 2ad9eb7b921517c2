package session

import (
	"math/rand/v2"
	"time"
)

const maxBackoff = 30 * time.Second

// backoff returns the wait before retry attempt n (0-indexed): base doubled
// per attempt, capped, plus up to 50% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(min(attempt, 16))
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}
