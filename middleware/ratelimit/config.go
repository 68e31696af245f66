package ratelimit

import (
	"strconv"
	"time"

	"github.com/hoogokok/roxy/settings"
)

// Config is a rate-limit middleware's configuration: the bucket refills
// at Average tokens per second and holds at most Burst tokens, so Burst
// is the largest number of requests a client can make at once. Period
// is not read by the middleware; the refill rate is always per second.
type Config struct {
	Average uint32
	Burst    uint32
	Period   time.Duration
}

const (
	defaultAverage = 100
	defaultBurst   = 50
)

func defaultPeriod() time.Duration { return time.Second }

// DefaultConfig returns the teacher's documented defaults: 100
// requests/second steady-state, burst of 50.
func DefaultConfig() Config {
	return Config{Average: defaultAverage, Burst: defaultBurst, Period: defaultPeriod()}
}

// FromMiddlewareSettings reads a Config out of a settings.MiddlewareConfig's
// Settings map, keyed "rate_limit.average" and "rate_limit.burst".
// Period is always 1 second; the reference configuration's "period"
// field was never actually honored by its token bucket (rate is always
// per-second), so it isn't exposed here either.
func FromMiddlewareSettings(mw settings.MiddlewareConfig) Config {
	cfg := DefaultConfig()

	if v, ok := mw.Settings["rate_limit.average"]; ok {
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseUint(s, 10, 32); err == nil {
				cfg.Average = uint32(n)
			}
		}
	}
	if v, ok := mw.Settings["rate_limit.burst"]; ok {
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseUint(s, 10, 32); err == nil {
				cfg.Burst = uint32(n)
			}
		}
	}

	return cfg
}
