// Package backoff classifies upstream API failures and computes retry waits.
// Policy is pure: it never sleeps, never touches the network.
package backoff

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Action is the failure class assigned to one upstream attempt.
type Action int

const (
	ActionRateLimited Action = iota // 429, recover by waiting
	ActionAuthFailure               // 403, bad or exhausted key, never retried
	ActionHTTPError                 // other non-2xx
	ActionTransient                 // network timeout / connection failure
	ActionMalformed                 // unexpected payload shape, falls back
	ActionFatal                     // unclassified, falls back immediately
)

func (a Action) String() string {
	switch a {
	case ActionRateLimited:
		return "RATE_LIMITED"
	case ActionAuthFailure:
		return "AUTH_FAILURE"
	case ActionHTTPError:
		return "HTTP_ERROR"
	case ActionTransient:
		return "TRANSIENT"
	case ActionMalformed:
		return "MALFORMED_RESPONSE"
	case ActionFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether another attempt may follow this action.
func (a Action) Retryable() bool {
	return a == ActionRateLimited || a == ActionHTTPError || a == ActionTransient
}

// Failure is the response metadata of one failed attempt. Status 0 means
// the request never produced an HTTP response.
type Failure struct {
	Status    int
	Header    http.Header
	Timeout   bool
	Malformed bool
}

// Decision pairs the assigned action with how long to wait before the next
// attempt (zero for actions that are never retried).
type Decision struct {
	Action Action
	Wait   time.Duration
}

type Policy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration

	// Now is injectable so reset-timestamp headers can be tested.
	Now func() time.Time
}

func NewPolicy(baseDelay time.Duration, multiplier float64) Policy {
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	if multiplier < 1 {
		multiplier = 2
	}
	return Policy{
		BaseDelay:  baseDelay,
		Multiplier: multiplier,
		MaxDelay:   5 * time.Minute,
		Now:        time.Now,
	}
}

// Classify maps one failed attempt to an action and wait duration.
// attempt is zero-based; the exponential wait grows with it.
func (p Policy) Classify(f Failure, attempt int) Decision {
	switch {
	case f.Malformed:
		return Decision{Action: ActionMalformed}
	case f.Timeout:
		return Decision{Action: ActionTransient, Wait: p.exponential(attempt)}
	case f.Status == http.StatusTooManyRequests:
		return Decision{Action: ActionRateLimited, Wait: p.rateLimitWait(f.Header, attempt)}
	case f.Status == http.StatusForbidden:
		return Decision{Action: ActionAuthFailure}
	case f.Status != 0:
		return Decision{Action: ActionHTTPError, Wait: p.exponential(attempt)}
	default:
		return Decision{Action: ActionFatal}
	}
}

// rateLimitWait honors Retry-After as a floor. When a valid reset timestamp
// is also present, the later of the two wins.
func (p Policy) rateLimitWait(header http.Header, attempt int) time.Duration {
	wait := p.exponential(attempt)

	if ra, ok := parseRetryAfter(header); ok && ra > wait {
		wait = ra
	}
	if reset, ok := parseReset(header); ok {
		if until := reset.Sub(p.now()); until > wait {
			wait = until
		}
	}
	return p.cap(wait)
}

func (p Policy) exponential(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	wait := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	return p.cap(wait)
}

func (p Policy) cap(wait time.Duration) time.Duration {
	if p.MaxDelay > 0 && wait > p.MaxDelay {
		return p.MaxDelay
	}
	return wait
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func parseRetryAfter(header http.Header) (time.Duration, bool) {
	v := header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// parseReset reads the rate-limit reset header as a unix timestamp.
func parseReset(header http.Header) (time.Time, bool) {
	v := header.Get("X-RateLimit-Reset")
	if v == "" {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(v, 10, 64)
	if err != nil || unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
