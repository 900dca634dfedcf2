// Package throttle implements the Throttle Adaptor (spec.md §4.14): a
// classifier for rate-limit/server-busy errors plus an exponential
// backoff state machine, shared across backend services. Grounded on the
// teacher's internal/storage/dolt/store.go (isRetryableError's substring
// classification, cenkalti/backoff/v4 for the actual wait/retry loop),
// generalized from "is this a transient connection error" to "is this a
// throttling signal" per spec.md §4.14's explicit reason list.
package throttle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	initialBackoffMs int64 = 1000
	maxBackoffMs     int64 = 30000
)

// StatusCoder is implemented by backend errors that carry an HTTP-style
// status code directly, sparing Classify a string match.
type StatusCoder interface {
	StatusCode() int
}

// Classify reports whether err looks like a throttling signal and, if so,
// names the reason bucket it falls under (spec.md §4.14: HTTP 429/503 and
// provider-equivalent messages).
func Classify(err error) (reason string, throttled bool) {
	if err == nil {
		return "", false
	}
	if sc, ok := err.(StatusCoder); ok {
		switch sc.StatusCode() {
		case 429:
			return "http_429", true
		case 503:
			return "http_503", true
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return "too_many_requests", true
	case strings.Contains(msg, "rate limit"):
		return "rate_limit", true
	case strings.Contains(msg, "quota exceeded"):
		return "quota_exceeded", true
	case strings.Contains(msg, "serverbusy"), strings.Contains(msg, "server busy"):
		return "server_busy", true
	case strings.Contains(msg, " 429"), strings.HasPrefix(msg, "429"):
		return "http_429", true
	case strings.Contains(msg, " 503"), strings.HasPrefix(msg, "503"):
		return "http_503", true
	}
	return "", false
}

// ServiceState is the backoff state tracked for one named backend service.
type ServiceState struct {
	CurrentlyThrottled        bool
	ConsecutiveThrottleEvents int64
	CurrentBackoffMs          int64
}

// State is a point-in-time snapshot of the adaptor (spec.md §4.14).
type State struct {
	CurrentlyThrottled        bool
	TotalThrottleEvents       int64
	ConsecutiveThrottleEvents int64
	CurrentBackoffMs          int64
	ThrottleReasons           map[string]int64
	PerServiceThrottling      map[string]ServiceState
}

// Adaptor tracks throttle state across one or more named backend services.
// Safe for concurrent use.
type Adaptor struct {
	mu    sync.Mutex
	state State
}

// New returns an Adaptor with backoff reset to its initial value.
func New() *Adaptor {
	return &Adaptor{
		state: State{
			CurrentBackoffMs:     initialBackoffMs,
			ThrottleReasons:      make(map[string]int64),
			PerServiceThrottling: make(map[string]ServiceState),
		},
	}
}

// RecordError classifies err and, if it is a throttling signal, advances
// backoff state for service (global state always advances; per-service
// state advances additionally when service is non-empty). Returns the
// backoff duration to wait before retrying, and whether err was in fact
// a throttling signal at all.
func (a *Adaptor) RecordError(service string, err error) (time.Duration, bool) {
	reason, throttled := Classify(err)
	if !throttled {
		return 0, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.CurrentlyThrottled = true
	a.state.TotalThrottleEvents++
	a.state.ConsecutiveThrottleEvents++
	a.state.ThrottleReasons[reason]++
	a.state.CurrentBackoffMs = nextBackoff(a.state.CurrentBackoffMs)

	if service != "" {
		svc := a.state.PerServiceThrottling[service]
		svc.CurrentlyThrottled = true
		svc.ConsecutiveThrottleEvents++
		svc.CurrentBackoffMs = nextBackoff(svc.CurrentBackoffMs)
		a.state.PerServiceThrottling[service] = svc
	}

	return time.Duration(a.state.CurrentBackoffMs) * time.Millisecond, true
}

func nextBackoff(current int64) int64 {
	if current <= 0 {
		current = initialBackoffMs
	}
	next := current * 2
	if next > maxBackoffMs {
		next = maxBackoffMs
	}
	return next
}

// RecordSuccess resets consecutive/backoff/currentlyThrottled, globally
// and (if given) for the named service (spec.md §4.14's reset rule).
func (a *Adaptor) RecordSuccess(service string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.CurrentlyThrottled = false
	a.state.ConsecutiveThrottleEvents = 0
	a.state.CurrentBackoffMs = initialBackoffMs

	if service != "" {
		a.state.PerServiceThrottling[service] = ServiceState{CurrentBackoffMs: initialBackoffMs}
	}
}

// ReportError/ReportSuccess implement storageadapter.ThrottleReporter for
// a backend that doesn't distinguish between services.
func (a *Adaptor) ReportError(err error) {
	a.RecordError("", err)
}

func (a *Adaptor) ReportSuccess() {
	a.RecordSuccess("")
}

// Snapshot returns a deep copy of the adaptor's current state.
func (a *Adaptor) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	reasons := make(map[string]int64, len(a.state.ThrottleReasons))
	for k, v := range a.state.ThrottleReasons {
		reasons[k] = v
	}
	services := make(map[string]ServiceState, len(a.state.PerServiceThrottling))
	for k, v := range a.state.PerServiceThrottling {
		services[k] = v
	}
	s := a.state
	s.ThrottleReasons = reasons
	s.PerServiceThrottling = services
	return s
}

// Retry runs op with exponential backoff while its errors classify as
// throttling signals, recording every attempt against service, and stops
// retrying (returning the last error) once op succeeds, ctx is done, or
// op returns a non-throttling error.
func (a *Adaptor) Retry(ctx context.Context, service string, op func() error) error {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			a.RecordSuccess(service)
			return nil
		}
		if _, throttled := Classify(err); throttled {
			a.RecordError(service, err)
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}
