package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

type sdkError struct{ code int }

func (e *sdkError) Error() string       { return fmt.Sprintf("sdk status %d", e.code) }
func (e *sdkError) HTTPStatusCode() int { return e.code }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{name: "canceled", err: context.Canceled, retryable: false, recordFailure: false},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), retryable: false, recordFailure: false},
		{name: "429", err: &StatusError{StatusCode: 429}, retryable: true, recordFailure: true},
		{name: "502 wrapped", err: fmt.Errorf("embed: %w", &StatusError{StatusCode: 502}), retryable: true, recordFailure: true},
		{name: "401", err: &StatusError{StatusCode: 401}, retryable: false, recordFailure: false},
		{name: "sdk 500", err: &sdkError{code: 500}, retryable: true, recordFailure: true},
		{name: "sdk 400", err: &sdkError{code: 400}, retryable: false, recordFailure: false},
		{name: "network", err: &net.OpError{Op: "dial", Err: timeoutError{}}, retryable: true, recordFailure: true},
		{name: "unknown", err: errors.New("boom"), retryable: false, recordFailure: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyHTTP(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.recordFailure {
				t.Fatalf("ClassifyHTTP(%v) = %+v", tc.err, got)
			}
		})
	}
}

func TestWrapTemporary(t *testing.T) {
	transient := WrapTemporary("embed", nil, &StatusError{StatusCode: 503})
	if !errors.Is(transient, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", transient)
	}
	var statusErr *StatusError
	if !errors.As(transient, &statusErr) {
		t.Fatalf("expected status error kept in chain")
	}

	permanent := WrapTemporary("embed", nil, &StatusError{StatusCode: 401})
	if errors.Is(permanent, domain.ErrTemporary) {
		t.Fatalf("expected permanent error untouched, got %v", permanent)
	}
	if WrapTemporary("embed", nil, nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

func TestClassifyHTTPKeepsBreakerClosedOnClientErrors(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.1,
	})
	for i := 0; i < 3; i++ {
		err := exec.Execute(context.Background(), "chat", func(context.Context) error {
			return &StatusError{StatusCode: 400}
		}, ClassifyHTTP)
		if IsCircuitOpen(err) {
			t.Fatalf("breaker opened on client error at iteration %d", i)
		}
	}
}
