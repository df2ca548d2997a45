// Package httpx builds the HTTP clients used for identity and upload calls.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matheus3301/chatroom/internal/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// StatusError is returned for 5xx responses, which count against the breaker.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

// NewClient returns an http.Client whose transport fails fast once the
// upstream has produced cfg.MaxFailures consecutive errors.
func NewClient(name string, cfg config.BreakerConfig, timeout time.Duration, logger *zap.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(name, cfg, http.DefaultTransport, logger),
	}
}

// NewTransport wraps next with a circuit breaker.
func NewTransport(name string, cfg config.BreakerConfig, next http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	maxFailures := cfg.Threshold()
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &breakerTransport{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(st),
		log:  logger,
	}
}

type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
	log  *zap.Logger
}

func (rt *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := rt.cb.Execute(func() (any, error) {
		resp, err := rt.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rt.log.Warn("request short-circuited", zap.String("host", req.URL.Host), zap.Error(err))
		}
		return nil, err
	}
	resp, ok := res.(*http.Response)
	if !ok {
		return nil, errors.New("invalid roundtrip result")
	}
	return resp, nil
}
