package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

var (
	ErrTimeout           = errors.New("upstream timeout")
	ErrTransport         = errors.New("upstream transport failure")
	ErrNotFound          = errors.New("location not found")
	ErrUnauthorized      = errors.New("invalid API key")
	ErrUpstreamHTTP      = errors.New("upstream HTTP error")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrCircuitOpen       = errors.New("circuit breaker open")
	ErrUnknownCounty     = errors.New("unknown county code")
)

// requester performs one GET against a provider and decodes the JSON body.
// It never retries; every failure is returned as one of the sentinel errors.
type requester struct {
	provider string
	client   *http.Client
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	traffic  *traffic.Tracker
}

func newRequester(provider string, timeout time.Duration, tracker *traffic.Tracker) *requester {
	return &requester{
		provider: provider,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		traffic:  tracker,
	}
}

// BreakerSettings configures the optional per-provider circuit breaker.
type BreakerSettings struct {
	Failures uint32
	Timeout  time.Duration
}

func (r *requester) setBreaker(s BreakerSettings) {
	failures := s.Failures
	if failures == 0 {
		failures = 5
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        r.provider,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			observability.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	observability.CircuitBreakerState.WithLabelValues(r.provider).Set(0)
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// getJSON issues the request through the breaker (when set) and records the outcome.
func (r *requester) getJSON(ctx context.Context, operation, endpoint string, params url.Values, header http.Header, out any) error {
	start := time.Now()
	err := r.execute(ctx, endpoint, params, header, out)

	status := "success"
	if err != nil {
		status = string(CategorizeError(err))
		observability.UpstreamErrorsTotal.WithLabelValues(r.provider, status).Inc()
	}
	observability.UpstreamCallsTotal.WithLabelValues(r.provider, operation, status).Inc()
	observability.UpstreamDuration.WithLabelValues(r.provider, operation).Observe(time.Since(start).Seconds())

	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		r.traffic.Record(traffic.Success)
	default:
		r.traffic.Record(traffic.Failure)
	}
	return err
}

func (r *requester) execute(ctx context.Context, endpoint string, params url.Values, header http.Header, out any) error {
	if r.breaker == nil {
		return r.do(ctx, endpoint, params, header, out)
	}

	// Not-found is a valid answer about the query, not a provider fault, so it
	// is carried out of the breaker without counting as a failure.
	var passthrough error
	_, err := r.breaker.Execute(func() (interface{}, error) {
		err := r.do(ctx, endpoint, params, header, out)
		if errors.Is(err, ErrNotFound) {
			passthrough = err
			return nil, nil
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, r.provider)
	}
	if err != nil {
		return err
	}
	return passthrough
}

func (r *requester) do(ctx context.Context, endpoint string, params url.Values, header http.Header, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", ErrTransport, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: reading body: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", ErrUnauthorized)
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamHTTP, code)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
