package intacct

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// DefaultGatewayURL is the production XML gateway endpoint.
const DefaultGatewayURL = "https://api.intacct.com/ia/xml/xmlgw.phtml"

const (
	defaultMaxAttempts = 5
	defaultBackoffBase = time.Second
	defaultHTTPTimeout = 30 * time.Second
)

// Transport performs the HTTP exchange with the gateway and applies bounded
// exponential backoff to retriable failures. HTTP 429, 5xx and read
// timeouts are retriable; every other non-success status is fatal because
// retrying an invalid request reproduces the same failure.
type Transport struct {
	baseURL     string
	client      *http.Client
	log         *zap.Logger
	maxAttempts int
	backoffBase time.Duration

	// sleep is swapped out by tests to observe delays.
	sleep func(time.Duration)
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.client = c }
}

// WithRetryPolicy overrides the attempt bound and backoff base delay.
func WithRetryPolicy(maxAttempts int, base time.Duration) TransportOption {
	return func(t *Transport) {
		if maxAttempts > 0 {
			t.maxAttempts = maxAttempts
		}
		if base > 0 {
			t.backoffBase = base
		}
	}
}

// WithSleeper overrides the backoff sleep function.
func WithSleeper(sleep func(time.Duration)) TransportOption {
	return func(t *Transport) { t.sleep = sleep }
}

// NewTransport creates a Transport for the given gateway URL.
func NewTransport(baseURL string, log *zap.Logger, opts ...TransportOption) *Transport {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	t := &Transport{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: defaultHTTPTimeout},
		log:         log.Named("transport"),
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send posts one request body and returns the raw response body. Retriable
// failures are retried with delays of base, 2x, 4x, 8x base up to the
// attempt bound; fatal failures return immediately.
func (t *Transport) Send(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := t.backoffBase << (attempt - 1)
			t.log.Warn("retrying gateway request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			t.sleep(delay)
		}

		resp, err := t.send(ctx, body)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, syncdomain.ErrRetriableTransport) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("retry budget exhausted after %d attempts: %w", t.maxAttempts, lastErr)
}

func (t *Transport) send(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("intacct: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := t.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: read timeout: %v", syncdomain.ErrRetriableTransport, err)
		}
		return nil, fmt.Errorf("intacct: gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", syncdomain.ErrRetriableTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", syncdomain.ErrRetriableTransport, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("intacct: gateway returned HTTP %d", resp.StatusCode)
	}
	return respBody, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
