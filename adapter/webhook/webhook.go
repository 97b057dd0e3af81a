// Package webhook POSTs batch completion events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/iox"
)

// Defaults.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
)

// Headers set on every delivery. X-Strata-Delivery is stable across retries
// of the same event so receivers can drop duplicates.
const (
	HeaderEvent    = "X-Strata-Event"
	HeaderBatch    = "X-Strata-Batch"
	HeaderDelivery = "X-Strata-Delivery"
)

// maxRetryAfter caps a server-requested delay.
const maxRetryAfter = time.Minute

// Config configures the webhook adapter.
type Config struct {
	URL     string
	Headers map[string]string
	// Timeout bounds one attempt (default 10s).
	Timeout time.Duration
	Retries int
}

// Adapter delivers events by HTTP POST.
type Adapter struct {
	url     string
	headers map[string]string
	retries int
	client  *http.Client
}

// New validates cfg and returns an adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook: url is required")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("webhook: retries must be >= 0, got %d", cfg.Retries)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		url:     cfg.URL,
		headers: cfg.Headers,
		retries: cfg.Retries,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Publish delivers event. Client errors are final except 408 and 429,
// which are retried after the server's Retry-After when it sends one.
func (a *Adapter) Publish(ctx context.Context, event *adapter.BatchCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: encode event: %w", err)
	}
	delivery := event.BatchID + "/" + event.Timestamp

	err = adapter.Retry(ctx, a.retries, func(ctx context.Context) error {
		err := a.post(ctx, event, delivery, body)
		var se *StatusError
		if !errors.As(err, &se) {
			return err
		}
		switch {
		case se.Code == http.StatusRequestTimeout, se.Code == http.StatusTooManyRequests:
			return &adapter.Delayed{Err: err, After: se.RetryAfter}
		case se.Code >= 400 && se.Code < 500:
			return &adapter.Permanent{Err: err}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint answered %d %s", e.Code, http.StatusText(e.Code))
}

func (a *Adapter) post(ctx context.Context, event *adapter.BatchCompletedEvent, delivery string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return &adapter.Permanent{Err: err}
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event.EventType)
	req.Header.Set(HeaderBatch, event.BatchID)
	req.Header.Set(HeaderDelivery, delivery)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 == 2 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
}

// retryAfter parses a delay-seconds Retry-After value. HTTP dates are ignored.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
