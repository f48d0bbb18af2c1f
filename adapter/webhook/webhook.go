// Package webhook delivers collection events to an HTTP endpoint.
//
// The event is POSTed as JSON. Every attempt for one run carries the same
// Idempotency-Key, so a receiver that answers 409 Conflict is treated as
// already holding the event.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/lighthouse/adapter"
	"github.com/pithecene-io/lighthouse/iox"
	"github.com/pithecene-io/lighthouse/types"
)

// Request headers describing the event without decoding the body.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderEvent          = "X-Lighthouse-Event"
	HeaderOutcome        = "X-Lighthouse-Outcome"
	HeaderRootURI        = "X-Lighthouse-Root-URI"
)

// DefaultTimeout bounds one POST.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is used when the CLI config leaves retries unset.
const DefaultRetries = 3

// Config configures the webhook adapter.
type Config struct {
	// URL receives the POST (required).
	URL string
	// Headers are added to every request, after the event headers.
	Headers map[string]string
	// Timeout bounds one POST (default 10s).
	Timeout time.Duration
	// Retries is the retry budget for a published collection. Other
	// outcomes use at most one retry.
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
}

// Adapter posts collection events.
type Adapter struct {
	config Config
	client *http.Client
}

// New validates cfg and returns an adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StatusError is a non-2xx answer from the receiver.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the receiver may accept the event later.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Publish posts event. 5xx, 429 and transport errors are retried; any
// other 4xx ends delivery.
func (a *Adapter) Publish(ctx context.Context, event *adapter.CollectionPublishedEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	d := adapter.Delivery{
		Attempts:  event.Attempts(a.config.Retries),
		Backoff:   a.config.Backoff,
		Permanent: permanent,
	}
	err = d.Run(ctx, func(ctx context.Context) error {
		return a.post(ctx, event, body)
	})
	if err != nil {
		return fmt.Errorf("webhook: run %s: %w", event.DeliveryKey(), err)
	}
	return nil
}

func permanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && !se.Retryable()
}

func (a *Adapter) post(ctx context.Context, event *adapter.CollectionPublishedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", types.PublisherName+"/"+types.Version)
	req.Header.Set(HeaderIdempotencyKey, event.DeliveryKey())
	req.Header.Set(HeaderEvent, event.EventType)
	req.Header.Set(HeaderOutcome, event.Outcome)
	if event.Published() {
		req.Header.Set(HeaderRootURI, event.RootURI)
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// The receiver already recorded this delivery key.
		return nil
	}
	return &StatusError{Code: resp.StatusCode}
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
