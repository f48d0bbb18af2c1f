// Package arweave adapts the goar SDK to what a one-shot publisher needs:
// wallet loading, format-2 transaction construction and signing, chunked
// data upload, price quotes and balance lookups.
//
// Failures reported by the gateway surface as *StatusError so callers can
// tell rate limiting (429) from everything else.
package arweave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/everFinance/goar"

	"github.com/pithecene-io/lighthouse/iox"
)

// DefaultGateway is the public gateway used when none is configured.
const DefaultGateway = "https://arweave.net"

// DefaultTimeout is the default timeout of balance lookups.
const DefaultTimeout = 60 * time.Second

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 1024

// Config configures the gateway client.
type Config struct {
	// URL is the gateway base URL (default DefaultGateway).
	URL string
	// Timeout bounds balance lookups (default 60s).
	Timeout time.Duration
}

// Client talks to an Arweave gateway through goar.
type Client struct {
	baseURL string
	node    *goar.Client
	http    *http.Client
}

// NewClient creates a client for the configured gateway.
func NewClient(cfg Config) (*Client, error) {
	base, err := NormalizeGatewayURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: base,
		node:    goar.NewClient(base),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// NormalizeGatewayURL validates a gateway URL and strips any trailing
// slash. An empty string yields DefaultGateway.
func NormalizeGatewayURL(raw string) (string, error) {
	if raw == "" {
		return DefaultGateway, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid gateway url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid gateway url %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// BaseURL returns the normalized gateway URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError is returned for non-2xx gateway responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// IsRateLimited reports whether err carries an HTTP 429 response, either
// as a *StatusError or as goar's request-limit error.
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests
	}
	return errors.Is(err, goar.ErrRequestLimit)
}

// checkResponse turns a goar (body, code, err) triple into an error.
func checkResponse(method, path, body string, code int, err error) error {
	if code != 0 && (code < 200 || code >= 300) {
		msg := strings.TrimSpace(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{Method: method, Path: path, Code: code, Body: msg}
	}
	if err != nil {
		return fmt.Errorf("%s %s: request failed: %w", method, path, err)
	}
	return nil
}

// Anchor fetches a transaction anchor (last_tx) from the gateway.
func (c *Client) Anchor(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	anchor, err := c.node.GetTransactionAnchor()
	if err != nil {
		return "", fmt.Errorf("GET /tx_anchor: %w", err)
	}
	return strings.TrimSpace(anchor), nil
}

// Price returns the fee in winston for storing size bytes.
func (c *Client) Price(ctx context.Context, size int64) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reward, err := c.node.GetTransactionPrice(int(size), nil)
	if err != nil {
		return nil, fmt.Errorf("GET /price/%d: %w", size, err)
	}
	if reward < 0 {
		return nil, fmt.Errorf("invalid winston amount %d", reward)
	}
	return big.NewInt(reward), nil
}

// Balance returns the balance in winston of address.
//
// goar reports balances as a *big.Float in AR, which cannot hold every
// winston amount exactly, so the raw endpoint is read here instead.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	path := "/wallet/" + url.PathEscape(address) + "/balance"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: request failed: %w", path, err)
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err := checkResponse(http.MethodGet, path, string(body), resp.StatusCode, err); err != nil {
		return nil, err
	}
	return parseWinston(strings.TrimSpace(string(body)))
}

// Address returns the address of w.
func (c *Client) Address(w *Wallet) (string, error) {
	if w == nil {
		return "", errors.New("no wallet loaded")
	}
	return w.Address(), nil
}

// CreateTransaction builds an unsigned data transaction owned by w,
// fetching the anchor and the reward from the gateway.
func (c *Client) CreateTransaction(ctx context.Context, data []byte, w *Wallet) (*Transaction, error) {
	if w == nil {
		return nil, errors.New("no wallet loaded")
	}
	anchor, err := c.Anchor(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch anchor: %w", err)
	}
	reward, err := c.Price(ctx, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("fetch reward: %w", err)
	}
	return NewTransaction(data, w.Owner(), anchor, reward), nil
}

// Sign signs tx with w.
func (c *Client) Sign(tx *Transaction, w *Wallet) error {
	if w == nil {
		return errors.New("no wallet loaded")
	}
	return tx.Sign(w)
}

// Uploader returns a chunk uploader for a signed transaction.
func (c *Client) Uploader(tx *Transaction) (ChunkUploader, error) {
	if tx.Signature == "" {
		return nil, errors.New("transaction is not signed")
	}
	return newUploader(c, tx), nil
}

func parseWinston(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid winston amount %q", s)
	}
	return v, nil
}
