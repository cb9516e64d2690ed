package smsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultStateRetries = 3
	maxErrorBody        = 4 << 10
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Login    string
	Password string
	// ProxyURL routes every request through an HTTP proxy when set.
	ProxyURL string
	// Timeout bounds a single request.
	Timeout time.Duration
	// StateRetries is how many times GetState is repeated on transient failures.
	StateRetries uint64
}

// Client talks to the gateway over HTTP.
type Client struct {
	baseURL      string
	login        string
	password     string
	http         *http.Client
	stateRetries uint64
	backoff      time.Duration
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Login == "" || cfg.Password == "" {
		return nil, ErrNotConfigured
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("smsgateway: invalid base url: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.StateRetries == 0 {
		cfg.StateRetries = defaultStateRetries
	}

	hc, err := NewHTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		login:        cfg.Login,
		password:     cfg.Password,
		http:         hc,
		stateRetries: cfg.StateRetries,
		backoff:      200 * time.Millisecond,
	}, nil
}

// NewHTTPClient returns an http.Client using proxyURL when it is not empty.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		pu, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("smsgateway: invalid proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(pu)
	} else {
		tr.Proxy = nil
	}

	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// BaseURL returns the gateway base url without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send submits msg. Duplicate recipients are collapsed.
func (c *Client) Send(ctx context.Context, msg Message) (*Receipt, error) {
	msg.PhoneNumbers = lo.Uniq(lo.Compact(msg.PhoneNumbers))
	if len(msg.PhoneNumbers) == 0 || msg.Text == "" {
		return nil, ErrInvalidMessage
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	var out Receipt
	if err := c.do(ctx, http.MethodPost, "/message", body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetState fetches the state of message id, retrying transient failures.
func (c *Client) GetState(ctx context.Context, id string) (*Receipt, error) {
	if id == "" {
		return nil, ErrInvalidMessage
	}

	b := retry.NewExponential(c.backoff)
	b = retry.WithMaxRetries(c.stateRetries, b)
	b = retry.WithCappedDuration(2*time.Second, b)

	var out Receipt
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, "/message/"+url.PathEscape(id), nil, &out)
		if err == nil {
			return nil
		}

		var he *HTTPError
		if errors.As(err, &he) && !he.Temporary() {
			return err
		}

		slog.WarnContext(ctx, "sms gateway state request failed, retrying", "message_id", id, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}

	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("smsgateway: decode response: %w", err)
	}

	return nil
}
