package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/version"
	"github.com/cenkalti/backoff/v4"
)

const maxResponseBytes = 8 << 20

var errRetryableStatus = errors.New("retryable status")

// Client performs authenticated JSON requests. Statuses of 400 and above are
// returned as a Response, never as an error; only transport failures are.
type Client struct {
	http      *http.Client
	userAgent string
	retries   int
	interval  time.Duration
}

type Option func(*Client)

// WithRetries retries transport failures and 5xx answers up to n times with
// exponential backoff. The default is no retry.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	client := &Client{
		http:      httpClient,
		userAgent: "opsbot/" + version.Version,
		interval:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

type Response struct {
	Status int
	// Body is the decoded JSON document, the raw text when the payload is not
	// JSON, or nil when it is empty.
	Body   any
	Raw    []byte
	Header http.Header
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err converts a failed response into a *domain.PlatformError.
func (r Response) Err() error {
	if r.Status < 400 {
		return nil
	}

	var message string
	var code int
	if body, ok := r.Body.(map[string]any); ok {
		message, _ = body["message"].(string)
		switch value := body["code"].(type) {
		case float64:
			code = int(value)
		case string:
			if message == "" {
				message = value
			} else {
				message = value + ": " + message
			}
		}
		if value, ok := body["statusCode"].(float64); ok && code == 0 {
			code = int(value)
		}
	}

	return domain.NewPlatformError(r.Status, code, message, r.Raw)
}

// Decode unmarshals the raw body into out.
func (r Response) Decode(out any) error {
	if len(r.Raw) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) PostJSON(ctx context.Context, endpoint string, headers map[string]string, body any) (Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, headers, body)
}

func (c *Client) PatchJSON(ctx context.Context, endpoint string, headers map[string]string, body any) (Response, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, headers, body)
}

func (c *Client) Get(ctx context.Context, endpoint string, headers map[string]string) (Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, headers, nil)
}

// Do sends one request, with a JSON body when body is not nil. Errors name
// only the scheme and host of endpoint, since paths can carry tokens.
func (c *Client) Do(ctx context.Context, method, endpoint string, headers map[string]string, body any) (Response, error) {
	target := redactURL(endpoint)

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("%w: encode %s %s body: %v", domain.ErrConfig, method, target, err)
		}
		payload = encoded
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(backoff.WithInitialInterval(c.interval)),
			uint64(c.retries),
		),
		ctx,
	)

	var last Response
	err := backoff.Retry(func() error {
		resp, err := c.send(ctx, method, endpoint, target, headers, payload)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrConfig) {
				return backoff.Permanent(err)
			}
			return err
		}
		last = resp
		if c.retries > 0 && resp.Status >= http.StatusInternalServerError {
			return errRetryableStatus
		}
		return nil
	}, policy)

	switch {
	case err == nil, errors.Is(err, errRetryableStatus):
		return last, nil
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrConfig):
		return Response{}, err
	default:
		return Response{}, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, target, err)
	}
}

func (c *Client) send(ctx context.Context, method, endpoint, target string, headers map[string]string, payload []byte) (Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return Response{}, fmt.Errorf("%w: build %s %s: %v", domain.ErrConfig, method, target, unwrapURLError(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, target, unwrapURLError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read %s %s response: %w", domain.ErrTransport, method, target, err)
	}

	return Response{
		Status: resp.StatusCode,
		Body:   decodeBody(raw),
		Raw:    raw,
		Header: resp.Header,
	}, nil
}

// redactURL keeps the scheme and host of raw.
func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "<invalid url>"
	}
	return parsed.Scheme + "://" + parsed.Host
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the full
// request URL.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return decoded
}

// NotionHeaders authenticates against the Notion REST API.
func NotionHeaders(token, notionVersion string) map[string]string {
	return map[string]string{
		"Authorization":  "Bearer " + token,
		"Notion-Version": notionVersion,
	}
}

// SwitchBotHeaders authenticates against the SwitchBot REST API. The token is
// sent bare, without a scheme.
func SwitchBotHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": token,
	}
}
