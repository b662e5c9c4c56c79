// Package httpclient talks to the marketplace REST API. It owns the base host,
// the endpoint table and the decoding of the {success,message,data} envelope.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/discovery"
	"github.com/fathima-sithara/quickads/internal/metrics"
)

const maxBody = 8 << 20

type ClientConfig struct {
	Service         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	// RetryReads enables exponential backoff on GET only. Writes are never
	// retried.
	RetryReads      bool
	RetryMaxElapsed time.Duration
	Breaker         BreakerConfig
}

type Client struct {
	http *http.Client
	conf ClientConfig
	disc discovery.Discovery
	cb   *gobreaker.CircuitBreaker
	log  *zap.Logger
}

func NewClient(conf ClientConfig, disc discovery.Discovery, log *zap.Logger) *Client {
	if conf.Timeout <= 0 {
		conf.Timeout = 20 * time.Second
	}
	if conf.MaxIdleConns == 0 {
		conf.MaxIdleConns = 100
	}
	if conf.IdleConnTimeout == 0 {
		conf.IdleConnTimeout = 90 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:        conf.MaxIdleConns,
		MaxIdleConnsPerHost: conf.MaxIdleConns,
		IdleConnTimeout:     conf.IdleConnTimeout,
	}
	cb := newBreaker("marketplace-api", conf.Breaker, log)
	return &Client{
		http: &http.Client{Transport: breakerTransport{next: tr, cb: cb}, Timeout: conf.Timeout},
		conf: conf,
		disc: disc,
		cb:   cb,
		log:  log,
	}
}

// BreakerState is exposed for the health endpoint.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

// Get returns the raw body of a 2xx response.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	if !c.conf.RetryReads {
		return c.do(ctx, http.MethodGet, path, nil, "")
	}
	var out []byte
	op := func() error {
		b, err := c.do(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			var ue *apperr.UpstreamError
			if errors.As(err, &ue) && ue.Status < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		out = b
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.conf.RetryMaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// GetJSON decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	b, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decode(b, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	b, err := c.do(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	return decode(b, out)
}

// FilePart is one file in a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Form is a multipart request: repeated text values per field plus files.
type Form struct {
	Fields map[string][]string
	Files  []FilePart
}

func (c *Client) PostMultipart(ctx context.Context, path string, form Form, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range form.Fields {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				return err
			}
		}
	}
	for _, f := range form.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Filename)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	b, err := c.do(ctx, http.MethodPost, path, buf.Bytes(), w.FormDataContentType())
	if err != nil {
		return err
	}
	return decode(b, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	b, err := c.do(ctx, method, path, payload, "application/json")
	if err != nil {
		return err
	}
	return decode(b, out)
}

// do resolves the host, sends the request and maps failures onto apperr.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string) ([]byte, error) {
	label := endpointLabel(path)
	base, err := c.resolve(path)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(label, "unresolved").Inc()
		return nil, fmt.Errorf("%w: %v", apperr.ErrServiceUnavailable, err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if rid, ok := ctx.Value(RequestIDKey{}).(string); ok && rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(label, "transport").Inc()
		if errors.Is(err, apperr.ErrServiceUnavailable) {
			return nil, apperr.ErrServiceUnavailable
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", apperr.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(label, "transport").Inc()
		return nil, fmt.Errorf("%w: reading %s: %v", apperr.ErrTransport, path, err)
	}
	c.log.Debug("upstream call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamCalls.WithLabelValues(label, "status_"+statusClass(resp.StatusCode)).Inc()
		return nil, &apperr.UpstreamError{Status: resp.StatusCode, Message: messageOf(raw)}
	}
	metrics.UpstreamCalls.WithLabelValues(label, "ok").Inc()
	return raw, nil
}

func (c *Client) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return "", nil
	}
	return c.disc.Lookup(c.conf.Service)
}

// RequestIDKey carries the inbound request id onto upstream calls.
type RequestIDKey struct{}

func decode(b []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrProtocolMismatch, err)
	}
	return nil
}

// messageOf pulls "message" (or "error") out of an error body.
func messageOf(raw []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &m) == nil {
		if m.Message != "" {
			return m.Message
		}
		return m.Error
	}
	return ""
}

func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if len(parts) >= 2 {
		return "/" + parts[0] + "/" + parts[1]
	}
	return path
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
