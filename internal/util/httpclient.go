package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"civicdata/us-ingester/internal/metrics"
)

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Simple exponential backoff with jitter-less growth.
func Retry(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}
	d := initial
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := fn(); err != nil {
			if i == attempts-1 {
				return err
			}
			if d < max {
				d *= 2
				if d > max {
					d = max
				}
			}
			continue
		}
		return nil
	}
	return errors.New("retry: exhausted")
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool { return r.StatusCode/100 == 2 }

// Getter issues GET requests with retries on transport errors and 5xx.
// 4xx responses are returned to the caller untouched.
type Getter struct {
	Client     *http.Client
	UserAgent  string
	Target     string // metrics label, e.g. "roster"
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func NewGetter(target string, timeout time.Duration, userAgent string, attempts int, backoff, maxBackoff time.Duration) *Getter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Getter{
		Client:     NewHTTPClient(timeout),
		UserAgent:  userAgent,
		Target:     target,
		Attempts:   attempts,
		Backoff:    DefaultDur(backoff, 500*time.Millisecond),
		MaxBackoff: DefaultDur(maxBackoff, 5*time.Second),
	}
}

func (g *Getter) Get(ctx context.Context, url string) (*Response, error) {
	var out *Response
	err := Retry(ctx, max(1, g.Attempts), g.Backoff, g.MaxBackoff, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if g.UserAgent != "" {
			req.Header.Set("User-Agent", g.UserAgent)
		}
		resp, err := g.Client.Do(req)
		if err != nil {
			metrics.HTTPRequests.WithLabelValues(g.Target, "error").Inc()
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			metrics.HTTPRequests.WithLabelValues(g.Target, "error").Inc()
			return err
		}
		metrics.HTTPRequests.WithLabelValues(g.Target, strconv.Itoa(resp.StatusCode)).Inc()
		if resp.StatusCode/100 == 5 {
			return fmt.Errorf("%s %d: %s", g.Target, resp.StatusCode, head(body, 256))
		}
		out = &Response{URL: url, StatusCode: resp.StatusCode, Body: body}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func DefaultDur(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func head(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}
