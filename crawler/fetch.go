package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"emailfinder/config"
)

const (
	maxBodyBytes = 2 << 20
	retryMax     = 2
)

// FetchError describes a failed page fetch. StatusCode is zero when the
// request never got an HTTP response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var errTooManyRedirects = errors.New("too many redirects")

// isTransportError reports a fetch that never got a usable HTTP response.
// Hitting the redirect limit does not count.
func isTransportError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == 0 && !errors.Is(err, errTooManyRedirects)
}

type page struct {
	url         string
	contentType string
	body        []byte
}

// transport sets the crawler's User-Agent and, when enabled, retries
// replayable requests a bounded number of times.
type transport struct {
	base      http.RoundTripper
	userAgent string
	retryMax  int
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	retries := t.retryMax
	if !canRetry || retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.userAgent != "" {
			r.Header.Set("User-Agent", t.userAgent)
		}
		resp, err := t.base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func newClient(cfg config.CrawlConfig, base http.RoundTripper) *http.Client {
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: cfg.RequestTimeout,
			MaxIdleConnsPerHost:   cfg.Concurrency,
		}
	}
	retries := 0
	if cfg.RetriesEnabled {
		retries = retryMax
	}
	limit := cfg.RedirectLimit
	return &http.Client{
		Transport: &transport{base: base, userAgent: cfg.UserAgent, retryMax: retries},
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > limit {
				return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, limit)
			}
			return nil
		},
	}
}

// fetch GETs one page under its own request timeout.
func (e *Engine) fetch(ctx context.Context, rawURL string) (*page, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return &page{
		url:         resp.Request.URL.String(),
		contentType: strings.ToLower(resp.Header.Get("Content-Type")),
		body:        body,
	}, nil
}
