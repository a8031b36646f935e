package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches robots.txt at most once per host and crawl.
type robotsCache struct {
	client  *http.Client
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

func newRobotsCache(client *http.Client, timeout time.Duration) *robotsCache {
	return &robotsCache{
		client:  client,
		timeout: timeout,
		entries: make(map[string]*robotsEntry),
	}
}

// allowed reports whether userAgent may fetch u. An unreadable robots.txt
// allows everything.
func (c *robotsCache) allowed(ctx context.Context, u *url.URL, userAgent string, throttle *hostThrottle) bool {
	key := u.Scheme + "://" + u.Host
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &robotsEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		if err := throttle.Wait(ctx, u.Host); err != nil {
			return
		}
		entry.data = c.load(ctx, key+"/robots.txt")
	})
	if entry.data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return entry.data.TestAgent(path, userAgent)
}

func (c *robotsCache) load(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
