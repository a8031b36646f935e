package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailfinder/config"
	"emailfinder/models"
)

// routedTransport sends every request, whatever its host, to srv.
func routedTransport(srv *httptest.Server) *http.Transport {
	addr := srv.Listener.Addr().String()
	return &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
}

func testConfig() config.CrawlConfig {
	cfg := config.DefaultCrawlConfig()
	cfg.RequestDelay = 0
	cfg.RequestTimeout = 2 * time.Second
	cfg.WallClock = 5 * time.Second
	return cfg
}

func newTestEngine(t *testing.T, cfg config.CrawlConfig, handler http.Handler) *Engine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	e := New(cfg, routedTransport(srv), logger)
	e.scheme = "http"
	return e
}

func byAddress(found []models.DiscoveredEmail) map[string]models.DiscoveredEmail {
	out := make(map[string]models.DiscoveredEmail, len(found))
	for _, f := range found {
		out[f.Address] = f
	}
	return out
}

func TestCrawlFindsAndScoresAddresses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<p>Write to Info@Example.com or someone@other.org</p>
			<a href="/about">About us</a>
			<a href="/pricing">Pricing</a>
			<a href="mailto:jane.doe@example.com?subject=hi">Email Jane</a>
			<script>var x = "hidden@example.com";</script>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>jdoe.press@example.com, jane@example.com, info@example.com</p></body></html>`)
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>sales@example.com</body></html>`)
	})

	e := newTestEngine(t, testConfig(), mux)
	found, err := e.Crawl(context.Background(), models.Person{FirstName: "Jane", LastName: "Doe"}, "example.com")
	require.NoError(t, err)

	got := byAddress(found)
	assert.Len(t, found, 4)

	exact := got["jane.doe@example.com"]
	assert.Equal(t, 100, exact.MatchScore)
	assert.Equal(t, models.MatchPatternExact, exact.MatchType)
	assert.Equal(t, "http://example.com/", exact.SourceURL)

	first := got["jane@example.com"]
	assert.Equal(t, 100, first.MatchScore)
	assert.Equal(t, "http://example.com/about", first.SourceURL)

	partial := got["jdoe.press@example.com"]
	assert.Equal(t, 75, partial.MatchScore)
	assert.Equal(t, models.MatchPartial, partial.MatchType)

	info := got["info@example.com"]
	assert.Equal(t, 50, info.MatchScore)
	assert.Equal(t, models.MatchDomain, info.MatchType)
	assert.Equal(t, "http://example.com/", info.SourceURL)

	assert.NotContains(t, got, "someone@other.org")
	assert.NotContains(t, got, "hidden@example.com")
	assert.NotContains(t, got, "sales@example.com", "links without keywords are not followed")
}

func TestCrawlWithoutNameGradesEverythingDomainMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>jane.doe@example.com</p>`)
	})

	e := newTestEngine(t, testConfig(), mux)
	found, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 50, found[0].MatchScore)
	assert.Equal(t, models.MatchDomain, found[0].MatchType)
}

func TestCrawlRespectsPageBudget(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `<a href="/team/%d">next</a><a href="/contact">contact</a><a href="/">home</a>`, n)
	})

	cfg := testConfig()
	cfg.PageBudget = 3
	cfg.DepthLimit = 10
	e := newTestEngine(t, cfg, mux)

	_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCrawlRespectsDepthLimit(t *testing.T) {
	var deepest atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var depth int
		_, _ = fmt.Sscanf(r.URL.Path, "/team/%d", &depth)
		for {
			cur := deepest.Load()
			if int32(depth) <= cur || deepest.CompareAndSwap(cur, int32(depth)) {
				break
			}
		}
		fmt.Fprintf(w, `<a href="/team/%d">deeper</a>`, depth+1)
	})

	cfg := testConfig()
	cfg.DepthLimit = 2
	cfg.PageBudget = 50
	e := newTestEngine(t, cfg, mux)

	_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), deepest.Load())
}

func TestCrawlIgnoresOffDomainLinks(t *testing.T) {
	var offDomain atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.Host)
		if host == "" {
			host = r.Host
		}
		if host != "example.com" && host != "blog.example.com" {
			offDomain.Add(1)
		}
		fmt.Fprint(w, `<a href="http://elsewhere.org/contact">x</a>
			<a href="http://blog.example.com/about">blog</a>
			<a href="javascript:contact()">js</a>`)
	})

	e := newTestEngine(t, testConfig(), mux)
	_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Zero(t, offDomain.Load())
}

func TestCrawlReturnsPartialResultsAtWallClock(t *testing.T) {
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>info@example.com</p><a href="/contact">contact</a>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	cfg := testConfig()
	cfg.WallClock = 300 * time.Millisecond
	cfg.RequestTimeout = 10 * time.Second
	e := newTestEngine(t, cfg, mux)
	t.Cleanup(func() { close(release) })

	start := time.Now()
	found, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	require.Len(t, found, 1)
	assert.Equal(t, "info@example.com", found[0].Address)
}

func TestCrawlSeedStatusErrorIsEmptyResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	e := newTestEngine(t, testConfig(), mux)
	found, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCrawlUnreachableSeedIsStartFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	transport := routedTransport(srv)
	srv.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	e := New(testConfig(), transport, logger)
	e.scheme = "http"

	_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.Error(t, err)
	assert.True(t, models.IsCrawlStartFailure(err))
}

func TestCrawlRobotsDisallow(t *testing.T) {
	var private atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /team\n")
	})
	mux.HandleFunc("/team", func(w http.ResponseWriter, r *http.Request) {
		private.Add(1)
		fmt.Fprint(w, `<p>hidden@example.com</p>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/team">team</a><p>hello@example.com</p>`)
	})

	cfg := testConfig()
	cfg.RespectRobots = true
	e := newTestEngine(t, cfg, mux)

	found, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Zero(t, private.Load())
	require.Len(t, found, 1)
	assert.Equal(t, "hello@example.com", found[0].Address)
}

func TestExtractPage(t *testing.T) {
	p := &page{
		contentType: "text/html; charset=utf-8",
		body: []byte(`<html><head><style>.a{color:red}</style></head><body>
			<!-- old@example.com -->
			<p>Reach bob@example.com</p>
			<a href="MAILTO:Alice%40example.com">alice</a>
			<a href="/staff">staff</a>
			<noscript>ns@example.com</noscript>
		</body></html>`),
	}
	emails, links := extractPage(p)
	assert.ElementsMatch(t, []string{"bob@example.com", "Alice@example.com"}, emails)
	assert.Equal(t, []string{"/staff"}, links)

	plain := &page{contentType: "text/plain", body: []byte("contact: x@example.com")}
	emails, links = extractPage(plain)
	assert.Equal(t, []string{"x@example.com"}, emails)
	assert.Empty(t, links)
}

func TestCrawlStripsPortForAddressMatching(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>jane.doe@example.com and info@example.com</p>`)
	})

	e := newTestEngine(t, testConfig(), mux)
	found, err := e.Crawl(context.Background(), models.Person{FirstName: "Jane", LastName: "Doe"}, "example.com:8080")
	require.NoError(t, err)

	got := byAddress(found)
	require.Len(t, got, 2)
	assert.Equal(t, models.MatchPatternExact, got["jane.doe@example.com"].MatchType)
	assert.Equal(t, "http://example.com:8080/", got["info@example.com"].SourceURL)
}

func TestCrawlBoundsInFlightFetches(t *testing.T) {
	var inflight, peak, hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				break
			}
		}
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		if r.URL.Path == "/" {
			for i := 1; i <= 6; i++ {
				fmt.Fprintf(w, `<a href="/team/%d">member</a>`, i)
			}
		}
	})

	cfg := testConfig()
	cfg.Concurrency = 2
	e := newTestEngine(t, cfg, mux)

	_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(7), hits.Load())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCrawlSpacesRequestsPerHost(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		if r.URL.Path == "/" {
			fmt.Fprint(w, `<a href="/team">team</a><a href="/contact">contact</a><a href="/about">about</a>`)
		}
	})

	cfg := testConfig()
	cfg.RequestDelay = 100 * time.Millisecond
	e := newTestEngine(t, cfg, mux)

	_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 4)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 90*time.Millisecond)
	}
}

func TestCrawlRedirectLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop1", http.StatusFound)
	})
	mux.HandleFunc("/hop1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop2", http.StatusFound)
	})
	mux.HandleFunc("/hop2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>info@example.com</p>`)
	})

	for limit, want := range map[int]int{0: 0, 1: 0, 2: 1} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			cfg := testConfig()
			cfg.RedirectLimit = limit
			e := newTestEngine(t, cfg, mux)

			found, err := e.Crawl(context.Background(), models.Person{}, "example.com")
			require.NoError(t, err, "hitting the redirect limit is not a start failure")
			require.Len(t, found, want)
			if want > 0 {
				assert.Equal(t, "http://example.com/hop2", found[0].SourceURL)
			}
		})
	}
}

// flakyTransport fails the first failures round trips, then delegates.
type flakyTransport struct {
	base     http.RoundTripper
	failures int32
	calls    atomic.Int32
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.base.RoundTrip(req)
}

func TestCrawlRetries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>info@example.com</p>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	t.Run("enabled", func(t *testing.T) {
		flaky := &flakyTransport{base: routedTransport(srv), failures: 1}
		cfg := testConfig()
		cfg.RetriesEnabled = true
		e := New(cfg, flaky, logger)
		e.scheme = "http"

		found, err := e.Crawl(context.Background(), models.Person{}, "example.com")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, int32(2), flaky.calls.Load())
	})

	t.Run("disabled", func(t *testing.T) {
		flaky := &flakyTransport{base: routedTransport(srv), failures: 1}
		cfg := testConfig()
		cfg.RetriesEnabled = false
		e := New(cfg, flaky, logger)
		e.scheme = "http"

		_, err := e.Crawl(context.Background(), models.Person{}, "example.com")
		assert.True(t, models.IsCrawlStartFailure(err))
		assert.Equal(t, int32(1), flaky.calls.Load())
	})
}
