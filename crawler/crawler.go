// Package crawler walks a single domain breadth-first and harvests email
// addresses that belong to it.
//
// Every Crawl call builds its own frontier, visited set and result buffer, so
// one Engine can serve concurrent requests. A coordinator goroutine owns that
// state; workers only fetch and extract. The whole crawl is bounded by the
// page budget and the wall-clock budget, and hitting the deadline returns
// whatever was collected so far.
package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"emailfinder/config"
	"emailfinder/models"
	"emailfinder/utils"
)

// linkKeywords mark hrefs worth following.
var linkKeywords = []string{
	"about", "team", "contact", "staff", "author", "people", "writers", "contributors", "editorial",
}

// Engine is a reusable, stateless crawler configuration.
type Engine struct {
	cfg    config.CrawlConfig
	client *http.Client
	logger logrus.FieldLogger
	scheme string
}

// New builds an Engine. A nil base transport uses a fresh *http.Transport.
func New(cfg config.CrawlConfig, base http.RoundTripper, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PageBudget < 1 {
		cfg.PageBudget = 1
	}
	return &Engine{
		cfg:    cfg,
		client: newClient(cfg, base),
		logger: logger.WithField("component", "crawler"),
		scheme: "https",
	}
}

// Name identifies the engine as a discovery source.
func (e *Engine) Name() string { return "crawl" }

// Discover crawls domain for addresses relevant to person.
func (e *Engine) Discover(ctx context.Context, person models.Person, domain string) ([]models.DiscoveredEmail, error) {
	return e.Crawl(ctx, person, domain)
}

type target struct {
	url   string
	depth int
}

type pageResult struct {
	target
	finalURL string
	emails   []string
	links    []string
	err      error
}

// crawlState is the per-invocation state, owned by the coordinator.
type crawlState struct {
	host       string
	person     models.Person
	candidates []string
	nameTokens []string

	frontier []target
	visited  map[string]struct{}
	seen     map[string]struct{}
	found    []models.DiscoveredEmail
	pages    int
}

func newCrawlState(person models.Person, domain string) *crawlState {
	host := utils.StripPort(domain)
	return &crawlState{
		host:       host,
		person:     person.Normalized(),
		candidates: utils.GeneratePatterns(person.FirstName, person.LastName, host),
		nameTokens: utils.NameTokens(person),
		visited:    make(map[string]struct{}),
		seen:       make(map[string]struct{}),
	}
}

// Crawl traverses pages reachable from the domain's home page. It returns an
// error only when the seed page cannot be reached at all.
func (e *Engine) Crawl(ctx context.Context, person models.Person, domain string) ([]models.DiscoveredEmail, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	log := e.logger.WithField("domain", domain)
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.WallClock)
	defer cancel()

	st := newCrawlState(person, domain)
	budget := e.cfg.PageBudget
	st.enqueue(e.scheme+"://"+domain+"/", 0, budget)

	jobs := make(chan target)
	results := make(chan pageResult)
	throttle := newHostThrottle(e.cfg.RequestDelay)
	var robots *robotsCache
	if e.cfg.RespectRobots {
		robots = newRobotsCache(e.client, e.cfg.RequestTimeout)
	}

	// Workers exit on ctx.Done; the coordinator never waits for them, so a
	// fetch stuck in the network cannot hold the crawl past its deadline.
	for i := 0; i < e.cfg.Concurrency; i++ {
		go e.worker(ctx, jobs, results, throttle, robots)
	}

	inflight := 0
	for {
		for inflight < e.cfg.Concurrency && len(st.frontier) > 0 && st.pages < budget {
			next := st.frontier[0]
			select {
			case jobs <- next:
				st.frontier = st.frontier[1:]
				st.pages++
				inflight++
			case <-ctx.Done():
				return e.partial(log, st, started), nil
			}
		}
		if inflight == 0 {
			break
		}

		select {
		case res := <-results:
			inflight--
			if res.err != nil {
				if res.depth == 0 && ctx.Err() == nil && isTransportError(res.err) {
					log.WithError(res.err).Warn("seed page unreachable")
					return nil, &models.CrawlStartFailure{Domain: domain, Err: res.err}
				}
				log.WithFields(logrus.Fields{"url": res.url, "error": res.err}).Debug("page fetch failed")
				continue
			}
			e.absorb(st, res, budget)
		case <-ctx.Done():
			return e.partial(log, st, started), nil
		}
	}

	log.WithFields(logrus.Fields{
		"pages":    st.pages,
		"emails":   len(st.found),
		"duration": time.Since(started).String(),
	}).Info("crawl finished")
	return st.found, nil
}

func (e *Engine) partial(log logrus.FieldLogger, st *crawlState, started time.Time) []models.DiscoveredEmail {
	log.WithFields(logrus.Fields{
		"pages":    st.pages,
		"emails":   len(st.found),
		"duration": time.Since(started).String(),
	}).Warn("crawl stopped at wall-clock budget, returning partial results")
	return st.found
}

func (e *Engine) worker(ctx context.Context, jobs <-chan target, results chan<- pageResult, throttle *hostThrottle, robots *robotsCache) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-jobs:
			res := e.visit(ctx, t, throttle, robots)
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Engine) visit(ctx context.Context, t target, throttle *hostThrottle, robots *robotsCache) pageResult {
	res := pageResult{target: t}
	u, err := url.Parse(t.url)
	if err != nil {
		res.err = err
		return res
	}

	if robots != nil && !robots.allowed(ctx, u, e.cfg.UserAgent, throttle) {
		res.err = errDisallowed
		return res
	}
	if err := throttle.Wait(ctx, u.Host); err != nil {
		res.err = err
		return res
	}

	page, err := e.fetch(ctx, t.url)
	if err != nil {
		res.err = err
		return res
	}
	res.finalURL = page.url
	res.emails, res.links = extractPage(page)
	return res
}

// absorb folds one page's harvest into the crawl state.
func (e *Engine) absorb(st *crawlState, res pageResult, budget int) {
	source := res.finalURL
	if source == "" {
		source = res.url
	}
	for _, raw := range res.emails {
		addr := strings.ToLower(raw)
		if !strings.Contains(addr, st.host) {
			continue
		}
		if _, dup := st.seen[addr]; dup {
			continue
		}
		st.seen[addr] = struct{}{}
		score, kind := utils.ScoreMatch(addr, st.person, st.candidates)
		st.found = append(st.found, models.DiscoveredEmail{
			Address:    addr,
			SourceURL:  source,
			MatchScore: score,
			MatchType:  kind,
		})
	}

	if res.depth+1 > e.cfg.DepthLimit {
		return
	}
	base, err := url.Parse(source)
	if err != nil {
		return
	}
	for _, href := range res.links {
		if !st.shouldFollow(href) {
			continue
		}
		next, ok := st.resolve(base, href)
		if !ok {
			continue
		}
		st.enqueue(next, res.depth+1, budget)
	}
}

// enqueue adds a URL to the frontier unless it was already seen or could
// never be dispatched within the page budget.
func (st *crawlState) enqueue(rawURL string, depth, budget int) {
	if _, ok := st.visited[rawURL]; ok {
		return
	}
	if st.pages+len(st.frontier) >= budget {
		return
	}
	st.visited[rawURL] = struct{}{}
	st.frontier = append(st.frontier, target{url: rawURL, depth: depth})
}

func (st *crawlState) shouldFollow(href string) bool {
	h := strings.ToLower(href)
	for _, kw := range linkKeywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	for _, tok := range st.nameTokens {
		if strings.Contains(h, tok) {
			return true
		}
	}
	return false
}

// resolve makes href absolute and keeps it only if it stays on the domain.
func (st *crawlState) resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != st.host && !strings.HasSuffix(host, "."+st.host) {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), true
}

var errDisallowed = errors.New("disallowed by robots.txt")
