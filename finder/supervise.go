package finder

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"emailfinder/models"
	"emailfinder/utils"
)

type discovery struct {
	found []models.DiscoveredEmail
	err   error
}

// runIsolated runs src in its own goroutine. A panic inside the source is
// reported as a CrawlStartFailure; outliving deadline cancels the source and
// yields ErrDiscoveryTimeout. Any other source error counts as a start
// failure. The source goroutine is abandoned, never awaited.
func runIsolated(ctx context.Context, deadline time.Duration, src Source, person models.Person, domain string) ([]models.DiscoveredEmail, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan discovery, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("discovery panicked: %v", r)
				utils.LogError("discovery_panic", err, map[string]interface{}{
					"source": src.Name(),
					"domain": domain,
					"stack":  string(debug.Stack()),
				})
				done <- discovery{err: &models.CrawlStartFailure{Domain: domain, Err: err}}
			}
		}()
		found, err := src.Discover(runCtx, person, domain)
		done <- discovery{found: found, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case d := <-done:
		if d.err != nil && !models.IsCrawlStartFailure(d.err) && !models.IsInputValidation(d.err) {
			d.err = &models.CrawlStartFailure{Domain: domain, Err: d.err}
		}
		return d.found, d.err
	case <-timer.C:
		return nil, models.ErrDiscoveryTimeout
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", models.ErrDiscoveryTimeout, ctx.Err())
	}
}
