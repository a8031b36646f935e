package models

import (
	"errors"
	"fmt"
)

// ErrDiscoveryTimeout is returned when a discovery outlives the caller's hard deadline.
var ErrDiscoveryTimeout = errors.New("discovery timed out")

// InputValidationError reports missing or malformed request input. Message is
// client-facing; Field names the first offending input.
type InputValidationError struct {
	Field   string
	Message string
}

func (e *InputValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return e.Message
}

// CrawlStartFailure means discovery could not even begin for the domain
// (seed unresolvable or unreachable, or the discovery task crashed).
type CrawlStartFailure struct {
	Domain string
	Err    error
}

func (e *CrawlStartFailure) Error() string {
	return fmt.Sprintf("crawl of %s could not start: %v", e.Domain, e.Err)
}

func (e *CrawlStartFailure) Unwrap() error { return e.Err }

// IsInputValidation reports whether err is an InputValidationError.
func IsInputValidation(err error) bool {
	var target *InputValidationError
	return errors.As(err, &target)
}

// IsCrawlStartFailure reports whether err is a CrawlStartFailure.
func IsCrawlStartFailure(err error) bool {
	var target *CrawlStartFailure
	return errors.As(err, &target)
}
