package utils

import (
	"net"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"emailfinder/models"
)

var hostnameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*$`)

// NormalizeDomain turns user input such as "https://Example.com/about" into a
// bare lowercase hostname ("example.com").
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	d = strings.TrimSuffix(d, ".")

	if d == "" {
		return "", &models.InputValidationError{Field: "domain", Message: "domain is required"}
	}

	host := StripPort(d)
	if !hostnameRegex.MatchString(host) {
		return "", &models.InputValidationError{Field: "domain", Message: "domain is not a valid hostname"}
	}
	if suffix, icann := publicsuffix.PublicSuffix(host); icann && suffix == host {
		return "", &models.InputValidationError{Field: "domain", Message: "domain is a public suffix"}
	}
	return d, nil
}

// StripPort drops a ":port" suffix, leaving the hostname that appears in
// email addresses.
func StripPort(domain string) string {
	if h, _, err := net.SplitHostPort(domain); err == nil {
		return h
	}
	return domain
}

// ExtractDomain extracts domain from email address
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
