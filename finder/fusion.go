package finder

import (
	"context"
	"math"
	"strings"

	"emailfinder/config"
	"emailfinder/models"
)

const (
	defaultMatchScore = 50

	msgNoEmail         = "No email found"
	msgNoVerifiedEmail = "No verified email found"
)

// BatchVerifier is satisfied by *utils.Verifier.
type BatchVerifier interface {
	VerifyBatch(ctx context.Context, emails []string) []models.VerificationResult
}

// Fuse verifies the first few distinct discoveries and blends the best
// verification with its crawl match score.
func Fuse(ctx context.Context, found []models.DiscoveredEmail, v BatchVerifier, cfg config.FusionConfig) models.FusedResult {
	if len(found) == 0 {
		return models.FusedResult{Message: msgNoEmail}
	}

	limit := cfg.MaxVerify
	if limit < 1 {
		limit = config.DefaultFusionConfig().MaxVerify
	}
	toVerify := distinctAddresses(found, limit)

	results := v.VerifyBatch(ctx, toVerify)
	if len(results) == 0 {
		return models.FusedResult{Message: msgNoVerifiedEmail}
	}

	best := results[0]
	for _, r := range results {
		if r.Deliverable.IsTrue() {
			best = r
			break
		}
	}

	matchScore := defaultMatchScore
	matchType := models.MatchUnknown
	sourceURL := ""
	for _, d := range found {
		if strings.EqualFold(d.Address, best.Email) {
			matchScore, matchType, sourceURL = d.MatchScore, d.MatchType, d.SourceURL
			break
		}
	}

	email := best.Email
	return models.FusedResult{
		Email:        &email,
		Confidence:   combine(best.Confidence, matchScore, cfg),
		Verified:     best.Deliverable.IsTrue(),
		DNSValid:     best.DNSValid,
		SMTPValid:    best.SMTPValid,
		MatchType:    matchType,
		SourceURL:    sourceURL,
		Verification: &best,
	}
}

// distinctAddresses keeps discovery order, not match-score order.
func distinctAddresses(found []models.DiscoveredEmail, limit int) []string {
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, d := range found {
		addr := strings.ToLower(d.Address)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
		if len(out) == limit {
			break
		}
	}
	return out
}

func combine(verification, match int, cfg config.FusionConfig) int {
	wv, wm := cfg.VerificationWeight, cfg.MatchWeight
	if wv == 0 && wm == 0 {
		d := config.DefaultFusionConfig()
		wv, wm = d.VerificationWeight, d.MatchWeight
	}
	c := int(math.Round(float64(verification)*wv + float64(match)*wm))
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}
