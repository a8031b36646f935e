// Package finder turns a (person, domain) pair into a judged contact address.
// It runs a discovery Source under supervision and fuses what it finds with
// SMTP/DNS verification.
package finder

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"emailfinder/config"
	"emailfinder/crawler"
	"emailfinder/models"
	"emailfinder/utils"
)

// Source discovers candidate addresses for a person at a domain. Finding
// nothing is an empty slice, not an error.
type Source interface {
	Name() string
	Discover(ctx context.Context, person models.Person, domain string) ([]models.DiscoveredEmail, error)
}

const generatedSourceURL = "generated"

// PatternSource proposes the canonical address forms without touching the
// network. Every candidate is an exact pattern match by construction.
type PatternSource struct{}

func (PatternSource) Name() string { return "patterns" }

func (PatternSource) Discover(_ context.Context, person models.Person, domain string) ([]models.DiscoveredEmail, error) {
	candidates := utils.GeneratePatterns(person.FirstName, person.LastName, utils.StripPort(domain))
	found := make([]models.DiscoveredEmail, 0, len(candidates))
	for _, addr := range candidates {
		score, kind := utils.ScoreMatch(addr, person, candidates)
		found = append(found, models.DiscoveredEmail{
			Address:    addr,
			SourceURL:  generatedSourceURL,
			MatchScore: score,
			MatchType:  kind,
		})
	}
	return found, nil
}

// NewSource builds the discovery source named by cfg.DiscoverySource.
func NewSource(cfg config.Config, logger logrus.FieldLogger) (Source, error) {
	switch cfg.DiscoverySource {
	case "", "crawl":
		return crawler.New(cfg.Crawl, nil, logger), nil
	case "patterns":
		return PatternSource{}, nil
	default:
		return nil, fmt.Errorf("unknown discovery source %q", cfg.DiscoverySource)
	}
}
