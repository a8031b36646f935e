package finder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"emailfinder/config"
	"emailfinder/models"
	"emailfinder/utils"
)

// Service answers find and find-and-verify requests. It holds no
// per-request state.
type Service struct {
	source   Source
	verifier BatchVerifier
	fusion   config.FusionConfig
	deadline time.Duration
	logger   logrus.FieldLogger
}

func NewService(source Source, verifier BatchVerifier, fusion config.FusionConfig, deadline time.Duration, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deadline <= 0 {
		deadline = 120 * time.Second
	}
	return &Service{
		source:   source,
		verifier: verifier,
		fusion:   fusion,
		deadline: deadline,
		logger:   logger.WithField("component", "finder"),
	}
}

type discoveryRun struct {
	requestID string
	domain    string
	found     []models.DiscoveredEmail
}

func (s *Service) discover(ctx context.Context, firstName, lastName, rawDomain string) (*discoveryRun, error) {
	domain, err := utils.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}
	run := &discoveryRun{requestID: uuid.NewString(), domain: domain}
	person := models.Person{FirstName: firstName, LastName: lastName}

	log := s.logger.WithFields(logrus.Fields{
		"request_id": run.requestID,
		"domain":     domain,
		"source":     s.source.Name(),
	})
	log.Info("discovery started")
	started := time.Now()

	run.found, err = runIsolated(ctx, s.deadline, s.source, person, domain)
	if err != nil {
		log.WithError(err).Warn("discovery failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"found":    len(run.found),
		"duration": time.Since(started).String(),
	}).Info("discovery finished")
	return run, nil
}

// FindEmail discovers addresses without verifying them and reports the best
// one by match score, the earliest on ties.
func (s *Service) FindEmail(ctx context.Context, firstName, lastName, rawDomain string) (models.FindResult, error) {
	run, err := s.discover(ctx, firstName, lastName, rawDomain)
	if err != nil {
		return models.FindResult{}, err
	}

	result := models.FindResult{
		Source:     s.source.Name(),
		RequestID:  run.requestID,
		AllMatches: run.found,
	}
	if result.AllMatches == nil {
		result.AllMatches = []models.DiscoveredEmail{}
	}
	if len(run.found) == 0 {
		result.Message = msgNoEmail
		return result, nil
	}

	best := run.found[0]
	for _, d := range run.found[1:] {
		if d.MatchScore > best.MatchScore {
			best = d
		}
	}
	result.Email = utils.Pointer(best.Address)
	result.Confidence = best.MatchScore
	result.MatchType = best.MatchType
	result.SourceURL = best.SourceURL
	return result, nil
}

// DiscoverAndVerify discovers addresses, verifies the first few and returns
// the fused judgement.
func (s *Service) DiscoverAndVerify(ctx context.Context, firstName, lastName, rawDomain string) (models.FusedResult, error) {
	run, err := s.discover(ctx, firstName, lastName, rawDomain)
	if err != nil {
		return models.FusedResult{}, err
	}

	result := Fuse(ctx, run.found, s.verifier, s.fusion)
	result.Source = s.source.Name() + "+verification"
	result.RequestID = run.requestID

	fields := logrus.Fields{
		"request_id": run.requestID,
		"domain":     run.domain,
		"confidence": result.Confidence,
		"verified":   result.Verified,
	}
	if result.Email != nil {
		fields["email"] = *result.Email
	}
	s.logger.WithFields(fields).Info("find-and-verify finished")
	return result, nil
}
