package utils

import (
	"strings"

	"emailfinder/models"
)

const (
	scorePatternExact = 100
	scoreNameMatch    = 95
	scorePartialMatch = 75
	scoreDomainMatch  = 50
)

// ScoreMatch grades a discovered address against the person's name and the
// candidate patterns. First matching rule wins.
func ScoreMatch(email string, person models.Person, candidates []string) (int, models.MatchType) {
	person = person.Normalized()
	if person.FirstName == "" || person.LastName == "" {
		return scoreDomainMatch, models.MatchDomain
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, c := range candidates {
		if email == c {
			return scorePatternExact, models.MatchPatternExact
		}
	}

	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}

	hasFirst := strings.Contains(local, person.FirstName)
	hasLast := strings.Contains(local, person.LastName)
	switch {
	case hasFirst && hasLast:
		return scoreNameMatch, models.MatchName
	case hasFirst || hasLast:
		return scorePartialMatch, models.MatchPartial
	default:
		return scoreDomainMatch, models.MatchDomain
	}
}
