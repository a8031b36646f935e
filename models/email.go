package models

import (
	"encoding/json"
	"strings"
)

// Person is the subject of a discovery request. Either name part may be empty.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Normalized returns the person with trimmed, lowercased name parts.
func (p Person) Normalized() Person {
	return Person{
		FirstName: strings.ToLower(strings.TrimSpace(p.FirstName)),
		LastName:  strings.ToLower(strings.TrimSpace(p.LastName)),
	}
}

// MatchType grades how a discovered address relates to the person's name
type MatchType string

const (
	MatchPatternExact MatchType = "pattern_exact"
	MatchName         MatchType = "name_match"
	MatchPartial      MatchType = "partial_match"
	MatchDomain       MatchType = "domain_match"
	MatchUnknown      MatchType = "unknown"
)

// DiscoveredEmail is one address harvested for a (person, domain) pair
type DiscoveredEmail struct {
	Address    string    `json:"email"`
	SourceURL  string    `json:"source_url"`
	MatchScore int       `json:"match_score"`
	MatchType  MatchType `json:"match_type"`
}

// TriState carries true / false / unknown. It marshals to true, false or null.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

func (t TriState) IsTrue() bool { return t == True }

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *TriState) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	switch {
	case b == nil:
		*t = Unknown
	case *b:
		*t = True
	default:
		*t = False
	}
	return nil
}

// VerificationResult is the outcome of checking one address. It is computed
// on demand and never cached.
type VerificationResult struct {
	Email       string   `json:"email"`
	ValidFormat bool     `json:"valid_format"`
	DNSValid    bool     `json:"dns_valid"`
	MXRecords   []string `json:"mx_records"`
	SMTPValid   TriState `json:"smtp_valid"`
	Deliverable TriState `json:"deliverable"`
	Confidence  int      `json:"confidence"`
	WHOIS       string   `json:"whois,omitempty"`
}

// FusedResult is the final judgement of a find-and-verify request.
type FusedResult struct {
	Email        *string             `json:"email"`
	Confidence   int                 `json:"confidence"`
	Verified     bool                `json:"verified"`
	DNSValid     bool                `json:"dns_valid"`
	SMTPValid    TriState            `json:"smtp_valid"`
	MatchType    MatchType           `json:"match_type,omitempty"`
	SourceURL    string              `json:"source_url,omitempty"`
	Source       string              `json:"source"`
	Message      string              `json:"message,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
	Verification *VerificationResult `json:"verification_details,omitempty"`
}

// FindResult is the crawl-only answer: the best match by score plus every match.
type FindResult struct {
	Email      *string           `json:"email"`
	Confidence int               `json:"confidence"`
	MatchType  MatchType         `json:"match_type,omitempty"`
	SourceURL  string            `json:"source_url,omitempty"`
	Source     string            `json:"source"`
	Message    string            `json:"message,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	AllMatches []DiscoveredEmail `json:"all_matches"`
}
