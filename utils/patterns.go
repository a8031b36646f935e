// utils/patterns.go
package utils

import (
	"strings"

	"emailfinder/models"
)

// GeneratePatterns builds the nine canonical address forms for a person at a domain.
// The order is fixed: first.last, firstlast, first_last, first-last, first, last,
// f.last, firstl, flast. Missing name parts yield no candidates.
func GeneratePatterns(firstName, lastName, domain string) []string {
	f := strings.ToLower(strings.TrimSpace(firstName))
	l := strings.ToLower(strings.TrimSpace(lastName))
	d := strings.ToLower(strings.TrimSpace(domain))
	if f == "" || l == "" || d == "" {
		return nil
	}

	fi := string([]rune(f)[:1])
	li := string([]rune(l)[:1])

	locals := []string{
		f + "." + l,
		f + l,
		f + "_" + l,
		f + "-" + l,
		f,
		l,
		fi + "." + l,
		f + li,
		fi + l,
	}

	patterns := make([]string, 0, len(locals))
	for _, local := range locals {
		patterns = append(patterns, local+"@"+d)
	}
	return patterns
}

// NameTokens returns the href fragments that mark a link as possibly about the person.
func NameTokens(p models.Person) []string {
	p = p.Normalized()
	if p.FirstName == "" || p.LastName == "" {
		return nil
	}
	return []string{
		p.FirstName,
		p.LastName,
		p.FirstName + "-" + p.LastName,
		p.FirstName + "." + p.LastName,
		p.FirstName + "_" + p.LastName,
	}
}
