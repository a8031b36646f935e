package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailfinder/models"
)

func TestGeneratePatterns(t *testing.T) {
	got := GeneratePatterns("Jane", " Doe ", "Example.com")
	assert.Equal(t, []string{
		"jane.doe@example.com",
		"janedoe@example.com",
		"jane_doe@example.com",
		"jane-doe@example.com",
		"jane@example.com",
		"doe@example.com",
		"j.doe@example.com",
		"janed@example.com",
		"jdoe@example.com",
	}, got)
	assert.Equal(t, got, GeneratePatterns("Jane", " Doe ", "Example.com"), "output is reproducible")

	for _, p := range got {
		assert.True(t, strings.HasSuffix(p, "@example.com"))
		assert.Equal(t, strings.ToLower(p), p)
	}
}

func TestGeneratePatternsMissingParts(t *testing.T) {
	assert.Empty(t, GeneratePatterns("", "Doe", "example.com"))
	assert.Empty(t, GeneratePatterns("Jane", "  ", "example.com"))
	assert.Empty(t, GeneratePatterns("Jane", "Doe", ""))
}

func TestScoreMatch(t *testing.T) {
	jane := models.Person{FirstName: "Jane", LastName: "Doe"}
	candidates := GeneratePatterns(jane.FirstName, jane.LastName, "example.com")

	tests := []struct {
		name   string
		email  string
		person models.Person
		score  int
		kind   models.MatchType
	}{
		{"exact pattern", "jdoe@example.com", jane, 100, models.MatchPatternExact},
		{"exact pattern any case", "Jane.Doe@Example.com", jane, 100, models.MatchPatternExact},
		{"both tokens", "doe.jane@example.com", jane, 95, models.MatchName},
		{"first token only", "jane.writer@example.com", jane, 75, models.MatchPartial},
		{"last token only", "mr.doe@example.com", jane, 75, models.MatchPartial},
		{"no overlap", "info@example.com", jane, 50, models.MatchDomain},
		{"domain does not count", "info@janedoe.com", jane, 50, models.MatchDomain},
		{"no name", "jane.doe@example.com", models.Person{}, 50, models.MatchDomain},
		{"half a name", "jane.doe@example.com", models.Person{FirstName: "Jane"}, 50, models.MatchDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, kind := ScoreMatch(tt.email, tt.person, candidates)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.kind, kind)

			again, _ := ScoreMatch(tt.email, tt.person, candidates)
			assert.Equal(t, score, again)
		})
	}
}

func TestNameTokens(t *testing.T) {
	assert.Equal(t, []string{"jane", "doe", "jane-doe", "jane.doe", "jane_doe"},
		NameTokens(models.Person{FirstName: " Jane", LastName: "DOE"}))
	assert.Nil(t, NameTokens(models.Person{LastName: "Doe"}))
}

func TestNormalizeDomain(t *testing.T) {
	valid := map[string]string{
		"example.com":                     "example.com",
		"  Example.COM ":                  "example.com",
		"https://www.example.com/about?x": "www.example.com",
		"http://example.com#team":         "example.com",
		"example.com.":                    "example.com",
		"blog.example.co.uk":              "blog.example.co.uk",
		"localhost:8080":                  "localhost:8080",
	}
	for in, want := range valid {
		got, err := NormalizeDomain(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "   ", "https://", "exa mple.com", "-bad.com", "com", "co.uk"} {
		_, err := NormalizeDomain(in)
		require.Error(t, err, in)
		assert.True(t, models.IsInputValidation(err), in)
	}
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "example.com", StripPort("example.com:8080"))
	assert.Equal(t, "example.com", StripPort("example.com"))
	assert.Equal(t, "localhost", StripPort("localhost:5002"))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("jane@example.com"))
	assert.Empty(t, ExtractDomain("no-at-sign"))
}
