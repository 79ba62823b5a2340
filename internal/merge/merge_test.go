package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

func traffic(date string, views int) domain.TrafficStat {
	return domain.TrafficStat{Date: date, Views: views, UniqueVisitors: views / 2, Owner: "org", Repo: "repo"}
}

func TestRows(t *testing.T) {
	testCases := []struct {
		name     string
		old      []domain.TrafficStat
		fresh    []domain.TrafficStat
		expected []domain.TrafficStat
	}{
		{
			name:     "empty inputs produce empty output",
			expected: []domain.TrafficStat{},
		},
		{
			name:     "fresh rows pass through sorted",
			fresh:    []domain.TrafficStat{traffic("2024-01-03", 3), traffic("2024-01-01", 1)},
			expected: []domain.TrafficStat{traffic("2024-01-01", 1), traffic("2024-01-03", 3)},
		},
		{
			name:     "fresh row overrides history sharing its key",
			old:      []domain.TrafficStat{traffic("2024-01-01", 10)},
			fresh:    []domain.TrafficStat{traffic("2024-01-01", 12)},
			expected: []domain.TrafficStat{traffic("2024-01-01", 12)},
		},
		{
			name:     "last fresh row wins among duplicates",
			fresh:    []domain.TrafficStat{traffic("2024-01-01", 5), traffic("2024-01-01", 7)},
			expected: []domain.TrafficStat{traffic("2024-01-01", 7)},
		},
		{
			name:     "disjoint keys union",
			old:      []domain.TrafficStat{traffic("2024-01-01", 1)},
			fresh:    []domain.TrafficStat{traffic("2024-01-02", 2)},
			expected: []domain.TrafficStat{traffic("2024-01-01", 1), traffic("2024-01-02", 2)},
		},
		{
			name:     "rows with unparseable dates are dropped",
			old:      []domain.TrafficStat{traffic("not-a-date", 9)},
			fresh:    []domain.TrafficStat{traffic("2024-01-02", 2), traffic("", 4)},
			expected: []domain.TrafficStat{traffic("2024-01-02", 2)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Rows(tc.old, tc.fresh)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRows_AtMostOnePerKey(t *testing.T) {
	fresh := []domain.TrafficStat{
		traffic("2024-01-01", 1),
		traffic("2024-01-01", 2),
		traffic("2024-01-02", 3),
		traffic("2024-01-02", 4),
		traffic("2024-01-03", 5),
	}
	got := Rows(nil, fresh)

	seen := map[string]int{}
	for _, row := range got {
		seen[row.Identity()]++
	}
	for key, count := range seen {
		assert.Equalf(t, 1, count, "key %q appears %d times", key, count)
	}
}

func TestRows_Idempotent(t *testing.T) {
	fresh := []domain.TrafficStat{
		traffic("2024-01-02", 2),
		traffic("2024-01-01", 1),
		traffic("2024-01-02", 20),
	}
	once := Rows(nil, fresh)
	again := Rows(once, nil)
	assert.Equal(t, once, again)
}

func TestRows_CompositeIdentityTieBreak(t *testing.T) {
	// Two referrers from the same snapshot share a timestamp; order must be
	// deterministic by identity.
	a := domain.ReferrerStat{Referrer: "github.com", Views: 3, FetchedAt: "2024-01-01T00:00:00Z"}
	b := domain.ReferrerStat{Referrer: "news.ycombinator.com", Views: 5, FetchedAt: "2024-01-01T00:00:00Z"}
	got := Rows(nil, []domain.ReferrerStat{b, a})
	assert.Equal(t, []domain.ReferrerStat{a, b}, got)
}

func TestParseWhen(t *testing.T) {
	testCases := []struct {
		input string
		ok    bool
	}{
		{"2024-01-01", true},
		{"2024-01-01T12:30:00Z", true},
		{"", false},
		{"01-02-2024", false},
		{"yesterday", false},
	}
	for _, tc := range testCases {
		_, ok := ParseWhen(tc.input)
		assert.Equalf(t, tc.ok, ok, "input %q", tc.input)
	}
}
