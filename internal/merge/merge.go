// Package merge combines freshly fetched metric rows with previously stored
// history into a deduplicated, time-ordered canonical dataset. It is pure:
// no I/O, no clock.
package merge

import (
	"sort"
	"time"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

// dateLayouts are the accepted forms for a row's ordering field: a calendar
// date for daily streams, an RFC 3339 timestamp for snapshot streams.
var dateLayouts = []string{domain.DateLayout, time.RFC3339}

// Rows merges history with a fresh batch. Fresh rows sharing an identity key
// with history win; among fresh rows sharing a key, the last in input order
// wins. Rows whose identity is empty or whose date fails to parse are treated
// as corrupt and excluded. The result holds at most one row per identity key,
// sorted ascending by date with ties broken by identity, so repeated merges
// of the same data are no-ops.
func Rows[M domain.Metric](old, fresh []M) []M {
	type entry struct {
		row  M
		when time.Time
	}
	seen := make(map[string]entry, len(old)+len(fresh))
	for _, rows := range [][]M{old, fresh} {
		for _, r := range rows {
			key := r.Identity()
			if key == "" {
				continue
			}
			when, ok := ParseWhen(r.When())
			if !ok {
				continue
			}
			seen[key] = entry{row: r, when: when}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := seen[keys[i]], seen[keys[j]]
		if !a.when.Equal(b.when) {
			return a.when.Before(b.when)
		}
		return keys[i] < keys[j]
	})

	out := make([]M, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k].row)
	}
	return out
}

// ParseWhen parses a row's ordering field, reporting whether it is one of the
// accepted temporal forms.
func ParseWhen(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
