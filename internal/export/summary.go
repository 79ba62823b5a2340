package export

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
	"github.com/jaydestro/GitHubRepoStats/internal/merge"
)

const monthLayout = "2006-01"

// AppendMonthlyTotals appends one total row per calendar month for the
// table's metric columns, month value in the date column. Summary rows exist
// only in rendered output; they never enter a store, so identity semantics in
// the persisted streams stay untouched.
func AppendMonthlyTotals(tbl Table) Table {
	if len(tbl.Spec.Metrics) == 0 || len(tbl.Rows) == 0 {
		return tbl
	}

	byMonth := make(map[string]map[string][]float64)
	for _, row := range tbl.Rows {
		when, ok := row[tbl.Spec.DateField].(string)
		if !ok {
			continue
		}
		t, ok := merge.ParseWhen(when)
		if !ok {
			continue
		}
		month := t.UTC().Format(monthLayout)
		if byMonth[month] == nil {
			byMonth[month] = make(map[string][]float64)
		}
		for _, metric := range tbl.Spec.Metrics {
			if n, ok := asFloat(row[metric]); ok {
				byMonth[month][metric] = append(byMonth[month][metric], n)
			}
		}
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := tbl
	out.Rows = append([]domain.Document{}, tbl.Rows...)
	for _, month := range months {
		row := domain.Document{tbl.Spec.DateField: month}
		for _, metric := range tbl.Spec.Metrics {
			total, err := stats.Sum(byMonth[month][metric])
			if err != nil {
				continue
			}
			row[metric] = int(total)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
