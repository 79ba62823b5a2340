// Package normalize converts raw wire records into canonical metric rows.
// All temporal values leave this package as strings: calendar dates for
// daily-bucketed streams, RFC 3339 timestamps for snapshot streams.
package normalize

import (
	"log"
	"sort"
	"time"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
	"github.com/jaydestro/GitHubRepoStats/internal/gateway"
)

// Traffic converts traffic view points into daily rows. Records without a
// timestamp are dropped with a logged reason.
func Traffic(points []gateway.TrafficPoint, owner, repo string, logger *log.Logger) []domain.TrafficStat {
	rows := make([]domain.TrafficStat, 0, len(points))
	for _, p := range points {
		if p.Timestamp == nil {
			logger.Printf("[%s/%s] dropping traffic record without timestamp", owner, repo)
			continue
		}
		rows = append(rows, domain.TrafficStat{
			Date:           p.Timestamp.UTC().Format(domain.DateLayout),
			Views:          p.Count,
			UniqueVisitors: p.Uniques,
			Owner:          owner,
			Repo:           repo,
		})
	}
	return rows
}

// Clones converts clone points into daily rows.
func Clones(points []gateway.TrafficPoint, owner, repo string, logger *log.Logger) []domain.CloneStat {
	rows := make([]domain.CloneStat, 0, len(points))
	for _, p := range points {
		if p.Timestamp == nil {
			logger.Printf("[%s/%s] dropping clone record without timestamp", owner, repo)
			continue
		}
		rows = append(rows, domain.CloneStat{
			Date:          p.Timestamp.UTC().Format(domain.DateLayout),
			Clones:        p.Count,
			UniqueCloners: p.Uniques,
			Owner:         owner,
			Repo:          repo,
		})
	}
	return rows
}

// Referrers stamps every referrer in the batch with the one fetchedAt value,
// so a single fetch forms one logical snapshot.
func Referrers(records []gateway.Referrer, owner, repo string, fetchedAt time.Time) []domain.ReferrerStat {
	stamp := fetchedAt.UTC().Format(time.RFC3339)
	rows := make([]domain.ReferrerStat, 0, len(records))
	for _, r := range records {
		rows = append(rows, domain.ReferrerStat{
			Referrer:       r.Site,
			Views:          r.Count,
			UniqueVisitors: r.Uniques,
			FetchedAt:      stamp,
			Owner:          owner,
			Repo:           repo,
		})
	}
	return rows
}

// PopularPaths stamps every path in the batch with the one fetchedAt value.
func PopularPaths(records []gateway.PopularPath, owner, repo string, fetchedAt time.Time) []domain.PathStat {
	stamp := fetchedAt.UTC().Format(time.RFC3339)
	rows := make([]domain.PathStat, 0, len(records))
	for _, r := range records {
		rows = append(rows, domain.PathStat{
			Path:           r.Path,
			Title:          r.Title,
			Views:          r.Count,
			UniqueVisitors: r.Uniques,
			FetchedAt:      stamp,
			Owner:          owner,
			Repo:           repo,
		})
	}
	return rows
}

// Stars buckets stargazer events by day and emits the cumulative total as of
// each day, a prefix sum over the chronologically sorted event stream.
func Stars(events []gateway.StarEvent, owner, repo string) []domain.StarStat {
	times := make([]time.Time, 0, len(events))
	for _, e := range events {
		times = append(times, e.StarredAt)
	}
	totals := runningTotals(times)
	rows := make([]domain.StarStat, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, domain.StarStat{
			Date:       t.date,
			TotalStars: t.total,
			Owner:      owner,
			Repo:       repo,
		})
	}
	return rows
}

// Forks buckets fork events by day and emits the cumulative total as of each
// day. Forks without a creation timestamp are dropped with a logged reason.
func Forks(events []gateway.ForkEvent, owner, repo string, logger *log.Logger) []domain.ForkStat {
	times := make([]time.Time, 0, len(events))
	for _, e := range events {
		if e.CreatedAt == nil {
			logger.Printf("[%s/%s] dropping fork record without creation timestamp", owner, repo)
			continue
		}
		times = append(times, *e.CreatedAt)
	}
	totals := runningTotals(times)
	rows := make([]domain.ForkStat, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, domain.ForkStat{
			Date:       t.date,
			TotalForks: t.total,
			Owner:      owner,
			Repo:       repo,
		})
	}
	return rows
}

// About builds the singleton metadata row for a repository.
func About(info *gateway.RepoInfo, owner, repo string, fetchedAt time.Time) domain.RepoAbout {
	return domain.RepoAbout{
		Repo:          repo,
		Owner:         owner,
		Description:   info.Description,
		Language:      info.Language,
		DefaultBranch: info.DefaultBranch,
		Stargazers:    info.Stargazers,
		Forks:         info.Forks,
		FetchedAt:     fetchedAt.UTC().Format(time.RFC3339),
	}
}

type dailyTotal struct {
	date  string
	total int
}

// runningTotals sorts event times chronologically and emits one entry per
// distinct UTC date holding the event count up to and including that day.
func runningTotals(times []time.Time) []dailyTotal {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	var totals []dailyTotal
	for i, t := range times {
		date := t.UTC().Format(domain.DateLayout)
		if len(totals) > 0 && totals[len(totals)-1].date == date {
			totals[len(totals)-1].total = i + 1
			continue
		}
		totals = append(totals, dailyTotal{date: date, total: i + 1})
	}
	return totals
}
