// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"encoding/json"
	"strings"
)

// DateLayout is the calendar-date form used for daily-bucketed streams.
const DateLayout = "2006-01-02"

// Metric is one normalized observation in a stream. Identity must be stable
// across repeated fetches of the same underlying event; When is the value the
// merge engine orders by.
type Metric interface {
	Identity() string
	When() string
}

// Document is a metric row at the persistence boundary: every field already
// JSON-safe, temporal values rendered as strings.
type Document map[string]any

// TrafficStat is one day of repository view traffic.
type TrafficStat struct {
	Date           string `json:"Date" bson:"Date"`
	Views          int    `json:"Views" bson:"Views"`
	UniqueVisitors int    `json:"Unique visitors" bson:"Unique visitors"`
	Owner          string `json:"Owner" bson:"Owner"`
	Repo           string `json:"Repo" bson:"Repo"`
}

func (s TrafficStat) Identity() string { return s.Date }
func (s TrafficStat) When() string     { return s.Date }

// CloneStat is one day of git clone traffic.
type CloneStat struct {
	Date          string `json:"Date" bson:"Date"`
	Clones        int    `json:"Clones" bson:"Clones"`
	UniqueCloners int    `json:"Unique cloners" bson:"Unique cloners"`
	Owner         string `json:"Owner" bson:"Owner"`
	Repo          string `json:"Repo" bson:"Repo"`
}

func (s CloneStat) Identity() string { return s.Date }
func (s CloneStat) When() string     { return s.Date }

// ReferrerStat is one referring site in a fetch snapshot. All rows from one
// fetch share the same FetchedAt stamp, so the snapshot stays one logical unit.
type ReferrerStat struct {
	Referrer       string `json:"Referring site" bson:"Referring site"`
	Views          int    `json:"Views" bson:"Views"`
	UniqueVisitors int    `json:"Unique visitors" bson:"Unique visitors"`
	FetchedAt      string `json:"FetchedAt" bson:"FetchedAt"`
	Owner          string `json:"Owner" bson:"Owner"`
	Repo           string `json:"Repo" bson:"Repo"`
}

func (s ReferrerStat) Identity() string { return JoinKey(s.Referrer, s.FetchedAt) }
func (s ReferrerStat) When() string     { return s.FetchedAt }

// PathStat is one popular content path in a fetch snapshot.
type PathStat struct {
	Path           string `json:"Path" bson:"Path"`
	Title          string `json:"Title" bson:"Title"`
	Views          int    `json:"Views" bson:"Views"`
	UniqueVisitors int    `json:"Unique visitors" bson:"Unique visitors"`
	FetchedAt      string `json:"FetchedAt" bson:"FetchedAt"`
	Owner          string `json:"Owner" bson:"Owner"`
	Repo           string `json:"Repo" bson:"Repo"`
}

func (s PathStat) Identity() string { return JoinKey(s.Path, s.FetchedAt) }
func (s PathStat) When() string     { return s.FetchedAt }

// StarStat holds the cumulative stargazer total as of Date, not the daily delta.
type StarStat struct {
	Date       string `json:"Date" bson:"Date"`
	TotalStars int    `json:"Total Stars" bson:"Total Stars"`
	Owner      string `json:"Owner" bson:"Owner"`
	Repo       string `json:"Repo" bson:"Repo"`
}

func (s StarStat) Identity() string { return s.Date }
func (s StarStat) When() string     { return s.Date }

// ForkStat holds the cumulative fork total as of Date.
type ForkStat struct {
	Date       string `json:"Date" bson:"Date"`
	TotalForks int    `json:"Total Forks" bson:"Total Forks"`
	Owner      string `json:"Owner" bson:"Owner"`
	Repo       string `json:"Repo" bson:"Repo"`
}

func (s ForkStat) Identity() string { return s.Date }
func (s ForkStat) When() string     { return s.Date }

// RepoAbout is the repository metadata snapshot, a singleton per repository.
type RepoAbout struct {
	Repo          string `json:"Repo" bson:"Repo"`
	Owner         string `json:"Owner" bson:"Owner"`
	Description   string `json:"Description" bson:"Description"`
	Language      string `json:"Language" bson:"Language"`
	DefaultBranch string `json:"Default branch" bson:"Default branch"`
	Stargazers    int    `json:"Stargazers" bson:"Stargazers"`
	Forks         int    `json:"Forks" bson:"Forks"`
	FetchedAt     string `json:"FetchedAt" bson:"FetchedAt"`
}

func (s RepoAbout) Identity() string { return s.Repo }
func (s RepoAbout) When() string     { return s.FetchedAt }

// JoinKey builds a composite identity value from its parts.
func JoinKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// ToDocuments converts typed rows into persistence-boundary documents via a
// JSON round trip, so every value crossing into a store is JSON-safe.
func ToDocuments[M Metric](rows []M) ([]Document, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
