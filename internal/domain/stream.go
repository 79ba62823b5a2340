package domain

// StreamSpec is the contract for one metric stream: the container it persists
// to, which fields form the identity key for upserts, which field orders the
// stream, and the required-field table enforced before persistence.
type StreamSpec struct {
	// Name is the container/collection the stream persists to.
	Name string
	// Title is the human-facing name used for export sheets.
	Title string
	// IdentityFields form the identity key; composite keys list every part.
	IdentityFields []string
	// DateField orders the stream (a calendar date or a fetch timestamp).
	DateField string
	// Metrics are the numeric columns; values must be non-negative.
	Metrics []string
	// Required lists the fields every row must carry.
	Required []string
	// Columns fixes the export column order.
	Columns []string
}

var (
	TrafficStats = StreamSpec{
		Name:           "TrafficStats",
		Title:          "Traffic Stats",
		IdentityFields: []string{"Date"},
		DateField:      "Date",
		Metrics:        []string{"Views", "Unique visitors"},
		Required:       []string{"Date", "Views", "Unique visitors", "Owner", "Repo"},
		Columns:        []string{"Date", "Views", "Unique visitors", "Owner", "Repo"},
	}

	GitClones = StreamSpec{
		Name:           "GitClones",
		Title:          "Git Clones",
		IdentityFields: []string{"Date"},
		DateField:      "Date",
		Metrics:        []string{"Clones", "Unique cloners"},
		Required:       []string{"Date", "Clones", "Unique cloners", "Owner", "Repo"},
		Columns:        []string{"Date", "Clones", "Unique cloners", "Owner", "Repo"},
	}

	ReferringSites = StreamSpec{
		Name:           "ReferringSites",
		Title:          "Referring Sites",
		IdentityFields: []string{"Referring site", "FetchedAt"},
		DateField:      "FetchedAt",
		Metrics:        []string{"Views", "Unique visitors"},
		Required:       []string{"Referring site", "Views", "Unique visitors", "FetchedAt", "Owner", "Repo"},
		Columns:        []string{"Referring site", "Views", "Unique visitors", "FetchedAt", "Owner", "Repo"},
	}

	PopularContent = StreamSpec{
		Name:           "PopularContent",
		Title:          "Popular Content",
		IdentityFields: []string{"Path", "FetchedAt"},
		DateField:      "FetchedAt",
		Metrics:        []string{"Views", "Unique visitors"},
		Required:       []string{"Path", "Views", "Unique visitors", "FetchedAt", "Owner", "Repo"},
		Columns:        []string{"Path", "Title", "Views", "Unique visitors", "FetchedAt", "Owner", "Repo"},
	}

	Stars = StreamSpec{
		Name:           "Stars",
		Title:          "Stars",
		IdentityFields: []string{"Date"},
		DateField:      "Date",
		Metrics:        []string{"Total Stars"},
		Required:       []string{"Date", "Total Stars", "Owner", "Repo"},
		Columns:        []string{"Date", "Total Stars", "Owner", "Repo"},
	}

	Forks = StreamSpec{
		Name:           "Forks",
		Title:          "Forks",
		IdentityFields: []string{"Date"},
		DateField:      "Date",
		Metrics:        []string{"Total Forks"},
		Required:       []string{"Date", "Total Forks", "Owner", "Repo"},
		Columns:        []string{"Date", "Total Forks", "Owner", "Repo"},
	}

	About = StreamSpec{
		Name:           "About",
		Title:          "About",
		IdentityFields: []string{"Repo"},
		DateField:      "FetchedAt",
		Metrics:        []string{"Stargazers", "Forks"},
		Required:       []string{"Repo", "Owner", "FetchedAt"},
		Columns:        []string{"Repo", "Owner", "Description", "Language", "Default branch", "Stargazers", "Forks", "FetchedAt"},
	}
)

// Streams lists every stream a repository run processes, in tally order.
var Streams = []StreamSpec{
	TrafficStats,
	GitClones,
	ReferringSites,
	PopularContent,
	Stars,
	Forks,
	About,
}

// SpecFor resolves a stream by container name.
func SpecFor(name string) (StreamSpec, bool) {
	for _, sp := range Streams {
		if sp.Name == name {
			return sp, true
		}
	}
	return StreamSpec{}, false
}
