// Package config builds the explicit configuration passed down from the
// entry point to every component. There is no ambient global state; commands
// construct a Config and hand it to what needs it.
package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Backend selects a store implementation.
type Backend string

const (
	BackendMongo  Backend = "mongodb"
	BackendCosmos Backend = "cosmos"
)

// Output formats.
const (
	OutputSpreadsheet = "spreadsheet"
	OutputJSON        = "json"
	OutputBoth        = "both"
)

// Environment variable names, matching the function-host app settings.
const (
	EnvToken       = "GHPAT"
	EnvMongo       = "CUSTOMCONNSTR_MONGODB"
	EnvCosmos      = "CUSTOMCONNSTR_COSMOSDB"
	EnvBlobStorage = "CUSTOMCONNSTR_BLOBSTORAGE"
	EnvOutput      = "OUTPUT"
)

// Config carries everything a run needs.
type Config struct {
	// Token is the GitHub personal access token.
	Token string
	// Backend picks the store implementation.
	Backend Backend
	// StoreConnectionString targets the selected backend.
	StoreConnectionString string
	// BlobConnectionString, when set, uploads exports to blob storage;
	// absent means local filesystem only.
	BlobConnectionString string
	// OutputFormat is spreadsheet, json, or both.
	OutputFormat string
}

// Validate checks the config is complete enough to run a pipeline.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("missing GitHub token: pass --token-file or set " + EnvToken)
	}
	switch c.Backend {
	case BackendMongo, BackendCosmos:
	default:
		return fmt.Errorf("unknown backend %q: expected %q or %q", c.Backend, BackendMongo, BackendCosmos)
	}
	if c.StoreConnectionString == "" {
		return errors.New("missing store connection string")
	}
	switch c.OutputFormat {
	case OutputSpreadsheet, OutputJSON, OutputBoth:
	default:
		return fmt.Errorf("unknown output format %q", c.OutputFormat)
	}
	return nil
}

// ReadTokenFile reads a personal access token from a file, trimming
// surrounding whitespace.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Repo is one tracked repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// ParseRepoList reads a two-column CSV (header "owner,repo") of tracked
// repositories.
func ParseRepoList(r io.Reader) ([]Repo, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse repository list: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("repository list is empty")
	}
	header := records[0]
	if len(header) < 2 || strings.TrimSpace(header[0]) != "owner" || strings.TrimSpace(header[1]) != "repo" {
		return nil, errors.New(`repository list must start with header "owner,repo"`)
	}
	repos := make([]Repo, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		owner := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		if owner == "" || name == "" {
			continue
		}
		repos = append(repos, Repo{Owner: owner, Name: name})
	}
	return repos, nil
}
