// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
	"github.com/jaydestro/GitHubRepoStats/internal/gateway"
	"github.com/jaydestro/GitHubRepoStats/internal/merge"
	"github.com/jaydestro/GitHubRepoStats/internal/normalize"
	"github.com/jaydestro/GitHubRepoStats/internal/schema"
	"github.com/jaydestro/GitHubRepoStats/internal/store"
)

// Pipeline drives one full collection cycle for one repository: fetch every
// stream, normalize, merge with stored history, validate, persist.
type Pipeline struct {
	fetcher gateway.Fetcher
	store   store.Store
	logger  *log.Logger

	fetchTimeout  time.Duration
	writeTimeout  time.Duration
	fetchAttempts uint64
	retryInterval time.Duration
}

// NewPipeline creates a Pipeline with bounded timeouts and retries on every
// external call.
func NewPipeline(fetcher gateway.Fetcher, st store.Store, logger *log.Logger) *Pipeline {
	return &Pipeline{
		fetcher:       fetcher,
		store:         st,
		logger:        logger,
		fetchTimeout:  time.Minute,
		writeTimeout:  2 * time.Minute,
		fetchAttempts: 3,
		retryInterval: time.Second,
	}
}

// StreamResult is one stream's outcome for a run. A nil Err means the stream
// reached Done; Rows then holds the canonical dataset that was persisted.
type StreamResult struct {
	Stream string
	Rows   []domain.Document
	Err    error
}

func (r StreamResult) Failed() bool { return r.Err != nil }

// RunResult is the per-repository tally. Streams appear in the fixed order of
// domain.Streams regardless of completion order.
type RunResult struct {
	Owner    string
	Repo     string
	Database string
	Streams  []StreamResult
}

// Succeeded reports whether every stream reached Done.
func (r *RunResult) Succeeded() bool {
	for _, sr := range r.Streams {
		if sr.Failed() {
			return false
		}
	}
	return true
}

// Rows returns the canonical dataset persisted for a stream, or nil if the
// stream failed.
func (r *RunResult) Rows(stream string) []domain.Document {
	for _, sr := range r.Streams {
		if sr.Stream == stream {
			return sr.Rows
		}
	}
	return nil
}

// DatabaseName derives the per-repository database name the way the stored
// history was originally keyed: hyphens removed, first letter capitalized,
// rest lowercased.
func DatabaseName(repo string) string {
	name := strings.ReplaceAll(repo, "-", "")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// Run processes all streams for one repository concurrently. Streams are
// independent units: one stream's failure is recorded in its result and never
// aborts a sibling. The returned error is non-nil only when the run itself
// was cancelled.
func (p *Pipeline) Run(ctx context.Context, owner, repo string) (*RunResult, error) {
	db := DatabaseName(repo)
	// One stamp for the whole run, so each snapshot stream forms a single
	// logical snapshot.
	fetchedAt := time.Now().UTC()

	p.logger.Printf("[%s/%s] starting run against %s backend, database %s", owner, repo, p.store.Backend(), db)

	results := make([]StreamResult, len(domain.Streams))
	var eg errgroup.Group

	eg.Go(func() error {
		results[0] = runStream(ctx, p, db, domain.TrafficStats, func(ctx context.Context) ([]domain.TrafficStat, error) {
			points, err := p.fetcher.FetchTrafficViews(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return normalize.Traffic(points, owner, repo, p.logger), nil
		})
		return nil
	})
	eg.Go(func() error {
		results[1] = runStream(ctx, p, db, domain.GitClones, func(ctx context.Context) ([]domain.CloneStat, error) {
			points, err := p.fetcher.FetchTrafficClones(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return normalize.Clones(points, owner, repo, p.logger), nil
		})
		return nil
	})
	eg.Go(func() error {
		results[2] = runStream(ctx, p, db, domain.ReferringSites, func(ctx context.Context) ([]domain.ReferrerStat, error) {
			records, err := p.fetcher.FetchReferrers(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return normalize.Referrers(records, owner, repo, fetchedAt), nil
		})
		return nil
	})
	eg.Go(func() error {
		results[3] = runStream(ctx, p, db, domain.PopularContent, func(ctx context.Context) ([]domain.PathStat, error) {
			records, err := p.fetcher.FetchPopularPaths(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return normalize.PopularPaths(records, owner, repo, fetchedAt), nil
		})
		return nil
	})
	eg.Go(func() error {
		results[4] = runStream(ctx, p, db, domain.Stars, func(ctx context.Context) ([]domain.StarStat, error) {
			events, err := p.fetcher.FetchStargazers(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return normalize.Stars(events, owner, repo), nil
		})
		return nil
	})
	eg.Go(func() error {
		results[5] = runStream(ctx, p, db, domain.Forks, func(ctx context.Context) ([]domain.ForkStat, error) {
			events, err := p.fetcher.FetchForks(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return normalize.Forks(events, owner, repo, p.logger), nil
		})
		return nil
	})
	eg.Go(func() error {
		results[6] = runStream(ctx, p, db, domain.About, func(ctx context.Context) ([]domain.RepoAbout, error) {
			info, err := p.fetcher.FetchRepoInfo(ctx, owner, repo)
			if err != nil {
				return nil, err
			}
			return []domain.RepoAbout{normalize.About(info, owner, repo, fetchedAt)}, nil
		})
		return nil
	})

	_ = eg.Wait()

	run := &RunResult{Owner: owner, Repo: repo, Database: db, Streams: results}
	succeeded := 0
	for _, sr := range results {
		if sr.Failed() {
			p.logger.Printf("[%s/%s] stream %s failed: %v", owner, repo, sr.Stream, sr.Err)
			continue
		}
		succeeded++
		p.logger.Printf("[%s/%s] stream %s done: %d rows", owner, repo, sr.Stream, len(sr.Rows))
	}
	p.logger.Printf("[%s/%s] run complete: %d/%d streams succeeded", owner, repo, succeeded, len(results))
	if err := ctx.Err(); err != nil {
		return run, err
	}
	return run, nil
}

// runStream executes one stream's full pipeline:
// fetch -> normalize -> merge -> validate -> persist.
func runStream[M domain.Metric](ctx context.Context, p *Pipeline, db string, sp domain.StreamSpec, fetch func(context.Context) ([]M, error)) StreamResult {
	result := StreamResult{Stream: sp.Name}

	fresh, err := fetchWithRetry(ctx, p, fetch)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", sp.Name, err)
		return result
	}

	history, err := fetchHistory[M](ctx, p, db, sp)
	if err != nil {
		result.Err = fmt.Errorf("load history for %s: %w", sp.Name, err)
		return result
	}

	merged := merge.Rows(history, fresh)
	docs, err := domain.ToDocuments(merged)
	if err != nil {
		result.Err = fmt.Errorf("encode %s: %w", sp.Name, err)
		return result
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	p.logger.Printf("[%s] %s: merged %d fresh + %d history rows into %d", db, sp.Name, len(fresh), len(history), len(docs))

	if err := schema.Validate(sp, docs); err != nil {
		result.Err = err
		return result
	}

	if err := p.persist(ctx, db, sp, docs); err != nil {
		result.Err = err
		return result
	}

	result.Rows = docs
	return result
}

// fetchWithRetry runs the fetch-and-normalize closure with a bounded
// per-attempt timeout and bounded exponential backoff.
func fetchWithRetry[M domain.Metric](ctx context.Context, p *Pipeline, fetch func(context.Context) ([]M, error)) ([]M, error) {
	var rows []M
	op := func() error {
		fctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
		var err error
		rows, err = fetch(fctx)
		return err
	}
	if err := backoff.Retry(op, p.newRetryBackoff(ctx)); err != nil {
		return nil, err
	}
	return rows, nil
}

// fetchHistory loads the stream's stored rows and decodes them back into
// typed metrics. Rows that no longer decode are skipped with a logged reason;
// they stay in the store untouched.
func fetchHistory[M domain.Metric](ctx context.Context, p *Pipeline, db string, sp domain.StreamSpec) ([]M, error) {
	fctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()
	docs, err := p.store.FetchAll(fctx, db, sp.Name)
	if err != nil {
		return nil, err
	}
	rows := make([]M, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			p.logger.Printf("[%s] %s: skipping unreadable history row: %v", db, sp.Name, err)
			continue
		}
		var m M
		if err := json.Unmarshal(raw, &m); err != nil {
			p.logger.Printf("[%s] %s: skipping undecodable history row: %v", db, sp.Name, err)
			continue
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// persist ensures the container exists and upserts the batch. The upsert runs
// detached from run cancellation so a shutdown finishes the in-flight batch
// instead of leaving partial rows.
func (p *Pipeline) persist(ctx context.Context, db string, sp domain.StreamSpec, docs []domain.Document) error {
	ensure := func() error {
		ectx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
		return p.store.EnsureStream(ectx, db, sp.Name)
	}
	if err := backoff.Retry(ensure, p.newRetryBackoff(ctx)); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
	defer cancel()
	return p.store.Upsert(wctx, db, sp.Name, sp.IdentityFields, docs)
}

func (p *Pipeline) newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.fetchAttempts-1), ctx)
}
