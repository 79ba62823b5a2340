// Package store persists canonical metric rows in one of two interchangeable
// document backends: MongoDB (dynamic schema) and Azure Cosmos DB
// (partitioned). Both satisfy the same postconditions; backend quirks such as
// partition-key generation never leak to callers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

var (
	// ErrConnection marks a malformed or unreachable store target; fatal
	// for the whole repository run.
	ErrConnection = errors.New("store connection failed")
	// ErrContainerCreate marks a failed container/collection creation.
	ErrContainerCreate = errors.New("container create failed")
)

// WriteError is a per-row upsert failure. Transient failures were already
// retried before being surfaced; permanent ones are logged and skipped by the
// adapters without aborting the rest of the batch.
type WriteError struct {
	Stream    string
	Key       string
	Transient bool
	Err       error
}

func (e *WriteError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s write failure in %s for key %q: %v", kind, e.Stream, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store is the uniform surface over both backends.
type Store interface {
	// Backend names the implementation, for logs and summaries.
	Backend() string
	// EnsureStream idempotently creates the stream's container and any
	// partitioning scheme it needs.
	EnsureStream(ctx context.Context, db, stream string) error
	// FetchAll returns every stored row with backend bookkeeping fields
	// stripped. A missing database or container yields an empty result,
	// not an error.
	FetchAll(ctx context.Context, db, stream string) ([]domain.Document, error)
	// Upsert writes each row update-if-present-else-insert, keyed on the
	// stream's identity fields. Zero rows is a no-op. There is no
	// cross-row atomicity.
	Upsert(ctx context.Context, db, stream string, identityFields []string, docs []domain.Document) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

const (
	writeAttempts = 3
	writeBackoff  = 500 * time.Millisecond
)

// newWriteBackoff builds the bounded doubling-delay policy for transient
// write failures.
func newWriteBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = writeBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, writeAttempts-1), ctx)
}

// idNamespace seeds deterministic document ids so that repeated upserts of
// the same logical row always resolve to the same generated id.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jaydestro/GitHubRepoStats"))

// DocumentID derives the stable id for a logical row. The partitioned backend
// uses it as both document id and partition key.
func DocumentID(db, stream, identity string) string {
	return uuid.NewSHA1(idNamespace, []byte(db+"/"+stream+"/"+identity)).String()
}

// identityValue joins a row's identity fields into one key, failing when any
// part is absent so malformed rows are dropped rather than written under a
// wrong key.
func identityValue(doc domain.Document, identityFields []string) (string, error) {
	parts := make([]string, 0, len(identityFields))
	for _, f := range identityFields {
		v, ok := doc[f]
		if !ok || v == nil {
			return "", fmt.Errorf("row is missing identity field %q", f)
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return domain.JoinKey(parts...), nil
}
