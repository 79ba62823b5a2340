package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/cenkalti/backoff/v4"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

// CosmosStore is the partitioned backend. Cosmos requires every document to
// carry an id used as the partition key; the adapter injects a deterministic
// one derived from the row's identity so repeated upserts of the same logical
// row land on the same document.
type CosmosStore struct {
	client *azcosmos.Client
	logger *log.Logger
}

// cosmosBookkeeping are the service-managed fields stripped from fetched
// rows, plus the injected partition id.
var cosmosBookkeeping = []string{"id", "_rid", "_self", "_etag", "_attachments", "_ts"}

// ConnectCosmos builds a Cosmos DB client from a connection string.
func ConnectCosmos(connectionString string, logger *log.Logger) (*CosmosStore, error) {
	client, err := azcosmos.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return &CosmosStore{client: client, logger: logger}, nil
}

func (s *CosmosStore) Backend() string { return "cosmos" }

// EnsureStream creates the database and the stream container with an /id
// partition key. 409 responses mean they already exist and are not errors.
func (s *CosmosStore) EnsureStream(ctx context.Context, db, stream string) error {
	if _, err := s.client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: db}, nil); err != nil && !isCosmosStatus(err, http.StatusConflict) {
		return fmt.Errorf("%w: database %s: %v", ErrContainerCreate, db, err)
	}
	database, err := s.client.NewDatabase(db)
	if err != nil {
		return fmt.Errorf("%w: database %s: %v", ErrContainerCreate, db, err)
	}
	props := azcosmos.ContainerProperties{
		ID: stream,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{"/id"},
		},
	}
	if _, err := database.CreateContainer(ctx, props, nil); err != nil && !isCosmosStatus(err, http.StatusConflict) {
		return fmt.Errorf("%w: %s/%s: %v", ErrContainerCreate, db, stream, err)
	}
	return nil
}

// FetchAll reads the whole container. The empty partition key fans the query
// out across partitions, which costs more RUs but is the only way to
// reassemble a stream that is partitioned per document.
func (s *CosmosStore) FetchAll(ctx context.Context, db, stream string) ([]domain.Document, error) {
	container, err := s.client.NewContainer(db, stream)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", db, stream, err)
	}
	pager := container.NewQueryItemsPager("SELECT * FROM c", azcosmos.PartitionKey{}, nil)
	var docs []domain.Document
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isCosmosStatus(err, http.StatusNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("fetch %s/%s: %w", db, stream, err)
		}
		for _, raw := range page.Items {
			var doc domain.Document
			if err := json.Unmarshal(raw, &doc); err != nil {
				s.logger.Printf("[%s/%s] skipping undecodable document: %v", db, stream, err)
				continue
			}
			docs = append(docs, stripBookkeeping(doc))
		}
	}
	return docs, nil
}

func (s *CosmosStore) Upsert(ctx context.Context, db, stream string, identityFields []string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	container, err := s.client.NewContainer(db, stream)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", db, stream, err)
	}
	var firstTransient error
	for _, doc := range docs {
		key, err := identityValue(doc, identityFields)
		if err != nil {
			s.logger.Printf("[%s/%s] skipping row: %v", db, stream, err)
			continue
		}
		id := DocumentID(db, stream, key)
		body := make(domain.Document, len(doc)+1)
		for k, v := range doc {
			body[k] = v
		}
		body["id"] = id
		raw, err := json.Marshal(body)
		if err != nil {
			s.logger.Printf("[%s/%s] skipping unserializable row for key %q: %v", db, stream, key, err)
			continue
		}
		pk := azcosmos.NewPartitionKeyString(id)
		op := func() error {
			_, err := container.UpsertItem(ctx, pk, raw, nil)
			if err == nil {
				return nil
			}
			if isTransientCosmos(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := backoff.Retry(op, newWriteBackoff(ctx)); err != nil {
			transient := isTransientCosmos(err)
			werr := &WriteError{Stream: stream, Key: key, Transient: transient, Err: err}
			s.logger.Printf("[%s/%s] %v", db, stream, werr)
			if transient && firstTransient == nil {
				firstTransient = werr
			}
		}
	}
	return firstTransient
}

// Close is a no-op; the Cosmos client holds no pooled connection state that
// needs explicit teardown.
func (s *CosmosStore) Close(ctx context.Context) error { return nil }

func stripBookkeeping(doc domain.Document) domain.Document {
	for _, field := range cosmosBookkeeping {
		delete(doc, field)
	}
	return doc
}

func isCosmosStatus(err error, status int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == status
}

func isTransientCosmos(err error) bool {
	for _, status := range []int{
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	} {
		if isCosmosStatus(err, status) {
			return true
		}
	}
	return false
}
