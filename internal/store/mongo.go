package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

// MongoStore is the dynamic-schema backend. Databases and collections
// materialize on first write; rows carry no partition bookkeeping.
type MongoStore struct {
	client *mongo.Client
	logger *log.Logger
}

const mongoConnectTimeout = 10 * time.Second

// ConnectMongo opens and verifies a MongoDB connection.
func ConnectMongo(ctx context.Context, uri string, logger *log.Logger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(mongoConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return &MongoStore{client: client, logger: logger}, nil
}

func (s *MongoStore) Backend() string { return "mongodb" }

func (s *MongoStore) EnsureStream(ctx context.Context, db, stream string) error {
	err := s.client.Database(db).CreateCollection(ctx, stream)
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		return nil
	}
	return fmt.Errorf("%w: %s/%s: %v", ErrContainerCreate, db, stream, err)
}

// FetchAll returns every stored row with the Mongo-internal _id excluded. A
// collection that does not exist yet reads as empty.
func (s *MongoStore) FetchAll(ctx context.Context, db, stream string) ([]domain.Document, error) {
	coll := s.client.Database(db).Collection(stream)
	findOpts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}})
	cur, err := coll.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", db, stream, err)
	}
	defer cur.Close(ctx)
	var docs []domain.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", db, stream, err)
	}
	return docs, nil
}

func (s *MongoStore) Upsert(ctx context.Context, db, stream string, identityFields []string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	coll := s.client.Database(db).Collection(stream)
	var firstTransient error
	for _, doc := range docs {
		key, err := identityValue(doc, identityFields)
		if err != nil {
			s.logger.Printf("[%s/%s] skipping row: %v", db, stream, err)
			continue
		}
		filter := bson.D{}
		for _, f := range identityFields {
			filter = append(filter, bson.E{Key: f, Value: doc[f]})
		}
		op := func() error {
			_, err := coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M(doc)}, options.Update().SetUpsert(true))
			if err == nil {
				return nil
			}
			if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := backoff.Retry(op, newWriteBackoff(ctx)); err != nil {
			transient := mongo.IsTimeout(err) || mongo.IsNetworkError(err)
			werr := &WriteError{Stream: stream, Key: key, Transient: transient, Err: err}
			s.logger.Printf("[%s/%s] %v", db, stream, werr)
			if transient && firstTransient == nil {
				firstTransient = werr
			}
		}
	}
	return firstTransient
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
