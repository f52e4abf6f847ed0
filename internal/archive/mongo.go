package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/types"
)

// MongoArchive stores full fetch records, page body included, in a
// MongoDB collection.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoArchive connects to MongoDB and verifies the connection.
func NewMongoArchive(cfg *config.ArchiveConfig, logger *slog.Logger) (*MongoArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(cfg.MongoURI)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)

	logger = logger.With("component", "archive", "backend", "mongo")
	logger.Info("connected to mongodb",
		"database", cfg.MongoDatabase,
		"collection", cfg.MongoCollection)

	return &MongoArchive{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Record inserts rec as one document.
func (a *MongoArchive) Record(rec *types.FetchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := bson.M{
		"target":      rec.Target,
		"final_url":   rec.FinalURL,
		"relay":       rec.Relay,
		"status_code": rec.StatusCode,
		"ok":          rec.OK,
		"error":       rec.Error,
		"bytes":       rec.Bytes,
		"elapsed_ms":  rec.Elapsed.Milliseconds(),
		"fetched_at":  rec.FetchedAt,
		"checksum":    rec.Checksum,
		"html":        string(rec.HTML),
	}

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return &types.ArchiveError{Backend: "mongo", Err: err}
	}

	a.mu.Lock()
	a.count++
	a.mu.Unlock()
	return nil
}

// Close disconnects from MongoDB.
func (a *MongoArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.client.Disconnect(ctx); err != nil {
		return &types.ArchiveError{Backend: "mongo", Err: err}
	}

	a.logger.Info("archive closed", "records", a.count)
	return nil
}

// Name returns the backend identifier.
func (a *MongoArchive) Name() string { return "mongo" }
