package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoMaxPool = 100
	defaultMongoMinPool = 10
)

// MongoConfig describes the MongoDB deployment holding carts. Zero pool sizes use the defaults.
type MongoConfig struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	CartTTL     time.Duration
}

// OpenMongoCarts connects, checks the server answers and prepares the carts collection indexes.
// The caller owns the returned client and must disconnect it.
func OpenMongoCarts(ctx context.Context, cfg MongoConfig) (*MongoCartRepository, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, mongoClientOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	carts := NewMongoCartRepository(client.Database(cfg.Database), cfg.CartTTL)
	if err := carts.CreateIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return carts, client, nil
}

func mongoClientOptions(cfg MongoConfig) *options.ClientOptions {
	maxPool := cfg.MaxPoolSize
	if maxPool == 0 {
		maxPool = defaultMongoMaxPool
	}
	minPool := cfg.MinPoolSize
	if minPool == 0 {
		minPool = defaultMongoMinPool
	}
	if minPool > maxPool {
		minPool = maxPool
	}

	return options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(maxPool).
		SetMinPoolSize(minPool)
}
