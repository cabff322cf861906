package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mergeAttempts bounds the retries when two writers race to create the same cart document.
const mergeAttempts = 3

// MongoCartRepository keeps each cart as one document with its lines embedded.
// It cannot join a SQL transaction, so checkout against it goes through compensation.
type MongoCartRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewMongoCartRepository(db *mongo.Database, ttl time.Duration) *MongoCartRepository {
	return &MongoCartRepository{
		collection: db.Collection("carts"),
		ttl:        ttl,
	}
}

func (m *MongoCartRepository) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return &cart, nil
}

func (m *MongoCartRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"lines":      lines,
			"created_at": cart.CreatedAt,
			"updated_at": cart.UpdatedAt,
		},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"user_id": cart.UserID}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) AddLine(ctx context.Context, userID int64, line domain.CartLine) error {
	now := line.AddedAt

	for attempt := 0; attempt < mergeAttempts; attempt++ {
		// Existing line for the product: bump its quantity in place.
		res, err := m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "lines.product_id": line.ProductID},
			bson.M{
				"$inc": bson.M{"lines.$.quantity": line.Quantity},
				"$set": bson.M{"updated_at": now},
			})
		if err != nil {
			return fmt.Errorf("failed to merge cart line: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		// No such line: append it, creating the cart document if it does not exist yet.
		_, err = m.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "lines.product_id": bson.M{"$ne": line.ProductID}},
			bson.M{
				"$push":        bson.M{"lines": line},
				"$set":         bson.M{"updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			},
			options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add cart line: %w", err)
		}
		// A concurrent writer added the same product first; retry as a merge.
	}

	return fmt.Errorf("failed to add cart line after %d attempts", mergeAttempts)
}

func (m *MongoCartRepository) SetLineQuantity(ctx context.Context, userID int64, lineID string, quantity int) error {
	res, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "lines.id": lineID},
		bson.M{"$set": bson.M{
			"lines.$.quantity": quantity,
			"updated_at":       time.Now(),
		}})
	if err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (m *MongoCartRepository) RemoveLine(ctx context.Context, userID int64, lineID string) error {
	res, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "lines.id": lineID},
		bson.M{
			"$pull": bson.M{"lines": bson.M{"id": lineID}},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (m *MongoCartRepository) ClearCart(ctx context.Context, userID int64) error {
	_, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"lines":      []domain.CartLine{},
			"updated_at": time.Now(),
		}})
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// CreateIndexes enforces one cart per user and expires carts untouched for longer than the TTL.
func (m *MongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if m.ttl > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(m.ttl.Seconds())),
		})
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
