package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ferndesk/portal-checkout/domain"
)

// MongoLookup resolves coupon codes against a MongoDB collection, so the
// coupon table can be maintained outside the binary without touching the
// engine's contract.
type MongoLookup struct {
	collection *mongo.Collection
}

func NewMongoLookup(db *mongo.Database, collection string) *MongoLookup {
	return &MongoLookup{collection: db.Collection(collection)}
}

func (m *MongoLookup) Lookup(ctx context.Context, code string) (int, error) {
	var coupon domain.Coupon

	filter := bson.M{"code": code}
	err := m.collection.FindOne(ctx, filter).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrCouponNotFound
		}
		return 0, fmt.Errorf("failed to look up coupon: %w", err)
	}

	if coupon.DiscountPercent < 1 || coupon.DiscountPercent > 100 {
		return 0, fmt.Errorf("coupon %q has out-of-range discount %d", code, coupon.DiscountPercent)
	}
	return coupon.DiscountPercent, nil
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
