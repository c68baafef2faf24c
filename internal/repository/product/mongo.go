package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

type mongoRepo struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewMongo returns a Repository backed by the products collection of db.
func NewMongo(db *mongo.Database, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &mongoRepo{collection: db.Collection("products"), logger: logger}
}

func (r *mongoRepo) List(ctx context.Context) ([]domain.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		r.logger.Printf("product mongo: list error=%v", err)
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cursor.Close(ctx)

	var result []domain.Product
	if err := cursor.All(ctx, &result); err != nil {
		r.logger.Printf("product mongo: list decode error=%v", err)
		return nil, fmt.Errorf("decode products: %w", err)
	}
	r.logger.Printf("product mongo: list count=%d", len(result))
	return result, nil
}

func (r *mongoRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Printf("product mongo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product mongo: get id=%s error=%v", id, err)
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Upsert replaces the stored document but keeps its original created_at.
func (r *mongoRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Tags == nil {
		product.Tags = []string{}
	}
	var existing struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	err := r.collection.FindOne(ctx, bson.M{"_id": product.ID},
		options.FindOne().SetProjection(bson.M{"created_at": 1})).Decode(&existing)
	switch {
	case err == nil:
		product.CreatedAt = existing.CreatedAt
	case errors.Is(err, mongo.ErrNoDocuments):
		product.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	default:
		r.logger.Printf("product mongo: upsert id=%s lookup error=%v", product.ID, err)
		return nil, fmt.Errorf("upsert product: %w", err)
	}

	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Printf("product mongo: upsert id=%s error=%v", product.ID, err)
		return nil, fmt.Errorf("upsert product: %w", err)
	}
	r.logger.Printf("product mongo: upserted id=%s name=%q", product.ID, product.Name)
	return &product, nil
}
