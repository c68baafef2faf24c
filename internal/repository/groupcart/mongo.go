package groupcart

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

type MongoStore struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewMongo returns a Store backed by the group_carts collection of db.
func NewMongo(db *mongo.Database, logger *log.Logger) *MongoStore {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &MongoStore{collection: db.Collection("group_carts"), logger: logger}
}

func (s *MongoStore) Create(ctx context.Context, cart domain.GroupCart) (*domain.GroupCart, error) {
	// BSON keeps millisecond precision; store what will be read back.
	cart.CreatedAt = cart.CreatedAt.Truncate(time.Millisecond)
	cart.UpdatedAt = cart.UpdatedAt.Truncate(time.Millisecond)
	if _, err := s.collection.InsertOne(ctx, cart); err != nil {
		s.logger.Printf("groupcart mongo: create id=%s error=%v", cart.ID, err)
		return nil, fmt.Errorf("insert group cart: %w", err)
	}
	out := cart.Clone()
	return &out, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.GroupCart, error) {
	var c domain.GroupCart
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("get group cart: %w", err)
	}
	normalize(&c)
	return &c, nil
}

func (s *MongoStore) AddMember(ctx context.Context, id string, user domain.User) (bool, error) {
	filter := bson.M{"_id": id, "member_ids": bson.M{"$ne": user.ID}}
	update := bson.M{
		"$push": bson.M{"members": user, "member_ids": user.ID},
		"$inc":  bson.M{"version": 1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		s.logger.Printf("groupcart mongo: add member id=%s user_id=%s error=%v", id, user.ID, err)
		return false, fmt.Errorf("add member: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, id)
}

func (s *MongoStore) RemoveMember(ctx context.Context, id, userID string) (bool, error) {
	filter := bson.M{"_id": id, "member_ids": userID}
	update := bson.M{
		"$pull": bson.M{"members": bson.M{"id": userID}, "member_ids": userID},
		"$inc":  bson.M{"version": 1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		s.logger.Printf("groupcart mongo: remove member id=%s user_id=%s error=%v", id, userID, err)
		return false, fmt.Errorf("remove member: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, id)
}

func (s *MongoStore) ReplaceItems(ctx context.Context, id string, expectedVersion int64, items []domain.GroupCartItem) error {
	if items == nil {
		items = []domain.GroupCartItem{}
	}
	filter := bson.M{"_id": id, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"cart_items": items, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		s.logger.Printf("groupcart mongo: replace items id=%s version=%d error=%v", id, expectedVersion, err)
		return fmt.Errorf("replace items: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if err := s.mustExist(ctx, id); err != nil {
		return err
	}
	return domain.ErrVersionConflict
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete group cart: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}

// CreateIndexes adds the member lookup index. Safe to call repeatedly.
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_ids", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes, options.CreateIndexes()); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) mustExist(ctx context.Context, id string) error {
	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check group cart %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}
