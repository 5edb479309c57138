package pushSubRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wodbooker/database"
	"wodbooker/models"
)

// MongoPushSubscriptionRepo implements PushSubscriptionRepository using MongoDB.
type MongoPushSubscriptionRepo struct {
	coll *mongo.Collection
}

// NewMongoPushSubscriptionRepo creates a new instance of PushSubscriptionRepository using MongoDB.
func NewMongoPushSubscriptionRepo() PushSubscriptionRepository {
	repo := &MongoPushSubscriptionRepo{coll: database.Collection("push_subscriptions")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoPushSubscriptionRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "endpoint", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Upsert stores a subscription, refreshing keys when the (user, endpoint)
// pair already exists.
func (r *MongoPushSubscriptionRepo) Upsert(sub *models.PushSubscription) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"user_id": sub.UserID, "endpoint": sub.Endpoint}
	update := bson.M{
		"$set": bson.M{
			"p256dh": sub.P256dh,
			"auth":   sub.Auth,
		},
		"$setOnInsert": bson.M{
			"id":         sub.ID,
			"user_id":    sub.UserID,
			"endpoint":   sub.Endpoint,
			"created_at": sub.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	return nil
}

// GetByUser retrieves all subscriptions of a user.
func (r *MongoPushSubscriptionRepo) GetByUser(userID string) ([]models.PushSubscription, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve push subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	for cursor.Next(ctx) {
		var s models.PushSubscription
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode push subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// DeleteByEndpoint removes a user's subscription by endpoint.
func (r *MongoPushSubscriptionRepo) DeleteByEndpoint(userID, endpoint string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "endpoint": endpoint}); err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription by its ID.
func (r *MongoPushSubscriptionRepo) Delete(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete push subscription with id %s: %w", id, err)
	}
	return nil
}
