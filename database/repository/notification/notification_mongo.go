package notificationRepo

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

// MongoNotificationSentRepo implements NotificationSentRepository using MongoDB.
type MongoNotificationSentRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationSentRepo creates a new instance of NotificationSentRepository using MongoDB.
func NewMongoNotificationSentRepo() NotificationSentRepository {
	repo := &MongoNotificationSentRepo{coll: database.Collection("notifications_sent")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoNotificationSentRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "portal_booking_id", Value: 1}, {Key: "reminder_minutes", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "sent_at", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Exists reports whether a reminder has already been sent.
func (r *MongoNotificationSentRepo) Exists(portalBookingID string, reminderMinutes int) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"portal_booking_id": portalBookingID, "reminder_minutes": reminderMinutes}
	err := r.coll.FindOne(ctx, filter).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up sent notification: %w", err)
	}
	return true, nil
}

// Create records a delivered reminder.
func (r *MongoNotificationSentRepo) Create(sent *models.NotificationSent) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, sent); err != nil {
		return fmt.Errorf("failed to record sent notification: %w", err)
	}
	return nil
}

// DeleteOlderThan purges records older than the cutoff.
func (r *MongoNotificationSentRepo) DeleteOlderThan(cutoff time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	result, err := r.coll.DeleteMany(ctx, bson.M{"sent_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge sent notifications: %w", err)
	}
	return result.DeletedCount, nil
}
