package eventRepo

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

// MongoEventRepo implements EventRepository using MongoDB.
type MongoEventRepo struct {
	coll *mongo.Collection
}

// NewMongoEventRepo creates a new instance of EventRepository using MongoDB.
func NewMongoEventRepo() EventRepository {
	repo := &MongoEventRepo{coll: database.Collection("events")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoEventRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reservation_id", Value: 1}, {Key: "date", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Insert appends a new event row.
func (r *MongoEventRepo) Insert(event *models.Event) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetLast retrieves the most recent event for a reservation.
func (r *MongoEventRepo) GetLast(reservationID string) (*models.Event, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var event models.Event
	if err := r.coll.FindOne(ctx, bson.M{"reservation_id": reservationID}, opts).Decode(&event); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch last event for reservation %s: %w", reservationID, err)
	}
	return &event, nil
}

// GetByReservation retrieves the timeline for a reservation, newest first.
func (r *MongoEventRepo) GetByReservation(reservationID string, limit int) ([]models.Event, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{"reservation_id": reservationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.Event
	for cursor.Next(ctx) {
		var e models.Event
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// DeleteByReservation removes the whole timeline of a reservation.
func (r *MongoEventRepo) DeleteByReservation(reservationID string) error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"reservation_id": reservationID}); err != nil {
		return fmt.Errorf("failed to delete events for reservation %s: %w", reservationID, err)
	}
	return nil
}

// DeleteOlderThan removes events for a reservation older than the cutoff,
// never touching the event with the given ID.
func (r *MongoEventRepo) DeleteOlderThan(reservationID string, cutoff time.Time, keepID string) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"reservation_id": reservationID,
		"date":           bson.M{"$lt": cutoff},
		"id":             bson.M{"$ne": keepID},
	}
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events for reservation %s: %w", reservationID, err)
	}
	return result.DeletedCount, nil
}
