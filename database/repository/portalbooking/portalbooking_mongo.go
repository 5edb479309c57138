package portalBookingRepo

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

// MongoPortalBookingRepo implements PortalBookingRepository using MongoDB.
type MongoPortalBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoPortalBookingRepo creates a new instance of PortalBookingRepository using MongoDB.
func NewMongoPortalBookingRepo() PortalBookingRepository {
	repo := &MongoPortalBookingRepo{coll: database.Collection("portal_bookings")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoPortalBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "portal_class_id", Value: 1},
				{Key: "class_date", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "class_date", Value: 1}, {Key: "is_cancelled", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetByID retrieves an observed booking by its unique ID.
func (r *MongoPortalBookingRepo) GetByID(id string) (*models.PortalBooking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var booking models.PortalBooking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		return nil, fmt.Errorf("failed to fetch portal booking with id %s: %w", id, err)
	}
	return &booking, nil
}

// Upsert inserts or refreshes an observed booking.
func (r *MongoPortalBookingRepo) Upsert(booking *models.PortalBooking) (UpsertResult, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"user_id":         booking.UserID,
		"portal_class_id": booking.PortalClassID,
		"class_date":      booking.ClassDate,
	}

	var existing models.PortalBooking
	err := r.coll.FindOne(ctx, filter).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		if _, err := r.coll.InsertOne(ctx, booking); err != nil {
			return UpsertUnchanged, fmt.Errorf("failed to insert portal booking: %w", err)
		}
		return UpsertCreated, nil
	}
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to look up portal booking: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"class_time":   booking.ClassTime,
		"class_name":   booking.ClassName,
		"type_class":   booking.TypeClass,
		"box_url":      booking.BoxURL,
		"fetched_at":   booking.FetchedAt,
		"is_cancelled": false,
	}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to update portal booking: %w", err)
	}

	changed := existing.IsCancelled ||
		existing.ClassTime != booking.ClassTime ||
		existing.ClassName != booking.ClassName ||
		existing.TypeClass != booking.TypeClass
	if changed {
		return UpsertUpdated, nil
	}
	return UpsertUnchanged, nil
}

// GetByUserAndDate retrieves all observed bookings of a user on a date.
func (r *MongoPortalBookingRepo) GetByUserAndDate(userID string, date time.Time) ([]models.PortalBooking, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID, "class_date": date})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve portal bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.PortalBooking
	for cursor.Next(ctx) {
		var b models.PortalBooking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode portal booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// CancelMissing marks as cancelled every booking of the user on the date
// whose portal class id is not in keep.
func (r *MongoPortalBookingRepo) CancelMissing(userID string, date time.Time, keep []string, fetchedAt time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	if keep == nil {
		keep = []string{}
	}
	filter := bson.M{
		"user_id":         userID,
		"class_date":      date,
		"is_cancelled":    false,
		"portal_class_id": bson.M{"$nin": keep},
	}
	update := bson.M{"$set": bson.M{"is_cancelled": true, "fetched_at": fetchedAt}}
	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel missing portal bookings: %w", err)
	}
	return result.ModifiedCount, nil
}

// GetActiveBetween retrieves non-cancelled bookings with class_date inside [from, to].
func (r *MongoPortalBookingRepo) GetActiveBetween(from, to time.Time) ([]models.PortalBooking, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"is_cancelled": false,
		"class_date":   bson.M{"$gte": from, "$lte": to},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve portal bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.PortalBooking
	for cursor.Next(ctx) {
		var b models.PortalBooking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode portal booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}
