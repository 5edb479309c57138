package reservationRepo

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

// MongoReservationRepo implements ReservationRepository using MongoDB.
type MongoReservationRepo struct {
	coll *mongo.Collection
}

// NewMongoReservationRepo creates a new instance of ReservationRepository using MongoDB.
func NewMongoReservationRepo() ReservationRepository {
	repo := &MongoReservationRepo{coll: database.Collection("reservations")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoReservationRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its unique ID.
func (r *MongoReservationRepo) GetByID(id string) (*models.Reservation, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var reservation models.Reservation
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&reservation); err != nil {
		return nil, fmt.Errorf("failed to fetch reservation with id %s: %w", id, err)
	}
	return &reservation, nil
}

func (r *MongoReservationRepo) find(filter bson.M) ([]models.Reservation, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []models.Reservation
	for cursor.Next(ctx) {
		var res models.Reservation
		if err := cursor.Decode(&res); err != nil {
			return nil, fmt.Errorf("failed to decode reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, nil
}

// GetAll retrieves all reservations.
func (r *MongoReservationRepo) GetAll() ([]models.Reservation, error) {
	return r.find(bson.M{})
}

// GetActive retrieves all reservations with is_active=true.
func (r *MongoReservationRepo) GetActive() ([]models.Reservation, error) {
	return r.find(bson.M{"is_active": true})
}

// GetByUser retrieves all reservations belonging to a user.
func (r *MongoReservationRepo) GetByUser(userID string) ([]models.Reservation, error) {
	return r.find(bson.M{"user_id": userID})
}

// Create inserts a new reservation document.
func (r *MongoReservationRepo) Create(reservation *models.Reservation) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// Update modifies an existing reservation document.
func (r *MongoReservationRepo) Update(reservation *models.Reservation) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	reservation.UpdatedAt = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": reservation.ID}, bson.M{"$set": reservation})
	if err != nil {
		return fmt.Errorf("failed to update reservation with id %s: %w", reservation.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reservation with id %s not found", reservation.ID)
	}
	return nil
}

// Delete removes a reservation document by its ID.
func (r *MongoReservationRepo) Delete(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete reservation with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("reservation with id %s not found", id)
	}
	return nil
}

// MarkBooked records a completed booking: last_book_date and booked_at.
func (r *MongoReservationRepo) MarkBooked(id string, lastBookDate, bookedAt time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"last_book_date": lastBookDate,
		"booked_at":      bookedAt,
		"updated_at":     time.Now(),
	}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark reservation %s booked: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reservation with id %s not found", id)
	}
	return nil
}

// SetActive toggles the is_active flag.
func (r *MongoReservationRepo) SetActive(id string, active bool) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set is_active for reservation %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reservation with id %s not found", id)
	}
	return nil
}
