package pushSubRepo

import "wodbooker/models"

// PushSubscriptionRepository defines methods for Web Push subscription access.
type PushSubscriptionRepository interface {
	// Upsert stores a subscription, refreshing keys when the (user,
	// endpoint) pair already exists.
	Upsert(sub *models.PushSubscription) error
	// GetByUser retrieves all subscriptions of a user.
	GetByUser(userID string) ([]models.PushSubscription, error)
	// DeleteByEndpoint removes a user's subscription by endpoint.
	DeleteByEndpoint(userID, endpoint string) error
	// Delete removes a subscription by its ID.
	Delete(id string) error
}
