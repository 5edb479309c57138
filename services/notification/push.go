package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"wodbooker/config"
	"wodbooker/models"
)

// pushTTL is how long the push service may hold an undelivered message.
const pushTTL = 3600

type pushPayload struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Extras map[string]string `json:"extras,omitempty"`
}

// SendPush delivers a Web Push message to every subscription of the
// user. Endpoints the push service reports as gone are dropped.
func (s *DefaultService) SendPush(ctx context.Context, userID, title, body string, extras map[string]string) error {
	subs, err := s.subs.GetByUser(userID)
	if err != nil {
		return fmt.Errorf("loading push subscriptions for %s: %w", userID, err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{Title: title, Body: body, Extras: extras})
	if err != nil {
		return fmt.Errorf("marshalling push payload: %w", err)
	}

	var lastErr error
	for _, sub := range subs {
		if err := s.sendToSubscription(payload, sub); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (s *DefaultService) sendToSubscription(payload []byte, sub models.PushSubscription) error {
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      config.AppConfig.VapidClaimEmail,
		VAPIDPublicKey:  config.AppConfig.VapidPublicKey,
		VAPIDPrivateKey: config.AppConfig.VapidPrivateKey,
		TTL:             pushTTL,
	})
	if err != nil {
		return fmt.Errorf("sending push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		// The browser unregistered the endpoint.
		if err := s.subs.Delete(sub.ID); err != nil {
			s.logger.Warn("Failed to drop dead push subscription",
				zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service rejected message for %s: status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}
