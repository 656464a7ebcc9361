package repositories

import (
	"context"

	"github.com/playtube/backend/internal/models"
)

// SubscriptionRepository defines the data access contract for the directed
// subscriber → channel follow edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.User, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
}
