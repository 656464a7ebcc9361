package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playtube/backend/internal/logging"
	"github.com/playtube/backend/internal/models"
	"github.com/playtube/backend/internal/repositories"
)

// SubscriptionHandler provides follow/unfollow endpoints between users.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
	NowFunc       func() time.Time
}

// Subscribe handles POST /api/v1/subscriptions/{channelID}.
func (h SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	subscriberID := callerID(ctx)
	if subscriberID == "" {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "unauthorized request"))
		return
	}

	channelID := chi.URLParam(r, "channelID")
	if channelID == subscriberID {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "cannot subscribe to your own channel"))
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, newAPIError(http.StatusNotFound, "channel does not exist"))
			return
		}
		logger.Error("channel lookup failed", "channelId", channelID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to look up channel"))
		return
	}

	sub := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    h.now(),
	}

	if err := h.Subscriptions.Create(ctx, sub); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, newAPIError(http.StatusConflict, "already subscribed to this channel"))
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, newAPIError(http.StatusNotFound, "channel does not exist"))
		default:
			logger.Error("failed to create subscription", "channelId", channelID, "error", err)
			respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to subscribe"))
		}
		return
	}

	respondData(ctx, w, http.StatusCreated, sub, "subscribed successfully")
}

// Unsubscribe handles DELETE /api/v1/subscriptions/{channelID}.
func (h SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := callerID(ctx)
	if subscriberID == "" {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "unauthorized request"))
		return
	}

	channelID := chi.URLParam(r, "channelID")

	if err := h.Subscriptions.Delete(ctx, subscriberID, channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, newAPIError(http.StatusNotFound, "subscription does not exist"))
			return
		}
		logging.FromContext(ctx).Error("failed to delete subscription", "channelId", channelID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to unsubscribe"))
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "unsubscribed successfully")
}

// Subscribers handles GET /api/v1/subscriptions/{channelID}/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	channelID := chi.URLParam(r, "channelID")

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		logger.Error("failed to list subscribers", "channelId", channelID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to list subscribers"))
		return
	}

	count, err := h.Subscriptions.CountSubscribers(ctx, channelID)
	if err != nil {
		logger.Error("failed to count subscribers", "channelId", channelID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to count subscribers"))
		return
	}

	respondData(ctx, w, http.StatusOK, subscriberListResponse{
		Subscribers: sanitizeUsers(subscribers),
		Count:       count,
	}, "subscribers fetched")
}

// SubscribedChannels handles GET /api/v1/subscriptions/me.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := callerID(ctx)
	if subscriberID == "" {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "unauthorized request"))
		return
	}

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, subscriberID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list subscribed channels", "userId", subscriberID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to list subscriptions"))
		return
	}

	respondData(ctx, w, http.StatusOK, channelListResponse{
		Channels: sanitizeUsers(channels),
		Count:    int64(len(channels)),
	}, "subscriptions fetched")
}

func sanitizeUsers(users []models.User) []models.PublicUser {
	sanitized := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		sanitized = append(sanitized, user.Sanitize())
	}
	return sanitized
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type subscriberListResponse struct {
	Subscribers []models.PublicUser `json:"subscribers"`
	Count       int64               `json:"count"`
}

type channelListResponse struct {
	Channels []models.PublicUser `json:"channels"`
	Count    int64               `json:"count"`
}
