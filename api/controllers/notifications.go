package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// NotificationSource reads and acknowledges notifications on the remote API.
type NotificationSource interface {
	Notifications(ctx context.Context) ([]apiclient.Notification, error)
	MarkAsRead(ctx context.Context, id catalog.ID) error
	MarkAllAsRead(ctx context.Context) error
}

// UnreadCounter exposes the poller's latest count.
type UnreadCounter interface {
	UnreadCount() int
	Refresh(ctx context.Context) error
}

func ListNotifications(source NotificationSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := source.Notifications(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []apiclient.Notification{}
		}
		responses.WriteSuccess(w, items)
	}
}

// UnreadNotifications returns the last polled count without calling the remote API.
func UnreadNotifications(counter UnreadCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]int{"count": counter.UnreadCount()})
	}
}

func MarkNotificationRead(source NotificationSource, counter UnreadCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := source.MarkAsRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refreshCount(r.Context(), counter, logg)
		responses.WriteSuccess(w, map[string]int{"count": counter.UnreadCount()})
	}
}

func MarkAllNotificationsRead(source NotificationSource, counter UnreadCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := source.MarkAllAsRead(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refreshCount(r.Context(), counter, logg)
		responses.WriteSuccess(w, map[string]int{"count": counter.UnreadCount()})
	}
}

func refreshCount(ctx context.Context, counter UnreadCounter, logg *logger.Logger) {
	if err := counter.Refresh(ctx); err != nil && logg != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "unread count refresh after mark read failed")
	}
}
