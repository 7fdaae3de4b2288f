package apiclient

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/validation"
)

type Notification struct {
	ID        catalog.ID             `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      string                 `json:"link,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt string                 `json:"created_at,omitempty"`
}

// SendNotificationInput is the admin broadcast form. An empty UserID targets everyone.
type SendNotificationInput struct {
	UserID  catalog.ID             `json:"user_id,omitempty"`
	Type    enums.NotificationType `json:"type" validate:"required,oneof=promotion system order"`
	Title   string                 `json:"title" validate:"required,max=200"`
	Message string                 `json:"message" validate:"required"`
	Link    string                 `json:"link,omitempty"`
}

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	err := c.do(ctx, request{endpoint: "notifications.list", method: http.MethodGet, path: "notifications/", auth: true}, &out)
	return out, err
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, request{endpoint: "notifications.unread_count", method: http.MethodGet, path: "notifications/unread_count/", auth: true}, &out)
	return out.Count, err
}

func (c *Client) MarkAsRead(ctx context.Context, id catalog.ID) error {
	if id.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id is required")
	}
	return c.do(ctx, request{endpoint: "notifications.mark_as_read", method: http.MethodPost, path: "notifications/" + id.String() + "/mark_as_read/", body: struct{}{}, auth: true}, nil)
}

func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.do(ctx, request{endpoint: "notifications.mark_all_as_read", method: http.MethodPost, path: "notifications/mark_all_as_read/", body: struct{}{}, auth: true}, nil)
}

func (c *Client) SendNotification(ctx context.Context, input SendNotificationInput) error {
	if err := validation.Struct(input); err != nil {
		return err
	}
	return c.do(ctx, request{endpoint: "admin.send_notification", method: http.MethodPost, path: "admin/send-notification/", body: input, auth: true}, nil)
}
