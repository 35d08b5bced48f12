package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/notifybell/internal/model"
)

const (
	listPath        = "/notifications/list/"
	markAllReadPath = "/notifications/mark-all-as-read/"
)

// ListNotifications fetches the full notification list and normalizes
// whichever envelope the backend returned.
func (c *Client) ListNotifications(ctx context.Context) (*ListResult, error) {
	body, err := c.Get(ctx, listPath)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return NormalizeList(body)
}

// MarkRead marks a single notification as read. The backend contract
// uses a GET on the detail endpoint for this.
func (c *Client) MarkRead(ctx context.Context, id model.ID) error {
	path := listPath + url.PathEscape(id.String()) + "/"
	if _, err := c.Get(ctx, path); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification as read with a single call.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if _, err := c.Post(ctx, markAllReadPath, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}
