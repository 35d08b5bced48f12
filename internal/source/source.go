// Package source defines push sources: feeds outside the dashboard
// backend that deliver notifications into the store.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/notifybell/internal/model"
)

// AuthError indicates that authentication has failed or expired for a source.
type AuthError struct {
	Source  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Source, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// PushSource defines the contract for a feed of pushed notifications.
type PushSource interface {
	// Name identifies the source in statuses and logs.
	Name() string

	// ValidateConnection verifies credentials and connectivity.
	// Returns a human-readable status message on success.
	ValidateConnection(ctx context.Context) (string, error)

	// Poll returns the notifications currently visible at the source.
	// Ids must be client ids so they are never sent to the backend.
	Poll(ctx context.Context) ([]model.Notification, error)
}
