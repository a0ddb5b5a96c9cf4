package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Title        string
	Content      string
	Category     string
	ResourceID   *uuid.UUID
	ResourceType *string
	ReadAt       *time.Time
	CreatedAt    time.Time
}

// CreateParams holds notification creation data.
type CreateParams struct {
	UserID       uuid.UUID
	Title        string
	Content      string
	Category     string
	ResourceID   *uuid.UUID
	ResourceType *string
}

// Repository defines persistence operations for notifications.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}
