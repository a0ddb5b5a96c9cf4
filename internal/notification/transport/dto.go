package transport

import (
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/notification/repository"
)

// NotificationResponse is the wire representation of a notification.
type NotificationResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     string     `json:"category"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType *string    `json:"resourceType,omitempty"`
	ReadAt       *time.Time `json:"readAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func ToNotificationResponse(n repository.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		Category:     n.Category,
		ResourceID:   n.ResourceID,
		ResourceType: n.ResourceType,
		ReadAt:       n.ReadAt,
		CreatedAt:    n.CreatedAt,
	}
}

func ToNotificationResponses(notifications []repository.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, ToNotificationResponse(n))
	}
	return out
}
