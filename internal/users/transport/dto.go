package transport

import (
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/users/repository"
)

// UserResponse is the wire representation of a user. LeadCount is the
// broker's active lead total, served from cache when warm.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LeadCount int       `json:"leadCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ToUserResponse(user repository.User, leadCount int) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Nome:      user.Nome,
		Email:     user.Email,
		Role:      user.Role,
		LeadCount: leadCount,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// CreateUserRequest creates a user account.
type CreateUserRequest struct {
	Nome  string `json:"nome" validate:"required,min=2,max=160"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=corretor gerente admin"`
}

// UpdateUserRequest partially updates a user account.
type UpdateUserRequest struct {
	Nome  *string `json:"nome" validate:"omitempty,min=2,max=160"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=corretor gerente admin"`
}
