package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a platform account: a broker or a manager-tier operator.
type User struct {
	ID        uuid.UUID
	Nome      string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserParams holds user creation data.
type CreateUserParams struct {
	Nome  string
	Email string
	Role  string
}

// UpdateUserParams holds partial user update data.
type UpdateUserParams struct {
	ID    uuid.UUID
	Nome  *string
	Email *string
	Role  *string
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (User, error)
	Update(ctx context.Context, params UpdateUserParams) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context, role *string) ([]User, error)

	// CountActiveLeads counts each user's active leads in one query.
	CountActiveLeads(ctx context.Context) (map[uuid.UUID]int, error)
}
