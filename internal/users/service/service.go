package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"imobcrm_backend/internal/users/cache"
	"imobcrm_backend/internal/users/repository"
	"imobcrm_backend/internal/users/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
)

// Service provides business logic for the broker directory.
type Service struct {
	repo   repository.Repository
	counts *cache.LeadCounts
	log    *logger.Logger
}

// New creates a new users service.
func New(repo repository.Repository, counts *cache.LeadCounts, log *logger.Logger) *Service {
	return &Service{repo: repo, counts: counts, log: log}
}

// List retrieves users, optionally filtered by role, decorated with their
// active lead counts. Counts come from the cache when warm; a miss refills
// it from one grouped query.
func (s *Service) List(ctx context.Context, role *string) ([]transport.UserResponse, error) {
	if role != nil {
		r := strings.TrimSpace(*role)
		if r == "" || r == "all" {
			role = nil
		} else {
			if r != "corretor" && r != "gerente" && r != "admin" {
				return nil, apperr.Validation("unknown role filter")
			}
			role = &r
		}
	}

	users, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, err
	}

	counts, err := s.leadCounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]transport.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, transport.ToUserResponse(user, counts[user.ID]))
	}
	return out, nil
}

// GetByID retrieves a single user with its lead count.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}
	counts, err := s.leadCounts(ctx)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return transport.ToUserResponse(user, counts[user.ID]), nil
}

// Create creates a user account.
func (s *Service) Create(ctx context.Context, req transport.CreateUserRequest) (transport.UserResponse, error) {
	user, err := s.repo.Create(ctx, repository.CreateUserParams{
		Nome:  strings.TrimSpace(req.Nome),
		Email: strings.TrimSpace(req.Email),
		Role:  req.Role,
	})
	if err != nil {
		return transport.UserResponse{}, err
	}
	s.log.Info("user created", "id", user.ID, "role", user.Role)
	return transport.ToUserResponse(user, 0), nil
}

// Update partially updates a user account.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateUserRequest) (transport.UserResponse, error) {
	user, err := s.repo.Update(ctx, repository.UpdateUserParams{
		ID:    id,
		Nome:  trimmed(req.Nome),
		Email: trimmed(req.Email),
		Role:  req.Role,
	})
	if err != nil {
		return transport.UserResponse{}, err
	}
	counts, err := s.leadCounts(ctx)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return transport.ToUserResponse(user, counts[user.ID]), nil
}

// InvalidateLeadCounts drops the cached counts. Wired to lead lifecycle
// events so the directory stays fresh between TTL expiries.
func (s *Service) InvalidateLeadCounts(ctx context.Context) {
	if err := s.counts.Invalidate(ctx); err != nil {
		s.log.Error("lead count invalidation failed", "error", err)
	}
}

// RefreshLeadCounts recomputes and stores the counts, for the scheduler's
// periodic refresh task.
func (s *Service) RefreshLeadCounts(ctx context.Context) error {
	counts, err := s.repo.CountActiveLeads(ctx)
	if err != nil {
		return err
	}
	return s.counts.Set(ctx, counts)
}

func (s *Service) leadCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	counts, hit, err := s.counts.Get(ctx)
	if err != nil {
		// Redis being down must not take the directory with it.
		s.log.Error("lead count cache read failed", "error", err)
	}
	if hit {
		return counts, nil
	}

	counts, err = s.repo.CountActiveLeads(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.counts.Set(ctx, counts); err != nil {
		s.log.Error("lead count cache fill failed", "error", err)
	}
	return counts, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
