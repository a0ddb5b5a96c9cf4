package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/platform/apperr"
)

const userNotFoundMessage = "user not found"

// Repo implements Repository backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, params CreateUserParams) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (nome, email, role)
		VALUES ($1, $2, $3)
		RETURNING id, nome, email, role, created_at, updated_at`,
		params.Nome, params.Email, params.Role,
	).Scan(&user.ID, &user.Nome, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, apperr.Conflict("email already in use")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateUserParams) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET nome = COALESCE($2, nome),
			email = COALESCE($3, email),
			role = COALESCE($4, role),
			updated_at = now()
		WHERE id = $1
		RETURNING id, nome, email, role, created_at, updated_at`,
		params.ID, params.Nome, params.Email, params.Role,
	).Scan(&user.ID, &user.Nome, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		if isUniqueViolation(err) {
			return User{}, apperr.Conflict("email already in use")
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, nome, email, role, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Nome, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *Repo) List(ctx context.Context, role *string) ([]User, error) {
	query := `SELECT id, nome, email, role, created_at, updated_at FROM users`
	args := []any{}
	if role != nil {
		query += ` WHERE role = $1`
		args = append(args, *role)
	}
	query += ` ORDER BY nome`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Nome, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list users: scan: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *Repo) CountActiveLeads(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT corretor_id, count(*)
		FROM clients
		WHERE corretor_id IS NOT NULL AND overall_status = 'active'
		GROUP BY corretor_id`)
	if err != nil {
		return nil, fmt.Errorf("count active leads: %w", err)
	}
	defer rows.Close()

	counts := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("count active leads: scan: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count active leads: %w", err)
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
