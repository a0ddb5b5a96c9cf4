package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/platform/apperr"
)

const notificationColumns = `id, user_id, title, content, category, resource_id, resource_type, read_at, created_at`

// Repo implements Repository backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Category,
		&n.ResourceID, &n.ResourceType, &n.ReadAt, &n.CreatedAt)
	return n, err
}

func (r *Repo) Create(ctx context.Context, params CreateParams) (Notification, error) {
	query := fmt.Sprintf(`
		INSERT INTO notifications (user_id, title, content, category, resource_id, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query,
		params.UserID, params.Title, params.Content, params.Category,
		params.ResourceID, params.ResourceType,
	))
	if err != nil {
		return Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE user_id = $1`, notificationColumns)
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("list notifications: scan: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (r *Repo) MarkRead(ctx context.Context, id, userID uuid.UUID) (Notification, error) {
	query := fmt.Sprintf(`
		UPDATE notifications SET read_at = COALESCE(read_at, now())
		WHERE id = $1 AND user_id = $2
		RETURNING %s`, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, apperr.NotFound("notification not found")
		}
		return Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

func (r *Repo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = now() WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
