package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/platform/apperr"
)

const (
	funnelNotFoundMessage = "funnel not found"
	stageNotFoundMessage  = "stage not found"

	pgUniqueViolation = "23505"
)

// Repo implements the funnels repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new funnels repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// CreateFunnel creates a funnel with its initial stages in one transaction.
// If the funnel is flagged as default entry, the flag is cleared from any
// other funnel first so at most one funnel carries it.
func (r *Repo) CreateFunnel(ctx context.Context, params CreateFunnelParams) (Funnel, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Funnel{}, fmt.Errorf("create funnel: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if params.IsDefaultEntry {
		if _, err := tx.Exec(ctx, `UPDATE funnels SET is_default_entry = false WHERE is_default_entry`); err != nil {
			return Funnel{}, fmt.Errorf("create funnel: clear default entry: %w", err)
		}
	}

	query := `
		INSERT INTO funnels (name, is_default_entry, is_pre_sales)
		VALUES ($1, $2, $3)
		RETURNING id, name, is_default_entry, is_pre_sales, created_at, updated_at`

	var funnel Funnel
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(ctx, query, params.Name, params.IsDefaultEntry, params.IsPreSales).Scan(
		&funnel.ID, &funnel.Name, &funnel.IsDefaultEntry, &funnel.IsPreSales, &createdAt, &updatedAt,
	); err != nil {
		return Funnel{}, fmt.Errorf("create funnel: %w", err)
	}

	for _, stage := range params.Stages {
		var s Stage
		if err := tx.QueryRow(ctx, `
			INSERT INTO funnel_stages (funnel_id, name, position, color)
			VALUES ($1, $2, $3, $4)
			RETURNING id, funnel_id, name, position, color`,
			funnel.ID, stage.Name, stage.Position, stage.Color,
		).Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position, &s.Color); err != nil {
			if isUniqueViolation(err) {
				return Funnel{}, apperr.Conflict("duplicate stage position in funnel")
			}
			return Funnel{}, fmt.Errorf("create funnel stage: %w", err)
		}
		funnel.Stages = append(funnel.Stages, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return Funnel{}, fmt.Errorf("create funnel: commit: %w", err)
	}

	funnel.CreatedAt = createdAt.Format(time.RFC3339)
	funnel.UpdatedAt = updatedAt.Format(time.RFC3339)
	return funnel, nil
}

// UpdateFunnel updates a funnel. Setting IsDefaultEntry to true clears the
// flag from other funnels in the same transaction.
func (r *Repo) UpdateFunnel(ctx context.Context, params UpdateFunnelParams) (Funnel, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Funnel{}, fmt.Errorf("update funnel: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if params.IsDefaultEntry != nil && *params.IsDefaultEntry {
		if _, err := tx.Exec(ctx, `UPDATE funnels SET is_default_entry = false WHERE is_default_entry AND id <> $1`, params.ID); err != nil {
			return Funnel{}, fmt.Errorf("update funnel: clear default entry: %w", err)
		}
	}

	query := `
		UPDATE funnels
		SET name = COALESCE($2, name),
			is_default_entry = COALESCE($3, is_default_entry),
			is_pre_sales = COALESCE($4, is_pre_sales),
			updated_at = now()
		WHERE id = $1
		RETURNING id, name, is_default_entry, is_pre_sales, created_at, updated_at`

	var funnel Funnel
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(ctx, query, params.ID, params.Name, params.IsDefaultEntry, params.IsPreSales).Scan(
		&funnel.ID, &funnel.Name, &funnel.IsDefaultEntry, &funnel.IsPreSales, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Funnel{}, apperr.NotFound(funnelNotFoundMessage)
		}
		return Funnel{}, fmt.Errorf("update funnel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Funnel{}, fmt.Errorf("update funnel: commit: %w", err)
	}

	funnel.CreatedAt = createdAt.Format(time.RFC3339)
	funnel.UpdatedAt = updatedAt.Format(time.RFC3339)

	stages, err := r.ListStages(ctx, funnel.ID)
	if err != nil {
		return Funnel{}, err
	}
	funnel.Stages = stages
	return funnel, nil
}

// DeleteFunnel deletes a funnel. Deletion is blocked while clients still
// live in the funnel.
func (r *Repo) DeleteFunnel(ctx context.Context, id uuid.UUID) error {
	var inUse int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM clients WHERE funnel_id = $1`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("delete funnel: count clients: %w", err)
	}
	if inUse > 0 {
		return apperr.Conflict("funnel has clients and cannot be deleted")
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM funnels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete funnel: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(funnelNotFoundMessage)
	}
	return nil
}

// GetFunnelByID retrieves a funnel with its stages ordered by position.
func (r *Repo) GetFunnelByID(ctx context.Context, id uuid.UUID) (Funnel, error) {
	return r.getFunnel(ctx, `WHERE id = $1`, id)
}

// GetDefaultEntryFunnel retrieves the funnel flagged as default entry.
func (r *Repo) GetDefaultEntryFunnel(ctx context.Context) (Funnel, error) {
	return r.getFunnel(ctx, `WHERE is_default_entry ORDER BY created_at LIMIT 1`)
}

// GetFirstFunnel retrieves the oldest funnel in the registry. Used as the
// intake fallback when no funnel is flagged as default entry.
func (r *Repo) GetFirstFunnel(ctx context.Context) (Funnel, error) {
	return r.getFunnel(ctx, `ORDER BY created_at LIMIT 1`)
}

func (r *Repo) getFunnel(ctx context.Context, clause string, args ...interface{}) (Funnel, error) {
	query := `
		SELECT id, name, is_default_entry, is_pre_sales, created_at, updated_at
		FROM funnels ` + clause

	var funnel Funnel
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&funnel.ID, &funnel.Name, &funnel.IsDefaultEntry, &funnel.IsPreSales, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Funnel{}, apperr.NotFound(funnelNotFoundMessage)
		}
		return Funnel{}, fmt.Errorf("get funnel: %w", err)
	}

	funnel.CreatedAt = createdAt.Format(time.RFC3339)
	funnel.UpdatedAt = updatedAt.Format(time.RFC3339)

	stages, err := r.ListStages(ctx, funnel.ID)
	if err != nil {
		return Funnel{}, err
	}
	funnel.Stages = stages
	return funnel, nil
}

// ListFunnels lists all funnels with their stages ordered by position.
func (r *Repo) ListFunnels(ctx context.Context) ([]Funnel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, is_default_entry, is_pre_sales, created_at, updated_at
		FROM funnels
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list funnels: %w", err)
	}
	defer rows.Close()

	funnels := make([]Funnel, 0)
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var funnel Funnel
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&funnel.ID, &funnel.Name, &funnel.IsDefaultEntry, &funnel.IsPreSales, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("list funnels: scan: %w", err)
		}
		funnel.CreatedAt = createdAt.Format(time.RFC3339)
		funnel.UpdatedAt = updatedAt.Format(time.RFC3339)
		funnel.Stages = make([]Stage, 0)
		byID[funnel.ID] = len(funnels)
		funnels = append(funnels, funnel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list funnels: %w", err)
	}

	stageRows, err := r.pool.Query(ctx, `
		SELECT id, funnel_id, name, position, color
		FROM funnel_stages
		ORDER BY funnel_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list funnel stages: %w", err)
	}
	defer stageRows.Close()

	for stageRows.Next() {
		var s Stage
		if err := stageRows.Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position, &s.Color); err != nil {
			return nil, fmt.Errorf("list funnel stages: scan: %w", err)
		}
		if idx, ok := byID[s.FunnelID]; ok {
			funnels[idx].Stages = append(funnels[idx].Stages, s)
		}
	}
	if err := stageRows.Err(); err != nil {
		return nil, fmt.Errorf("list funnel stages: %w", err)
	}

	return funnels, nil
}

// CreateStage adds a stage to a funnel. A duplicate position within the
// funnel is a conflict, enforced by a unique index.
func (r *Repo) CreateStage(ctx context.Context, params CreateStageParams) (Stage, error) {
	query := `
		INSERT INTO funnel_stages (funnel_id, name, position, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, funnel_id, name, position, color`

	var s Stage
	if err := r.pool.QueryRow(ctx, query, params.FunnelID, params.Name, params.Position, params.Color).Scan(
		&s.ID, &s.FunnelID, &s.Name, &s.Position, &s.Color,
	); err != nil {
		if isUniqueViolation(err) {
			return Stage{}, apperr.Conflict("duplicate stage position in funnel")
		}
		return Stage{}, fmt.Errorf("create stage: %w", err)
	}
	return s, nil
}

// UpdateStage updates a stage.
func (r *Repo) UpdateStage(ctx context.Context, params UpdateStageParams) (Stage, error) {
	query := `
		UPDATE funnel_stages
		SET name = COALESCE($2, name),
			position = COALESCE($3, position),
			color = COALESCE($4, color),
			updated_at = now()
		WHERE id = $1
		RETURNING id, funnel_id, name, position, color`

	var s Stage
	if err := r.pool.QueryRow(ctx, query, params.ID, params.Name, params.Position, params.Color).Scan(
		&s.ID, &s.FunnelID, &s.Name, &s.Position, &s.Color,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		if isUniqueViolation(err) {
			return Stage{}, apperr.Conflict("duplicate stage position in funnel")
		}
		return Stage{}, fmt.Errorf("update stage: %w", err)
	}
	return s, nil
}

// DeleteStage deletes a stage. Deletion is blocked while clients still
// reference the stage; the board never silently loses leads to a cascade.
func (r *Repo) DeleteStage(ctx context.Context, id uuid.UUID) error {
	var inUse int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM clients WHERE stage_id = $1`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("delete stage: count clients: %w", err)
	}
	if inUse > 0 {
		return apperr.Conflict("stage has clients and cannot be deleted")
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM funnel_stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(stageNotFoundMessage)
	}
	return nil
}

// ListStages lists a funnel's stages ordered by position.
func (r *Repo) ListStages(ctx context.Context, funnelID uuid.UUID) ([]Stage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, funnel_id, name, position, color
		FROM funnel_stages
		WHERE funnel_id = $1
		ORDER BY position`, funnelID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]Stage, 0)
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position, &s.Color); err != nil {
			return nil, fmt.Errorf("list stages: scan: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
