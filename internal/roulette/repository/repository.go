package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/internal/roulette/domain"
	"imobcrm_backend/platform/apperr"
)

const (
	rouletteNotFoundMessage = "roulette not found"
	emptyRotationMessage    = "roulette has no participants"
)

// Repo implements the roulette repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new roulette repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create creates a roulette with its ordered participant list.
func (r *Repo) Create(ctx context.Context, params CreateRouletteParams) (domain.Roulette, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Roulette{}, fmt.Errorf("create roulette: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO roletas (nome, ativa, valid_from, valid_until, funnel_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	var id uuid.UUID
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(ctx, query,
		params.Nome, params.Ativa, params.ValidFrom, params.ValidUntil, params.FunnelID,
	).Scan(&id, &createdAt, &updatedAt); err != nil {
		return domain.Roulette{}, fmt.Errorf("create roulette: %w", err)
	}

	if err := insertParticipants(ctx, tx, id, params.ParticipantIDs); err != nil {
		return domain.Roulette{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Roulette{}, fmt.Errorf("create roulette: commit: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Update partially updates a roulette. Replacing the participant list
// re-clamps the rotation cursor inside the same transaction so it never
// points past the new length.
func (r *Repo) Update(ctx context.Context, params UpdateRouletteParams) (domain.Roulette, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Roulette{}, fmt.Errorf("update roulette: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var lastIndex int
	if err := tx.QueryRow(ctx, `SELECT last_assigned_index FROM roletas WHERE id = $1 FOR UPDATE`, params.ID).Scan(&lastIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Roulette{}, apperr.NotFound(rouletteNotFoundMessage)
		}
		return domain.Roulette{}, fmt.Errorf("update roulette: lock: %w", err)
	}

	query := `
		UPDATE roletas
		SET nome = COALESCE($2, nome),
			ativa = COALESCE($3, ativa),
			valid_from = CASE WHEN $4 THEN NULL ELSE COALESCE($5, valid_from) END,
			valid_until = CASE WHEN $6 THEN NULL ELSE COALESCE($7, valid_until) END,
			funnel_id = CASE WHEN $8 THEN NULL ELSE COALESCE($9, funnel_id) END,
			updated_at = now()
		WHERE id = $1`

	if _, err := tx.Exec(ctx, query,
		params.ID, params.Nome, params.Ativa,
		params.ClearValidFrom, params.ValidFrom,
		params.ClearValidUntil, params.ValidUntil,
		params.ClearFunnelID, params.FunnelID,
	); err != nil {
		return domain.Roulette{}, fmt.Errorf("update roulette: %w", err)
	}

	if params.ParticipantIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM roleta_participants WHERE roleta_id = $1`, params.ID); err != nil {
			return domain.Roulette{}, fmt.Errorf("update roulette: clear participants: %w", err)
		}
		if err := insertParticipants(ctx, tx, params.ID, *params.ParticipantIDs); err != nil {
			return domain.Roulette{}, err
		}

		clamped := domain.ClampCursor(lastIndex, len(*params.ParticipantIDs))
		if clamped != lastIndex {
			if _, err := tx.Exec(ctx, `UPDATE roletas SET last_assigned_index = $2 WHERE id = $1`, params.ID, clamped); err != nil {
				return domain.Roulette{}, fmt.Errorf("update roulette: clamp cursor: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Roulette{}, fmt.Errorf("update roulette: commit: %w", err)
	}

	return r.GetByID(ctx, params.ID)
}

// Delete deletes a roulette.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM roletas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete roulette: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(rouletteNotFoundMessage)
	}
	return nil
}

// GetByID retrieves a roulette with its participants in rotation order.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Roulette, error) {
	roulettes, err := r.list(ctx, `WHERE r.id = $1`, id)
	if err != nil {
		return domain.Roulette{}, err
	}
	if len(roulettes) == 0 {
		return domain.Roulette{}, apperr.NotFound(rouletteNotFoundMessage)
	}
	return roulettes[0], nil
}

// List retrieves all roulettes with participants.
func (r *Repo) List(ctx context.Context) ([]domain.Roulette, error) {
	return r.list(ctx, ``)
}

// ListActive retrieves the roulettes whose active flag is set.
func (r *Repo) ListActive(ctx context.Context) ([]domain.Roulette, error) {
	return r.list(ctx, `WHERE r.ativa`)
}

func (r *Repo) list(ctx context.Context, clause string, args ...interface{}) ([]domain.Roulette, error) {
	query := `
		SELECT r.id, r.nome, r.ativa, r.last_assigned_index, r.valid_from, r.valid_until,
			r.funnel_id, r.created_at, r.updated_at
		FROM roletas r ` + clause + `
		ORDER BY r.created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list roulettes: %w", err)
	}
	defer rows.Close()

	roulettes := make([]domain.Roulette, 0)
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var rl domain.Roulette
		if err := rows.Scan(
			&rl.ID, &rl.Nome, &rl.Ativa, &rl.LastAssignedIndex, &rl.ValidFrom, &rl.ValidUntil,
			&rl.FunnelID, &rl.CreatedAt, &rl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list roulettes: scan: %w", err)
		}
		rl.Participants = make([]domain.BrokerRef, 0)
		byID[rl.ID] = len(roulettes)
		roulettes = append(roulettes, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list roulettes: %w", err)
	}

	if len(roulettes) == 0 {
		return roulettes, nil
	}

	ids := make([]uuid.UUID, 0, len(roulettes))
	for _, rl := range roulettes {
		ids = append(ids, rl.ID)
	}

	// lead_count is display information; the rotation never consults it.
	participantRows, err := r.pool.Query(ctx, `
		SELECT p.roleta_id, u.id, u.nome, u.role,
			(SELECT count(*) FROM clients c WHERE c.corretor_id = u.id AND c.overall_status = 'active')
		FROM roleta_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.roleta_id = ANY($1)
		ORDER BY p.roleta_id, p.position`, ids)
	if err != nil {
		return nil, fmt.Errorf("list roulette participants: %w", err)
	}
	defer participantRows.Close()

	for participantRows.Next() {
		var rouletteID uuid.UUID
		var participant domain.BrokerRef
		if err := participantRows.Scan(&rouletteID, &participant.ID, &participant.Nome, &participant.Role, &participant.LeadCount); err != nil {
			return nil, fmt.Errorf("list roulette participants: scan: %w", err)
		}
		if idx, ok := byID[rouletteID]; ok {
			roulettes[idx].Participants = append(roulettes[idx].Participants, participant)
		}
	}
	if err := participantRows.Err(); err != nil {
		return nil, fmt.Errorf("list roulette participants: %w", err)
	}

	return roulettes, nil
}

// AdvanceCursor advances the rotation cursor inside one transaction. The
// row lock serializes concurrent intakes against the same roulette: the
// next index is always computed from the value read under the lock, never
// from state read outside it.
func (r *Repo) AdvanceCursor(ctx context.Context, rouletteID uuid.UUID) (domain.BrokerRef, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var lastIndex int
	if err := tx.QueryRow(ctx,
		`SELECT last_assigned_index FROM roletas WHERE id = $1 FOR UPDATE`, rouletteID,
	).Scan(&lastIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BrokerRef{}, 0, apperr.NotFound(rouletteNotFoundMessage)
		}
		return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: lock: %w", err)
	}

	participantRows, err := tx.Query(ctx, `
		SELECT u.id, u.nome, u.role
		FROM roleta_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.roleta_id = $1
		ORDER BY p.position`, rouletteID)
	if err != nil {
		return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: participants: %w", err)
	}

	participants := make([]domain.BrokerRef, 0)
	for participantRows.Next() {
		var p domain.BrokerRef
		if err := participantRows.Scan(&p.ID, &p.Nome, &p.Role); err != nil {
			participantRows.Close()
			return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: scan: %w", err)
		}
		participants = append(participants, p)
	}
	participantRows.Close()
	if err := participantRows.Err(); err != nil {
		return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: participants: %w", err)
	}

	if len(participants) == 0 {
		return domain.BrokerRef{}, 0, apperr.Conflict(emptyRotationMessage)
	}

	nextIndex := domain.NextIndex(lastIndex, len(participants))
	if _, err := tx.Exec(ctx,
		`UPDATE roletas SET last_assigned_index = $2, updated_at = now() WHERE id = $1`,
		rouletteID, nextIndex,
	); err != nil {
		return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BrokerRef{}, 0, fmt.Errorf("advance cursor: commit: %w", err)
	}

	return participants[nextIndex], nextIndex, nil
}

func insertParticipants(ctx context.Context, tx pgx.Tx, rouletteID uuid.UUID, participantIDs []uuid.UUID) error {
	for position, userID := range participantIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO roleta_participants (roleta_id, user_id, position)
			VALUES ($1, $2, $3)`,
			rouletteID, userID, position,
		); err != nil {
			return fmt.Errorf("insert roulette participant: %w", err)
		}
	}
	return nil
}
