package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

// Repo implements Repository backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const leadColumns = `id, nome_completo, email, telefone, telefone_digits, funnel_id, stage_id, corretor_id, overall_status, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.NomeCompleto, &lead.Email, &lead.Telefone, &lead.TelefoneDigits,
		&lead.FunnelID, &lead.StageID, &lead.CorretorID, &lead.OverallStatus,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func (r *Repo) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO clients (nome_completo, email, telefone, telefone_digits, funnel_id, stage_id, corretor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, leadColumns)

	lead, err := scanLead(tx.QueryRow(ctx, query,
		params.NomeCompleto,
		params.Email,
		params.Telefone,
		params.TelefoneDigits,
		params.FunnelID,
		params.StageID,
		params.CorretorID,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return Lead{}, apperr.Validation("referenced funnel, stage or broker does not exist")
		}
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}

	if err := replaceTags(ctx, tx, lead.ID, params.TagIDs); err != nil {
		return Lead{}, fmt.Errorf("create lead: tags: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, fmt.Errorf("create lead: commit: %w", err)
	}

	if lead.Tags, err = r.tagsFor(ctx, lead.ID); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateLeadParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, fmt.Errorf("update lead: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		UPDATE clients SET
			nome_completo = COALESCE($2, nome_completo),
			email = COALESCE($3, email),
			telefone = COALESCE($4, telefone),
			telefone_digits = COALESCE($5, telefone_digits),
			corretor_id = CASE WHEN $7 THEN NULL ELSE COALESCE($6, corretor_id) END,
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, leadColumns)

	lead, err := scanLead(tx.QueryRow(ctx, query,
		params.ID,
		params.NomeCompleto,
		params.Email,
		params.Telefone,
		params.TelefoneDigits,
		params.CorretorID,
		params.ClearCorretor,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		if isForeignKeyViolation(err) {
			return Lead{}, apperr.Validation("referenced broker does not exist")
		}
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}

	if params.TagIDs != nil {
		if err := replaceTags(ctx, tx, lead.ID, *params.TagIDs); err != nil {
			return Lead{}, fmt.Errorf("update lead: tags: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, fmt.Errorf("update lead: commit: %w", err)
	}

	if lead.Tags, err = r.tagsFor(ctx, lead.ID); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// UpdateStage moves a lead after verifying the target stage belongs to the
// given funnel, so a stale or cross-funnel stage ID can never land.
func (r *Repo) UpdateStage(ctx context.Context, id, funnelID, stageID uuid.UUID) (Lead, error) {
	var belongs bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM funnel_stages WHERE id = $1 AND funnel_id = $2)`,
		stageID, funnelID,
	).Scan(&belongs); err != nil {
		return Lead{}, fmt.Errorf("update lead stage: verify stage: %w", err)
	}
	if !belongs {
		return Lead{}, apperr.Validation("stage does not belong to the lead's funnel")
	}

	query := fmt.Sprintf(`
		UPDATE clients SET funnel_id = $2, stage_id = $3, updated_at = now()
		WHERE id = $1
		RETURNING %s`, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, funnelID, stageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead stage: %w", err)
	}

	if lead.Tags, err = r.tagsFor(ctx, lead.ID); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error) {
	query := fmt.Sprintf(`
		UPDATE clients SET overall_status = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("set lead status: %w", err)
	}

	if lead.Tags, err = r.tagsFor(ctx, lead.ID); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE id = $1`, leadColumns)
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}

	if lead.Tags, err = r.tagsFor(ctx, lead.ID); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repo) List(ctx context.Context, params ListLeadsParams) ([]Lead, error) {
	var (
		clauses []string
		args    []any
	)
	addClause := func(expr string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(expr, len(args)))
	}
	if params.FunnelID != nil {
		addClause("funnel_id = $%d", *params.FunnelID)
	}
	if params.Status != nil {
		addClause("overall_status = $%d", *params.Status)
	}
	if params.CorretorID != nil {
		addClause("corretor_id = $%d", *params.CorretorID)
	}
	if params.CreatedFrom != nil {
		addClause("created_at >= $%d", *params.CreatedFrom)
	}
	if params.CreatedTo != nil {
		addClause("created_at <= $%d", *params.CreatedTo)
	}

	query := fmt.Sprintf(`SELECT %s FROM clients`, leadColumns)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := []Lead{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("list leads: scan: %w", err)
		}
		lead.Tags = []Tag{}
		index[lead.ID] = len(leads)
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	if len(leads) == 0 {
		return leads, nil
	}

	ids := make([]uuid.UUID, 0, len(leads))
	for _, lead := range leads {
		ids = append(ids, lead.ID)
	}

	tagRows, err := r.pool.Query(ctx, `
		SELECT ct.client_id, t.id, t.name, t.color
		FROM client_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.client_id = ANY($1)
		ORDER BY t.name`, ids)
	if err != nil {
		return nil, fmt.Errorf("list leads: tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var (
			clientID uuid.UUID
			tag      Tag
		)
		if err := tagRows.Scan(&clientID, &tag.ID, &tag.Name, &tag.Color); err != nil {
			return nil, fmt.Errorf("list leads: tags scan: %w", err)
		}
		if i, ok := index[clientID]; ok {
			leads[i].Tags = append(leads[i].Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: tags: %w", err)
	}

	return leads, nil
}

func (r *Repo) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color); err != nil {
			return nil, fmt.Errorf("list tags: scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (r *Repo) tagsFor(ctx context.Context, leadID uuid.UUID) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.color
		FROM client_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.client_id = $1
		ORDER BY t.name`, leadID)
	if err != nil {
		return nil, fmt.Errorf("lead tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color); err != nil {
			return nil, fmt.Errorf("lead tags: scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lead tags: %w", err)
	}
	return tags, nil
}

func replaceTags(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM client_tags WHERE client_id = $1`, leadID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO client_tags (client_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			leadID, tagID,
		); err != nil {
			return err
		}
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
