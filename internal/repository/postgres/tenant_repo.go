package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/tenant"
)

var _ tenant.Repo = (*TenantRepo)(nil)

type TenantRepo struct{ db *DB }

func NewTenantRepo(db *DB) *TenantRepo { return &TenantRepo{db: db} }

const (
	qWorkspaces = `
SELECT id, team_name, channel_id, bot_token_ciphertext, bot_token_iv, bot_token_tag, created_at
FROM workspaces
ORDER BY created_at;`

	qWorkspaceByID = `
SELECT id, team_name, channel_id, bot_token_ciphertext, bot_token_iv, bot_token_tag, created_at
FROM workspaces
WHERE id = $1;`

	qConditionByWS = `
SELECT workspace_id, min_intensity, target_prefectures, updated_at
FROM notification_conditions
WHERE workspace_id = $1;`

	qActiveDepartments = `
SELECT id, workspace_id, name, emoji, button_color, display_order, is_active
FROM departments
WHERE workspace_id = $1 AND is_active
ORDER BY display_order, name;`

	qDepartmentByID = `
SELECT id, workspace_id, name, emoji, button_color, display_order, is_active
FROM departments
WHERE id = $1;`
)

func scanWorkspace(row pgx.Row, w *tenant.Workspace) error {
	if err := row.Scan(
		&w.ID,
		&w.TeamName,
		&w.ChannelID,
		&w.BotTokenCiphertext,
		&w.BotTokenIV,
		&w.BotTokenTag,
		&w.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan workspace: %w", err)
	}
	return nil
}

func (r *TenantRepo) ListWorkspaces(ctx context.Context) ([]*tenant.Workspace, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qWorkspaces)
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Workspace
	for rows.Next() {
		var w tenant.Workspace
		if err := scanWorkspace(rows, &w); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *TenantRepo) GetWorkspace(ctx context.Context, id uuid.UUID) (*tenant.Workspace, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var w tenant.Workspace
	if err := scanWorkspace(r.db.Pool.QueryRow(ctx, qWorkspaceByID, id), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *TenantRepo) GetCondition(ctx context.Context, workspaceID uuid.UUID) (*tenant.Condition, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		c     tenant.Condition
		label string
	)
	if err := r.db.Pool.QueryRow(ctx, qConditionByWS, workspaceID).Scan(
		&c.WorkspaceID,
		&label,
		&c.TargetPrefectures,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan condition: %w", err)
	}

	lvl, err := intensity.Normalize(label)
	if err != nil {
		// The admin surface validates labels on write; a bad one here means
		// a condition that can never match, not a crash.
		return nil, fmt.Errorf("condition for %s: %w", workspaceID, err)
	}
	c.MinIntensity = lvl
	return &c, nil
}

func scanDepartment(row pgx.Row, d *tenant.Department) error {
	if err := row.Scan(
		&d.ID,
		&d.WorkspaceID,
		&d.Name,
		&d.Emoji,
		&d.ButtonColor,
		&d.DisplayOrder,
		&d.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan department: %w", err)
	}
	return nil
}

func (r *TenantRepo) ListActiveDepartments(ctx context.Context, workspaceID uuid.UUID) ([]*tenant.Department, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qActiveDepartments, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Department
	for rows.Next() {
		var d tenant.Department
		if err := scanDepartment(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *TenantRepo) GetDepartment(ctx context.Context, id uuid.UUID) (*tenant.Department, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var d tenant.Department
	if err := scanDepartment(r.db.Pool.QueryRow(ctx, qDepartmentByID, id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
