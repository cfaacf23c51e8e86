package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seisline/seisline/internal/domain/notify"
)

var _ notify.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const (
	// Safety notifications dedup on (event_id, workspace_id): a second
	// insert for the same pair affects zero rows.
	qNotifInsert = `
INSERT INTO notifications
    (id, workspace_id, channel_id, mode, event_id, status, scheduled_at, message_ts, external_schedule_ref, error_message, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (event_id, workspace_id) WHERE event_id IS NOT NULL DO NOTHING
RETURNING created_at, updated_at;`

	qNotifByID = `
SELECT id, workspace_id, channel_id, mode, event_id, status, scheduled_at, message_ts, external_schedule_ref, error_message, payload, created_at, updated_at
FROM notifications
WHERE id = $1;`

	qNotifByMessage = `
SELECT id, workspace_id, channel_id, mode, event_id, status, scheduled_at, message_ts, external_schedule_ref, error_message, payload, created_at, updated_at
FROM notifications
WHERE channel_id = $1 AND message_ts = $2;`

	qNotifMarkSent = `
UPDATE notifications
SET status = 'sent', message_ts = $2, error_message = NULL, updated_at = NOW()
WHERE id = $1 AND status = 'pending';`

	qNotifMarkFailed = `
UPDATE notifications
SET status = 'failed', error_message = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending';`

	qNotifMarkCancelled = `
UPDATE notifications
SET status = 'cancelled', updated_at = NOW()
WHERE id = $1 AND status = 'pending';`

	qNotifSetScheduleRef = `
UPDATE notifications
SET external_schedule_ref = $2, updated_at = NOW()
WHERE id = $1;`

	qNotifDelete = `DELETE FROM notifications WHERE id = $1;`
)

func scanNotification(row pgx.Row, n *notify.Notification) error {
	if err := row.Scan(
		&n.ID,
		&n.WorkspaceID,
		&n.ChannelID,
		&n.Mode,
		&n.EventID,
		&n.Status,
		&n.ScheduledAt,
		&n.MessageTS,
		&n.ExternalScheduleRef,
		&n.ErrorMessage,
		&n.Payload,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.ErrNotFound
		}
		return fmt.Errorf("scan notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *notify.Notification) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	err := r.db.Pool.QueryRow(ctx, qNotifInsert,
		n.ID,
		n.WorkspaceID,
		n.ChannelID,
		n.Mode,
		n.EventID,
		n.Status,
		n.ScheduledAt,
		n.MessageTS,
		n.ExternalScheduleRef,
		n.ErrorMessage,
		n.Payload,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returned no row: already dispatched
			// for this (event, workspace).
			return false, nil
		}
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return true, nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*notify.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notify.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifByID, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) GetByMessage(ctx context.Context, channelID, messageTS string) (*notify.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notify.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifByMessage, channelID, messageTS), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, messageTS string) error {
	return r.guardedUpdate(ctx, qNotifMarkSent, id, messageTS)
}

func (r *NotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.guardedUpdate(ctx, qNotifMarkFailed, id, errMsg)
}

func (r *NotificationRepo) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifMarkCancelled, id)
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return notify.ErrAlreadySent
	}
	return nil
}

func (r *NotificationRepo) SetScheduleRef(ctx context.Context, id uuid.UUID, ref string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qNotifSetScheduleRef, id, ref); err != nil {
		return fmt.Errorf("set schedule ref: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifDelete, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return notify.ErrNotFound
	}
	return nil
}

// guardedUpdate applies a pending-only transition. Zero affected rows means
// the row already left pending; sent is terminal and must not regress.
func (r *NotificationRepo) guardedUpdate(ctx context.Context, q string, id uuid.UUID, arg string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, q, id, arg)
	if err != nil {
		return fmt.Errorf("notification transition: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return notify.ErrAlreadySent
	}
	return nil
}
