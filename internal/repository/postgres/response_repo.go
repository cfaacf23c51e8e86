package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/seisline/seisline/internal/domain/notify"
)

var _ notify.ResponseRepo = (*ResponseRepo)(nil)

type ResponseRepo struct{ db *DB }

func NewResponseRepo(db *DB) *ResponseRepo { return &ResponseRepo{db: db} }

const (
	qResponseInsert = `
INSERT INTO confirmation_responses (notification_id, responder_id, department_id, responded_at)
VALUES ($1, $2, $3, COALESCE($4, NOW()))
RETURNING responded_at;`

	qResponseGet = `
SELECT notification_id, responder_id, department_id, responded_at
FROM confirmation_responses
WHERE notification_id = $1 AND responder_id = $2;`

	qResponseCounts = `
SELECT department_id, COUNT(*)
FROM confirmation_responses
WHERE notification_id = $1
GROUP BY department_id;`
)

// Insert records a response. The (notification_id, responder_id) primary
// key is the sole concurrency-correctness mechanism: concurrent presses
// race in the database, exactly one insert wins, and every loser gets the
// winner's row back with notify.ErrDuplicateResponse. There is deliberately
// no prior existence check here.
func (r *ResponseRepo) Insert(ctx context.Context, resp *notify.Response) (*notify.Response, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, qResponseInsert,
		resp.NotificationID,
		resp.ResponderID,
		resp.DepartmentID,
		nullTime(resp.RespondedAt),
	).Scan(&resp.RespondedAt)
	if err == nil {
		return resp, nil
	}
	if !uniqueViolation(err, "") {
		return nil, fmt.Errorf("insert response: %w", err)
	}

	var existing notify.Response
	if scanErr := r.db.Pool.QueryRow(ctx, qResponseGet, resp.NotificationID, resp.ResponderID).Scan(
		&existing.NotificationID,
		&existing.ResponderID,
		&existing.DepartmentID,
		&existing.RespondedAt,
	); scanErr != nil {
		return nil, fmt.Errorf("fetch existing response: %w", scanErr)
	}
	return &existing, notify.ErrDuplicateResponse
}

func (r *ResponseRepo) CountByDepartment(ctx context.Context, notificationID uuid.UUID) (map[uuid.UUID]int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qResponseCounts, notificationID)
	if err != nil {
		return nil, fmt.Errorf("query response counts: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			dept uuid.UUID
			n    int
		)
		if err := rows.Scan(&dept, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[dept] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
