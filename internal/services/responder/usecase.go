// Package responder records confirmation button presses and republishes the
// message with refreshed per-department counts.
package responder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/chat"
	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/quake"
	"github.com/seisline/seisline/internal/domain/tenant"
)

// ButtonPress is one interactive button event, already lifted out of the
// platform callback envelope.
type ButtonPress struct {
	ChannelID   string
	MessageTS   string
	ResponderID string
	ActionID    string
	Value       string
}

// RecordOutcome reports what the press did. Already is true when the
// responder had answered before; Department is the one their answer counts
// for, which on a duplicate press is the original choice, not the new one.
type RecordOutcome struct {
	Response   *notify.Response
	Department *tenant.Department
	Already    bool
}

type Usecase struct {
	Notifs    notify.Repo
	Responses notify.ResponseRepo
	Tenants   tenant.Repo
	Chat      notify.ChatGateway
	Dec       notify.Decrypter
	Log       *zap.Logger
}

// HandleButtonPress records the press exactly once and refreshes the message.
// A failed message refresh never loses the recorded response.
func (u *Usecase) HandleButtonPress(ctx context.Context, p *ButtonPress) (*RecordOutcome, error) {
	_, deptID, err := chat.ParseActionID(p.ActionID)
	if err != nil {
		return nil, err
	}
	if p.Value != "" && p.Value != deptID.String() {
		return nil, fmt.Errorf("action value %q does not match department %s", p.Value, deptID)
	}
	if p.ResponderID == "" {
		return nil, errors.New("empty responder id")
	}

	n, err := u.Notifs.GetByMessage(ctx, p.ChannelID, p.MessageTS)
	if err != nil {
		return nil, fmt.Errorf("locate notification for message: %w", err)
	}

	dept, err := u.Tenants.GetDepartment(ctx, deptID)
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}
	if dept.WorkspaceID != n.WorkspaceID {
		return nil, fmt.Errorf("department %s does not belong to workspace %s", deptID, n.WorkspaceID)
	}

	rec, err := u.Responses.Insert(ctx, &notify.Response{
		NotificationID: n.ID,
		ResponderID:    p.ResponderID,
		DepartmentID:   deptID,
	})
	if err != nil {
		if errors.Is(err, notify.ErrDuplicateResponse) {
			// First answer wins. Echo it back; the message needs no refresh
			// because the counts did not move.
			kept := dept
			if rec.DepartmentID != deptID {
				if kept, err = u.Tenants.GetDepartment(ctx, rec.DepartmentID); err != nil {
					return nil, fmt.Errorf("get original department: %w", err)
				}
			}
			return &RecordOutcome{Response: rec, Department: kept, Already: true}, nil
		}
		return nil, fmt.Errorf("record response: %w", err)
	}

	if err := u.republish(ctx, n); err != nil {
		u.Log.Warn("message refresh failed; response stays recorded",
			zap.String("notification_id", n.ID.String()),
			zap.String("message_ts", p.MessageTS),
			zap.Error(err),
		)
	}

	return &RecordOutcome{Response: rec, Department: dept}, nil
}

// republish rebuilds the full block layout with current counts and updates
// the original message in place.
func (u *Usecase) republish(ctx context.Context, n *notify.Notification) error {
	if n.MessageTS == nil {
		return errors.New("notification has no message timestamp")
	}

	counts, err := u.Responses.CountByDepartment(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("count responses: %w", err)
	}

	ws, err := u.Tenants.GetWorkspace(ctx, n.WorkspaceID)
	if err != nil {
		return fmt.Errorf("get workspace: %w", err)
	}
	departments, err := u.Tenants.ListActiveDepartments(ctx, n.WorkspaceID)
	if err != nil {
		return fmt.Errorf("list departments: %w", err)
	}

	blocks, err := u.rebuildBlocks(n, departments, counts)
	if err != nil {
		return err
	}

	token, err := u.Dec.Decrypt(ws.BotTokenCiphertext, ws.BotTokenIV, ws.BotTokenTag)
	if err != nil {
		return fmt.Errorf("decrypt bot token: %w", err)
	}
	return u.Chat.UpdateMessage(ctx, string(token), n.ChannelID, *n.MessageTS, blocks)
}

func (u *Usecase) rebuildBlocks(n *notify.Notification, departments []*tenant.Department, counts map[uuid.UUID]int) (notify.MessageBlocks, error) {
	switch n.Mode {
	case notify.ModeSafety:
		var rec quake.Record
		if err := json.Unmarshal(n.Payload, &rec); err != nil {
			return nil, fmt.Errorf("decode stored quake record: %w", err)
		}
		return chat.Safety(&rec, departments, counts), nil
	case notify.ModeTraining:
		return chat.Training(departments, counts), nil
	default:
		return nil, fmt.Errorf("unknown notification mode %q", n.Mode)
	}
}
