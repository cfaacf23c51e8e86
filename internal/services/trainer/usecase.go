// Package trainer runs the training notification state machine: immediate
// sends, deferred sends through the external trigger scheduler, trigger
// callbacks and cancellation.
package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/chat"
	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/tenant"
)

type Usecase struct {
	Notifs  notify.Repo
	Tenants tenant.Repo
	Chat    notify.ChatGateway
	Sched   notify.TriggerScheduler
	Dec     notify.Decrypter
	Clock   notify.Clock
	Log     *zap.Logger
}

// ScheduleImmediate creates a training notification and sends it right away.
// The returned notification reflects the final status, sent or failed.
func (u *Usecase) ScheduleImmediate(ctx context.Context, workspaceID uuid.UUID, channelID string) (*notify.Notification, error) {
	n, ws, err := u.create(ctx, workspaceID, channelID, nil)
	if err != nil {
		return nil, err
	}
	if err := u.send(ctx, n, ws); err != nil {
		return n, err
	}
	return n, nil
}

// ScheduleDeferred creates a training notification and registers it with the
// external trigger scheduler. Registration failure rolls the row back so no
// orphaned pending notification survives.
func (u *Usecase) ScheduleDeferred(ctx context.Context, workspaceID uuid.UUID, channelID string, at time.Time) (*notify.Notification, error) {
	if !at.After(u.Clock.Now()) {
		return nil, fmt.Errorf("scheduled time %s is not in the future", at.Format(time.RFC3339))
	}

	n, _, err := u.create(ctx, workspaceID, channelID, &at)
	if err != nil {
		return nil, err
	}

	ref, err := u.Sched.Register(ctx, n.ID, at)
	if err != nil {
		if delErr := u.Notifs.Delete(ctx, n.ID); delErr != nil {
			u.Log.Error("rollback of unregistered training notification failed",
				zap.String("notification_id", n.ID.String()), zap.Error(delErr))
		}
		return nil, fmt.Errorf("register trigger: %w", err)
	}
	if err := u.Notifs.SetScheduleRef(ctx, n.ID, ref); err != nil {
		return nil, fmt.Errorf("store schedule ref: %w", err)
	}
	n.ExternalScheduleRef = &ref

	u.Log.Info("training notification scheduled",
		zap.String("notification_id", n.ID.String()),
		zap.Time("trigger_at", at),
	)
	return n, nil
}

// OnTrigger is the scheduler callback. A notification that already left
// pending is skipped, so replayed or late triggers are harmless.
func (u *Usecase) OnTrigger(ctx context.Context, notificationID uuid.UUID) (skipped bool, err error) {
	n, err := u.Notifs.GetByID(ctx, notificationID)
	if err != nil {
		return false, err
	}
	if !n.CanSend() {
		u.Log.Info("trigger for non-pending notification skipped",
			zap.String("notification_id", n.ID.String()),
			zap.String("status", string(n.Status)),
		)
		return true, nil
	}

	ws, err := u.Tenants.GetWorkspace(ctx, n.WorkspaceID)
	if err != nil {
		return false, fmt.Errorf("get workspace: %w", err)
	}
	if err := u.send(ctx, n, ws); err != nil {
		return false, err
	}
	return false, nil
}

// Cancel withdraws a pending training notification. The external trigger is
// released first; only then does the row transition to cancelled.
func (u *Usecase) Cancel(ctx context.Context, notificationID uuid.UUID) error {
	n, err := u.Notifs.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if !n.CanSend() {
		return notify.ErrAlreadySent
	}
	if n.ExternalScheduleRef != nil {
		if err := u.Sched.Cancel(ctx, *n.ExternalScheduleRef); err != nil {
			return fmt.Errorf("cancel trigger: %w", err)
		}
	}
	if err := u.Notifs.MarkCancelled(ctx, n.ID); err != nil {
		return err
	}
	u.Log.Info("training notification cancelled", zap.String("notification_id", n.ID.String()))
	return nil
}

func (u *Usecase) create(ctx context.Context, workspaceID uuid.UUID, channelID string, at *time.Time) (*notify.Notification, *tenant.Workspace, error) {
	ws, err := u.Tenants.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get workspace: %w", err)
	}
	if channelID == "" {
		channelID = ws.ChannelID
	}

	n := &notify.Notification{
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		Mode:        notify.ModeTraining,
		Status:      notify.StatusPending,
		ScheduledAt: at,
	}
	if _, err := u.Notifs.Create(ctx, n); err != nil {
		return nil, nil, fmt.Errorf("create notification: %w", err)
	}
	return n, ws, nil
}

func (u *Usecase) send(ctx context.Context, n *notify.Notification, ws *tenant.Workspace) error {
	departments, err := u.Tenants.ListActiveDepartments(ctx, n.WorkspaceID)
	if err != nil {
		return fmt.Errorf("list departments: %w", err)
	}
	token, err := u.Dec.Decrypt(ws.BotTokenCiphertext, ws.BotTokenIV, ws.BotTokenTag)
	if err != nil {
		_ = u.Notifs.MarkFailed(ctx, n.ID, err.Error())
		n.Status = notify.StatusFailed
		return fmt.Errorf("decrypt bot token: %w", err)
	}

	ts, err := u.Chat.PostMessage(ctx, string(token), n.ChannelID, chat.Training(departments, nil))
	if err != nil {
		_ = u.Notifs.MarkFailed(ctx, n.ID, err.Error())
		n.Status = notify.StatusFailed
		return fmt.Errorf("post training message: %w", err)
	}
	if err := u.Notifs.MarkSent(ctx, n.ID, ts); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	n.Status = notify.StatusSent
	n.MessageTS = &ts

	u.Log.Info("training notification sent",
		zap.String("notification_id", n.ID.String()),
		zap.String("message_ts", ts),
	)
	return nil
}
