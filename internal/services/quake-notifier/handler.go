package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/chat"
	"github.com/seisline/seisline/internal/domain/intensity"
	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/quake"
	"github.com/seisline/seisline/internal/domain/tenant"
	"github.com/seisline/seisline/internal/repository/postgres"
)

// Handler fans one merged earthquake record out to every workspace whose
// condition matches. Workspaces are independent: one tenant's failure never
// blocks another's dispatch.
type Handler struct {
	Tenants tenant.Repo
	Notifs  notify.Repo
	Chat    notify.ChatGateway
	Dec     notify.Decrypter
	Clock   notify.Clock
	Log     *zap.Logger
}

func (h *Handler) HandleQuakeMatched(ctx context.Context, rec *quake.Record) error {
	workspaces, err := h.Tenants.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}

	var firstErr error
	for _, ws := range workspaces {
		if err := h.dispatchOne(ctx, rec, ws); err != nil {
			h.Log.Warn("dispatch failed",
				zap.String("event_id", rec.EventID),
				zap.String("workspace_id", ws.ID.String()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *Handler) dispatchOne(ctx context.Context, rec *quake.Record, ws *tenant.Workspace) error {
	cond, err := h.Tenants.GetCondition(ctx, ws.ID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil
		}
		// A corrupt min_intensity label is a condition that can never match,
		// not a dispatch failure.
		if errors.Is(err, intensity.ErrInvalidIntensity) {
			h.Log.Warn("unreadable notification condition; skipping workspace",
				zap.String("workspace_id", ws.ID.String()),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("get condition: %w", err)
	}
	if !cond.Matches(rec) {
		return nil
	}

	departments, err := h.Tenants.ListActiveDepartments(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("list departments: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	eventID := rec.EventID
	n := &notify.Notification{
		WorkspaceID: ws.ID,
		ChannelID:   ws.ChannelID,
		Mode:        notify.ModeSafety,
		EventID:     &eventID,
		Status:      notify.StatusPending,
		Payload:     payload,
	}

	// The (event_id, workspace_id) unique index dedups before anything is
	// posted; a lost race means another consumer already owns this pair.
	inserted, err := h.Notifs.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if !inserted {
		h.Log.Debug("event already dispatched for workspace",
			zap.String("event_id", rec.EventID),
			zap.String("workspace_id", ws.ID.String()),
		)
		return nil
	}

	token, err := h.Dec.Decrypt(ws.BotTokenCiphertext, ws.BotTokenIV, ws.BotTokenTag)
	if err != nil {
		_ = h.Notifs.MarkFailed(ctx, n.ID, err.Error())
		return fmt.Errorf("decrypt bot token: %w", err)
	}

	blocks := chat.Safety(rec, departments, nil)
	ts, err := h.Chat.PostMessage(ctx, string(token), ws.ChannelID, blocks)
	if err != nil {
		_ = h.Notifs.MarkFailed(ctx, n.ID, err.Error())
		return fmt.Errorf("post message: %w", err)
	}
	if err := h.Notifs.MarkSent(ctx, n.ID, ts); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	h.Log.Info("notification dispatched",
		zap.String("event_id", rec.EventID),
		zap.String("workspace_id", ws.ID.String()),
		zap.String("message_ts", ts),
	)
	return nil
}
