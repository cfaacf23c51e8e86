package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/services/responder"
	"github.com/seisline/seisline/internal/services/trainer"
)

const maxCallbackBody = 1 << 20

type Handler struct {
	Responder     *responder.Usecase
	Trainer       *trainer.Usecase
	Log           *zap.Logger
	SigningSecret string
}

func NewHandler(resp *responder.Usecase, tr *trainer.Usecase, log *zap.Logger, signingSecret string) *Handler {
	return &Handler{Responder: resp, Trainer: tr, Log: log, SigningSecret: signingSecret}
}

// SlackActions receives interactivity callbacks. Only block_actions with at
// least one action are processed; everything else is acknowledged and dropped.
func (h *Handler) SlackActions(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.SigningSecret != "" {
		sv, err := slack.NewSecretsVerifier(c.Request.Header, h.SigningSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature headers"})
			return
		}
		if _, err := sv.Write(body); err == nil {
			err = sv.Ensure()
		}
		if err != nil {
			h.Log.Warn("slack signature rejected", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
			return
		}
	}

	vals, err := url.ParseQuery(string(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad form body"})
		return
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(vals.Get("payload")), &cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		c.Status(http.StatusOK)
		return
	}

	act := cb.ActionCallback.BlockActions[0]
	out, err := h.Responder.HandleButtonPress(c.Request.Context(), &responder.ButtonPress{
		ChannelID:   cb.Channel.ID,
		MessageTS:   cb.Message.Timestamp,
		ResponderID: cb.User.ID,
		ActionID:    act.ActionID,
		Value:       act.Value,
	})
	if err != nil {
		h.Log.Warn("button press rejected",
			zap.String("action_id", act.ActionID),
			zap.String("user_id", cb.User.ID),
			zap.Error(err),
		)
		// Slack retries non-200 responses; a malformed press will never
		// succeed, so acknowledge and tell the user instead.
		c.JSON(http.StatusOK, gin.H{
			"response_type": "ephemeral",
			"text":          "Sorry, this confirmation could not be recorded.",
		})
		return
	}

	text := "Your safety confirmation for " + out.Department.Name + " has been recorded."
	if out.Already {
		text = "You already confirmed for " + out.Department.Name + " at " +
			out.Response.RespondedAt.Format("15:04:05") + "."
	}
	c.JSON(http.StatusOK, gin.H{"response_type": "ephemeral", "text": text})
}

// SchedulerTrigger is the callback the external trigger scheduler fires when
// a deferred training notification comes due.
func (h *Handler) SchedulerTrigger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	skipped, err := h.Trainer.OnTrigger(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		h.Log.Error("trigger handling failed", zap.String("notification_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	if skipped {
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

type createTrainingRequest struct {
	WorkspaceID string     `json:"workspace_id" binding:"required"`
	ChannelID   string     `json:"channel_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// CreateTraining sends a drill now or registers it for later depending on
// whether scheduled_at is present.
func (h *Handler) CreateTraining(c *gin.Context) {
	var req createTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	wsID, err := uuid.Parse(req.WorkspaceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace_id"})
		return
	}

	var n *notify.Notification
	if req.ScheduledAt != nil {
		n, err = h.Trainer.ScheduleDeferred(c.Request.Context(), wsID, req.ChannelID, *req.ScheduledAt)
	} else {
		n, err = h.Trainer.ScheduleImmediate(c.Request.Context(), wsID, req.ChannelID)
	}
	if err != nil {
		h.Log.Warn("training scheduling failed", zap.String("workspace_id", wsID.String()), zap.Error(err))
		if n != nil {
			// Immediate send failed after the row was created; surface the
			// failed notification so the caller can inspect it.
			c.JSON(http.StatusBadGateway, n)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, n)
}

// CancelTraining withdraws a pending training notification.
func (h *Handler) CancelTraining(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	switch err := h.Trainer.Cancel(c.Request.Context(), id); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	case errors.Is(err, notify.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	case errors.Is(err, notify.ErrAlreadySent):
		c.JSON(http.StatusConflict, gin.H{"error": "notification is no longer pending"})
	default:
		h.Log.Error("cancel failed", zap.String("notification_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
	}
}
