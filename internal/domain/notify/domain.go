package notify

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeSafety   Mode = "safety"
	ModeTraining Mode = "training"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound = errors.New("notification not found")
	// ErrDuplicateResponse marks a second press by the same responder. It is
	// the defined duplicate-press behavior, not a failure.
	ErrDuplicateResponse = errors.New("response already recorded")
	ErrAlreadySent       = errors.New("notification already sent")
)

// Notification is one interactive confirmation message. Safety notifications
// are keyed by (event_id, workspace_id) so a replayed event cannot post twice;
// every notification walks the pending to sent/failed/cancelled state machine.
type Notification struct {
	ID                  uuid.UUID  `json:"id"`
	WorkspaceID         uuid.UUID  `json:"workspace_id"`
	ChannelID           string     `json:"channel_id"`
	Mode                Mode       `json:"mode"`
	EventID             *string    `json:"event_id,omitempty"`
	Status              Status     `json:"status"`
	ScheduledAt         *time.Time `json:"scheduled_at,omitempty"`
	MessageTS           *string    `json:"message_ts,omitempty"`
	ExternalScheduleRef *string    `json:"external_schedule_ref,omitempty"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
	// Payload holds the merged earthquake record for safety notifications
	// so the message can be rebuilt with fresh counts on every republish.
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Response is one confirmation button press. Exactly one row exists per
// (NotificationID, ResponderID); the storage layer enforces it.
type Response struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ResponderID    string    `json:"responder_id"`
	DepartmentID   uuid.UUID `json:"department_id"`
	RespondedAt    time.Time `json:"responded_at"`
}

// CanSend reports whether a send attempt may run for the current status.
// Sent is terminal: re-triggering a sent notification is a no-op.
func (n *Notification) CanSend() bool { return n.Status == StatusPending }
