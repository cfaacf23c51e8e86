package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repo interface {
	// Create inserts a notification row. For safety notifications the
	// (event_id, workspace_id) unique index may reject the insert; Create
	// then returns (false, nil) and the caller treats the event as already
	// dispatched for that workspace.
	Create(ctx context.Context, n *Notification) (inserted bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	GetByMessage(ctx context.Context, channelID, messageTS string) (*Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, messageTS string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	MarkCancelled(ctx context.Context, id uuid.UUID) error
	SetScheduleRef(ctx context.Context, id uuid.UUID, ref string) error
	// Delete removes a row; used only for the scheduleDeferred registration
	// rollback.
	Delete(ctx context.Context, id uuid.UUID) error
}

type ResponseRepo interface {
	// Insert records a response under the (notification_id, responder_id)
	// uniqueness constraint. On conflict it returns the existing row and
	// ErrDuplicateResponse; an application-level check-then-insert is a
	// race and is not an acceptable implementation.
	Insert(ctx context.Context, r *Response) (*Response, error)
	CountByDepartment(ctx context.Context, notificationID uuid.UUID) (map[uuid.UUID]int, error)
}

// ChatGateway is the chat platform message contract. Tokens are passed per
// call; this engine never persists plaintext credentials.
type ChatGateway interface {
	PostMessage(ctx context.Context, token, channelID string, blocks MessageBlocks) (messageTS string, err error)
	UpdateMessage(ctx context.Context, token, channelID, messageTS string, blocks MessageBlocks) error
}

// MessageBlocks is an opaque, platform-shaped block list built by the chat
// package. Kept abstract here so domain code never imports the platform SDK.
type MessageBlocks interface {
	Fallback() string
}

// TriggerScheduler is the external time-based trigger service used for
// deferred training sends.
type TriggerScheduler interface {
	Register(ctx context.Context, notificationID uuid.UUID, at time.Time) (ref string, err error)
	Cancel(ctx context.Context, ref string) error
}

// Decrypter provides the decrypt capability for workspace bot tokens.
type Decrypter interface {
	Decrypt(ciphertext, iv, tag []byte) ([]byte, error)
}

type Clock interface {
	Now() time.Time
}
