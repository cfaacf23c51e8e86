// Package tenant holds the per-workspace configuration this engine reads:
// the notification condition and the department list. Both are owned by the
// admin surface and are read-only here.
package tenant

import (
	"time"

	"github.com/google/uuid"

	"github.com/seisline/seisline/internal/domain/intensity"
)

type Workspace struct {
	ID                 uuid.UUID `json:"id"`
	TeamName           string    `json:"team_name"`
	ChannelID          string    `json:"channel_id"`
	BotTokenCiphertext []byte    `json:"-"`
	BotTokenIV         []byte    `json:"-"`
	BotTokenTag        []byte    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

// Condition is a workspace's notification rule: minimum intensity plus an
// optional prefecture whitelist (empty = all prefectures).
type Condition struct {
	WorkspaceID       uuid.UUID       `json:"workspace_id"`
	MinIntensity      intensity.Level `json:"min_intensity"`
	TargetPrefectures []string        `json:"target_prefectures"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Department is one answer button on a confirmation message.
type Department struct {
	ID           uuid.UUID `json:"id"`
	WorkspaceID  uuid.UUID `json:"workspace_id"`
	Name         string    `json:"name"`
	Emoji        string    `json:"emoji"`
	ButtonColor  string    `json:"button_color"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
}
