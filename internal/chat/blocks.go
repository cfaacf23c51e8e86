// Package chat builds the interactive confirmation messages posted to the
// chat platform: one header section per event (or training drill) plus one
// button per active department.
package chat

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/quake"
	"github.com/seisline/seisline/internal/domain/tenant"
)

// Message carries platform-shaped blocks plus a plain-text fallback.
type Message struct {
	fallback string
	blocks   []slack.Block
}

var _ notify.MessageBlocks = (*Message)(nil)

func (m *Message) Fallback() string      { return m.fallback }
func (m *Message) Blocks() []slack.Block { return m.blocks }

// Safety builds the confirmation message for a real earthquake record.
// counts may be nil for the initial post.
func Safety(rec *quake.Record, departments []*tenant.Department, counts map[uuid.UUID]int) *Message {
	head := fmt.Sprintf(":rotating_light: *Earthquake notice*: max intensity *%s*", rec.MaxIntensity)
	body := fmt.Sprintf(
		"Occurred %s\nEpicenter: %s\nMagnitude: %s  Depth: %s\n\nPlease confirm your safety by pressing your department's button.",
		rec.OccurrenceTime.Format(time.RFC3339),
		orUnknown(rec.Epicenter),
		magnitude(rec),
		depth(rec),
	)
	fallback := fmt.Sprintf("Earthquake notice: max intensity %s", rec.MaxIntensity)
	return build(head, body, fallback, notify.ModeSafety, departments, counts)
}

// Training builds the rehearsal message. Dynamic fields are placeholders,
// never real event data.
func Training(departments []*tenant.Department, counts map[uuid.UUID]int) *Message {
	head := ":mega: *Safety confirmation drill* (training message)"
	body := "No earthquake has occurred. Please practice the confirmation flow by pressing your department's button."
	return build(head, body, "Safety confirmation drill", notify.ModeTraining, departments, counts)
}

func build(head, body, fallback string, mode notify.Mode, departments []*tenant.Department, counts map[uuid.UUID]int) *Message {
	ordered := make([]*tenant.Department, len(departments))
	copy(ordered, departments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DisplayOrder != ordered[j].DisplayOrder {
			return ordered[i].DisplayOrder < ordered[j].DisplayOrder
		}
		return ordered[i].Name < ordered[j].Name
	})

	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, head+"\n"+body, false, false), nil, nil),
	}

	var buttons []slack.BlockElement
	for _, d := range ordered {
		btn := slack.NewButtonBlockElement(
			ActionID(mode, d.ID),
			d.ID.String(),
			slack.NewTextBlockObject(slack.PlainTextType, buttonLabel(d, counts[d.ID]), true, false),
		)
		if d.ButtonColor == "primary" || d.ButtonColor == "danger" {
			btn.Style = slack.Style(d.ButtonColor)
		}
		buttons = append(buttons, btn)
	}
	if len(buttons) > 0 {
		blocks = append(blocks, slack.NewActionBlock("confirm_"+string(mode), buttons...))
	}

	return &Message{fallback: fallback, blocks: blocks}
}

// buttonLabel renders "emoji name" with the live response count appended
// once anyone has answered.
func buttonLabel(d *tenant.Department, count int) string {
	label := d.Name
	if d.Emoji != "" {
		label = d.Emoji + " " + label
	}
	if count > 0 {
		label = fmt.Sprintf("%s (%d)", label, count)
	}
	return label
}

func orUnknown(s string) string {
	if s == "" {
		return "under investigation"
	}
	return s
}

func magnitude(rec *quake.Record) string {
	if rec.Magnitude <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("M%.1f", rec.Magnitude)
}

func depth(rec *quake.Record) string {
	if rec.DepthKM <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%dkm", rec.DepthKM)
}
