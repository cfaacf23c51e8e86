package kafka

import (
	"context"

	"github.com/seisline/seisline/internal/domain/quake"
)

// QuakeEvents publishes merged earthquake records onto the matched-quake
// topic, keyed by event id so updates for one event stay ordered.
type QuakeEvents struct {
	p *Producer
}

func NewQuakeEvents(p *Producer) *QuakeEvents { return &QuakeEvents{p: p} }

var _ quake.Events = (*QuakeEvents)(nil)

func (e *QuakeEvents) PublishQuakeMatched(ctx context.Context, rec *quake.Record) error {
	return e.p.PublishJSON(ctx, []byte(rec.EventID), rec)
}
