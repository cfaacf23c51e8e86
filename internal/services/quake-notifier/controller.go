package notifier

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/quake"
	kafkax "github.com/seisline/seisline/internal/repository/kafka"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler

	mConsumed prometheus.Counter
	mFailed   prometheus.Counter
}

func NewController(log *zap.Logger, sub *kafkax.Consumer, uc *Handler) *Controller {
	return &Controller{
		Log: log,
		Sub: sub,
		UC:  uc,
		mConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_events_consumed_total", Help: "Matched quake events consumed",
		}),
		mFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_events_failed_total", Help: "Quake events whose dispatch reported an error",
		}),
	}
}

func (c *Controller) Run(ctx context.Context) error {
	// The consumer commits the offset even when the handler errors; the
	// (event_id, workspace_id) dedup makes a later replay safe.
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, rec *quake.Record) error {
			if rec.EventID == "" {
				c.Log.Warn("quake event without event_id; dropped")
				return nil
			}
			c.mConsumed.Inc()
			if err := c.UC.HandleQuakeMatched(ctx, rec); err != nil {
				c.mFailed.Inc()
				return fmt.Errorf("dispatch event %s: %w", rec.EventID, err)
			}
			return nil
		},
	)
	return c.Sub.Consume(ctx, handler)
}
