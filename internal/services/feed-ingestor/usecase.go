package ingestor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/correlator"
	"github.com/seisline/seisline/internal/domain/quake"
)

// Usecase drives one ingestion tick: pull fresh bulletins from the feed,
// run them through the correlator, and publish every forwardable record.
type Usecase struct {
	Feed   quake.Feed
	Corr   *correlator.Correlator
	Events quake.Events
	Log    *zap.Logger

	// seen dedups feed re-polls by bulletin id. Only the runner goroutine
	// touches it; the correlator buffer is the sole mutex-guarded state.
	seen map[string]time.Time
}

func NewUC(feed quake.Feed, corr *correlator.Correlator, events quake.Events, log *zap.Logger) *Usecase {
	return &Usecase{
		Feed:   feed,
		Corr:   corr,
		Events: events,
		Log:    log,
		seen:   make(map[string]time.Time),
	}
}

// Tick fetches quick bulletins before detailed ones so that a single poll
// cycle can already correlate the pair. Returns (fetched, published, errs).
func (u *Usecase) Tick(ctx context.Context, limit int) (int, int, int, error) {
	if limit <= 0 {
		limit = 50
	}

	tr := otel.Tracer("ingestor.uc")
	ctxTick, span := tr.Start(ctx, "ingestor.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	fetched, published, errs := 0, 0, 0
	for _, class := range []quake.Classification{quake.ClassQuick, quake.ClassDetailed} {
		bulletins, err := u.Feed.FetchBulletins(ctxTick, class, limit)
		if err != nil {
			span.RecordError(err)
			return fetched, published, errs + 1, fmt.Errorf("fetch %s bulletins: %w", class, err)
		}
		for _, raw := range bulletins {
			if _, ok := u.seen[raw.ID]; ok {
				continue
			}
			fetched++

			if len(raw.Body) == 0 && raw.DetailURL != "" {
				body, err := u.Feed.FetchDetail(ctxTick, raw.DetailURL)
				if err != nil {
					errs++
					u.Log.Warn("detail fetch failed; bulletin left for next tick",
						zap.String("bulletin_id", raw.ID), zap.Error(err))
					continue
				}
				raw.Body = body
			}
			u.seen[raw.ID] = time.Now()

			rec, emit, err := u.Corr.Ingest(raw)
			if err != nil {
				if errors.Is(err, correlator.ErrParse) {
					// Dropped and logged with the raw payload by the
					// correlator; the batch carries on.
					errs++
					continue
				}
				errs++
				continue
			}
			if !emit {
				continue
			}
			if err := u.Events.PublishQuakeMatched(ctxTick, rec); err != nil {
				errs++
				span.RecordError(err)
				u.Log.Warn("publish quake event", zap.String("event_id", rec.EventID), zap.Error(err))
				continue
			}
			published++
		}
	}

	u.expireSeen()

	span.SetAttributes(
		attribute.Int("batch.fetched", fetched),
		attribute.Int("batch.published", published),
		attribute.Int("batch.errors", errs),
	)
	return fetched, published, errs, nil
}

// expireSeen keeps the re-poll dedup map from growing without bound.
func (u *Usecase) expireSeen() {
	cutoff := time.Now().Add(-time.Hour)
	for id, at := range u.seen {
		if at.Before(cutoff) {
			delete(u.seen, id)
		}
	}
}
