package ingestor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/seisline/seisline/internal/config/feed-ingestor"
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.IngestCfg

	mFetched   prometheus.Counter
	mPublished prometheus.Counter
	mErr       prometheus.Counter
	mPending   prometheus.Gauge
	mLoopDur   prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.IngestCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		mFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_bulletins_fetched_total", Help: "Bulletins fetched from the feed",
		}),
		mPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_records_published_total", Help: "Merged records published to Kafka",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingestor_errors_total", Help: "Errors in ingestion loop",
		}),
		mPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingestor_correlation_pending", Help: "Quick bulletins awaiting a detailed match",
		}),
		mLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "ingestor_loop_duration_seconds", Help: "Ingestion tick duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	fetched, published, errs, err := r.UC.Tick(ctx, r.Cfg.BatchLimit)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("tick error", zap.Error(err))
	}
	if fetched > 0 {
		r.mFetched.Add(float64(fetched))
		r.mPublished.Add(float64(published))
		if errs > 0 {
			r.mErr.Add(float64(errs))
		}
		r.Log.Debug("ingested batch",
			zap.Int("fetched", fetched), zap.Int("published", published), zap.Int("errors", errs))
	}
	r.mPending.Set(float64(r.UC.Corr.Pending()))
	r.mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
