package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/seisline/seisline/internal/config/feed-ingestor"
	"github.com/seisline/seisline/internal/correlator"
	"github.com/seisline/seisline/internal/obs"
	"github.com/seisline/seisline/internal/repository/feed"
	"github.com/seisline/seisline/internal/repository/kafka"
	ingestor "github.com/seisline/seisline/internal/services/feed-ingestor"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func main() {
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(*cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}

	otelCloser, err := obs.SetupOTel(root, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(context.Context) error { return nil }, l)

	prod := kafka.NewProducer(cfg.Out.Brokers, cfg.Out.Topic).WithLogger(l)
	defer func() { _ = prod.Close() }()
	_ = kafka.EnsureTopic(root, cfg.Out.Brokers, kafka.TopicSpec{
		Name:              cfg.Out.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, l)

	feedClient := feed.New(cfg.Feed, l)
	corr := correlator.New(systemClock{}, l)
	uc := ingestor.NewUC(feedClient, corr, kafka.NewQuakeEvents(prod), l)
	runner := ingestor.New(l, uc, &cfg.Ingest)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(root) }()

	select {
	case <-root.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
