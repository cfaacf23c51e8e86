package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/seisline/seisline/internal/config/quake-notifier"
	"github.com/seisline/seisline/internal/obs"
	"github.com/seisline/seisline/internal/repository/kafka"
	pg "github.com/seisline/seisline/internal/repository/postgres"
	"github.com/seisline/seisline/internal/repository/slackapi"
	"github.com/seisline/seisline/internal/secrets"
	notifier "github.com/seisline/seisline/internal/services/quake-notifier"
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

	db, err := pg.NewDB(root, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	key, err := hex.DecodeString(cfg.Crypto.KeyHex)
	if err != nil {
		l.Fatal("decode crypto key", zap.Error(err))
	}
	dec, err := secrets.NewAESGCM(key)
	if err != nil {
		l.Fatal("crypto init", zap.Error(err))
	}

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	cons := kafka.BootstrapConsumer(root, cfg.In.AsConsumerConfig(), l).WithLogger(l)
	defer func() { _ = cons.Close() }()

	uc := &notifier.Handler{
		Tenants: pg.NewTenantRepo(db),
		Notifs:  pg.NewNotificationRepo(db),
		Chat:    slackapi.New(cfg.Slack, l),
		Dec:     dec,
		Clock:   systemClock{},
		Log:     l,
	}
	ctrl := notifier.NewController(l, cons, uc)

	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(root) }()

	select {
	case <-root.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("controller error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
