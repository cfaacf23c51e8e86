package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/api"
	config "github.com/seisline/seisline/internal/config/webhook-gateway"
	"github.com/seisline/seisline/internal/obs"
	pg "github.com/seisline/seisline/internal/repository/postgres"
	"github.com/seisline/seisline/internal/repository/schedulerapi"
	"github.com/seisline/seisline/internal/repository/slackapi"
	"github.com/seisline/seisline/internal/secrets"
	"github.com/seisline/seisline/internal/services/responder"
	"github.com/seisline/seisline/internal/services/trainer"
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

	tenants := pg.NewTenantRepo(db)
	notifs := pg.NewNotificationRepo(db)
	chatGW := slackapi.New(cfg.Slack, l)

	resp := &responder.Usecase{
		Notifs:    notifs,
		Responses: pg.NewResponseRepo(db),
		Tenants:   tenants,
		Chat:      chatGW,
		Dec:       dec,
		Log:       l,
	}
	tr := &trainer.Usecase{
		Notifs:  notifs,
		Tenants: tenants,
		Chat:    chatGW,
		Sched:   schedulerapi.New(cfg.Scheduler, l),
		Dec:     dec,
		Clock:   systemClock{},
		Log:     l,
	}

	h := api.NewHandler(resp, tr, l, cfg.Auth.SigningSecret)
	router := api.NewRouter(h, l, cfg.Auth.APIKey)

	srv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      otelhttp.NewHandler(router, "webhook-gateway"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("http listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-root.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
