package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
	"github.com/PratikDhanave/persio-forwarder/internal/config"
	"github.com/PratikDhanave/persio-forwarder/internal/consumer"
	"github.com/PratikDhanave/persio-forwarder/internal/host"
	"github.com/PratikDhanave/persio-forwarder/internal/httpserver"
	"github.com/PratikDhanave/persio-forwarder/internal/ingest"
	"github.com/PratikDhanave/persio-forwarder/internal/logging"
	"github.com/PratikDhanave/persio-forwarder/internal/persio"
	"github.com/PratikDhanave/persio-forwarder/internal/store"
)

// shutdownTimeout bounds HTTP shutdown and the drain of in-flight Persio requests.
const shutdownTimeout = 15 * time.Second

// main boots the service: config → logger → client store → host + forwarder → HTTP (+ Kafka).
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Options{
		Backend:   cfg.ClientStore,
		DBURL:     cfg.DBURL,
		PebbleDir: cfg.PebbleDir,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	manager := host.NewManager(&http.Client{}, cfg.FetchTimeout, logger.Named("host"))
	persio.Register(manager,
		component.Settings{persio.SettingWriteKey: cfg.WriteKey},
		persio.WithEndpoint(cfg.PersioEndpoint),
		persio.WithLogger(logger.Named("persio")))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpserver.NewRouter(cfg, manager, st, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	services := []service{httpService(srv, logger)}

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		d := &ingest.Dispatcher{Manager: manager, Store: st, SessionTTL: cfg.SessionTTL, Log: logger.Named("ingest")}
		c := consumer.New(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, d, logger.Named("kafka"))
		services = append(services, func(ctx context.Context) error {
			defer c.Close()
			logger.Info("kafka consumer started", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
			return c.Run(ctx)
		})
	}

	return supervise(ctx, manager, shutdownTimeout, logger, services...)
}

// service runs until ctx is done and returns once it no longer dispatches events.
type service func(ctx context.Context) error

type drainer interface {
	Wait(ctx context.Context) error
}

// supervise runs services until ctx is done or one fails. In-flight fetches are drained only
// after every service has returned, so no Fetch can start during the drain.
func supervise(ctx context.Context, d drainer, drainTimeout time.Duration, logger *zap.Logger, services ...service) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range services {
		s := s
		g.Go(func() error { return s(gctx) })
	}
	err := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if werr := d.Wait(drainCtx); werr != nil {
		logger.Warn("in-flight requests not drained", zap.Error(werr))
	}
	return err
}

func httpService(srv *http.Server, logger *zap.Logger) service {
	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("server started", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
