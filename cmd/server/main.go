// Package main runs the pump.fun trade feed service: the socket.io client,
// the recent-trade store, optional archive sinks and the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/api"
	"pump-trade-feed/internal/archive"
	"pump-trade-feed/internal/config"
	"pump-trade-feed/internal/feed"
	"pump-trade-feed/internal/ingestion"
	"pump-trade-feed/internal/labels"
	"pump-trade-feed/internal/logging"
	"pump-trade-feed/internal/normalize"
	"pump-trade-feed/internal/observability"
	"pump-trade-feed/internal/publish"
	"pump-trade-feed/internal/query"
	chstore "pump-trade-feed/internal/storage/clickhouse"
	"pump-trade-feed/internal/storage/memory"
	pgstore "pump-trade-feed/internal/storage/postgres"
)

// Server holds all components of the service.
type Server struct {
	cfg    *config.Config
	logger *logrus.Logger

	store    *memory.EventStore
	client   *feed.Client
	archiver *archive.Archiver
	http     *http.Server

	closers []io.Closer
}

func main() {
	configPath := flag.String("config", os.Getenv("PUMPFEED_CONFIG"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	log := logging.Component(logger, "server")

	ctx, cancel := context.WithCancel(context.Background())

	server, err := newServer(ctx, cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to start")
	}
	defer server.Close()

	cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			log.WithError(err).Warn("Ignoring invalid config change")
			return
		}
		level, _ := logging.ParseLevel(next.Log.Level)
		if level != logger.GetLevel() {
			logger.SetLevel(level)
			log.WithField("level", level.String()).Info("Log level changed")
		}
	})

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("Initiating graceful shutdown")
		cancel()

		// A second signal forces exit.
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("Forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Server error")
		server.Close()
		os.Exit(1)
	}

	log.Info("Shutdown complete")
}

// newServer wires every component from cfg.
func newServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	log := logging.Component(logger, "server")
	s := &Server{cfg: cfg, logger: logger}

	resolver, err := newResolver(cfg, log)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("output timezone: %w", err)
	}

	s.store = memory.NewEventStore(cfg.Store.Capacity)

	var archiver ingestion.Archiver
	if cfg.Archive.Enabled() {
		sinks, err := s.openSinks(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.archiver = archive.New(archive.Options{
			Sinks:         sinks,
			Buffer:        cfg.Archive.Buffer,
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			WriteTimeout:  cfg.Archive.WriteTimeout,
			Logger:        logging.Component(logger, "archive"),
		})
		archiver = s.archiver
	}

	pipeline := ingestion.NewPipeline(ingestion.PipelineOptions{
		Resolver:   resolver,
		Normalizer: normalize.NewNormalizer(loc, cfg.Output.IncludeOptional),
		Store:      s.store,
		Archiver:   archiver,
		Logger:     logging.Component(logger, "ingestion"),
	})

	s.client = feed.NewClient(feed.Options{
		Config: feed.Config{
			URL:               cfg.Feed.URL,
			ReconnectDelay:    cfg.Feed.ReconnectDelay,
			MaxReconnectDelay: cfg.Feed.MaxReconnectDelay,
			HandshakeTimeout:  cfg.Feed.HandshakeTimeout,
			ReadTimeout:       cfg.Feed.ReadTimeout,
			WriteTimeout:      cfg.Feed.WriteTimeout,
			MaxMessageSize:    cfg.Feed.MaxMessageSize,
		},
		Handler: pipeline,
		Logger:  logging.Component(logger, "feed"),
	})

	accessLogger := logging.Component(logger, "http")
	if cfg.Server.AccessLogFile != "" {
		visit, closer, err := logging.New(logging.Options{
			Level:  "info",
			Format: "json",
			File:   cfg.Server.AccessLogFile,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("access log: %w", err)
		}
		s.closers = append(s.closers, closer)
		accessLogger = logging.Component(visit, "http")
	}

	router := api.NewRouter(api.Options{
		Query:           query.NewService(s.store, cfg.Query.Limit),
		Store:           s.store,
		Feed:            s.client,
		IncludeOptional: cfg.Output.IncludeOptional,
		LabelPolicy:     string(resolver.Policy()),
		MaxFrameAge:     cfg.Health.MaxFrameAge,
		Logger:          logging.Component(logger, "api"),
		AccessLogger:    accessLogger,
		AuthUsername:    cfg.Server.AuthUsername,
		AuthPassword:    cfg.Server.AuthPassword,
		Metrics:         observability.Handler(),
	})

	s.http = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

// newResolver loads the address book from labels.file or the built-in map.
func newResolver(cfg *config.Config, log *logrus.Entry) (*labels.Resolver, error) {
	policy, err := labels.ParsePolicy(cfg.Labels.Policy)
	if err != nil {
		return nil, err
	}

	book := labels.DefaultLabels
	if cfg.Labels.File != "" {
		book, err = labels.Load(cfg.Labels.File)
		if err != nil {
			return nil, fmt.Errorf("load labels: %w", err)
		}
	}

	resolver, err := labels.NewResolver(book, policy)
	if err != nil {
		return nil, err
	}

	if off := resolver.OffCurve(); len(off) > 0 {
		log.WithField("addresses", off).Warn("Labelled addresses are off-curve (program-derived), trades from them are unlikely")
	}
	log.WithFields(logrus.Fields{"labels": resolver.Len(), "policy": policy}).Info("Address book loaded")
	return resolver, nil
}

// openSinks connects every configured archive sink.
func (s *Server) openSinks(ctx context.Context) ([]archive.Sink, error) {
	cfg := s.cfg.Archive
	log := logging.Component(s.logger, "archive")
	var sinks []archive.Sink

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closerFunc(func() error { pool.Close(); return nil }))
		if cfg.Migrate {
			if err := pool.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		sinks = append(sinks, pgstore.NewTradeArchiveStore(pool))
		log.Info("Postgres archive enabled")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := chstore.Open(ctx, cfg.ClickHouseDSN, cfg.Migrate)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, conn)
		sinks = append(sinks, chstore.NewTradeArchiveStore(conn))
		log.Info("ClickHouse archive enabled")
	}

	if cfg.RedisAddr != "" {
		pub, err := publish.NewRedisPublisher(ctx, publish.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pub)
		sinks = append(sinks, pub)
		log.WithField("channel", cfg.RedisChannel).Info("Redis publisher enabled")
	}

	if brokers := cfg.KafkaBrokerList(); brokers != "" {
		pub, err := publish.NewKafkaPublisher(publish.KafkaOptions{
			Brokers:  brokers,
			Topic:    cfg.KafkaTopic,
			Protocol: cfg.KafkaProtocol,
			Username: cfg.KafkaUsername,
			Password: cfg.KafkaPassword,
			CAPath:   cfg.KafkaCAPath,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pub)
		sinks = append(sinks, pub)
		log.WithField("topic", cfg.KafkaTopic).Info("Kafka publisher enabled")
	}

	return sinks, nil
}

// Run starts the feed client, the archiver and the HTTP server and blocks
// until ctx is cancelled or a component fails.
func (s *Server) Run(ctx context.Context) error {
	log := logging.Component(s.logger, "server")
	log.WithFields(logrus.Fields{
		"addr": s.cfg.Server.Addr,
		"feed": s.cfg.Feed.URL,
	}).Info("Starting pump trade feed")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.client.Run(runCtx)
	}()

	if s.archiver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.archiver.Run(runCtx)
		}()
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server forced to shutdown")
	}

	// Sinks are closed after Run returns, so the archiver's final flush
	// has to finish first.
	stop()
	wg.Wait()
	return runErr
}

// Close releases sink connections and log files.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			logging.Component(s.logger, "server").WithError(err).Warn("Close failed")
		}
	}
	s.closers = nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
