// Package main streams the pump.fun trade feed and logs labelled trades
// without serving the query API. Useful for watching the address book live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/feed"
	"pump-trade-feed/internal/ingestion"
	"pump-trade-feed/internal/labels"
	"pump-trade-feed/internal/logging"
	"pump-trade-feed/internal/normalize"
	"pump-trade-feed/internal/observability"
	"pump-trade-feed/internal/storage/memory"
)

func main() {
	url := flag.String("url", feed.DefaultURL, "socket.io WebSocket endpoint")
	policyFlag := flag.String("policy", string(labels.PolicyStrict), "Label policy: strict or permissive")
	labelFile := flag.String("labels", "", "YAML address book (default: built-in)")
	reconnect := flag.Duration("reconnect-delay", 5*time.Second, "Delay before reconnecting")
	level := flag.String("log-level", "info", "Log level")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger, closer, err := logging.New(logging.Options{Level: *level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	log := logging.Component(logger, "ingest")

	resolver, err := buildResolver(*policyFlag, *labelFile)
	if err != nil {
		log.WithError(err).Fatal("Invalid address book")
	}
	log.WithFields(logrus.Fields{"labels": resolver.Len(), "policy": resolver.Policy()}).Info("Address book loaded")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			log.WithField("addr", *metricsAddr).Info("Starting metrics server")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server error")
			}
		}()
	}

	pipeline := ingestion.NewPipeline(ingestion.PipelineOptions{
		Resolver:   resolver,
		Normalizer: normalize.NewNormalizer(time.Local, true),
		Store:      memory.NewEventStore(memory.DefaultCapacity),
		Logger:     logging.Component(logger, "ingestion"),
	})

	client := feed.NewClient(feed.Options{
		Config:  feed.Config{URL: *url, ReconnectDelay: *reconnect},
		Handler: pipeline,
		Logger:  logging.Component(logger, "feed"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("Stopping")
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	_ = client.Run(ctx)
	st := client.Status()
	log.WithField("reconnects", st.Reconnects).Info("Feed stopped")
}

func buildResolver(policy, file string) (*labels.Resolver, error) {
	p, err := labels.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}
	book := labels.DefaultLabels
	if file != "" {
		if book, err = labels.Load(file); err != nil {
			return nil, err
		}
	}
	return labels.NewResolver(book, p)
}
