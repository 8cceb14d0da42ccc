// Package archive fans accepted trades out to write-only sinks off the feed's
// read path.
package archive

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/observability"
	"pump-trade-feed/internal/storage"
)

// Sink is a named write-only trade destination.
type Sink interface {
	storage.TradeArchive
	Name() string
}

// Options contains configuration for creating an Archiver.
type Options struct {
	Sinks         []Sink
	Buffer        int           // Default: 1024 queued events
	BatchSize     int           // Default: 100 events per write
	FlushInterval time.Duration // Default: 2s
	WriteTimeout  time.Duration // Default: 10s per sink write
	Logger        *logrus.Entry
}

// Archiver batches trade events and writes each batch to every sink.
// Enqueue never blocks; events are dropped when the buffer is full.
type Archiver struct {
	sinks         []Sink
	queue         chan *domain.TradeEvent
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration
	logger        *logrus.Entry

	mu      sync.Mutex
	dropped int64
	written map[string]int64
}

// New creates an archiver. Call Run to start the worker.
func New(opts Options) *Archiver {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 1024
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Archiver{
		sinks:         opts.Sinks,
		queue:         make(chan *domain.TradeEvent, buffer),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		writeTimeout:  writeTimeout,
		logger:        logger,
		written:       make(map[string]int64, len(opts.Sinks)),
	}
}

// Enqueue queues ev for archiving and reports whether it was accepted.
func (a *Archiver) Enqueue(ev *domain.TradeEvent) bool {
	select {
	case a.queue <- ev:
		observability.RecordArchiveEnqueue(true)
		return true
	default:
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
		observability.RecordArchiveEnqueue(false)
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	names := make([]string, len(a.sinks))
	for i, s := range a.sinks {
		names[i] = s.Name()
	}
	a.logger.WithField("sinks", names).Info("Archiver started")

	batch := make([]*domain.TradeEvent, 0, a.batchSize)
	for {
		select {
		case <-ctx.Done():
			batch = a.drain(batch)
			a.flush(batch)
			a.logger.Info("Archiver stopped")
			return ctx.Err()

		case ev := <-a.queue:
			batch = append(batch, ev)
			if len(batch) >= a.batchSize {
				a.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (a *Archiver) drain(batch []*domain.TradeEvent) []*domain.TradeEvent {
	for {
		select {
		case ev := <-a.queue:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
}

// flush writes batch to every sink concurrently. A failing sink does not
// affect the others; its batch is logged and discarded.
func (a *Archiver) flush(batch []*domain.TradeEvent) {
	if len(batch) == 0 {
		return
	}

	// Sinks may retain the slice; the caller reuses batch.
	events := make([]*domain.TradeEvent, len(batch))
	copy(events, batch)

	var wg sync.WaitGroup
	for _, sink := range a.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()
			a.write(sink, events)
		}(sink)
	}
	wg.Wait()
}

func (a *Archiver) write(sink Sink, events []*domain.TradeEvent) {
	// Shutdown flushes run after ctx is cancelled, so writes get their own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()

	start := time.Now()
	err := sink.InsertBulk(ctx, events)
	observability.RecordArchiveWrite(sink.Name(), time.Since(start).Seconds(), err)

	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"sink":   sink.Name(),
			"events": len(events),
		}).Error("Archive write failed")
		return
	}

	a.mu.Lock()
	a.written[sink.Name()] += int64(len(events))
	a.mu.Unlock()
	a.logger.WithFields(logrus.Fields{"sink": sink.Name(), "events": len(events)}).Debug("Archived trades")
}

// Stats is a snapshot of archiver counters.
type Stats struct {
	Queued  int
	Dropped int64
	Written map[string]int64
}

// Stats returns current counters.
func (a *Archiver) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	written := make(map[string]int64, len(a.written))
	for k, v := range a.written {
		written[k] = v
	}
	return Stats{Queued: len(a.queue), Dropped: a.dropped, Written: written}
}
