package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/normalize"
	"pump-trade-feed/internal/observability"
	"pump-trade-feed/internal/storage"
)

// Outcome is the result of processing one tradeCreated event.
type Outcome string

const (
	OutcomeStoredBuy      Outcome = "stored_buy"
	OutcomeStoredSell     Outcome = "stored_sell"
	OutcomeDroppedUnknown Outcome = "dropped_unknown"
	OutcomeRejected       Outcome = "rejected"
)

// Resolver maps a wallet address to a label. ok == false drops the trade.
type Resolver interface {
	Resolve(address string) (label string, ok bool)
}

// Archiver accepts trade events without blocking.
type Archiver interface {
	Enqueue(ev *domain.TradeEvent) bool
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	Resolver   Resolver
	Normalizer *normalize.Normalizer
	Store      storage.EventStore
	Archiver   Archiver // optional
	Logger     *logrus.Entry
	Now        func() time.Time // default time.Now
}

// Pipeline turns tradeCreated payloads into store inserts. It is the only
// writer of the event store.
type Pipeline struct {
	resolver   Resolver
	normalizer *normalize.Normalizer
	store      storage.EventStore
	archiver   Archiver
	logger     *logrus.Entry
	now        func() time.Time
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewNormalizer(nil, true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		resolver:   opts.Resolver,
		normalizer: normalizer,
		store:      opts.Store,
		archiver:   opts.Archiver,
		logger:     logger,
		now:        now,
	}
}

// HandleTrade implements feed.TradeHandler.
func (p *Pipeline) HandleTrade(_ context.Context, sessionID string, payload []byte) {
	p.Process(sessionID, payload)
}

// Process handles one payload and reports what happened to it.
func (p *Pipeline) Process(sessionID string, payload []byte) Outcome {
	begin := time.Now()
	outcome := p.process(sessionID, payload, p.now())
	observability.RecordTrade(string(outcome), time.Since(begin).Seconds())
	return outcome
}

func (p *Pipeline) process(sessionID string, payload []byte, receivedAt time.Time) Outcome {
	trade, err := normalize.Decode(payload)
	if err != nil {
		p.logger.WithError(err).Warn("Rejected trade payload")
		return OutcomeRejected
	}

	label, ok := p.resolver.Resolve(trade.User)
	if !ok {
		p.logger.WithField("address", trade.User).Debug("Skipped trade from unknown address")
		return OutcomeDroppedUnknown
	}

	record := p.normalizer.Record(trade, label)
	direction := trade.Direction()
	if err := p.store.Insert(direction, record); err != nil {
		p.logger.WithError(err).Error("Failed to store trade")
		return OutcomeRejected
	}
	observability.SetStoreSize(direction.String(), p.store.Len(direction))

	p.logger.WithFields(logrus.Fields{
		"user":      label,
		"direction": direction,
		"sol":       record.SolAmount,
		"name":      record.Name,
	}).Infof("[Trade] %s %s %s SOL of %s", label, direction.Verb(), record.SolAmount, record.Name)

	if p.archiver != nil {
		p.archiver.Enqueue(&domain.TradeEvent{
			ID:         uuid.NewString(),
			Direction:  direction,
			Address:    trade.User,
			Lamports:   trade.Lamports,
			UnixTime:   trade.Timestamp,
			Record:     record,
			SessionID:  sessionID,
			ReceivedAt: receivedAt,
		})
	}

	if direction == domain.DirectionBuy {
		return OutcomeStoredBuy
	}
	return OutcomeStoredSell
}
