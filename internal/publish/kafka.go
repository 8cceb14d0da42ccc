package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/domain"
)

// KafkaOptions configures the Kafka publisher.
type KafkaOptions struct {
	Brokers  string // comma-separated bootstrap servers
	Topic    string
	Protocol string // plaintext (default), sasl_plaintext or sasl_ssl
	Username string
	Password string
	CAPath   string
	Logger   *logrus.Entry
}

// KafkaPublisher produces trades to a Kafka topic keyed by wallet address,
// so each wallet's trades stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *logrus.Entry
	done     chan struct{}
}

// producerConfig builds the librdkafka configuration for opts.
func producerConfig(opts KafkaOptions) (*kafka.ConfigMap, error) {
	conf := &kafka.ConfigMap{
		"api.version.request": "true",
		"message.max.bytes":   1000000,
		"linger.ms":           10,
		"retries":             30,
		"retry.backoff.ms":    1000,
		"acks":                "1",
	}
	if err := conf.SetKey("bootstrap.servers", opts.Brokers); err != nil {
		return nil, err
	}

	switch opts.Protocol {
	case "", "plaintext":
		conf.SetKey("security.protocol", "plaintext")
	case "sasl_plaintext":
		conf.SetKey("security.protocol", "sasl_plaintext")
		conf.SetKey("sasl.mechanism", "PLAIN")
		conf.SetKey("sasl.username", opts.Username)
		conf.SetKey("sasl.password", opts.Password)
	case "sasl_ssl":
		conf.SetKey("security.protocol", "sasl_ssl")
		conf.SetKey("sasl.mechanism", "PLAIN")
		conf.SetKey("sasl.username", opts.Username)
		conf.SetKey("sasl.password", opts.Password)
		if opts.CAPath != "" {
			conf.SetKey("ssl.ca.location", opts.CAPath)
		}
	default:
		return nil, fmt.Errorf("unknown kafka protocol %q", opts.Protocol)
	}
	return conf, nil
}

// NewKafkaPublisher creates a producer and starts its delivery report loop.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if opts.Brokers == "" || opts.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	conf, err := producerConfig(opts)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(conf)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	p := &KafkaPublisher{producer: producer, topic: opts.Topic, logger: logger, done: make(chan struct{})}
	go p.deliveryReports()
	return p, nil
}

func (p *KafkaPublisher) deliveryReports() {
	defer close(p.done)
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.WithError(ev.TopicPartition.Error).
					WithField("key", string(ev.Key)).
					Error("Kafka delivery failed")
			}
		case kafka.Error:
			p.logger.WithError(ev).Warn("Kafka producer error")
		}
	}
}

// Name returns the sink name.
func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// InsertBulk enqueues every event and waits for the producer queue to drain
// or for ctx to expire.
func (p *KafkaPublisher) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	for _, ev := range events {
		data, err := Encode(ev)
		if err != nil {
			return fmt.Errorf("encode trade %s: %w", ev.ID, err)
		}
		err = p.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
			Key:            []byte(ev.Address),
			Value:          data,
		}, nil)
		if err != nil {
			return fmt.Errorf("kafka: produce: %w", err)
		}
	}

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = max(time.Until(deadline), 0)
	}
	if remaining := p.producer.Flush(int(timeout.Milliseconds())); remaining > 0 {
		return fmt.Errorf("kafka: %d messages still queued after %v", remaining, timeout)
	}
	return nil
}

// Close flushes outstanding messages and shuts the producer down.
func (p *KafkaPublisher) Close() error {
	p.producer.Flush(5000)
	p.producer.Close()
	select {
	case <-p.done:
	case <-time.After(time.Second):
	}
	return nil
}
