package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"sevasetu/internal/platform/config"
)

// Relay publishes unsent outbox rows to Kafka. It polls the outbox on a fixed
// interval; rows are marked published only after the produce is acknowledged,
// so a crash between produce and mark yields at-least-once delivery.
type Relay struct {
	store    *PostgresStore
	client   *kgo.Client
	topic    string
	interval time.Duration
	logger   *slog.Logger
}

const (
	relayBatchSize       = 100
	defaultRelayInterval = 2 * time.Second
)

// NewRelay connects to the configured brokers and ensures the audit topic
// exists. Returns nil (no error) when no brokers are configured.
func NewRelay(cfg config.KafkaConfig, store *PostgresStore, logger *slog.Logger) (*Relay, error) {
	if len(cfg.Brokers) == 0 || store == nil {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	admin := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, cfg.Topic)
	if err == nil {
		err = resp.Err
	}
	// Already-exists is the steady state; anything else is surfaced.
	if err != nil && !isTopicExists(err) {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}

	return &Relay{
		store:    store,
		client:   client,
		topic:    cfg.Topic,
		interval: defaultRelayInterval,
		logger:   logger,
	}, nil
}

// Run polls the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay batch failed", "error", err)
			}
		}
	}
}

func (r *Relay) relayBatch(ctx context.Context) error {
	rows, err := r.store.UnpublishedBatch(ctx, relayBatchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(rows))
	for i, row := range rows {
		records[i] = &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.ID.String()),
			Value: row.Payload,
		}
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return r.store.MarkPublished(ctx, ids, time.Now())
}

func isTopicExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "topic_already_exists")
}
