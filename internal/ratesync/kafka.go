package ratesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/xhoantran/HotelMS-server/internal/config"
	obsmetrics "github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	"go.uber.org/zap"
)

const headerProperty = "property_external_id"

type KafkaPublisher struct {
	producer sarama.SyncProducer
	cfg      *config.PricingConfigHolder
	log      *zap.Logger
	metrics  *obsmetrics.PricingMetrics
}

// NewSyncProducer builds an idempotent producer that waits for all in-sync replicas.
func NewSyncProducer(kafka config.KafkaConfig) (sarama.SyncProducer, error) {
	if len(kafka.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	cfg := sarama.NewConfig()
	cfg.ClientID = kafka.ClientID
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Net.MaxOpenRequests = 1
	return sarama.NewSyncProducer(kafka.Brokers, cfg)
}

func NewKafkaPublisher(producer sarama.SyncProducer, cfg *config.PricingConfigHolder, log *zap.Logger, metrics *obsmetrics.PricingMetrics) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		cfg:      cfg,
		log:      log.Named("ratesync.kafka"),
		metrics:  metrics,
	}
}

// Publish sends the batch keyed by rate plan so updates of one plan stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, updates []RateUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	topic := p.cfg.Get().SyncTopic
	msgs := make([]*sarama.ProducerMessage, 0, len(updates))
	for _, u := range updates {
		if u.PropertyExternalID == "" || u.RatePlanExternalID == "" {
			return 0, fmt.Errorf("%w: rate plan %q on %s", ErrMissingExternalID, u.RatePlanExternalID, u.Date)
		}
		payload, err := json.Marshal(u)
		if err != nil {
			return 0, fmt.Errorf("encode rate update: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(u.RatePlanExternalID),
			Value: sarama.ByteEncoder(payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte(headerProperty), Value: []byte(u.PropertyExternalID)},
			},
		})
	}

	err := p.producer.SendMessages(msgs)
	if err == nil {
		p.metrics.AddSyncMessages("ok", len(msgs))
		return len(msgs), nil
	}

	failed := len(msgs)
	var perrs sarama.ProducerErrors
	if errors.As(err, &perrs) {
		failed = len(perrs)
	}
	p.metrics.AddSyncMessages("ok", len(msgs)-failed)
	p.metrics.AddSyncMessages("error", failed)
	p.log.Warn("rate updates partially published",
		zap.String("topic", topic),
		zap.Int("sent", len(msgs)-failed),
		zap.Int("failed", failed),
		zap.Error(err),
	)
	return len(msgs) - failed, fmt.Errorf("publish rate updates: %w", err)
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
