package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/Leganyst/fitness-booking/internal/metrics"
)

// KafkaPublisher пишет события в один топик асинхронным продюсером,
// ключом сообщения служит ключ маршрутизации.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      *slog.Logger
	wg       sync.WaitGroup
}

func NewKafkaPublisher(brokers []string, version, topic string, log *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers list is empty")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is empty")
	}

	ver, err := sarama.ParseKafkaVersion(version)
	if err != nil {
		return nil, fmt.Errorf("parse kafka version: %w", err)
	}

	producer, err := sarama.NewAsyncProducer(brokers, newSaramaConfig(ver))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &KafkaPublisher{producer: producer, topic: topic, log: log}
	p.wg.Add(2)
	go p.drainSuccesses()
	go p.drainErrors()
	return p, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("Content-Type"), Value: []byte("application/json")},
		},
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		p.log.Warn("context cancelled before publishing event",
			slog.String("key", key),
			slog.Any("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (p *KafkaPublisher) Close() error {
	p.log.Info("closing Kafka producer")
	err := p.producer.Close()
	p.wg.Wait()
	if err != nil {
		p.log.Error("failed to close Kafka producer", slog.Any("error", err))
	}
	return err
}

func (p *KafkaPublisher) drainSuccesses() {
	defer p.wg.Done()
	for range p.producer.Successes() {
		metrics.EventsPublished.WithLabelValues("kafka").Inc()
	}
}

func (p *KafkaPublisher) drainErrors() {
	defer p.wg.Done()
	for perr := range p.producer.Errors() {
		metrics.EventPublishFailures.WithLabelValues("kafka").Inc()
		p.log.Error("failed to deliver event", slog.Any("error", perr.Err))
	}
}

func newSaramaConfig(ver sarama.KafkaVersion) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = ver
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	return config
}
