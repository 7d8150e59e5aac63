// Package notify доставка отчётов о держателях во внешние системы.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// KafkaConfig параметры продюсера.
type KafkaConfig struct {
	BootstrapServers string
	Topic            string
	ClientID         string
	Acks             string
	FlushTimeout     time.Duration
}

// KafkaPlateSink публикует отчёты о готовых держателях в топик Kafka.
type KafkaPlateSink struct {
	producer   *kafka.Producer
	topic      string
	flush      time.Duration
	deliveries chan kafka.Event
	log        *slog.Logger
	wg         sync.WaitGroup

	sent   atomic.Int64
	acked  atomic.Int64
	failed atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// ErrSinkClosed публикация после Close.
var ErrSinkClosed = errors.New("plate sink is closed")

// NewKafkaPlateSink создаёт продюсер и запускает обработку подтверждений доставки.
func NewKafkaPlateSink(cfg KafkaConfig, log *slog.Logger) (*KafkaPlateSink, error) {
	if log == nil {
		log = slog.Default()
	}
	acks := cfg.Acks
	if acks == "" {
		acks = "all"
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.BootstrapServers,
		"client.id":          cfg.ClientID,
		"acks":               acks,
		"enable.idempotence": true,
		"linger.ms":          5,
		"request.timeout.ms": 30000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	flush := cfg.FlushTimeout
	if flush <= 0 {
		flush = 10 * time.Second
	}
	s := &KafkaPlateSink{
		producer:   p,
		topic:      cfg.Topic,
		flush:      flush,
		deliveries: make(chan kafka.Event, 128),
		log:        log,
	}
	s.wg.Add(1)
	go s.handleDeliveries()

	log.Info("kafka: producer initialized", "topic", cfg.Topic, "servers", cfg.BootstrapServers)
	return s, nil
}

func (s *KafkaPlateSink) handleDeliveries() {
	defer s.wg.Done()
	for e := range s.deliveries {
		m, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		if m.TopicPartition.Error != nil {
			s.failed.Add(1)
			s.log.Error("kafka: delivery failed", "key", string(m.Key), "error", m.TopicPartition.Error)
			continue
		}
		s.acked.Add(1)
		s.log.Debug("kafka: plate delivered", "key", string(m.Key), "partition", m.TopicPartition.Partition, "offset", m.TopicPartition.Offset)
	}
}

// PublishPlate ставит отчёт в очередь продюсера. Ключ сообщения: id держателя.
func (s *KafkaPlateSink) PublishPlate(ctx context.Context, report entity.PlateReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := plateMessage(s.topic, report)
	if err != nil {
		return err
	}

	// Close ждёт окончания Produce, чтобы не закрыть канал подтверждений раньше.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("produce plate %s: %w", report.PlateID, ErrSinkClosed)
	}
	if err := s.producer.Produce(msg, s.deliveries); err != nil {
		s.failed.Add(1)
		return fmt.Errorf("produce plate %s: %w", report.PlateID, err)
	}
	s.sent.Add(1)
	return nil
}

// Stats количество отправленных, подтверждённых и неудачных сообщений.
func (s *KafkaPlateSink) Stats() (sent, acked, failed int64) {
	return s.sent.Load(), s.acked.Load(), s.failed.Load()
}

// Close дожидается доставки и закрывает продюсер. Повторный вызов ничего не делает.
func (s *KafkaPlateSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if remaining := s.producer.Flush(int(s.flush.Milliseconds())); remaining > 0 {
		s.log.Warn("kafka: messages still in queue after flush", "remaining", remaining)
	}
	s.producer.Close()
	close(s.deliveries)
	s.wg.Wait()

	sent, acked, failed := s.Stats()
	s.log.Info("kafka: producer closed", "sent", sent, "acked", acked, "failed", failed)
}

func plateMessage(topic string, report entity.PlateReport) (*kafka.Message, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize plate report: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(report.PlateID),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "camera", Value: []byte(report.Camera)},
			{Key: "kind", Value: []byte(report.Kind)},
		},
	}, nil
}

var _ port.PlateSink = (*KafkaPlateSink)(nil)
