package cdc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

const defaultPollInterval = 500 * time.Millisecond

// KafkaConfig selects the brokers and Debezium topics a KafkaFeed consumes.
type KafkaConfig struct {
	Brokers string
	GroupID string
	Topics  []string
}

// kafkaConsumer is the subset of *kafka.Consumer used by KafkaFeed.
type kafkaConsumer interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Close() error
}

// KafkaFeed reads change events straight from the Debezium Kafka Connect topics.
//
// Deliveries may be acknowledged out of order. A partition's offset is committed only up
// to its oldest unacknowledged message, so a restart redelivers everything not yet
// acknowledged.
type KafkaFeed struct {
	consumer     kafkaConsumer
	logger       *slog.Logger
	pollInterval time.Duration

	mu          sync.Mutex
	outstanding map[partitionKey][]*trackedMessage
}

type partitionKey struct {
	topic     string
	partition int32
}

type trackedMessage struct {
	msg  *kafka.Message
	done bool
}

// NewKafkaFeed creates a consumer in cfg.GroupID and subscribes it to cfg.Topics.
func NewKafkaFeed(cfg KafkaConfig, logger *slog.Logger) (*KafkaFeed, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	feed, err := newKafkaFeed(consumer, cfg.Topics, logger)
	if err != nil {
		_ = consumer.Close()
		return nil, err
	}
	return feed, nil
}

func newKafkaFeed(consumer kafkaConsumer, topics []string, logger *slog.Logger) (*KafkaFeed, error) {
	if len(topics) == 0 {
		return nil, errors.New("at least one kafka topic is required")
	}
	if err := consumer.SubscribeTopics(topics, nil); err != nil {
		return nil, fmt.Errorf("failed to subscribe to kafka topics: %w", err)
	}

	return &KafkaFeed{
		consumer:     consumer,
		logger:       logger,
		pollInterval: defaultPollInterval,
		outstanding:  make(map[partitionKey][]*trackedMessage),
	}, nil
}

// Receive polls until a decodable change event arrives or ctx is done. Tombstones and
// undecodable messages are committed and skipped.
func (f *KafkaFeed) Receive(ctx context.Context) (*dispatchDomain.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := f.consumer.ReadMessage(f.pollInterval)
		if err != nil {
			var kafkaErr kafka.Error
			if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrTimedOut {
				continue
			}
			return nil, fmt.Errorf("failed to read kafka message: %w", err)
		}

		tracked := f.track(msg)

		event, err := DecodeEnvelope(msg.Value)
		if err != nil {
			if !errors.Is(err, ErrTombstone) {
				f.logger.Warn("skipping undecodable change event",
					slog.String("topic_partition", msg.TopicPartition.String()),
					slog.Any("error", err),
				)
			}
			if err := f.ack(tracked); err != nil {
				f.logger.Warn("failed to commit skipped kafka message", slog.Any("error", err))
			}
			continue
		}

		return &dispatchDomain.Delivery{
			Event: event,
			Ack: func() error {
				return f.ack(tracked)
			},
		}, nil
	}
}

func (f *KafkaFeed) track(msg *kafka.Message) *trackedMessage {
	tracked := &trackedMessage{msg: msg}
	key := keyOf(msg)

	f.mu.Lock()
	f.outstanding[key] = append(f.outstanding[key], tracked)
	f.mu.Unlock()

	return tracked
}

// ack marks tracked done and commits the partition past every leading done message.
func (f *KafkaFeed) ack(tracked *trackedMessage) error {
	key := keyOf(tracked.msg)

	f.mu.Lock()
	defer f.mu.Unlock()

	tracked.done = true

	queue := f.outstanding[key]
	var last *kafka.Message
	for len(queue) > 0 && queue[0].done {
		last = queue[0].msg
		queue = queue[1:]
	}
	if len(queue) == 0 {
		delete(f.outstanding, key)
	} else {
		f.outstanding[key] = queue
	}

	if last == nil {
		return nil
	}
	_, err := f.consumer.CommitMessage(last)
	return err
}

func keyOf(msg *kafka.Message) partitionKey {
	var topic string
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}
	return partitionKey{topic: topic, partition: msg.TopicPartition.Partition}
}

// Close leaves the consumer group.
func (f *KafkaFeed) Close(context.Context) error {
	return f.consumer.Close()
}
