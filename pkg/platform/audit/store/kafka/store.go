// Package kafka publishes audit events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "charity/pkg/platform/audit"
)

const (
	defaultPartitions  = 3
	defaultReplication = 1
	// DefaultProduceTimeout bounds one Append, on top of any caller deadline.
	DefaultProduceTimeout = 10 * time.Second
)

// Store produces one record per audit event, keyed by project id so events
// for a project stay ordered within a partition.
type Store struct {
	client *kgo.Client
	topic  string

	partitions     int32
	replication    int16
	produceTimeout time.Duration
}

type Option func(*Store)

// WithProduceTimeout overrides DefaultProduceTimeout.
func WithProduceTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.produceTimeout = d
		}
	}
}

func WithTopicLayout(partitions int32, replication int16) Option {
	return func(s *Store) {
		if partitions > 0 {
			s.partitions = partitions
		}
		if replication > 0 {
			s.replication = replication
		}
	}
}

// New connects to brokers and makes sure topic exists.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka audit store: no brokers configured")
	}
	s := newStore(nil, topic, opts...)

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(s.produceTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	s.client = client

	if err := s.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func newStore(client *kgo.Client, topic string, opts ...Option) *Store {
	s := &Store{
		client:         client,
		topic:          topic,
		partitions:     defaultPartitions,
		replication:    defaultReplication,
		produceTimeout: DefaultProduceTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopic(ctx, s.partitions, s.replication, nil, s.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", s.topic, resp.Err)
	}
	return nil
}

// payload is the JSON document written to the topic.
type payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	ProjectID uint64 `json:"project_id"`
	Action    string `json:"action"`
	Amount    uint64 `json:"amount,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

// Append produces event and waits for the broker ack. It gives up after the
// produce timeout so an unreachable cluster surfaces as an error.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(payload{
		ID:        event.ID,
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		ProjectID: uint64(event.ProjectID),
		Action:    event.Action,
		Amount:    event.Amount,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.ProjectID.String()),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, s.produceTimeout)
	defer cancel()
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() {
	s.client.Close()
}
