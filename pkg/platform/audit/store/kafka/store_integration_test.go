//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "charity/pkg/platform/audit"
	"charity/pkg/platform/audit/store/kafka"
	"charity/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaStoreSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "charity.audit.test"
	store, err := kafka.New(ctx, []string{s.broker.Broker}, topic, kafka.WithTopicLayout(1, 1))
	s.Require().NoError(err)
	defer store.Close()

	// Creating the store twice must tolerate an existing topic.
	again, err := kafka.New(ctx, []string{s.broker.Broker}, topic)
	s.Require().NoError(err)
	again.Close()

	s.Require().NoError(store.Append(ctx, audit.Event{
		ID:        "evt-1",
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now(),
		ProjectID: 42,
		Action:    string(audit.EventDonationReceived),
		Amount:    250,
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	rec := records[0]
	s.Equal("42", string(rec.Key))
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Value, &body))
	s.Equal(string(audit.EventDonationReceived), body["action"])
	s.EqualValues(250, body["amount"])
}
