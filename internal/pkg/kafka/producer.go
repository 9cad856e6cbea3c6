package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const DefaultTopic = "image-warmup"

// Producer publishes warm-up tasks for the CDN warmer.
type Producer interface {
	PublishWarmTask(ctx context.Context, task entity.WarmTask) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	log    *logrus.Entry
}

// NewProducer connects to a comma separated broker list and makes sure the
// topic exists. When no broker is reachable it falls back to a producer that
// only records tasks.
func NewProducer(brokers, topic string, log *logrus.Entry) Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"component": "kafka-producer", "topic": topic})

	addrs := SplitBrokers(brokers)
	if len(addrs) == 0 {
		log.Warn("no kafka brokers configured, using mock producer")
		return NewMockProducer(log)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", addrs[0])
	if err != nil {
		log.WithError(err).Warn("kafka connection failed, using mock producer")
		writer.Close()
		return NewMockProducer(log)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		log.WithError(err).Debug("could not create topic (might already exist)")
	}

	log.WithField("brokers", brokers).Info("connected to kafka")
	return &kafkaProducer{writer: writer, log: log}
}

// SplitBrokers turns "a:9092, b:9092" into a clean address list.
func SplitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (p *kafkaProducer) PublishWarmTask(ctx context.Context, task entity.WarmTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal warm task: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// keyed by source so all variants of one image land on the same partition
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Source),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write warm task %s: %w", task.ID, err)
	}

	p.log.WithFields(logrus.Fields{"task_id": task.ID, "variants": len(task.Variants)}).Debug("warm task published")
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// MockProducer keeps published tasks in memory. It is used when kafka is
// unavailable and in tests.
type MockProducer struct {
	mu    sync.Mutex
	tasks []entity.WarmTask
	log   *logrus.Entry
}

func NewMockProducer(log *logrus.Entry) *MockProducer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MockProducer{log: log}
}

func (m *MockProducer) PublishWarmTask(_ context.Context, task entity.WarmTask) error {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"task_id": task.ID, "source": task.Source}).Info("MOCK: warm task published")
	return nil
}

func (m *MockProducer) Tasks() []entity.WarmTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.WarmTask(nil), m.tasks...)
}

func (m *MockProducer) Close() error {
	return nil
}
