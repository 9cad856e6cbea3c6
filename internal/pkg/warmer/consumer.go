package warmer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultTasksInFlight bounds how many warm tasks one consumer runs at once.
const DefaultTasksInFlight = 2

var (
	ErrEmptyTask      = errors.New("warm task has no variants")
	ErrConsumerConfig = errors.New("warm consumer needs brokers and a topic")
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// TasksInFlight caps concurrent tasks; reading pauses while it is reached.
	TasksInFlight int
}

// DecodeTask parses a kafka message value into a warm task.
func DecodeTask(value []byte) (entity.WarmTask, error) {
	var task entity.WarmTask
	if err := json.Unmarshal(value, &task); err != nil {
		return entity.WarmTask{}, fmt.Errorf("decode warm task: %w", err)
	}
	if len(task.Variants) == 0 {
		return entity.WarmTask{}, ErrEmptyTask
	}
	return task, nil
}

// StartConsumer reads warm tasks until ctx is cancelled. Up to TasksInFlight
// tasks are warmed concurrently; StartConsumer waits for them before returning.
func StartConsumer(ctx context.Context, cfg ConsumerConfig, w Warmer, log *logrus.Entry) error {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return ErrConsumerConfig
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"component": "warm-consumer", "topic": cfg.Topic})

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer reader.Close()

	log.WithField("brokers", cfg.Brokers).Info("warm consumer started")

	d := newDispatcher(w, cfg.TasksInFlight, log)
	defer d.wait()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("warm consumer stopped")
				return nil
			}
			log.WithError(err).Error("error reading message from kafka")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		log.WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Debug("received warm task")

		d.dispatch(ctx, msg.Value)
	}
}

// dispatcher runs decoded tasks on a bounded group. dispatch blocks while the
// group is full, which stops the reader from pulling further messages.
type dispatcher struct {
	warmer Warmer
	group  errgroup.Group
	log    *logrus.Entry
}

func newDispatcher(w Warmer, limit int, log *logrus.Entry) *dispatcher {
	if limit <= 0 {
		limit = DefaultTasksInFlight
	}
	d := &dispatcher{warmer: w, log: log}
	d.group.SetLimit(limit)
	return d
}

func (d *dispatcher) dispatch(ctx context.Context, value []byte) {
	task, err := DecodeTask(value)
	if err != nil {
		d.log.WithError(err).Warn("skipping warm task")
		return
	}

	d.group.Go(func() error {
		if _, err := d.warmer.Warm(ctx, task); err != nil {
			d.log.WithError(err).WithField("task_id", task.ID).Error("warm task failed")
		}
		return nil
	})
}

func (d *dispatcher) wait() {
	_ = d.group.Wait()
}
