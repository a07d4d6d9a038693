package kafka

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"maintenance-service/internal/config"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/schedule"
)

// Event types carried on the asset events topic.
const (
	EventAssetRegistered = "asset.registered"
	EventTaskCompleted   = "task.completed"
)

// assetEvent is the wire shape published by the asset directory.
type assetEvent struct {
	Type    string `json:"type"`
	AssetID string `json:"asset_id,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
}

// Consumer reacts to asset lifecycle events so new equipment gets its first
// task, and completed tasks get their follow-up, without waiting for the next
// periodic sweep. Both paths funnel into the same idempotent scheduling
// operations the sweep uses.
type Consumer struct {
	reader    *kafka.Reader
	scheduler *schedule.Scheduler
	logger    *logging.Logger
}

func NewConsumer(cfg config.Config, scheduler *schedule.Scheduler, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, scheduler: scheduler, logger: logger}
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var event assetEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Errorf("Unmarshal message failed: %v", err)
			continue
		}
		c.handle(ctx, event)
	}
}

func (c *Consumer) handle(ctx context.Context, event assetEvent) {
	switch event.Type {
	case EventAssetRegistered:
		assetID, err := uuid.Parse(event.AssetID)
		if err != nil {
			c.logger.Errorf("Invalid asset_id %q: %v", event.AssetID, err)
			return
		}
		if _, err := c.scheduler.ScheduleDue(ctx, assetID); err != nil {
			c.logger.Errorf("Scheduling for registered asset %s failed: %v", assetID, err)
			return
		}
		c.logger.Infof("Scheduled initial tasks for registered asset %s", assetID)

	case EventTaskCompleted:
		taskID, err := uuid.Parse(event.TaskID)
		if err != nil {
			c.logger.Errorf("Invalid task_id %q: %v", event.TaskID, err)
			return
		}
		if _, err := c.scheduler.RescheduleAfterCompletion(ctx, taskID); err != nil {
			c.logger.Errorf("Rescheduling after completion of task %s failed: %v", taskID, err)
			return
		}
		c.logger.Infof("Rescheduled follow-up for completed task %s", taskID)

	default:
		c.logger.Debugf("Ignoring event type %q", event.Type)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
