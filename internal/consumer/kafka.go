// Package consumer feeds host events from a Kafka topic.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/models"
)

// Dispatcher is satisfied by *ingest.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (int, error)
}

// Consumer reads DispatchRequest messages from one topic under a consumer group.
type Consumer struct {
	reader *kafka.Reader
	d      Dispatcher
	log    *zap.Logger
}

// New returns a Consumer reading topic as member of groupID.
func New(brokers []string, topic, groupID string, d Dispatcher, log *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		d:   d,
		log: log,
	}
}

// Run consumes until ctx is cancelled. Messages that fail to decode or dispatch are logged
// and skipped; their offsets are committed like any other.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("consumer: read: %w", err)
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	if err := HandleMessage(ctx, c.d, msg.Value); err != nil {
		c.log.Warn("consumer: message skipped",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}

// HandleMessage decodes value and dispatches it.
func HandleMessage(ctx context.Context, d Dispatcher, value []byte) error {
	var req models.DispatchRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if req.Type == "" {
		return errors.New("missing type")
	}
	_, err := d.Dispatch(ctx, req)
	return err
}

// Close leaves the consumer group and closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
