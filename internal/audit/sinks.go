package audit

import (
	"context"
	"encoding/json"
	"fmt"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink publishes events as JSON messages keyed by resource.
type KafkaSink struct {
	writer *kafkaGo.Writer
}

// NewKafkaSink creates a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (s *KafkaSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(e.Resource + ":" + e.ResourceID),
		Value: payload,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// LogSink writes events to the application log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) Write(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID),
		zap.String("action", e.Action),
		zap.String("resource", e.Resource),
		zap.String("resource_id", e.ResourceID),
		zap.String("ip", e.IPAddress),
		zap.Time("occurred_at", e.OccurredAt),
	}
	if e.UserID != nil {
		fields = append(fields, zap.Int("user_id", *e.UserID))
	}
	if e.OldValues != nil {
		fields = append(fields, zap.Any("old_values", e.OldValues))
	}
	if e.NewValues != nil {
		fields = append(fields, zap.Any("new_values", e.NewValues))
	}
	s.logger.Info("audit", fields...)
	return nil
}

func (s *LogSink) Close() error { return nil }
