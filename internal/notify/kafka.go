// Package notify provides fire-and-forget operator notification.
//
// Approval notifications are published as events to a Kafka topic; a
// downstream mailer consumes them and owns delivery. The lifecycle never
// depends on produce success for correctness - callers treat errors as
// log-only.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vaxtrack-io/vaxtrack/internal/config"
	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

const (
	defaultTopic        = "vaxtrack.operator-approvals"
	defaultWriteTimeout = 5 * time.Second
)

// ErrNoBrokers is returned when the notifier is constructed without brokers.
var ErrNoBrokers = errors.New("at least one kafka broker is required")

type (
	// Config holds Kafka notifier configuration.
	Config struct {
		Brokers      []string
		Topic        string
		WriteTimeout time.Duration
	}

	// ApprovalEvent is the wire format published on operator approval.
	ApprovalEvent struct {
		OperatorID string    `json:"operator_id"`
		FullName   string    `json:"full_name"`
		Email      string    `json:"email"`
		Scope      string    `json:"scope"`
		ApprovedAt time.Time `json:"approved_at"`
	}

	// KafkaNotifier publishes approval events to a Kafka topic.
	KafkaNotifier struct {
		writer *kafka.Writer
		logger *slog.Logger
	}
)

// Compile-time assertion: KafkaNotifier satisfies the lifecycle capability.
var _ operator.Notifier = (*KafkaNotifier)(nil)

// LoadConfig loads notifier configuration from environment variables with defaults.
func LoadConfig() *Config {
	return &Config{
		Brokers:      config.ParseCommaSeparatedList(config.GetEnvStr("VAXTRACK_KAFKA_BROKERS", "localhost:9092")),
		Topic:        config.GetEnvStr("VAXTRACK_NOTIFY_TOPIC", defaultTopic),
		WriteTimeout: config.GetEnvDuration("VAXTRACK_NOTIFY_WRITE_TIMEOUT", defaultWriteTimeout),
	}
}

// NewKafkaNotifier creates a notifier that publishes to cfg.Topic.
func NewKafkaNotifier(cfg *Config, logger *slog.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaNotifier{writer: writer, logger: logger}, nil
}

// NotifyApproved publishes an ApprovalEvent keyed by operator id.
// Errors are returned for the caller to log; they carry no correctness weight.
func (n *KafkaNotifier) NotifyApproved(ctx context.Context, op operator.Operator) error {
	event := ApprovalEvent{
		OperatorID: op.ID,
		FullName:   op.FullName,
		Email:      op.Email,
		Scope:      op.Scope,
		ApprovedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode approval event: %w", err)
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(op.ID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish approval event: %w", err)
	}

	n.logger.Debug("Approval event published",
		slog.String("operator_id", op.ID),
		slog.String("topic", n.writer.Topic),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
