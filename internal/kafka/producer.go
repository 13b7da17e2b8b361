package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-scanning/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer streams committed scan decisions and override audit entries to
// the rest of the platform. Delivery is best-effort; the database rows
// written by the audit sink remain the record.
type Producer struct {
	scanWriter     *kafka.Writer
	overrideWriter *kafka.Writer
	mock           bool
}

func NewProducer(brokers []string, scanTopic, overrideTopic string) *Producer {
	return &Producer{
		scanWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   scanTopic,
		}),
		overrideWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   overrideTopic,
		}),
	}
}

// NewMockProducer returns a producer that serializes entries and drops
// them, for venues running a gate with no broker reachable.
func NewMockProducer() *Producer {
	return &Producer{mock: true}
}

// PublishScanLog streams one committed scan decision.
func (p *Producer) PublishScanLog(ctx context.Context, entry models.ScanLog) error {
	msgBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if p.mock {
		return nil
	}
	err = p.scanWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.TicketID),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("publish scan log: %w", err)
	}
	return nil
}

// PublishOverride streams one override audit entry.
func (p *Producer) PublishOverride(ctx context.Context, entry models.OverrideLogEntry) error {
	msgBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if p.mock {
		return nil
	}
	err = p.overrideWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.TicketID),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("publish override: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.mock {
		return nil
	}
	if err := p.scanWriter.Close(); err != nil {
		return err
	}
	return p.overrideWriter.Close()
}
