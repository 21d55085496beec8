// Package kafka streams scan events to an external topic so other venue
// systems can consume them. The sink is optional and off by default.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
)

type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer, Logger: log}
}

// Publish implements broadcast.Publisher. Broker failures are logged
// and dropped: the dashboard sinks stay authoritative and the scan path
// must not stall on an external broker.
func (p *Producer) Publish(event broadcast.Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal %s event: %v", event.Type, err))
		return
	}

	err = p.Writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
	})
	if err != nil {
		p.Logger.Error("KAFKA", fmt.Sprintf("failed to publish %s event: %v", event.Type, err))
		return
	}
	p.Logger.Debug("KAFKA", fmt.Sprintf("published %s event", event.Type))
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
