package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
)

// EventLowStock is the type of low-stock alert events
const EventLowStock = "inventory.low_stock"

// LowStockEvent is the JSON payload published for an alert
type LowStockEvent struct {
	EventID     string          `json:"event_id"`
	Type        string          `json:"type"`
	GeneratedAt time.Time       `json:"generated_at"`
	Recipients  []string        `json:"recipients"`
	Parts       []LowStockEntry `json:"parts"`
}

// LowStockEntry is one part of a LowStockEvent
type LowStockEntry struct {
	ID            int64  `json:"id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

// KafkaNotifier publishes alerts to a topic for downstream consumers
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

// ProducerConfig returns the sarama configuration the notifier expects
func ProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V3_6_0_0
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	return config
}

func (n *KafkaNotifier) SendLowStockAlert(ctx context.Context, recipients []domain.User, alert LowStockAlert) error {
	const op = "notifications.KafkaNotifier.SendLowStockAlert"

	event := LowStockEvent{
		EventID:     uuid.NewString(),
		Type:        EventLowStock,
		GeneratedAt: alert.GeneratedAt,
		Recipients:  recipientEmails(recipients),
		Parts: lo.Map(alert.Parts, func(p domain.Part, _ int) LowStockEntry {
			return LowStockEntry{
				ID:            p.ID,
				SKU:           p.SKU,
				Name:          p.Name,
				StockQuantity: p.StockQuantity,
				MinStockLevel: p.MinStockLevel,
			}
		}),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(event.EventID),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		logger.Error(ctx, "failed to publish low stock event", logger.String("topic", n.topic), logger.ErrorF(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info(ctx, "low stock event published",
		logger.String("topic", n.topic),
		logger.String("event_id", event.EventID),
		logger.Any("partition", partition),
		logger.Int64("offset", offset))
	return nil
}
