package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

const orderPlacedType = "OrderPlaced"

type orderPlacedEvent struct {
	OrderID           string           `json:"order_id"`
	CustomerRef       string           `json:"customer_ref"`
	Subtotal          decimal.Decimal  `json:"subtotal"`
	DiscountRate      decimal.Decimal  `json:"discount_rate"`
	DiscountCode      string           `json:"discount_code"`
	FinalTotal        decimal.Decimal  `json:"final_total"`
	TrackingID        string           `json:"tracking_id"`
	CreatedAt         time.Time        `json:"created_at"`
	EstimatedDelivery time.Time        `json:"estimated_delivery"`
	Lines             []orderLineEvent `json:"lines"`
}

type orderLineEvent struct {
	ItemRef   string          `json:"item_ref"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func newOrderPlacedEvent(o domain.Order) orderPlacedEvent {
	lines := make([]orderLineEvent, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineEvent{ItemRef: string(l.Item), Quantity: l.Quantity, UnitPrice: l.UnitPriceAtSale}
	}
	return orderPlacedEvent{
		OrderID:           string(o.ID),
		CustomerRef:       o.CustomerRef,
		Subtotal:          o.Subtotal,
		DiscountRate:      o.DiscountRate,
		DiscountCode:      o.DiscountCode,
		FinalTotal:        o.FinalTotal,
		TrackingID:        o.TrackingID,
		CreatedAt:         o.CreatedAt,
		EstimatedDelivery: o.EstimatedDelivery,
		Lines:             lines,
	}
}

// NewSyncProducer connects to brokers with delivery acknowledged by the leader.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("start kafka producer: %w", err)
	}
	return producer, nil
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	payload, err := json.Marshal(newOrderPlacedEvent(order))
	if err != nil {
		return fmt.Errorf("marshal order placed: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(order.ID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(orderPlacedType)},
		},
	})
	if err != nil {
		return fmt.Errorf("send order placed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
