package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-count-service/internal/catalog"
	"github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/pkg/broker"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
	"go.uber.org/zap"
)

// StockListener applies stock movement events published by the
// receiving and withdrawal flows to the warehouse ledger, keeping
// expected quantities current for future counts.
type StockListener struct {
	consumer *broker.KafkaConsumer
	uc       catalog.UseCase
	logger   logger.ZapLogger
}

func NewStockListener(consumer *broker.KafkaConsumer, uc catalog.UseCase, logger logger.ZapLogger) *StockListener {
	return &StockListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *StockListener) Start(ctx context.Context) {
	l.logger.Info("Starting Stock Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Stock Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type StockAdjustedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   StockPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type StockPayload struct {
	WarehouseID string             `json:"warehouse_id"`
	Reference   string             `json:"reference"`
	Type        string             `json:"type"` // 'receiving' or 'withdrawal'
	Items       []StockItemPayload `json:"items"`
}

type StockItemPayload struct {
	ItemID   string  `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

func (l *StockListener) processMessage(ctx context.Context, value []byte) {
	var event StockAdjustedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "StockAdjusted" {
		return
	}

	l.logger.Info("Processing StockAdjusted event",
		zap.String("warehouse_id", event.Payload.WarehouseID),
		zap.String("reference", event.Payload.Reference),
	)

	for _, item := range event.Payload.Items {
		change := item.Quantity
		if event.Payload.Type == "withdrawal" {
			change = -item.Quantity
		}

		input := &dto.AdjustStockInput{
			WarehouseID:    event.Payload.WarehouseID,
			ItemID:         item.ItemID,
			QuantityChange: change,
			Reason:         "Stock " + event.Payload.Type,
			ReferenceID:    event.Payload.Reference,
			ReferenceType:  event.Payload.Type,
			UserID:         "system",
		}

		if _, err := l.uc.AdjustWarehouseStock(ctx, input); err != nil {
			l.logger.Error("Failed to apply stock adjustment",
				zap.String("warehouse_id", event.Payload.WarehouseID),
				zap.String("item_id", item.ItemID),
				zap.Error(err),
			)
		}
	}
}
