package models

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogEvent is published after a catalog row is created or merged so
// downstream consumers (label printing, stock dashboards) can react without
// polling the table.
type CatalogEvent struct {
	BusinessId    string          `json:"business_id"`
	ItemId        int             `json:"item_id"`
	Action        string          `json:"action"` // "created" | "merged"
	Sku           string          `json:"sku"`
	Name          string          `json:"name"`
	StockQuantity int             `json:"stock_quantity"`
	Price         decimal.Decimal `json:"price"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationId string          `json:"correlation_id"`
}

// PublishCatalogChange sends the event to Pub/Sub. Best-effort: publishing
// failures are logged, never surfaced to the caller, and nothing happens when
// no topic is configured.
func PublishCatalogChange(ctx context.Context, item *CatalogItem, action string) {
	topicName := config.GetCatalogEventsTopic()
	if topicName == "" {
		return
	}
	logger := config.GetLogger()

	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		config.LogError(logger, "catalogEvent.go", "PublishCatalogChange", "pubsub client", item.ID, err)
		return
	}

	event := CatalogEvent{
		BusinessId:    item.BusinessId,
		ItemId:        item.ID,
		Action:        action,
		Sku:           utils.DereferencePtr(item.Sku),
		Name:          item.Name,
		StockQuantity: item.StockQuantity,
		Price:         item.Price,
		OccurredAt:    time.Now().UTC(),
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	data, err := json.Marshal(event)
	if err != nil {
		config.LogError(logger, "catalogEvent.go", "PublishCatalogChange", "marshal", item.ID, err)
		return
	}

	topic := client.Topic(topicName)
	result := topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		config.LogError(logger, "catalogEvent.go", "PublishCatalogChange", "publish", item.ID, err)
	}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
