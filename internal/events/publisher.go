package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"pim-service/internal/importer"
	"pim-service/internal/models"
)

const (
	streamName = "PIM_CATALOG"

	SubjectProductCreated = "product.created"
	SubjectProductUpdated = "product.updated"
	SubjectVariantCreated = "variant.created"
	SubjectVariantUpdated = "variant.updated"
	SubjectImportDone     = "import.completed"
)

// Publisher emits catalog-change events to NATS JetStream. A Publisher built
// from an empty URL is a no-op, so event delivery stays optional.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

var _ importer.Notifier = (*Publisher)(nil)

// NewPublisher connects to NATS and ensures the catalog stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("pim-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"product.>", "variant.>", "import.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to ensure catalog stream (may already exist)")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "catalog-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

type productEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type variantEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	VariantID uuid.UUID `json:"variantId"`
	ProductID uuid.UUID `json:"productId"`
	SKU       string    `json:"sku"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type importEvent struct {
	EventID         uuid.UUID `json:"eventId"`
	ProductsCreated int       `json:"productsCreated"`
	ProductsUpdated int       `json:"productsUpdated"`
	VariantsCreated int       `json:"variantsCreated"`
	VariantsUpdated int       `json:"variantsUpdated"`
	ErrorCount      int       `json:"errorCount"`
	ProcessingMs    int64     `json:"processingMs"`
	Timestamp       time.Time `json:"timestamp"`
}

// ProductChanged publishes a product.created or product.updated event
func (p *Publisher) ProductChanged(ctx context.Context, product *models.Product, action importer.Action) {
	subject := SubjectProductCreated
	if action == importer.ActionUpdate {
		subject = SubjectProductUpdated
	}
	p.publish(ctx, subject, productEvent{
		EventID:   uuid.New(),
		ProductID: product.ID,
		Name:      product.Name,
		Slug:      product.Slug,
		Status:    string(product.Status),
		Action:    string(action),
		Timestamp: time.Now().UTC(),
	})
}

// VariantChanged publishes a variant.created or variant.updated event
func (p *Publisher) VariantChanged(ctx context.Context, variant *models.ProductVariant, action importer.Action) {
	subject := SubjectVariantCreated
	if action == importer.ActionUpdate {
		subject = SubjectVariantUpdated
	}
	p.publish(ctx, subject, variantEvent{
		EventID:   uuid.New(),
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		SKU:       variant.SKU,
		Action:    string(action),
		Timestamp: time.Now().UTC(),
	})
}

// ImportCompleted publishes an import.completed summary event
func (p *Publisher) ImportCompleted(ctx context.Context, result *models.CommitResult) {
	p.publish(ctx, SubjectImportDone, importEvent{
		EventID:         uuid.New(),
		ProductsCreated: result.ProductsCreated,
		ProductsUpdated: result.ProductsUpdated,
		VariantsCreated: result.VariantsCreated,
		VariantsUpdated: result.VariantsUpdated,
		ErrorCount:      len(result.Errors),
		ProcessingMs:    result.ProcessingMs,
		Timestamp:       time.Now().UTC(),
	})
}

// publish marshals and sends one event. Event delivery is best effort: a
// failed publish is logged, never surfaced to the import flow.
func (p *Publisher) publish(ctx context.Context, subject string, payload interface{}) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("failed to marshal event")
		return
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}
