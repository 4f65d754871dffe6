package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DripView/internal/domain/models"
	domrepo "DripView/internal/domain/repository"
	pkgkafka "DripView/pkg/kafka"
)

// BarsHandler consumes archived bar messages and writes them to storage.
type BarsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewBarsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *BarsHandler {
	return &BarsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *BarsHandler) Topic() string { return h.topic }

// Handle stores one models.ArchivedBar message. Malformed messages are
// rejected so the consumer can dead-letter them.
func (h *BarsHandler) Handle(ctx context.Context, b []byte) error {
	var bar models.ArchivedBar
	if err := json.Unmarshal(b, &bar); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode bar: %w", err)
	}
	if bar.Symbol == "" || bar.Date == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("bar missing symbol or date")
	}
	if !bar.FetchedAt.IsZero() {
		h.metrics.RecordLatency("archive_e2e", time.Since(bar.FetchedAt).Seconds())
	}

	start := time.Now()
	err := h.storage.StoreBatch(ctx, []models.ArchivedBar{bar})
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordArchived("clickhouse", bar.Symbol, 1)
	return nil
}

var _ pkgkafka.MessageHandler = (*BarsHandler)(nil)
