package usecase

import (
	"context"
	"fmt"
	"time"

	"DripView/internal/domain/models"
	drepo "DripView/internal/domain/repository"
	"DripView/pkg/config"
)

// ArchiveProcessor routes archived bars to the configured backend.
type ArchiveProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewArchiveProcessor creates a processor. Only the dependency of the
// chosen backend needs to be non-nil.
func NewArchiveProcessor(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *ArchiveProcessor {
	return &ArchiveProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// ProcessBatch writes bars to Kafka or ClickHouse.
func (p *ArchiveProcessor) ProcessBatch(ctx context.Context, bars []models.ArchivedBar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case config.BackendKafka:
		if p.pub == nil {
			return fmt.Errorf("kafka backend without publisher")
		}
		err = p.pub.PublishBars(ctx, bars)
	case config.BackendClickHouse:
		if p.store == nil {
			return fmt.Errorf("clickhouse backend without storage")
		}
		err = p.store.StoreBatch(ctx, bars)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("archive_" + p.backend)
		return fmt.Errorf("archive batch: %w", err)
	}

	for sym, n := range countBySymbol(bars) {
		p.metrics.RecordArchived(p.backend, sym, n)
	}
	p.metrics.RecordLatency("archive_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *ArchiveProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

func countBySymbol(bars []models.ArchivedBar) map[string]int {
	m := make(map[string]int)
	for _, b := range bars {
		m[b.Symbol]++
	}
	return m
}
