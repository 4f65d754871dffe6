package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DripView/internal/domain/models"
	domrepo "DripView/internal/domain/repository"
	"DripView/internal/services/calendar"
	applogger "DripView/pkg/logger"
)

// BatchProc is the downstream the pipeline flushes into.
type BatchProc interface {
	ProcessBatch(ctx context.Context, bars []models.ArchivedBar) error
}

// ArchivePipeline sits between request handling and the archive backend.
// It accepts bars without blocking, skips symbols whose newest bar was
// already archived, and flushes in batches on size or interval.
type ArchivePipeline struct {
	proc       BatchProc
	metrics    domrepo.Metrics
	log        *applogger.Logger
	bufSize    int
	batchSize  int
	flushEvery time.Duration
	maxRetries int
	now        func() time.Time

	bufCh  chan []models.ArchivedBar
	stopCh chan struct{}
	doneCh chan struct{}

	mu       sync.Mutex
	started  bool
	lastSeen map[string]int64 // newest archived bar timestamp per symbol
}

type PipelineOption func(*ArchivePipeline)

// WithBufferSize sets how many offers can wait for the flusher.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the flush size and interval.
func WithBatch(size int, every time.Duration) PipelineOption {
	return func(p *ArchivePipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if every > 0 {
			p.flushEvery = every
		}
	}
}

// WithMaxRetries sets flush attempts before a batch is dropped.
func WithMaxRetries(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithPipelineClock replaces time.Now for FetchedAt stamps.
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *ArchivePipeline) { p.now = now }
}

// NewArchivePipeline creates a new pipeline.
func NewArchivePipeline(proc BatchProc, metrics domrepo.Metrics, log *applogger.Logger, opts ...PipelineOption) *ArchivePipeline {
	if log == nil {
		log = applogger.NewNop()
	}
	p := &ArchivePipeline{
		proc:       proc,
		metrics:    metrics,
		log:        log.With("archive_pipeline"),
		bufSize:    64,
		batchSize:  1000,
		flushEvery: 2 * time.Second,
		maxRetries: 3,
		now:        time.Now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		lastSeen:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan []models.ArchivedBar, p.bufSize)
	return p
}

// Start launches background flushing.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop flushes what is pending and stops the flusher.
func (p *ArchivePipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("archive pipeline stop: %w", ctx.Err())
	}
}

// Offer queues bars for archival. It never blocks and reports whether
// anything was queued.
func (p *ArchivePipeline) Offer(symbol string, bars []models.DailyBar) bool {
	rows := p.convert(symbol, bars)
	if len(rows) == 0 {
		return false
	}
	newest := rows[len(rows)-1].Timestamp
	if !p.allow(symbol, newest) {
		return false
	}

	select {
	case p.bufCh <- rows:
		p.metrics.RecordLatency("archive_buffer_depth", float64(len(p.bufCh)))
		return true
	default:
		p.forget(symbol, newest)
		p.metrics.RecordError("archive_buffer_full")
		return false
	}
}

func (p *ArchivePipeline) convert(symbol string, bars []models.DailyBar) []models.ArchivedBar {
	if symbol == "" {
		return nil
	}
	fetched := p.now().UTC().Truncate(time.Second)
	out := make([]models.ArchivedBar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp <= 0 {
			continue
		}
		out = append(out, models.ArchivedBar{
			Symbol:    symbol,
			Date:      calendar.DateKey(b.Timestamp),
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			AdjClose:  b.AdjClose,
			FetchedAt: fetched,
		})
	}
	return out
}

func (p *ArchivePipeline) allow(symbol string, newest int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastSeen[symbol] >= newest {
		return false
	}
	p.lastSeen[symbol] = newest
	return true
}

func (p *ArchivePipeline) forget(symbol string, newest int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastSeen[symbol] == newest {
		delete(p.lastSeen, symbol)
	}
}

func (p *ArchivePipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	pending := make([]models.ArchivedBar, 0, p.batchSize)
	flush := func() {
		for len(pending) > 0 {
			n := min(len(pending), p.batchSize)
			p.flush(ctx, pending[:n])
			pending = pending[n:]
		}
		pending = make([]models.ArchivedBar, 0, p.batchSize)
	}

	for {
		select {
		case rows := <-p.bufCh:
			pending = append(pending, rows...)
			if len(pending) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-p.stopCh:
		drain:
			for {
				select {
				case rows := <-p.bufCh:
					pending = append(pending, rows...)
				default:
					break drain
				}
			}
			flush()
			return
		}
	}
}

// flush hands one batch downstream with exponential backoff between
// attempts. A batch that keeps failing is dropped.
func (p *ArchivePipeline) flush(ctx context.Context, batch []models.ArchivedBar) {
	start := time.Now()
	backoff := 50 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := p.proc.ProcessBatch(ctx, batch)
		if err == nil {
			p.metrics.RecordLatency("archive_flush", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("archive_flush")
		if attempt >= p.maxRetries || ctx.Err() != nil {
			p.log.Error("archive batch dropped",
				applogger.Int("rows", len(batch)),
				applogger.Int("attempts", attempt),
				applogger.Error(err),
			)
			p.metrics.RecordError("archive_drop")
			return
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

var _ domrepo.Archiver = (*ArchivePipeline)(nil)
