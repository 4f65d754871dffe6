package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"DripView/internal/domain/models"
	"DripView/internal/services/calendar"
	"DripView/pkg/cache"
	applogger "DripView/pkg/logger"
	"DripView/pkg/queue"
)

// RefreshJobType is the queue message type of a symbol refresh.
const RefreshJobType = "refresh_symbol"

// RefreshPayload is the queued refresh request.
type RefreshPayload struct {
	Symbol string `json:"symbol"`
}

// Refresher enqueues one refresh job per configured symbol on a cron
// schedule evaluated in New York time. A short lock keeps several
// instances from enqueueing the same tick twice.
type Refresher struct {
	cron     *cron.Cron
	schedule string
	symbols  []string
	queue    queue.QueueService
	lock     cache.Service
	log      *applogger.Logger
	now      func() time.Time
}

func NewRefresher(schedule string, symbols []string, q queue.QueueService, lock cache.Service, log *applogger.Logger) (*Refresher, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse refresher schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = applogger.NewNop()
	}
	return &Refresher{
		cron:     cron.New(cron.WithLocation(calendar.Location())),
		schedule: schedule,
		symbols:  symbols,
		queue:    q,
		lock:     lock,
		log:      log.With("refresher"),
		now:      time.Now,
	}, nil
}

// Start registers the schedule and starts the cron runner.
func (r *Refresher) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := r.Enqueue(ctx); err != nil {
			r.log.Error("refresh enqueue failed", applogger.Int("enqueued", n), applogger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresher: %w", err)
	}
	r.cron.Start()
	r.log.Info("refresher started",
		applogger.String("schedule", r.schedule),
		applogger.Strings("symbols", r.symbols),
	)
	return nil
}

// Stop waits for a running tick to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue queues every symbol once for the current minute. It returns how
// many jobs were queued.
func (r *Refresher) Enqueue(ctx context.Context) (int, error) {
	if r.lock != nil {
		key := "refresher:tick:" + r.now().UTC().Truncate(time.Minute).Format("200601021504")
		ok, err := r.lock.TryLock(ctx, key, 10*time.Minute)
		if err != nil {
			return 0, fmt.Errorf("refresher lock: %w", err)
		}
		if !ok {
			r.log.Debug("refresh tick already taken")
			return 0, nil
		}
	}

	n := 0
	for _, sym := range r.symbols {
		if err := r.queue.PublishMessage(ctx, RefreshJobType, RefreshPayload{Symbol: sym}); err != nil {
			return n, fmt.Errorf("enqueue %s: %w", sym, err)
		}
		n++
	}
	r.log.Info("refresh jobs enqueued", applogger.Int("count", n))
	return n, nil
}

// RefreshJob loads max-range history for one symbol with the service key,
// warming the response cache and feeding the archive.
type RefreshJob struct {
	*queue.TypedJob[RefreshPayload]
	loader     *HistoryLoader
	serviceKey string
}

func NewRefreshJob(loader *HistoryLoader, serviceKey string) *RefreshJob {
	j := &RefreshJob{loader: loader, serviceKey: serviceKey}
	j.TypedJob = queue.NewTypedJob("symbol_refresh", RefreshJobType, j.refresh)
	return j
}

func (j *RefreshJob) refresh(ctx context.Context, p *RefreshPayload) error {
	sym, err := models.NormalizeTicker(p.Symbol)
	if err != nil {
		return err
	}
	_, err = j.loader.Load(ctx, []string{sym}, models.RangeSpan(models.RangeMax), j.serviceKey, true)
	return err
}

var _ queue.Job = (*RefreshJob)(nil)
