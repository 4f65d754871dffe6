package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DripView/internal/domain/models"
	domrepo "DripView/internal/domain/repository"
	pkgch "DripView/pkg/clickhouse"
	applogger "DripView/pkg/logger"
)

// DefaultBarsTable holds archived daily bars.
const DefaultBarsTable = "daily_bars"

// ClickHouseBarStore implements Storage for the daily bar archive. Rows
// are deduplicated by (symbol, date) keeping the latest fetched_at.
type ClickHouseBarStore struct {
	ch        *pkgch.Client
	table     string
	chunkSize int
	l         *applogger.Logger
}

// NewClickHouseBarStore creates the archive store. chunkSize bounds rows
// per INSERT.
func NewClickHouseBarStore(ch *pkgch.Client, table string, chunkSize int, l *applogger.Logger) *ClickHouseBarStore {
	if table == "" {
		table = DefaultBarsTable
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseBarStore{ch: ch, table: table, chunkSize: chunkSize, l: l.With("bar_store")}
}

func (s *ClickHouseBarStore) schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol     LowCardinality(String),
            date       Date,
            ts         Int64,
            open       Nullable(Float64),
            high       Nullable(Float64),
            low        Nullable(Float64),
            close      Nullable(Float64),
            volume     Nullable(Float64),
            adj_close  Nullable(Float64),
            fetched_at DateTime
        )
        ENGINE = ReplacingMergeTree(fetched_at)
        ORDER BY (symbol, date)`, s.table)}
}

func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, s.schema())
}

func (s *ClickHouseBarStore) StoreBatch(ctx context.Context, bars []models.ArchivedBar) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, ts, open, high, low, close, volume, adj_close, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)

	rows := make([][]any, 0, s.chunkSize)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
			s.l.Error("clickhouse insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(rows)),
				applogger.Error(err),
			)
			return fmt.Errorf("store bars: %w", err)
		}
		rows = rows[:0]
		return nil
	}

	for _, b := range bars {
		if b.Symbol == "" || b.Date == "" {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", b.Date, time.UTC)
		if err != nil {
			continue
		}
		rows = append(rows, []any{
			b.Symbol, day, b.Timestamp,
			b.Open.Ptr(), b.High.Ptr(), b.Low.Ptr(), b.Close.Ptr(), b.Volume.Ptr(), b.AdjClose.Ptr(),
			b.FetchedAt.UTC(),
		})
		if len(rows) == s.chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// LoadBars reads archived bars for symbol in ascending date order. Empty
// bounds are open.
func (s *ClickHouseBarStore) LoadBars(ctx context.Context, symbol, from, to string, limit int) ([]models.ArchivedBar, error) {
	where := []string{"symbol = ?"}
	args := []any{symbol}
	if from != "" {
		where = append(where, "date >= toDate(?)")
		args = append(args, from)
	}
	if to != "" {
		where = append(where, "date <= toDate(?)")
		args = append(args, to)
	}
	q := fmt.Sprintf(`
        SELECT symbol, toString(date), ts, open, high, low, close, volume, adj_close, fetched_at
        FROM %s FINAL
        WHERE %s
        ORDER BY date ASC`, s.table, strings.Join(where, " AND "))
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.ch.DB().QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse load_bars query error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.ArchivedBar, 0, 256)
	for rows.Next() {
		var b models.ArchivedBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.AdjClose, &b.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the pool is owned by the caller.
func (s *ClickHouseBarStore) Close() error { return nil }

var _ domrepo.Storage = (*ClickHouseBarStore)(nil)
