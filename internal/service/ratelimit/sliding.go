package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"DripView/pkg/http/middleware"
)

// SlidingWindow limits calls per identity and route with a Redis sorted
// set of request timestamps. It is shared by every replica.
type SlidingWindow struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewSlidingWindow(client redis.UniversalClient, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{client: client, limit: limit, window: window, now: time.Now}
}

// WithClock replaces time.Now. Tests only.
func (s *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	s.now = now
	return s
}

func (s *SlidingWindow) key(route, identity string) string {
	return fmt.Sprintf("rl:%s:%s:%d", route, identity, int64(s.window.Seconds()))
}

// Check implements middleware.RateChecker.
func (s *SlidingWindow) Check(ctx context.Context, route, identity string) (middleware.RateDecision, error) {
	key := s.key(route, identity)
	nowMs := s.now().UnixMilli()
	windowMs := s.window.Milliseconds()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(nowMs-windowMs, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return middleware.RateDecision{}, fmt.Errorf("rate limit count: %w", err)
	}

	if card.Val() >= int64(s.limit) {
		oldest, err := s.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err != nil {
			return middleware.RateDecision{}, fmt.Errorf("rate limit oldest: %w", err)
		}
		oldestMs := nowMs
		if len(oldest) > 0 {
			oldestMs = oldestOf(oldest[0], nowMs)
		}
		secs := math.Max(1, math.Ceil(float64(oldestMs+windowMs-nowMs)/1000))
		return middleware.RateDecision{RetryAfter: time.Duration(secs) * time.Second}, nil
	}

	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString()[:8])
	pipe = s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return middleware.RateDecision{}, fmt.Errorf("rate limit record: %w", err)
	}
	return middleware.RateDecision{Allowed: true}, nil
}

// oldestOf reads the entry time from the member prefix, falling back to
// the score.
func oldestOf(z redis.Z, fallback int64) int64 {
	if m, ok := z.Member.(string); ok {
		if i := strings.IndexByte(m, '-'); i > 0 {
			if ms, err := strconv.ParseInt(m[:i], 10, 64); err == nil {
				return ms
			}
		}
	}
	if z.Score > 0 {
		return int64(z.Score)
	}
	return fallback
}
