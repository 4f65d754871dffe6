package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
	err     error
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return p.err
}

func TestLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&Config{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	log.With("drip").Info("computed",
		String("symbol", "AAPL"),
		Int("points", 3),
		Float64("base", 1000),
		Duration("took", 1500*time.Millisecond),
		Strings("symbols", []string{"A", "B"}),
	)
	log.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "computed", entry["message"])
	assert.Equal(t, "drip", entry["component"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, float64(1500), entry["took"])
	assert.Equal(t, "A,B", entry["symbols"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCollectorAggregatesErrors(t *testing.T) {
	pub := &capturePublisher{}
	log := NewNop()
	log.AddCollector(&CollectionConfig{
		Service:        "dripview",
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "logs",
		Publisher:      pub,
	})
	defer log.RemoveCollector()

	for i := 0; i < 3; i++ {
		log.Error("provider failed", String("symbol", "AAPL"))
	}
	log.Error("provider failed", String("symbol", "MSFT"))
	log.Warn("not collected")
	log.sink.collector.Load().Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)
	batch := pub.batches[0]
	require.Len(t, batch, 2)
	counts := map[interface{}]int{}
	for _, e := range batch {
		assert.Equal(t, "dripview", e.Service)
		counts[e.Fields["symbol"]] = e.Count
	}
	assert.Equal(t, 3, counts["AAPL"])
	assert.Equal(t, 1, counts["MSFT"])
}

func TestCollectorReportsPublishErrors(t *testing.T) {
	var got error
	c := NewLogCollector(&CollectionConfig{
		TimeInterval: time.Hour,
		Publisher:    &capturePublisher{err: errors.New("broker down")},
		OnError:      func(err error) { got = err },
	})
	c.AddLog("error", "boom", nil, "x.go:1")
	c.Flush()
	c.Close()
	assert.EqualError(t, got, "broker down")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "abcd...wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestChildLoggerSeesLateCollector(t *testing.T) {
	pub := &capturePublisher{}
	root := NewNop()
	child := root.With("queue")

	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})
	defer root.RemoveCollector()

	child.Error("job failed")
	root.sink.collector.Load().Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "queue", pub.batches[0][0].Fields["component"])
}
