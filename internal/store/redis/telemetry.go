package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/vertx/internal/domain"
)

// DefaultHistory is the number of samples kept per metric when none is set.
const DefaultHistory = 1000

// ErrMetricNotFound is returned when a metric was never recorded.
var ErrMetricNotFound = errors.New("metric not found")

// TelemetryStore keeps the latest value and a capped history of every metric.
type TelemetryStore struct {
	client  redis.Cmdable
	history int
	now     func() time.Time
}

// NewTelemetryStore creates a store keeping history samples per metric.
func NewTelemetryStore(client redis.Cmdable, history int) *TelemetryStore {
	if history <= 0 {
		history = DefaultHistory
	}
	return &TelemetryStore{
		client:  client,
		history: history,
		now:     time.Now,
	}
}

// Record stores value as the latest sample of name and appends it to the
// history in a single transaction.
func (s *TelemetryStore) Record(ctx context.Context, name, value string) error {
	sample := encodeSample(s.now(), value)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, MetricKey(name), sample, 0)
		pipe.LPush(ctx, HistoryKey(name), sample)
		pipe.LTrim(ctx, HistoryKey(name), 0, int64(s.history-1))
		pipe.SAdd(ctx, AllMetricsKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record metric %s: %w", name, err)
	}
	return nil
}

// Latest returns the latest reading of name.
func (s *TelemetryStore) Latest(ctx context.Context, name string) (domain.Reading, error) {
	raw, err := s.client.Get(ctx, MetricKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Reading{}, fmt.Errorf("%w: %s", ErrMetricNotFound, name)
		}
		return domain.Reading{}, fmt.Errorf("failed to get metric %s: %w", name, err)
	}

	sample, err := decodeSample(raw)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("metric %s: %w", name, err)
	}
	return domain.Reading{Name: name, Value: sample.Value, RecordedAt: sample.RecordedAt}, nil
}

// History returns up to limit samples of name, newest first.
// Corrupted entries are skipped.
func (s *TelemetryStore) History(ctx context.Context, name string, limit int) ([]domain.Sample, error) {
	if limit <= 0 || limit > s.history {
		limit = s.history
	}

	raws, err := s.client.LRange(ctx, HistoryKey(name), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", name, err)
	}

	samples := make([]domain.Sample, 0, len(raws))
	for _, raw := range raws {
		sample, err := decodeSample(raw)
		if err != nil {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// All returns the latest reading of every known metric.
func (s *TelemetryStore) All(ctx context.Context) ([]domain.Reading, error) {
	names, err := s.client.SMembers(ctx, AllMetricsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}

	readings := make([]domain.Reading, 0, len(names))
	for _, name := range names {
		r, err := s.Latest(ctx, name)
		if err != nil {
			// Skip metrics that couldn't be retrieved
			continue
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// Ping reports whether the server answers.
func (s *TelemetryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// samples are stored as "<unix-ms>|<value>"
func encodeSample(at time.Time, value string) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "|" + value
}

func decodeSample(raw string) (domain.Sample, error) {
	ms, value, ok := strings.Cut(raw, "|")
	if !ok {
		return domain.Sample{}, fmt.Errorf("invalid sample %q", raw)
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("invalid sample timestamp %q: %w", ms, err)
	}
	return domain.Sample{Value: value, RecordedAt: time.UnixMilli(n)}, nil
}
