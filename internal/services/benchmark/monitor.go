// Package benchmark records model throughput and scene statistics at a fixed
// interval for a bounded time, then asks the worker to stop.
package benchmark

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/services/aggregation"
)

const writeTimeout = 5 * time.Second

// Monitor implements the frame processor's benchmark hook.
type Monitor struct {
	store     *Store
	logger    zerolog.Logger
	exit      func()
	runID     string
	benchName string

	warmup      time.Duration
	duration    time.Duration
	aggregation time.Duration

	global   *alarm.Timer
	interval *alarm.Timer
	seq      int
	exited   bool

	rows chan Row
	done chan struct{}
	once sync.Once
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock.
func WithClock(clock alarm.Clock) Option {
	return func(m *Monitor) {
		m.global = alarm.NewTimer(clock)
		m.interval = alarm.NewTimer(clock)
	}
}

// New starts a run. Rows of a previous run with the same bench name are
// replaced. exit is called once when the run is over.
func New(ctx context.Context, cfg *config.Config, store *Store, exit func(), logger zerolog.Logger, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		store:       store,
		logger:      logger,
		exit:        exit,
		runID:       uuid.NewString(),
		benchName:   BenchName(cfg),
		warmup:      cfg.BenchmarkWarmup,
		duration:    cfg.BenchmarkDuration,
		aggregation: cfg.BenchmarkAggregationTime,
		global:      alarm.NewTimer(nil),
		interval:    alarm.NewTimer(nil),
		rows:        make(chan Row, 16),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := store.BeginRun(ctx, m.runID, m.benchName); err != nil {
		return nil, err
	}

	go m.writer()
	m.global.Start()
	m.interval.Start()

	m.logger.Info().
		Str("run_id", m.runID).
		Str("bench_name", m.benchName).
		Dur("warmup", m.warmup).
		Dur("duration", m.duration).
		Msg("Benchmark started")
	return m, nil
}

// BenchName identifies the model setup under test.
func BenchName(cfg *config.Config) string {
	return cfg.ModelID + " " + string(cfg.ModelLibrary)
}

// MeasurePerformance writes a row every aggregation interval once the warmup
// is over. It reports whether a row was taken so the caller can clear the
// window.
func (m *Monitor) MeasurePerformance(frameIndex int64, agg *aggregation.Aggregator) bool {
	global := m.global.Elapsed()
	switch {
	case global < m.warmup:
		return false
	case m.interval.Elapsed() >= m.aggregation:
		m.seq++
		row := buildRow(m.seq, global, agg.Clone().Snapshot())
		select {
		case m.rows <- row:
		default:
			m.logger.Warn().Int("seq", row.Seq).Msg("Benchmark writer busy, dropping row")
		}
		m.logger.Debug().Int64("frame_index", frameIndex).Int("seq", row.Seq).Msg("Benchmark window closed")
		m.interval.Start()
		return true
	case global > m.duration+m.warmup:
		if !m.exited {
			m.exited = true
			m.logger.Info().Str("run_id", m.runID).Int("rows", m.seq).Msg("Benchmark finished")
			if m.exit != nil {
				m.exit()
			}
		}
		return false
	}
	return false
}

func buildRow(seq int, global time.Duration, s aggregation.Snapshot) Row {
	return Row{
		Seq:             seq,
		TimeS:           int(math.RoundToEven(global.Seconds())),
		ModelFPS:        math.Round(1000/math.Max(s.AvgProcessingMs, 1)*100) / 100,
		ModelTimeMs:     s.AvgProcessingMs,
		MaxPeople:       s.MaxPeople,
		MinPeople:       s.MinPeople,
		AvgPeople:       s.AvgPeople,
		AvgBikes:        s.AvgBikes,
		AvgCars:         s.AvgCars,
		MaxPeopleInZone: s.MaxPeopleInZone,
		MinPeopleInZone: s.MinPeopleInZone,
		AvgPeopleInZone: s.AvgPeopleInZone,
		MaxTimeInZone:   s.MaxTimeInZone,
		MinTimeInZone:   s.MinTimeInZone,
		AvgTimeInZone:   s.AvgTimeInZone,
		SumEntrances:    s.Entrances,
		SumExits:        s.Exits,
	}
}

func (m *Monitor) writer() {
	defer close(m.done)
	for row := range m.rows {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := m.store.Insert(ctx, m.runID, m.benchName, row)
		cancel()
		if err != nil {
			m.logger.Error().Err(err).Int("seq", row.Seq).Msg("Failed to write benchmark row")
			continue
		}
		m.logger.Info().Int("seq", row.Seq).Float64("model_time_ms", row.ModelTimeMs).Msg("Benchmark row written")
	}
}

// Close flushes the pending rows. The store stays open.
func (m *Monitor) Close(ctx context.Context) error {
	m.once.Do(func() { close(m.rows) })
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
