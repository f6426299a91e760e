package frameprocessing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/services/aggregation"
	"fvgvision-worker-go/internal/services/detection"
	"fvgvision-worker-go/internal/stream"
)

type fakeDetector struct {
	mu         sync.Mutex
	calls      int
	block      chan struct{}
	err        error
	newObjects func() []*models.DetectedObject
}

func (d *fakeDetector) Detect(_ context.Context, _ detection.Request) ([]*models.DetectedObject, error) {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if d.newObjects == nil {
		return nil, nil
	}
	return d.newObjects(), nil
}

func (d *fakeDetector) Close() error { return nil }

func (d *fakeDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeDrawer struct {
	width, height int
	states []DrawState
}

func (d *fakeDrawer) Init(width, height int) { d.width, d.height = width, height }

func (d *fakeDrawer) Draw(_ *models.Frame, state *DrawState) error {
	d.states = append(d.states, *state)
	return nil
}

type fakeNotifier struct {
	sizes  []int
	alarms int
	sendAt int
}

func (n *fakeNotifier) HandleAlarms(_, _ alarm.Status) { n.alarms++ }

func (n *fakeNotifier) HandleNotification(_ time.Time, agg *aggregation.Aggregator) bool {
	n.sizes = append(n.sizes, agg.AggregationSize())
	return len(n.sizes) == n.sendAt
}

type fakeBenchmark struct{ calls int }

func (b *fakeBenchmark) MeasurePerformance(_ int64, _ *aggregation.Aggregator) bool {
	b.calls++
	return false
}

func person(id, x1, y1, x2, y2 int) *models.DetectedObject {
	return &models.DetectedObject{
		ID:     id,
		Class:  models.CategoryPerson,
		Label:  "person",
		Box:    models.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Center: models.CenterBox{X: (x1 + x2) / 2, Y: (y1 + y2) / 2, W: x2 - x1, H: y2 - y1},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		ModelWidth:      640,
		ModelHeight:     384,
		ModelCategories: models.NewCategorySet(models.AllCategories()...),
		SkipFramesMask:  []bool{true},
	}
}

func newProcessor(t *testing.T, cfg *config.Config, deps Dependencies) *Processor {
	t.Helper()
	if deps.Buffer == nil {
		deps.Buffer = stream.NewTripleBuffer()
	}
	p, err := New(cfg, deps, zerolog.Nop())
	require.NoError(t, err)
	return p
}

// run feeds frames one at a time, waiting for each to finish.
func run(t *testing.T, p *Processor, indices ...int64) {
	t.Helper()
	for _, i := range indices {
		p.OnFrame(i, models.NewFrame(4, 4), 40*time.Millisecond)
		require.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(testConfig(), Dependencies{Buffer: stream.NewTripleBuffer()}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(testConfig(), Dependencies{Detector: detection.Passthrough{}}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(testConfig(), Dependencies{
		Detector:  detection.Passthrough{},
		Buffer:    stream.NewTripleBuffer(),
		Benchmark: &fakeBenchmark{},
		Notifier:  &fakeNotifier{},
	}, zerolog.Nop())
	assert.Error(t, err)
}

func TestProcessorDropsFrameWhileBusy(t *testing.T) {
	det := &fakeDetector{block: make(chan struct{})}
	p := newProcessor(t, testConfig(), Dependencies{Detector: det})

	p.OnFrame(1, models.NewFrame(4, 4), 0)
	p.OnFrame(2, models.NewFrame(4, 4), 0)
	p.OnFrame(3, models.NewFrame(4, 4), 0)
	close(det.block)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, 1, det.Calls())
	assert.Equal(t, 1, p.Stats().Frames)
}

func TestProcessorIgnoresNilFrame(t *testing.T) {
	det := &fakeDetector{}
	p := newProcessor(t, testConfig(), Dependencies{Detector: det})

	p.OnFrame(1, nil, 0)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Zero(t, det.Calls())
}

func TestProcessorNoConnectionFramePassthrough(t *testing.T) {
	det := &fakeDetector{}
	buf := stream.NewTripleBuffer()
	drawer := &fakeDrawer{}
	p := newProcessor(t, testConfig(), Dependencies{Detector: det, Buffer: buf, Drawer: drawer})

	frame := models.NewFrame(4, 4)
	p.OnFrame(models.NoConnectionFrameIndex, frame, 0)
	require.NoError(t, p.Shutdown(context.Background()))

	id, ready := buf.ReadyFrame()
	assert.Equal(t, models.NoConnectionFrameIndex, id)
	assert.Same(t, frame, ready)
	assert.Zero(t, det.Calls())
	assert.Empty(t, drawer.states)
	assert.Zero(t, p.Stats().Frames)
}

func TestProcessorPublishesFrame(t *testing.T) {
	buf := stream.NewTripleBuffer()
	p := newProcessor(t, testConfig(), Dependencies{Detector: detection.Passthrough{}, Buffer: buf})

	run(t, p, 7)

	id, frame := buf.ReadyFrame()
	assert.Equal(t, int64(7), id)
	assert.NotNil(t, frame)
}

func TestProcessorSkipMaskReusesObjects(t *testing.T) {
	cfg := testConfig()
	cfg.SkipFramesMask = []bool{true, false, false}
	det := &fakeDetector{newObjects: func() []*models.DetectedObject {
		return []*models.DetectedObject{person(1, 0, 0, 10, 10), person(2, 20, 20, 30, 30)}
	}}
	p := newProcessor(t, cfg, Dependencies{Detector: det})

	run(t, p, 1, 2, 3, 4, 5, 6)

	assert.Equal(t, 2, det.Calls())
	stats := p.Stats()
	assert.Equal(t, 6, stats.Frames)
	assert.Equal(t, 2, stats.MinPeople, "skipped frames reuse the previous detections")
}

func TestProcessorKeepsObjectsOnDetectionError(t *testing.T) {
	det := &fakeDetector{newObjects: func() []*models.DetectedObject {
		return []*models.DetectedObject{person(1, 0, 0, 10, 10)}
	}}
	drawer := &fakeDrawer{}
	p := newProcessor(t, testConfig(), Dependencies{Detector: det, Drawer: drawer})

	run(t, p, 1)
	det.mu.Lock()
	det.err = errors.New("model down")
	det.mu.Unlock()
	run(t, p, 2)

	require.Len(t, drawer.states, 2)
	assert.Len(t, drawer.states[1].Objects, 1)
}

func TestProcessorScalesBoxesToSource(t *testing.T) {
	det := &fakeDetector{newObjects: func() []*models.DetectedObject {
		return []*models.DetectedObject{person(1, 10, 20, 30, 40)}
	}}
	drawer := &fakeDrawer{}
	p := newProcessor(t, testConfig(), Dependencies{Detector: det, Drawer: drawer})

	p.OnParameters(1280, 768, 40*time.Millisecond)
	run(t, p, 1)

	assert.Equal(t, 1280, drawer.width)
	require.Len(t, drawer.states, 1)
	state := drawer.states[0]
	require.Len(t, state.Objects, 1)
	assert.Equal(t, models.Box{X1: 20, Y1: 40, X2: 60, Y2: 80}, state.Objects[0].Box)
	assert.Equal(t, 1280, state.SourceWidth)
	assert.Equal(t, 640, state.ModelWidth)
	assert.Equal(t, 40.0, p.Stats().SourceFrameIntervalMs)
}

func TestProcessorParkingOverridesZone(t *testing.T) {
	cfg := testConfig()
	people := models.NewCategorySet(models.CategoryPerson)
	cfg.Zone = config.ZoneScenario{
		Enabled:     true,
		Polygon:     geometry.Polygon{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		Categories:  people,
		CoolDown:    time.Second,
		TimeLimit:   time.Second,
		DangerLimit: 5,
	}
	cfg.Parking = config.ParkingScenario{
		Enabled:     true,
		Polygons:    []geometry.Polygon{{{X: 500, Y: 500}, {X: 600, Y: 500}, {X: 600, Y: 600}, {X: 500, Y: 600}}},
		Categories:  people,
		CoolDown:    time.Second,
		TimeLimit:   time.Second,
		DangerLimit: 5,
	}
	det := &fakeDetector{newObjects: func() []*models.DetectedObject {
		return []*models.DetectedObject{person(1, 10, 10, 20, 20)}
	}}
	drawer := &fakeDrawer{}
	p := newProcessor(t, cfg, Dependencies{Detector: det, Drawer: drawer})

	run(t, p, 1)

	require.Len(t, drawer.states, 1)
	state := drawer.states[0]
	assert.NotNil(t, state.Zone)
	assert.NotNil(t, state.Parking)
	assert.Nil(t, state.Door)
	assert.Zero(t, state.InZone.Count, "parking result replaces the zone result")
	assert.False(t, state.Objects[0].InZone)

	stats := p.Stats()
	assert.Equal(t, 1, stats.MaxPeopleInZone)
	assert.Equal(t, 0, stats.MinPeopleInZone)
}

func TestProcessorNotificationClearsWindow(t *testing.T) {
	notifier := &fakeNotifier{sendAt: 3}
	p := newProcessor(t, testConfig(), Dependencies{Detector: detection.Passthrough{}, Notifier: notifier})

	run(t, p, 1, 2, 3, 4)

	assert.Equal(t, []int{0, 1, 2, 1}, notifier.sizes)
	assert.Equal(t, 4, notifier.alarms)
	assert.Equal(t, 2, p.Stats().Frames)
}

func TestProcessorBenchmarkFlush(t *testing.T) {
	bench := &fakeBenchmark{}
	p := newProcessor(t, testConfig(), Dependencies{Detector: detection.Passthrough{}, Benchmark: bench})

	run(t, p, 1, 2)
	assert.Equal(t, 2, bench.calls)
}

func TestProcessorShutdownTimeout(t *testing.T) {
	det := &fakeDetector{block: make(chan struct{})}
	p := newProcessor(t, testConfig(), Dependencies{Detector: det})
	defer close(det.block)

	p.OnFrame(1, models.NewFrame(4, 4), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}
