// Package frameprocessing runs detection and the scenario processors on
// incoming frames and publishes the annotated result.
package frameprocessing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/services/aggregation"
	"fvgvision-worker-go/internal/services/detection"
	"fvgvision-worker-go/internal/services/frameprocessing/solutions"
	"fvgvision-worker-go/internal/stream"
)

// ModelInput prepares the model image from a source frame.
type ModelInput interface {
	Encode(frame *models.Frame, width, height int) ([]byte, error)
}

// Drawer decorates a frame in place.
type Drawer interface {
	Init(width, height int)
	Draw(frame *models.Frame, state *DrawState) error
}

// Benchmark consumes the aggregated window in benchmark mode. It returns
// true when the window was recorded and should be cleared.
type Benchmark interface {
	MeasurePerformance(index int64, agg *aggregation.Aggregator) bool
}

// Notifier forwards alarms and the aggregated window. HandleNotification
// returns true when the window was sent and should be cleared.
type Notifier interface {
	HandleAlarms(hand, zone alarm.Status)
	HandleNotification(start time.Time, agg *aggregation.Aggregator) bool
}

// DrawState is everything the overlay needs to decorate one frame.
type DrawState struct {
	Objects []*models.DetectedObject

	Zone       *solutions.Zone
	Parking    *solutions.Parking
	Door       *solutions.Door
	ZoneStatus alarm.Status
	HandStatus alarm.Status
	InZone     solutions.DwellResult
	DoorCounts solutions.DoorResult
	Hands      solutions.HandResult

	SourceWidth    int
	SourceHeight   int
	ModelWidth     int
	ModelHeight    int
	SourceInterval time.Duration
	AvgAcquisition float64
	AvgProcessing  float64
	Now            time.Time
}

// Dependencies are the collaborators of a Processor. Benchmark and Notifier
// are optional; a nil Drawer leaves frames undecorated.
type Dependencies struct {
	Detector  detection.Detector
	Input     ModelInput
	Drawer    Drawer
	Buffer    *stream.TripleBuffer
	Benchmark Benchmark
	Notifier  Notifier
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock replaces the wall clock used for timers and alarms.
func WithClock(clock alarm.Clock) Option {
	return func(p *Processor) { p.clock = clock }
}

type parameters struct {
	width    int
	height   int
	interval time.Duration
	ratioW   float64
	ratioH   float64
}

// Processor is the frame observer that runs analytics. At most one frame is
// processed at a time; frames arriving while busy are dropped.
type Processor struct {
	cfg       *config.Config
	detector  detection.Detector
	input     ModelInput
	drawer    Drawer
	buffer    *stream.TripleBuffer
	benchmark Benchmark
	notifier  Notifier
	logger    zerolog.Logger
	clock     alarm.Clock

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	paramsMu sync.Mutex
	params   parameters

	zone    *solutions.Zone
	parking *solutions.Parking
	door    *solutions.Door
	hand    *solutions.RaisedHand

	// owned by the processing goroutine
	agg         *aggregation.Aggregator
	objects     []*models.DetectedObject
	mask        []bool
	maskCounter int
	windowStart time.Time
	timer       *alarm.Timer
	classes     []int
	tracking    bool

	statsMu sync.RWMutex
	stats   aggregation.Snapshot
}

var _ stream.Observer = (*Processor)(nil)

// New builds a processor and the scenario processors enabled in cfg.
func New(cfg *config.Config, deps Dependencies, logger zerolog.Logger, opts ...Option) (*Processor, error) {
	if deps.Detector == nil {
		return nil, fmt.Errorf("frame processor: detector is required")
	}
	if deps.Buffer == nil {
		return nil, fmt.Errorf("frame processor: buffer is required")
	}

	p := &Processor{
		cfg:       cfg,
		detector:  deps.Detector,
		input:     deps.Input,
		drawer:    deps.Drawer,
		buffer:    deps.Buffer,
		benchmark: deps.Benchmark,
		notifier:  deps.Notifier,
		logger:    logger,
		clock:     time.Now,
		sem:       semaphore.NewWeighted(1),
		agg:       aggregation.New(),
		mask:      cfg.SkipFramesMask,
		classes:   cfg.ModelCategories.IDs(),
		tracking:  cfg.TrackingRequired(),
		params:    parameters{ratioW: 1, ratioH: 1},
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.mask) == 0 {
		p.mask = []bool{true}
	}
	if p.benchmark != nil && p.notifier != nil {
		return nil, fmt.Errorf("frame processor: benchmark and notification are mutually exclusive")
	}

	sopts := []solutions.Option{solutions.WithClock(p.clock)}
	var err error
	if cfg.Zone.Enabled {
		if p.zone, err = solutions.NewZone(&cfg.Zone, sopts...); err != nil {
			return nil, fmt.Errorf("zone scenario: %w", err)
		}
	}
	if cfg.Parking.Enabled {
		if p.parking, err = solutions.NewParking(&cfg.Parking, sopts...); err != nil {
			return nil, fmt.Errorf("parking scenario: %w", err)
		}
	}
	if cfg.Door.Enabled {
		p.door = solutions.NewDoor(&cfg.Door)
	}
	if cfg.RaisedHandEnabled {
		p.hand = solutions.NewRaisedHand(sopts...)
	}

	p.timer = alarm.NewTimer(p.clock)
	p.windowStart = p.clock()
	return p, nil
}

// OnParameters records the source geometry and prepares the drawer.
func (p *Processor) OnParameters(width, height int, interval time.Duration) {
	params := parameters{width: width, height: height, interval: interval, ratioW: 1, ratioH: 1}
	if p.cfg.ModelWidth > 0 && p.cfg.ModelHeight > 0 {
		params.ratioW = float64(width) / float64(p.cfg.ModelWidth)
		params.ratioH = float64(height) / float64(p.cfg.ModelHeight)
	}

	p.paramsMu.Lock()
	p.params = params
	p.paramsMu.Unlock()

	if p.drawer != nil {
		p.drawer.Init(width, height)
	}
	p.logger.Info().
		Int("width", width).
		Int("height", height).
		Dur("interval", interval).
		Float64("ratio_w", params.ratioW).
		Float64("ratio_h", params.ratioH).
		Msg("Video parameters received")
}

// OnFrame schedules the frame for processing unless a frame is already in
// flight.
func (p *Processor) OnFrame(index int64, frame *models.Frame, acquisition time.Duration) {
	if frame == nil {
		return
	}
	if !p.sem.TryAcquire(1) {
		p.logger.Debug().Int64("frame_id", index).Msg("Processor busy, frame dropped")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		p.process(index, frame, acquisition)
	}()
}

// Stats returns the statistics published after the last processed frame.
func (p *Processor) Stats() aggregation.Snapshot {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

// Shutdown waits for the in-flight frame or for ctx to expire.
func (p *Processor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("frame processor shutdown: %w", ctx.Err())
	}
}

func (p *Processor) process(index int64, frame *models.Frame, acquisition time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Int64("frame_id", index).Msg("Recovered from panic while processing frame")
		}
	}()

	if index == models.NoConnectionFrameIndex {
		p.buffer.SetNewFrame(index, frame)
		p.buffer.Swap()
		return
	}

	p.paramsMu.Lock()
	params := p.params
	p.paramsMu.Unlock()
	p.agg.SourceFrameInterval = params.interval

	p.timer.Start()

	if p.maskOpen() {
		p.detect(index, frame, params)
	}
	p.maskCounter = (p.maskCounter + 1) % len(p.mask)

	for _, obj := range p.objects {
		obj.ResetFlags()
	}
	p.agg.MeasureObjects(p.objects)

	state := p.evaluate(index)

	if p.drawer != nil {
		state.Objects = p.objects
		state.SourceWidth, state.SourceHeight = params.width, params.height
		state.ModelWidth, state.ModelHeight = p.cfg.ModelWidth, p.cfg.ModelHeight
		state.SourceInterval = params.interval
		state.AvgAcquisition = p.agg.Acquisition.Average()
		state.AvgProcessing = p.agg.Processing.Average()
		state.Now = p.clock()
		if err := p.drawer.Draw(frame, state); err != nil {
			p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Failed to draw overlay")
		}
	}

	p.buffer.SetNewFrame(index, frame)
	p.buffer.Swap()

	p.flush(index, state.HandStatus, state.ZoneStatus)

	elapsed := p.timer.Stop()
	p.agg.MeasureAcquisition(alarm.Milliseconds(acquisition))
	p.agg.MeasureProcessing(alarm.Milliseconds(elapsed))
	p.publishStats()

	p.logger.Debug().
		Int64("frame_id", index).
		Int("objects", len(p.objects)).
		Dur("processing", elapsed).
		Msg("Frame processed")
}

func (p *Processor) maskOpen() bool {
	return p.maskCounter < len(p.mask) && p.mask[p.maskCounter]
}

// detect replaces the current object list. On failure the previous list
// is kept.
func (p *Processor) detect(index int64, frame *models.Frame, params parameters) {
	req := detection.Request{
		Width:      p.cfg.ModelWidth,
		Height:     p.cfg.ModelHeight,
		Classes:    p.classes,
		Tracking:   p.tracking,
		Pose:       p.cfg.ModelPose,
		Confidence: p.cfg.ModelConfidence,
		IOU:        p.cfg.ModelIOU,
	}
	if p.input != nil {
		img, err := p.input.Encode(frame, p.cfg.ModelWidth, p.cfg.ModelHeight)
		if err != nil {
			p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Failed to prepare model input")
			return
		}
		req.Image = img
	}

	ctx := context.Background()
	if p.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ModelTimeout)
		defer cancel()
	}

	objects, err := p.detector.Detect(ctx, req)
	if err != nil {
		p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Detection failed, reusing previous objects")
		return
	}
	for _, obj := range objects {
		obj.Scale(params.ratioW, params.ratioH)
	}
	p.objects = objects
}

// evaluate runs the scenarios in order: zone, parking, door, raised hand.
// Parking shares the zone measures and overrides its status.
func (p *Processor) evaluate(index int64) *DrawState {
	state := &DrawState{
		Zone:       p.zone,
		Parking:    p.parking,
		Door:       p.door,
		ZoneStatus: alarm.Normal,
		HandStatus: alarm.Normal,
	}

	if p.zone != nil {
		res, err := p.zone.Evaluate(p.objects)
		if err != nil {
			p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Zone evaluation failed")
		} else {
			state.ZoneStatus = res.Status
			state.InZone = res
			p.agg.MeasureInZone(res.Count, res.MinTime, res.MaxTime, res.AvgTime)
		}
	}

	if p.parking != nil {
		res, err := p.parking.Evaluate(p.objects)
		if err != nil {
			p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Parking evaluation failed")
		} else {
			state.ZoneStatus = res.Status
			state.InZone = res
			p.agg.MeasureInZone(res.Count, res.MinTime, res.MaxTime, res.AvgTime)
		}
	}

	if p.door != nil {
		res, err := p.door.Evaluate(p.objects)
		if err != nil {
			p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Door evaluation failed")
		} else {
			state.DoorCounts = res
			p.agg.MeasureDoor(res.Entering, res.Leaving)
		}
	}

	if p.hand != nil {
		res, err := p.hand.Evaluate(p.objects)
		if err != nil {
			p.logger.Warn().Err(err).Int64("frame_id", index).Msg("Raised hand evaluation failed")
		} else {
			state.HandStatus = res.Status
			state.Hands = res
			p.agg.MeasureRaisedHands(res.Count)
		}
	}
	return state
}

func (p *Processor) flush(index int64, hand, zone alarm.Status) {
	switch {
	case p.benchmark != nil:
		if p.benchmark.MeasurePerformance(index, p.agg) {
			p.windowStart = p.clock()
			p.agg.Clear()
		}
	case p.notifier != nil:
		p.notifier.HandleAlarms(hand, zone)
		if p.notifier.HandleNotification(p.windowStart, p.agg) {
			p.windowStart = p.clock()
			p.agg.Clear()
		}
	}
}

func (p *Processor) publishStats() {
	snap := p.agg.Snapshot()
	p.statsMu.Lock()
	p.stats = snap
	p.statsMu.Unlock()
}
