package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fvgvision-worker-go/internal/api"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/helpers"
	"fvgvision-worker-go/internal/logging"
	"fvgvision-worker-go/internal/services/benchmark"
	"fvgvision-worker-go/internal/services/detection"
	"fvgvision-worker-go/internal/services/frameprocessing"
	"fvgvision-worker-go/internal/services/frameprocessing/overlay"
	"fvgvision-worker-go/internal/services/messaging"
	"fvgvision-worker-go/internal/services/notification"
	"fvgvision-worker-go/internal/services/publisher"
	"fvgvision-worker-go/internal/services/streamcapture"
	"fvgvision-worker-go/internal/services/streamcapture/opencv"
	"fvgvision-worker-go/internal/stream"
)

// Size of the spinner shown before the first frame.
const (
	loadingWidth  = 800
	loadingHeight = 600
)

// Worker owns the single camera pipeline: reader -> processor -> outputs.
type Worker struct {
	cfg    *config.Config
	logger zerolog.Logger

	observable *stream.Observable
	buffer     *stream.TripleBuffer

	source    *opencv.Source
	reader    *streamcapture.Reader
	detector  detection.Detector
	processor *frameprocessing.Processor
	publisher *publisher.Service
	server    *api.Server

	transport messaging.Transport
	notifier  *notification.Client
	store     *benchmark.Store
	monitor   *benchmark.Monitor

	exited   chan struct{}
	exitOnce sync.Once
}

// New connects the external services and assembles the pipeline. Nothing
// runs until Run is called.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *Worker, err error) {
	w := &Worker{
		cfg:        cfg,
		logger:     logger,
		observable: stream.NewObservable(),
		buffer:     stream.NewTripleBuffer(),
		exited:     make(chan struct{}),
	}
	defer func() {
		if err != nil {
			_ = w.close(ctx)
		}
	}()

	if w.detector, err = newDetector(cfg, logging.NewServiceLogger(cfg, "detection")); err != nil {
		return nil, err
	}

	deps := frameprocessing.Dependencies{
		Detector: w.detector,
		Input:    overlay.JPEGInput{},
		Drawer:   overlay.New(cfg),
		Buffer:   w.buffer,
	}

	switch {
	case cfg.BenchmarkEnabled:
		if w.store, err = benchmark.OpenStore(cfg.BenchmarkResultsFile); err != nil {
			return nil, err
		}
		w.monitor, err = benchmark.New(ctx, cfg, w.store, w.exit, logging.NewServiceLogger(cfg, "benchmark"))
		if err != nil {
			return nil, err
		}
		deps.Benchmark = w.monitor
	case cfg.NotificationEnabled:
		if w.transport, err = messaging.NewTransport(cfg, logging.NewServiceLogger(cfg, "messaging")); err != nil {
			return nil, err
		}
		w.notifier, err = notification.New(cfg, w.transport, logging.NewServiceLogger(cfg, "notification"))
		if err != nil {
			return nil, err
		}
		deps.Notifier = w.notifier
	}

	w.processor, err = frameprocessing.New(cfg, deps, logging.NewServiceLogger(cfg, "frameprocessing"))
	if err != nil {
		return nil, err
	}

	encoder := helpers.ImageEncoder{
		Type:    cfg.ImageType,
		Quality: cfg.ImageQuality,
		Width:   loadingWidth,
		Height:  loadingHeight,
	}
	w.publisher = publisher.NewService(cfg, w.buffer, encoder, logging.NewServiceLogger(cfg, "publisher"))

	apiDeps := api.Dependencies{Stats: w.processor}
	if w.publisher.MJPEGEnabled() {
		apiDeps.Video = w.publisher
	}
	if w.server, err = api.NewServer(cfg, apiDeps, logging.NewServiceLogger(cfg, "api")); err != nil {
		return nil, err
	}

	w.observable.Add(w.processor)
	if o := w.publisher.Observer(); o != nil {
		w.observable.Add(o)
	}

	w.source = opencv.NewSource()
	readerOpts := []streamcapture.Option{streamcapture.WithNoConnectionImage(helpers.NoConnectionImage)}
	if cfg.BenchmarkEnabled {
		readerOpts = append(readerOpts, streamcapture.WithFrameLimit(cfg.BenchmarkDuration.Milliseconds()))
	}
	streamLogger := logging.WithCamera(logging.NewServiceLogger(cfg, "streamcapture"), cfg.NotificationCameraID)
	w.reader = streamcapture.NewReader(cfg, w.source,
		streamcapture.NewResizer(cfg, helpers.ResizeFrame, streamLogger),
		w.observable, streamLogger, readerOpts...)

	return w, nil
}

func newDetector(cfg *config.Config, logger zerolog.Logger) (detection.Detector, error) {
	switch cfg.ModelLibrary {
	case config.ModelLibraryPassthrough:
		logger.Warn().Msg("Running without a detection model")
		return detection.Passthrough{}, nil
	default:
		svc, err := detection.NewService(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("detection service: %w", err)
		}
		return svc, nil
	}
}

// exit ends Run early; the reader calls it when the source is gone and the
// benchmark when the run is over.
func (w *Worker) exit() {
	w.exitOnce.Do(func() { close(w.exited) })
}

// Run blocks until ctx is cancelled, exit is called or a component fails.
// Components are drained before it returns, within cfg.ShutdownTimeout.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-w.exited:
			w.logger.Info().Msg("Pipeline requested exit")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error { return w.reader.Run(ctx, w.exit) })
	g.Go(func() error { return w.publisher.Run(ctx) })
	g.Go(w.server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), w.cfg.ShutdownTimeout)
		defer done()
		return w.server.Shutdown(shutdownCtx)
	})

	w.logger.Info().Str("source", w.cfg.VideoSource).Msg("Worker pipeline started")
	runErr := g.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), w.cfg.ShutdownTimeout)
	defer done()
	return errors.Join(runErr, w.close(shutdownCtx))
}

// close drains every component that was built, in pipeline order.
func (w *Worker) close(ctx context.Context) error {
	var errs []error
	if w.processor != nil {
		errs = append(errs, w.processor.Shutdown(ctx))
	}
	if w.notifier != nil {
		errs = append(errs, w.notifier.Shutdown(ctx))
	}
	if w.transport != nil {
		errs = append(errs, w.transport.Shutdown(ctx))
	}
	if w.monitor != nil {
		errs = append(errs, w.monitor.Close(ctx))
	}
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	if w.detector != nil {
		errs = append(errs, w.detector.Close())
	}
	if w.source != nil {
		w.source.Release()
	}
	err := errors.Join(errs...)
	if err != nil {
		w.logger.Error().Err(err).Msg("Worker shutdown finished with errors")
	} else {
		w.logger.Info().Msg("Worker shutdown complete")
	}
	return err
}
