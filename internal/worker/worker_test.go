package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgvision-worker-go/internal/api"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/services/aggregation"
	"fvgvision-worker-go/internal/services/publisher"
	"fvgvision-worker-go/internal/services/streamcapture"
	"fvgvision-worker-go/internal/stream"
)

// loopSource never runs out of frames.
type loopSource struct{ fps float64 }

func (s *loopSource) Open(string) error { return nil }
func (s *loopSource) Read(frame *models.Frame) bool {
	*frame = *models.NewFrame(4, 2)
	return true
}
func (s *loopSource) Rewind()                   {}
func (s *loopSource) Info() (int, int, float64) { return 4, 2, s.fps }
func (s *loopSource) Close()                    {}

type emptyStats struct{}

func (emptyStats) Stats() aggregation.Snapshot { return aggregation.Snapshot{} }

type nopEncoder struct{}

func (nopEncoder) EncodeFrame(*models.Frame) ([]byte, error) { return nil, nil }
func (nopEncoder) LoadingImage(float64) ([]byte, error)      { return nil, nil }

// newTestWorker wires a worker around src without any external service.
func newTestWorker(t *testing.T, src streamcapture.Source, opts ...streamcapture.Option) *Worker {
	t.Helper()

	cfg := &config.Config{
		VideoSource:         "file://loop.mp4",
		SourceReconnectWait: time.Millisecond,
		SourceMaxReconnects: 2,
		ShutdownTimeout:     time.Second,
	}
	logger := zerolog.Nop()
	w := &Worker{
		cfg:        cfg,
		logger:     logger,
		observable: stream.NewObservable(),
		buffer:     stream.NewTripleBuffer(),
		exited:     make(chan struct{}),
	}
	w.publisher = publisher.NewService(cfg, w.buffer, nopEncoder{}, logger)

	var err error
	w.server, err = api.NewServer(cfg, api.Dependencies{Stats: emptyStats{}}, logger)
	require.NoError(t, err)

	w.reader = streamcapture.NewReader(cfg, src, streamcapture.NewResizer(cfg, nil, logger), w.observable, logger, opts...)
	return w
}

func runWorker(ctx context.Context, w *Worker) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return done
}

func TestRunReturnsAtFrameLimit(t *testing.T) {
	w := newTestWorker(t, &loopSource{fps: 1000}, streamcapture.WithFrameLimit(5))

	select {
	case err := <-runWorker(context.Background(), w):
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker kept running after the frame limit")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	w := newTestWorker(t, &loopSource{fps: 100})

	ctx, cancel := context.WithCancel(context.Background())
	done := runWorker(ctx, w)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker ignored cancellation")
	}
}

func TestExitIsIdempotent(t *testing.T) {
	w := newTestWorker(t, &loopSource{fps: 100})
	w.exit()
	w.exit()

	select {
	case <-w.exited:
	default:
		t.Fatal("exit did not close the channel")
	}
}
