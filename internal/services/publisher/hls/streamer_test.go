package hls

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/stream"
)

func newStreamer(dir string) *Streamer {
	cfg := &config.Config{
		OutputFPS:       15,
		StreamPath:      dir,
		StreamBandwidth: 800,
		StreamHLSTime:   2,
		StreamHLSGOP:    30,
	}
	return NewStreamer(cfg, stream.NewTripleBuffer(), zerolog.Nop())
}

// argAfter returns the argument following flag, or "" when absent.
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := newStreamer(dir).command(640, 360)

	args := cmd.Args
	assert.Equal(t, "640x360", argAfter(args, "-s"))
	assert.Equal(t, "15", argAfter(args, "-r"))
	assert.Equal(t, "800k", argAfter(args, "-b:v"))
	assert.Equal(t, "2", argAfter(args, "-hls_time"))
	assert.Equal(t, "30", argAfter(args, "-g"))
	assert.Equal(t, "pipe:", argAfter(args, "-i"))
	assert.Contains(t, args, filepath.Join(dir, playlistName))
	assert.Contains(t, args, "-y")
}

func TestOnParametersSignalsRestart(t *testing.T) {
	s := newStreamer(t.TempDir())
	s.OnParameters(320, 240, 40*time.Millisecond)
	s.OnParameters(640, 480, 40*time.Millisecond)

	w, h := s.size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Len(t, s.restart, 1)
}

func TestCleanDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.ts"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0o755))

	require.NoError(t, cleanDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep", entries[0].Name())

	missing := filepath.Join(dir, "missing")
	require.NoError(t, cleanDir(missing))
	assert.DirExists(t, missing)
}

// runStreamer runs s in the background. The returned channel yields Run's
// result.
func runStreamer(ctx context.Context, s *Streamer) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func returned(done <-chan error) func() bool {
	return func() bool { return len(done) > 0 }
}

func TestRunRetriesWithoutFFmpeg(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	s := newStreamer(t.TempDir())
	s.retryDelay = 10 * time.Millisecond
	s.OnParameters(320, 240, 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runStreamer(ctx, s)

	assert.Never(t, returned(done), 200*time.Millisecond, 10*time.Millisecond)

	cancel()
	require.Eventually(t, returned(done), time.Second, 10*time.Millisecond)
	assert.NoError(t, <-done)
}

func TestRunRetriesFolderErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	s := newStreamer(file)
	s.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runStreamer(ctx, s)

	assert.Never(t, returned(done), 100*time.Millisecond, 10*time.Millisecond)

	cancel()
	require.Eventually(t, returned(done), time.Second, 10*time.Millisecond)
	assert.NoError(t, <-done)
}

// TestHelperSink stands in for ffmpeg: it swallows stdin until it is closed.
func TestHelperSink(t *testing.T) {
	if os.Getenv("HLS_HELPER_SINK") != "1" {
		t.Skip("subprocess only")
	}
	_, _ = io.Copy(io.Discard, os.Stdin)
	os.Exit(0)
}

func countingSink(starts *atomic.Int32) func(int, int) *exec.Cmd {
	return func(int, int) *exec.Cmd {
		starts.Add(1)
		cmd := exec.Command(os.Args[0], "-test.run=^TestHelperSink$")
		cmd.Env = append(os.Environ(), "HLS_HELPER_SINK=1")
		return cmd
	}
}

func TestRunStartsOnceThenRestartsOnNewSize(t *testing.T) {
	var starts atomic.Int32
	s := newStreamer(t.TempDir())
	s.retryDelay = 10 * time.Millisecond
	s.newCmd = countingSink(&starts)

	// parameters known before Run: the queued restart must not start twice
	s.OnParameters(320, 240, 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runStreamer(ctx, s)

	require.Eventually(t, func() bool { return starts.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return starts.Load() != 1 }, 200*time.Millisecond, 10*time.Millisecond)

	s.OnParameters(640, 480, 40*time.Millisecond)
	require.Eventually(t, func() bool { return starts.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, returned(done), 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, <-done)
}
