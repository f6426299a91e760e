package mjpeg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/stream"
)

type fakeEncoder struct {
	frames int
	angles []float64
	err    error
}

func (e *fakeEncoder) EncodeFrame(*models.Frame) ([]byte, error) {
	e.frames++
	return []byte("jpeg"), e.err
}

func (e *fakeEncoder) LoadingImage(angle float64) ([]byte, error) {
	e.angles = append(e.angles, angle)
	return []byte("loading"), e.err
}

func newPublisher(buf *stream.TripleBuffer, enc Encoder) *Publisher {
	cfg := &config.Config{OutputFPS: 50, ImageType: config.ImageTypeJPEG, ImagePassword: "secret"}
	return NewPublisher(cfg, buf, enc, zerolog.Nop())
}

func TestRefreshRotatesLoadingImage(t *testing.T) {
	enc := &fakeEncoder{}
	p := newPublisher(stream.NewTripleBuffer(), enc)

	for i := 0; i < 4; i++ {
		p.refresh()
	}
	assert.Equal(t, []float64{0, 330, 300, 270}, enc.angles)
	assert.Contains(t, string(p.Part()), "loading")
}

func TestRefreshEncodesChangedFramesOnly(t *testing.T) {
	buf := stream.NewTripleBuffer()
	enc := &fakeEncoder{}
	p := newPublisher(buf, enc)

	buf.SetNewFrame(1, models.NewFrame(2, 2))
	buf.Swap()
	p.refresh()
	p.refresh()
	assert.Equal(t, 1, enc.frames)

	buf.SetNewFrame(2, models.NewFrame(2, 2))
	buf.Swap()
	p.refresh()
	assert.Equal(t, 2, enc.frames)

	part := string(p.Part())
	assert.True(t, strings.HasPrefix(part, "--frame\r\nContent-Type: image/jpeg\r\n"))
	assert.True(t, strings.HasSuffix(part, "\r\n\r\njpeg\r\n"))
}

func TestRefreshKeepsPartOnEncodeError(t *testing.T) {
	buf := stream.NewTripleBuffer()
	enc := &fakeEncoder{}
	p := newPublisher(buf, enc)
	p.refresh()
	before := p.Part()

	enc.err = errors.New("boom")
	buf.SetNewFrame(1, models.NewFrame(2, 2))
	buf.Swap()
	p.refresh()
	assert.Equal(t, before, p.Part())
}

func TestStreamRejectsInvalidLogin(t *testing.T) {
	p := newPublisher(stream.NewTripleBuffer(), &fakeEncoder{})

	for _, target := range []string{"/video", "/video?login=wrong"} {
		rec := httptest.NewRecorder()
		p.StreamMJPEGHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, "Invalid login", rec.Body.String(), target)
		assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	}
}

func TestStreamWritesParts(t *testing.T) {
	p := newPublisher(stream.NewTripleBuffer(), &fakeEncoder{})
	p.refresh()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/video?login=secret", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	p.StreamMJPEGHTTP(rec, req)

	require.Equal(t, "multipart/x-mixed-replace; boundary=frame", rec.Header().Get("Content-Type"))
	assert.GreaterOrEqual(t, strings.Count(rec.Body.String(), "--frame\r\n"), 2)
}
