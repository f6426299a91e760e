// Package opencv implements the capture source on gocv.
package opencv

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/services/streamcapture"
)

// ffmpegOptions tune the FFmpeg backend for low latency RTSP.
var ffmpegOptions = map[string]string{
	"rtsp_transport":  "tcp",
	"buffer_size":     "2097152",
	"max_delay":       "500000",
	"stimeout":        "5000000",
	"rw_timeout":      "5000000",
	"flags":           "low_delay",
	"fflags":          "nobuffer+flush_packets",
	"analyzeduration": "500000",
	"probesize":       "2000000",
}

// Source reads frames with gocv.VideoCapture.
type Source struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

var _ streamcapture.Source = (*Source)(nil)

func NewSource() *Source {
	configureFFmpegOptions()
	return &Source{mat: gocv.NewMat()}
}

// configureFFmpegOptions sets the options read by the OpenCV FFmpeg backend
// unless the environment already provides them.
func configureFFmpegOptions() {
	if os.Getenv("OPENCV_FFMPEG_CAPTURE_OPTIONS") != "" {
		return
	}
	keys := make([]string, 0, len(ffmpegOptions))
	for k := range ffmpegOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]string, len(keys))
	for i, k := range keys {
		opts[i] = k + ";" + ffmpegOptions[k]
	}
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(opts, "|"))
}

func (s *Source) Open(url string) error {
	s.Close()
	capture, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("video capture %s is not opened", url)
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	s.capture = capture
	return nil
}

func (s *Source) Read(frame *models.Frame) bool {
	if s.capture == nil {
		return false
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return false
	}
	frame.Width = s.mat.Cols()
	frame.Height = s.mat.Rows()
	frame.Data = s.mat.ToBytes()
	return true
}

func (s *Source) Rewind() {
	if s.capture != nil {
		s.capture.Set(gocv.VideoCapturePosFrames, 0)
	}
}

// Info reports the source size and its declared frame rate.
func (s *Source) Info() (int, int, float64) {
	if s.capture == nil {
		return 0, 0, 0
	}
	return int(s.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(s.capture.Get(gocv.VideoCaptureFrameHeight)),
		s.capture.Get(gocv.VideoCaptureFPS)
}

func (s *Source) Close() {
	if s.capture != nil {
		s.capture.Close()
		s.capture = nil
	}
}

// Release frees the reusable Mat. The source cannot be used afterwards.
func (s *Source) Release() {
	s.Close()
	s.mat.Close()
}
