// Package detection talks to the object detection model.
package detection

import (
	"context"

	"fvgvision-worker-go/internal/models"
)

// Request is one model invocation on a frame already resized to the model
// input size.
type Request struct {
	Image      []byte // JPEG
	Width      int
	Height     int
	Classes    []int
	Tracking   bool
	Pose       bool
	Confidence float64
	IOU        float64
}

// Detector runs object detection. Returned coordinates are in model input
// space.
type Detector interface {
	Detect(ctx context.Context, req Request) ([]*models.DetectedObject, error)
	Close() error
}

// Passthrough never detects anything. It keeps the pipeline running
// (capture, overlay, outputs) without a model.
type Passthrough struct{}

func (Passthrough) Detect(context.Context, Request) ([]*models.DetectedObject, error) {
	return nil, nil
}

func (Passthrough) Close() error { return nil }
