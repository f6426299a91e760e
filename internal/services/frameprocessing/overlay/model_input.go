package overlay

import (
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/helpers"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/services/frameprocessing"
)

// JPEGInput resizes frames to the model input size and encodes them as JPEG.
type JPEGInput struct{}

var _ frameprocessing.ModelInput = JPEGInput{}

// Encode implements frameprocessing.ModelInput.
func (JPEGInput) Encode(frame *models.Frame, width, height int) ([]byte, error) {
	resized, err := helpers.ResizeFrame(frame, width, height)
	if err != nil {
		return nil, err
	}
	return helpers.EncodeFrame(resized, config.ImageTypeJPEG, helpers.ModelInputQuality)
}
