// Package helpers holds the OpenCV image utilities shared by the outputs.
package helpers

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
)

const webpFileExt gocv.FileExt = ".webp"

// JPEG quality used for model input images
const ModelInputQuality = 95

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	grey  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// MatFromFrame wraps a BGR24 frame in a Mat. The caller closes it.
func MatFromFrame(frame *models.Frame) (gocv.Mat, error) {
	if !frame.Valid() {
		return gocv.NewMat(), fmt.Errorf("invalid frame")
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return mat, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	return mat, nil
}

// FrameFromMat copies a BGR Mat into a new frame.
func FrameFromMat(mat gocv.Mat) *models.Frame {
	return &models.Frame{Data: mat.ToBytes(), Width: mat.Cols(), Height: mat.Rows()}
}

// EncodeFrame compresses a frame as JPEG or WEBP.
func EncodeFrame(frame *models.Frame, imageType config.ImageType, quality int) ([]byte, error) {
	mat, err := MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return EncodeMat(mat, imageType, quality)
}

// EncodeMat compresses a Mat as JPEG or WEBP.
func EncodeMat(mat gocv.Mat, imageType config.ImageType, quality int) ([]byte, error) {
	ext, params := gocv.JPEGFileExt, []int{gocv.IMWriteJpegQuality, quality}
	if imageType == config.ImageTypeWEBP {
		ext, params = webpFileExt, []int{gocv.IMWriteWebpQuality, quality}
	}

	buf, err := gocv.IMEncodeWithParams(ext, mat, params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as %s: %w", imageType, err)
	}
	defer buf.Close()

	// GetBytes points into native memory released by Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// ResizeFrame returns a resized copy of the frame. A frame already at the
// requested size is returned unchanged.
func ResizeFrame(frame *models.Frame, width, height int) (*models.Frame, error) {
	if frame.Width == width && frame.Height == height {
		return frame, nil
	}
	mat, err := MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(mat, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	return FrameFromMat(dst), nil
}

// LoadingImage draws a spinner rotated by angle degrees on a black frame.
func LoadingImage(width, height int, angle float64) *models.Frame {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()

	center := image.Pt(width/2, height/2)
	radius := minInt(width, height) / 10
	if radius < 8 {
		radius = 8
	}
	const dots = 12
	for i := 0; i < dots; i++ {
		c := grey
		if i == 0 {
			c = white
		}
		p := polar(center, radius, float64(i)*360/dots)
		gocv.Circle(&mat, p, maxInt(radius/6, 2), c, -1)
	}

	rot := gocv.GetRotationMatrix2D(center, angle, 1)
	defer rot.Close()
	rotated := gocv.NewMat()
	defer rotated.Close()
	gocv.WarpAffine(mat, &rotated, rot, image.Pt(width, height))

	centeredText(&rotated, "LOADING", center.Y+radius*2, white)
	return FrameFromMat(rotated)
}

// NoConnectionImage is the placeholder shown while the source reconnects.
func NoConnectionImage(width, height int) *models.Frame {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()

	center := image.Pt(width/2, height/2)
	size := minInt(width, height) / 8
	red := color.RGBA{R: 220, G: 30, B: 30, A: 255}
	gocv.Circle(&mat, center, size, red, 4)
	gocv.Line(&mat, image.Pt(center.X-size*7/10, center.Y+size*7/10), image.Pt(center.X+size*7/10, center.Y-size*7/10), red, 4)

	centeredText(&mat, "NO CONNECTION", center.Y+size*2, white)
	return FrameFromMat(mat)
}

func centeredText(mat *gocv.Mat, text string, y int, c color.RGBA) {
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, 0.8, 2)
	gocv.PutTextWithParams(mat, text, image.Pt((mat.Cols()-size.X)/2, y), gocv.FontHersheySimplex, 0.8, c, 2, gocv.LineAA, false)
}

// ImageEncoder encodes the web output images.
type ImageEncoder struct {
	Type    config.ImageType
	Quality int

	// Size of the loading image
	Width  int
	Height int
}

func (e ImageEncoder) EncodeFrame(frame *models.Frame) ([]byte, error) {
	return EncodeFrame(frame, e.Type, e.Quality)
}

func (e ImageEncoder) LoadingImage(angle float64) ([]byte, error) {
	return EncodeFrame(LoadingImage(e.Width, e.Height, angle), e.Type, e.Quality)
}
