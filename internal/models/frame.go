package models

// NoConnectionFrameIndex marks the placeholder frame emitted while the
// video source is reconnecting.
const NoConnectionFrameIndex int64 = -1

// MaxFrameIndex bounds the frame sequence id before it wraps.
const MaxFrameIndex int64 = 1_000_000_000

// Frame is a raw BGR24 image.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// NewFrame allocates a black frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{Data: make([]byte, width*height*3), Width: width, Height: height}
}

// Valid reports whether the buffer matches the declared dimensions.
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*3
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{Data: data, Width: f.Width, Height: f.Height}
}
