package stream

import (
	"sync"

	"fvgvision-worker-go/internal/models"
)

const (
	slotNew   = 0
	slotReady = 1
)

// TripleBuffer hands the latest processed frame from one producer to any
// number of pollers. The producer writes into the NEW slot and publishes it
// with Swap; readers always see the most recently published frame. There is
// no back-pressure: frames published faster than they are read are skipped.
type TripleBuffer struct {
	mu      sync.Mutex
	frames  [3]*models.Frame
	ids     [3]int64
	indices [3]int
}

// NewTripleBuffer returns an empty buffer. ReadyFrame returns (0, nil)
// until the first Swap after a SetNewFrame.
func NewTripleBuffer() *TripleBuffer {
	return &TripleBuffer{indices: [3]int{0, 1, 2}}
}

// SetNewFrame stores frame in the NEW slot. It is not visible to readers
// until Swap.
func (b *TripleBuffer) SetNewFrame(id int64, frame *models.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot := b.indices[slotNew]
	b.frames[slot] = frame
	b.ids[slot] = id
}

// Swap publishes the NEW slot as READY.
func (b *TripleBuffer) Swap() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.indices[0], b.indices[1], b.indices[2] = b.indices[2], b.indices[0], b.indices[1]
}

// ReadyFrame returns the most recently published frame and its id.
// The returned frame must be treated as read-only.
func (b *TripleBuffer) ReadyFrame() (int64, *models.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot := b.indices[slotReady]
	return b.ids[slot], b.frames[slot]
}
