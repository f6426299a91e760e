package models

// Keypoint is a pose landmark in normalized image coordinates.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pose keypoint indices (COCO ordering)
const (
	KeypointNose = iota
	KeypointLeftEye
	KeypointRightEye
	KeypointLeftEar
	KeypointRightEar
	KeypointLeftShoulder
	KeypointRightShoulder
	KeypointLeftElbow
	KeypointRightElbow
	KeypointLeftWrist
	KeypointRightWrist
)

// Box is an axis aligned rectangle in corner form.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// CenterBox is a rectangle given by its center and size.
type CenterBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectedObject represents a single detection from the model, with the
// per-frame flags written by the scenario processors.
type DetectedObject struct {
	ID         int       `json:"id"`
	Class      Category  `json:"class_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        Box       `json:"bbox"`
	Center     CenterBox `json:"bbox_center"`

	Keypoints  []Keypoint `json:"keypoints,omitempty"`
	OrigWidth  int        `json:"orig_width,omitempty"`
	OrigHeight int        `json:"orig_height,omitempty"`

	InZone       bool `json:"is_in_zone"`
	TimeInZone   int  `json:"time_in_zone"`
	DoorEntering bool `json:"is_door_entering"`
	DoorLeaving  bool `json:"is_door_leaving"`
	RaisedHands  bool `json:"raised_hands"`
}

// GroundPoint returns the bottom-center of the bounding box, the point used
// for all region membership tests.
func (o *DetectedObject) GroundPoint() (int, int) {
	return o.Center.X, o.Center.Y + o.Center.H/2
}

// KeypointPx returns keypoint i in pixel coordinates of the source image,
// or (0, 0) when the keypoint is missing.
func (o *DetectedObject) KeypointPx(i int) (int, int) {
	if i < 0 || i >= len(o.Keypoints) {
		return 0, 0
	}
	k := o.Keypoints[i]
	return int(k.X * float64(o.OrigWidth)), int(k.Y * float64(o.OrigHeight))
}

// ResetFlags clears the scenario flags before a new evaluation pass.
func (o *DetectedObject) ResetFlags() {
	o.InZone = false
	o.TimeInZone = 0
	o.DoorEntering = false
	o.DoorLeaving = false
	o.RaisedHands = false
}

// Scale maps box coordinates from model space back to source space.
func (o *DetectedObject) Scale(rw, rh float64) {
	o.Box = Box{
		X1: int(float64(o.Box.X1) * rw),
		Y1: int(float64(o.Box.Y1) * rh),
		X2: int(float64(o.Box.X2) * rw),
		Y2: int(float64(o.Box.Y2) * rh),
	}
	o.Center = CenterBox{
		X: int(float64(o.Center.X) * rw),
		Y: int(float64(o.Center.Y) * rh),
		W: int(float64(o.Center.W) * rw),
		H: int(float64(o.Center.H) * rh),
	}
}
