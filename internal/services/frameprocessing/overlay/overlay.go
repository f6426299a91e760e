// Package overlay draws scenario results and statistics on frames with
// OpenCV.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/helpers"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/services/frameprocessing"
)

const (
	doorLineThickness = 4
	groundDotRadius   = 8
	iconSize          = 48
)

// Overlay implements frameprocessing.Drawer.
type Overlay struct {
	cfg      *config.Config
	tracking bool

	count     *panel
	videoInfo *panel
	fps       *panel
	clock     *panel

	width  int
	height int
}

var _ frameprocessing.Drawer = (*Overlay)(nil)

// New returns an overlay configured from the display settings.
func New(cfg *config.Config) *Overlay {
	return &Overlay{
		cfg:       cfg,
		tracking:  cfg.TrackingRequired(),
		count:     newPanel(topLeft, "In zone avg time:     00:00:00"),
		videoInfo: newPanel(bottomLeft, "MDL: yolov8n-pose-480x480 passthrough"),
		fps:       newPanel(bottomRight, "MDL: 00000 fps, 00000 ms"),
		clock:     newPanel(topRight, "9999-99-99 99:99:99"),
	}
}

// Init measures the panels for the output size.
func (o *Overlay) Init(width, height int) {
	o.width, o.height = width, height
	for _, p := range []*panel{o.count, o.videoInfo, o.fps, o.clock} {
		p.init(width, height)
	}
}

// Draw decorates the frame in place.
func (o *Overlay) Draw(frame *models.Frame, state *frameprocessing.DrawState) error {
	mat, err := helpers.MatFromFrame(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	if o.width != frame.Width || o.height != frame.Height {
		o.Init(frame.Width, frame.Height)
	}

	if state.Parking != nil {
		o.drawParking(&mat, state)
	}
	if state.Zone != nil {
		o.drawZone(&mat, state.Zone.Polygon(), state.ZoneStatus)
	}
	if state.Door != nil {
		line := state.Door.Regions().Line
		gocv.Line(&mat, image.Pt(line[0].X, line[0].Y), image.Pt(line[1].X, line[1].Y), amber, doorLineThickness)
	}

	for _, obj := range state.Objects {
		if o.cfg.ShowCategories.Has(obj.Class) {
			o.drawObject(&mat, obj, state)
		}
	}

	if o.cfg.ShowAlertIcon {
		o.drawAlert(&mat, state.ZoneStatus, state.HandStatus)
	}
	if o.cfg.ShowCount {
		o.count.draw(&mat, o.countRows(state))
	}
	if o.cfg.ShowVideoInfo {
		o.videoInfo.draw(&mat, o.videoInfoRows(state))
	}
	if o.cfg.ShowFPS {
		o.fps.draw(&mat, o.fpsRows(state))
	}
	if o.cfg.ShowTime {
		o.clock.draw(&mat, []row{{label: state.Now.Format("2006-01-02 15:04:05"), color: white}})
	}

	copy(frame.Data, mat.ToBytes())
	return nil
}

func (o *Overlay) drawZone(mat *gocv.Mat, polygon geometry.Polygon, status alarm.Status) {
	c := blue
	if status.Alarming() {
		c = rgba(status.Color())
	}
	drawPolygon(mat, polygon, c, 2)
}

// drawParking outlines every slot and marks the vacant ones.
func (o *Overlay) drawParking(mat *gocv.Mat, state *frameprocessing.DrawState) {
	for i, slot := range state.Parking.Slots() {
		drawPolygon(mat, slot, blue, 2)
		if state.Parking.Busy(i) {
			continue
		}
		c := slot.Centroid()
		half := iconSize / 4
		gocv.Rectangle(mat, image.Rect(c.X-half, c.Y-half, c.X+half, c.Y+half), green, -1)
		size := gocv.GetTextSize("P", fontFace, 0.8, 2)
		gocv.PutText(mat, "P", image.Pt(c.X-size.X/2, c.Y+size.Y/2), fontFace, 0.8, white, 2)
	}
}

func (o *Overlay) drawObject(mat *gocv.Mat, obj *models.DetectedObject, state *frameprocessing.DrawState) {
	x1 := clamp(obj.Box.X1, 0, mat.Cols()-2)
	y1 := clamp(obj.Box.Y1, 0, mat.Rows()-2)
	x2 := clamp(obj.Box.X2, x1+1, mat.Cols()-1)
	y2 := clamp(obj.Box.Y2, y1+1, mat.Rows()-1)

	catColor := rgba(obj.Class.Color())
	boxColor := catColor
	if obj.RaisedHands {
		boxColor = red
	}

	text := fmt.Sprintf("  %s (%.2f)", obj.Label, obj.Confidence)
	if o.tracking {
		text = fmt.Sprintf("  %s id:%02X (%.2f)", obj.Label, obj.ID%256, obj.Confidence)
	}
	size := gocv.GetTextSize(text, fontFace, fontScale, fontThickness)

	gocv.Rectangle(mat, image.Rect(x1, y1, x2, y2), boxColor, 2)
	drawCorners(mat, x1, y1, x2, y2, boxColor)
	gocv.Rectangle(mat, image.Rect(x1-1, y1-2*size.Y, x1+size.X+2, y1), catColor, -1)
	putText(mat, text, image.Pt(x1, y1-size.Y/2), black)

	if obj.InZone && o.cfg.ShowTimeInZone {
		dwell := "   " + formatDuration(obj.TimeInZone)
		tsize := gocv.GetTextSize(dwell, fontFace, fontScale, fontThickness)
		gocv.Rectangle(mat, image.Rect(x1-1, y2, x1+tsize.X+2, y2+2*tsize.Y+2), yellow, -1)
		putText(mat, dwell, image.Pt(x1, y2+2*tsize.Y), black)
	}

	if state.Zone != nil || state.Parking != nil || state.Door != nil {
		dot := catColor
		switch {
		case state.Zone != nil || state.Parking != nil:
			if obj.InZone {
				dot = red
			}
		case obj.DoorEntering:
			dot = green
		case obj.DoorLeaving:
			dot = red
		}
		gx, gy := obj.GroundPoint()
		gocv.Circle(mat, image.Pt(gx, gy), groundDotRadius, dot, -1)
	}
}

// drawAlert puts a warning sign at the top center. The zone alarm wins
// over the raised hand alarm.
func (o *Overlay) drawAlert(mat *gocv.Mat, zone, hand alarm.Status) {
	var label string
	switch {
	case zone.Alarming():
		label = "ZONE"
	case hand.Alarming():
		label = "HAND"
	default:
		return
	}

	cx := mat.Cols() / 2
	triangle := [][]image.Point{{
		image.Pt(cx, 4),
		image.Pt(cx-iconSize/2, iconSize),
		image.Pt(cx+iconSize/2, iconSize),
	}}
	pv := gocv.NewPointsVectorFromPoints(triangle)
	defer pv.Close()
	gocv.FillPoly(mat, pv, red)

	mark := gocv.GetTextSize("!", fontFace, 0.9, 2)
	gocv.PutText(mat, "!", image.Pt(cx-mark.X/2, iconSize-6), fontFace, 0.9, white, 2)
	lsize := gocv.GetTextSize(label, fontFace, fontScale, fontThickness)
	putText(mat, label, image.Pt(cx-lsize.X/2, iconSize+lsize.Y+6), red)
}

func (o *Overlay) countRows(state *frameprocessing.DrawState) []row {
	if state.Parking != nil {
		total := len(state.Parking.Slots())
		return []row{
			{label: "Tot parking :", value: fmt.Sprintf("%3d", total), color: white},
			{label: "  Available :", value: fmt.Sprintf("%3d", total-state.InZone.Count), color: white},
			{label: "  Occupied  :", value: fmt.Sprintf("%3d", state.InZone.Count), color: white},
		}
	}

	var rows []row
	for _, cat := range models.AllCategories() {
		if !o.cfg.ShowCategories.Has(cat) {
			continue
		}
		n := 0
		for _, obj := range state.Objects {
			if obj.Class == cat {
				n++
			}
		}
		rows = append(rows, row{label: fmt.Sprintf("%-10s", title(cat.Label())+" #:"), value: fmt.Sprintf("%3d", n), color: white})
	}

	if o.cfg.RaisedHandEnabled {
		rows = append(rows, row{label: "  Hand up:", value: fmt.Sprintf("%3d", state.Hands.Count), color: rgba(state.HandStatus.Color())})
	}
	if state.Zone != nil {
		rows = append(rows, row{label: "  In zone:", value: fmt.Sprintf("%3d", state.InZone.Count), color: rgba(state.ZoneStatus.Color())})
		if o.cfg.ShowTimeInZone {
			rows = append(rows, row{label: "  In zone avg time:", value: formatDuration(state.InZone.AvgTime), color: white})
		}
	}
	if state.Door != nil {
		if o.cfg.Door.EnteringEnabled {
			rows = append(rows, row{label: "  " + o.cfg.Door.EnteringLabel + ":", value: fmt.Sprintf("%3d", state.DoorCounts.TotalEntering), color: white})
		}
		if o.cfg.Door.LeavingEnabled {
			rows = append(rows, row{label: "  " + o.cfg.Door.LeavingLabel + ":", value: fmt.Sprintf("%3d", state.DoorCounts.TotalLeaving), color: white})
		}
	}
	return rows
}

func (o *Overlay) videoInfoRows(state *frameprocessing.DrawState) []row {
	lines := []string{
		fmt.Sprintf("MDL_ID: %s", o.cfg.ModelID),
		fmt.Sprintf("MDL: %s", o.cfg.ModelLibrary),
		fmt.Sprintf("TRACKING: %t", o.tracking),
		fmt.Sprintf("ZONE: %t, DOOR: %t, POSE: %t", o.cfg.Zone.Enabled, o.cfg.Door.Enabled, o.cfg.ModelPose),
		fmt.Sprintf("SKIP_FRAMES: %s", maskHex(o.cfg.SkipFramesEnabled, o.cfg.SkipFramesMask)),
		fmt.Sprintf("IN res:  %4d x %4d", state.SourceWidth, state.SourceHeight),
		fmt.Sprintf("MDL res: %4d x %4d", state.ModelWidth, state.ModelHeight),
		fmt.Sprintf("OUT res: %4d x %4d", o.width, o.height),
	}
	rows := make([]row, len(lines))
	for i, l := range lines {
		rows[i] = row{label: l, color: white}
	}
	return rows
}

func (o *Overlay) fpsRows(state *frameprocessing.DrawState) []row {
	in := maxFloat(state.AvgAcquisition, 1)
	proc := maxFloat(state.AvgProcessing, 1)
	out := float64(o.cfg.OutputFPS)
	outMs := 0.0
	if out > 0 {
		outMs = 1000 / out
	}
	return []row{
		{label: fmt.Sprintf("IN:  %5.1f fps, %5.1f ms", 1000/in, state.AvgAcquisition), color: white},
		{label: fmt.Sprintf("MDL: %5.1f fps, %5.1f ms", 1000/proc, proc), color: white},
		{label: fmt.Sprintf("OUT: %5.1f fps, %5.1f ms", out, outMs), color: white},
	}
}

func drawPolygon(mat *gocv.Mat, polygon geometry.Polygon, c color.RGBA, thickness int) {
	if len(polygon) < 2 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{polygon.ImagePoints()})
	defer pv.Close()
	gocv.Polylines(mat, pv, true, c, thickness)
}

// formatDuration renders seconds as HH:MM:SS.
func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// maskHex shows the skip mask as the hex value of its bits, first frame
// first.
func maskHex(enabled bool, mask []bool) string {
	if !enabled {
		return "false"
	}
	var v uint64
	for _, bit := range mask {
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return fmt.Sprintf("%x", v)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
