package detection

import (
	"encoding/base64"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"fvgvision-worker-go/internal/models"
)

func encodeRequest(req Request) (*structpb.Struct, error) {
	classes := make([]interface{}, len(req.Classes))
	for i, c := range req.Classes {
		classes[i] = float64(c)
	}
	msg, err := structpb.NewStruct(map[string]interface{}{
		"image":      base64.StdEncoding.EncodeToString(req.Image),
		"width":      float64(req.Width),
		"height":     float64(req.Height),
		"classes":    classes,
		"tracking":   req.Tracking,
		"pose":       req.Pose,
		"confidence": req.Confidence,
		"iou":        req.IOU,
	})
	if err != nil {
		return nil, fmt.Errorf("encode detection request: %w", err)
	}
	return msg, nil
}

// decodeResponse reads the "detections" list. Each entry carries class_id,
// confidence and xyxy; id, label, xywh, keypoints and orig_width/height are
// optional. Objects without a tracking id fall back to their class id.
func decodeResponse(resp *structpb.Struct, req Request) ([]*models.DetectedObject, error) {
	list := resp.GetFields()["detections"].GetListValue()
	if list == nil {
		return nil, nil
	}

	objects := make([]*models.DetectedObject, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("detection %d: not an object", i)
		}

		xyxy := numbers(fields["xyxy"])
		if len(xyxy) != 4 {
			return nil, fmt.Errorf("detection %d: xyxy needs 4 values, got %d", i, len(xyxy))
		}

		class := models.Category(int(fields["class_id"].GetNumberValue()))
		obj := &models.DetectedObject{
			ID:         int(class),
			Class:      class,
			Label:      class.Label(),
			Confidence: math.Round(fields["confidence"].GetNumberValue()*100) / 100,
			Box: models.Box{
				X1: int(xyxy[0]), Y1: int(xyxy[1]), X2: int(xyxy[2]), Y2: int(xyxy[3]),
			},
			OrigWidth:  req.Width,
			OrigHeight: req.Height,
		}
		if id, ok := fields["id"]; ok {
			if _, isNull := id.GetKind().(*structpb.Value_NullValue); !isNull {
				obj.ID = int(id.GetNumberValue())
			}
		}
		if label := fields["label"].GetStringValue(); label != "" {
			obj.Label = label
		}

		if xywh := numbers(fields["xywh"]); len(xywh) == 4 {
			obj.Center = models.CenterBox{X: int(xywh[0]), Y: int(xywh[1]), W: int(xywh[2]), H: int(xywh[3])}
		} else {
			w, h := obj.Box.X2-obj.Box.X1, obj.Box.Y2-obj.Box.Y1
			obj.Center = models.CenterBox{X: obj.Box.X1 + w/2, Y: obj.Box.Y1 + h/2, W: w, H: h}
		}

		if kps := fields["keypoints"].GetListValue(); kps != nil {
			for _, kp := range kps.GetValues() {
				xy := numbers(kp)
				if len(xy) < 2 {
					obj.Keypoints = append(obj.Keypoints, models.Keypoint{})
					continue
				}
				obj.Keypoints = append(obj.Keypoints, models.Keypoint{X: xy[0], Y: xy[1]})
			}
		}
		if w := int(fields["orig_width"].GetNumberValue()); w > 0 {
			obj.OrigWidth = w
		}
		if h := int(fields["orig_height"].GetNumberValue()); h > 0 {
			obj.OrigHeight = h
		}

		objects = append(objects, obj)
	}
	return objects, nil
}

func numbers(v *structpb.Value) []float64 {
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]float64, 0, len(list.GetValues()))
	for _, n := range list.GetValues() {
		out = append(out, n.GetNumberValue())
	}
	return out
}
