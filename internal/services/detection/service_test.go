package detection

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"fvgvision-worker-go/internal/models"
)

type fakeModel struct {
	last *structpb.Struct
	fail bool
}

func (m *fakeModel) detect(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	m.last = in
	if m.fail {
		return nil, status.Error(codes.Unavailable, "model down")
	}
	return structpb.NewStruct(map[string]interface{}{
		"detections": []interface{}{
			map[string]interface{}{
				"id":         float64(42),
				"class_id":   float64(0),
				"confidence": 0.876,
				"xyxy":       []interface{}{10.0, 20.0, 30.0, 60.0},
				"xywh":       []interface{}{20.0, 40.0, 20.0, 40.0},
				"keypoints":  []interface{}{[]interface{}{0.5, 0.25}},
			},
			map[string]interface{}{
				"class_id":   float64(2),
				"confidence": 0.5,
				"xyxy":       []interface{}{0.0, 0.0, 10.0, 10.0},
			},
		},
	})
}

func startServer(t *testing.T, model *fakeModel) *Service {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: "fvgvision.detection.v1.Detector",
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Detect",
			Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				in := &structpb.Struct{}
				if err := dec(in); err != nil {
					return nil, err
				}
				return model.detect(ctx, in)
			},
		}},
	}, model)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	svc, err := dial("passthrough:///bufnet", time.Second, zerolog.Nop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestServiceDetect(t *testing.T) {
	model := &fakeModel{}
	svc := startServer(t, model)

	req := Request{
		Image:      []byte{0xff, 0xd8},
		Width:      640,
		Height:     384,
		Classes:    []int{0, 2},
		Tracking:   true,
		Confidence: 0.25,
		IOU:        0.7,
	}
	objs, err := svc.Detect(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	person := objs[0]
	assert.Equal(t, 42, person.ID)
	assert.Equal(t, models.CategoryPerson, person.Class)
	assert.Equal(t, "person", person.Label)
	assert.Equal(t, 0.88, person.Confidence)
	assert.Equal(t, models.Box{X1: 10, Y1: 20, X2: 30, Y2: 60}, person.Box)
	assert.Equal(t, models.CenterBox{X: 20, Y: 40, W: 20, H: 40}, person.Center)
	assert.Equal(t, []models.Keypoint{{X: 0.5, Y: 0.25}}, person.Keypoints)
	assert.Equal(t, 640, person.OrigWidth)

	car := objs[1]
	assert.Equal(t, 2, car.ID, "untracked objects use the class id")
	assert.Equal(t, models.CenterBox{X: 5, Y: 5, W: 10, H: 10}, car.Center)

	fields := model.last.GetFields()
	assert.Equal(t, base64.StdEncoding.EncodeToString(req.Image), fields["image"].GetStringValue())
	assert.True(t, fields["tracking"].GetBoolValue())
	assert.Len(t, fields["classes"].GetListValue().GetValues(), 2)
}

func TestServiceHealthCheck(t *testing.T) {
	svc := startServer(t, &fakeModel{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.HealthCheck(ctx))
	assert.True(t, svc.IsConnected())
}

func TestServiceBackoffAfterFailure(t *testing.T) {
	svc := startServer(t, &fakeModel{fail: true})

	_, err := svc.Detect(context.Background(), Request{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackoff)

	_, err = svc.Detect(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrBackoff)
}

func TestServiceBackoffIsCapped(t *testing.T) {
	s := &Service{maxRetryBackoff: 30 * time.Second}

	tests := []struct {
		fails int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{34, 30 * time.Second},
		{100, 30 * time.Second},
		{1 << 20, 30 * time.Second},
	}
	for _, tt := range tests {
		s.consecutiveFails = tt.fails
		assert.Equal(t, tt.want, s.backoff(), "fails=%d", tt.fails)
	}

	s.consecutiveFails = 100
	s.lastFailTime = time.Now()
	assert.False(t, s.shouldRetry())
	s.lastFailTime = time.Now().Add(-31 * time.Second)
	assert.True(t, s.shouldRetry())
}

func TestDecodeResponseRejectsBadBox(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]interface{}{
		"detections": []interface{}{
			map[string]interface{}{"class_id": 0.0, "xyxy": []interface{}{1.0, 2.0}},
		},
	})
	require.NoError(t, err)

	_, err = decodeResponse(resp, Request{})
	assert.Error(t, err)

	objs, err := decodeResponse(&structpb.Struct{}, Request{})
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestParseGRPCEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		target  string
		tls     bool
		wantErr bool
	}{
		{"localhost:50052", "localhost:50052", false, false},
		{"model.example.com", "model.example.com:443", true, false},
		{"model.example.com:8443", "model.example.com:8443", true, false},
		{"http://model:9000", "model:9000", false, false},
		{"https://model", "model:443", true, false},
		{"ftp://model:21", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			target, creds, err := parseGRPCEndpoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.tls, creds.Info().SecurityProtocol == "tls")
		})
	}
}

func TestPassthrough(t *testing.T) {
	var d Detector = Passthrough{}
	objs, err := d.Detect(context.Background(), Request{})
	assert.NoError(t, err)
	assert.Empty(t, objs)
	assert.NoError(t, d.Close())
}
