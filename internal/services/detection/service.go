package detection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
)

// DetectMethod is the full gRPC method name of the detection call.
const DetectMethod = "/fvgvision.detection.v1.Detector/Detect"

// 2^16 seconds is already far above any sane maxRetryBackoff.
const maxBackoffShift = 16

// ErrBackoff is returned while the client waits out consecutive failures.
var ErrBackoff = errors.New("detection service in backoff period")

// Service is a gRPC detection client. Requests and responses are
// google.protobuf.Struct messages so no generated stubs are required.
type Service struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	target  string
	timeout time.Duration
	logger  zerolog.Logger

	mu               sync.Mutex
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

// NewService connects to the endpoint configured in MODEL_GRPC_URL.
func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	target, creds, err := parseGRPCEndpoint(cfg.ModelGRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model endpoint %s: %w", cfg.ModelGRPCURL, err)
	}
	logger.Info().
		Str("original_endpoint", cfg.ModelGRPCURL).
		Str("normalized_endpoint", target).
		Bool("use_tls", creds.Info().SecurityProtocol == "tls").
		Msg("Connecting to detection gRPC service")

	return dial(target, cfg.ModelTimeout, logger, grpc.WithTransportCredentials(creds))
}

func dial(target string, timeout time.Duration, logger zerolog.Logger, opts ...grpc.DialOption) (*Service, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to detection service at %s: %w", target, err)
	}

	s := &Service{
		conn:            conn,
		health:          healthpb.NewHealthClient(conn),
		target:          target,
		timeout:         timeout,
		logger:          logger,
		maxRetryBackoff: 30 * time.Second,
	}

	// Health check runs in the background so startup does not block on the model
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.HealthCheck(ctx); err != nil {
			logger.Warn().Err(err).Str("endpoint", target).Msg("Initial detection health check failed - will retry on next frame")
			return
		}
		logger.Info().Str("endpoint", target).Msg("Detection service health check passed")
	}()
	return s, nil
}

// HealthCheck queries the standard gRPC health service.
func (s *Service) HealthCheck(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check: status %s", resp.GetStatus())
	}
	return nil
}

// IsConnected reports whether the channel is usable.
func (s *Service) IsConnected() bool {
	state := s.conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle || state == connectivity.Connecting
}

// Detect sends the frame to the model and converts the reply.
func (s *Service) Detect(ctx context.Context, req Request) ([]*models.DetectedObject, error) {
	if !s.shouldRetry() {
		return nil, ErrBackoff
	}

	msg, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, DetectMethod, msg, resp); err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	s.mu.Lock()
	s.consecutiveFails = 0
	s.mu.Unlock()

	return decodeResponse(resp, req)
}

// Close releases the connection.
func (s *Service) Close() error {
	return s.conn.Close()
}

func (s *Service) shouldRetry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consecutiveFails == 0 {
		return true
	}
	return time.Since(s.lastFailTime) >= s.backoff()
}

// backoff doubles from one second per consecutive failure up to
// maxRetryBackoff. The shift is clamped so long outages cannot overflow.
// Callers hold s.mu.
func (s *Service) backoff() time.Duration {
	shift := s.consecutiveFails - 1
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	backoff := time.Duration(1<<uint(shift)) * time.Second
	if backoff > s.maxRetryBackoff {
		backoff = s.maxRetryBackoff
	}
	return backoff
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveFails++
	s.lastFailTime = time.Now()
	if s.consecutiveFails <= 5 {
		s.logger.Warn().Int("consecutive_fails", s.consecutiveFails).Msg("Detection failure recorded")
	}
}

// parseGRPCEndpoint normalizes host[:port] or a URL into a dial target and
// picks TLS for https and the usual TLS ports.
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if !strings.Contains(endpoint, "://") {
		if strings.Contains(endpoint, ".") && !strings.Contains(endpoint, ":") {
			endpoint = "https://" + endpoint + ":443"
		} else if strings.Contains(endpoint, ":") {
			parts := strings.Split(endpoint, ":")
			if port, err := strconv.Atoi(parts[len(parts)-1]); err == nil && (port == 443 || port == 8443 || port == 9443) {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		} else {
			endpoint = "https://" + endpoint + ":443"
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	var creds credentials.TransportCredentials
	switch u.Scheme {
	case "https":
		creds = credentials.NewTLS(&tls.Config{ServerName: u.Hostname()})
	case "http":
		creds = insecure.NewCredentials()
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s (supported: http, https)", u.Scheme)
	}
	return host, creds, nil
}
