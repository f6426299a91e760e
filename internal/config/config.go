package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
)

// ImageType is the encoding used by the web image output.
type ImageType string

const (
	ImageTypeJPEG ImageType = "jpeg"
	ImageTypeWEBP ImageType = "webp"
)

// ModelLibrary selects the detection backend.
type ModelLibrary string

const (
	ModelLibraryGRPC        ModelLibrary = "grpc"
	ModelLibraryPassthrough ModelLibrary = "passthrough"
)

// ZoneScenario configures dwell tracking inside one polygon.
type ZoneScenario struct {
	Enabled     bool
	Polygon     geometry.Polygon
	Categories  models.CategorySet
	CoolDown    time.Duration
	TimeLimit   time.Duration
	DangerLimit int
}

// ParkingScenario configures dwell tracking over several slot polygons.
type ParkingScenario struct {
	Enabled     bool
	Polygons    []geometry.Polygon
	Categories  models.CategorySet
	CoolDown    time.Duration
	TimeLimit   time.Duration
	DangerLimit int
}

// DoorScenario configures crossing counts over a door line.
type DoorScenario struct {
	Enabled         bool
	Regions         geometry.DoorRegions
	Categories      models.CategorySet
	EnteringEnabled bool
	EnteringLabel   string
	LeavingEnabled  bool
	LeavingLabel    string
}

// Config is built once at startup and shared read-only.
type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string
	PIDFile     string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Video source
	VideoSource             string
	ForcedResolutionEnabled bool
	ForcedWidth             int
	ForcedHeight            int
	DefaultSourceFPS        float64
	SourceReconnectWait     time.Duration
	SourceMaxReconnects     int

	// Model
	ModelLibrary      ModelLibrary
	ModelID           string
	ModelGRPCURL      string
	ModelTimeout      time.Duration
	ModelConfidence   float64
	ModelIOU          float64
	ModelWidth        int
	ModelHeight       int
	ModelPose         bool
	TrackingEnabled   bool
	ModelCategories   models.CategorySet
	SkipFramesEnabled bool
	SkipFramesMask    []bool

	// Scenarios
	Zone              ZoneScenario
	Parking           ParkingScenario
	Door              DoorScenario
	RaisedHandEnabled bool

	// Video output
	OutputFPS       int
	StreamEnabled   bool
	StreamPath      string
	StreamBandwidth int
	StreamHLSTime   int
	StreamHLSGOP    int
	ImageEnabled    bool
	ImageQuality    int
	ImageType       ImageType
	ImagePassword   string

	// Notification
	NotificationEnabled         bool
	NotificationTransport       string
	NotificationDeviceID        string
	NotificationCameraID        string
	NotificationAggregationTime time.Duration
	NotificationSubject         string
	NotificationAlertSubject    string
	NotificationEncoding        string
	NotificationWorkers         int

	// NATS
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration

	// MQTT
	MQTTBrokerURL string
	MQTTUsername  string
	MQTTPassword  string
	MQTTClientID  string

	// Display
	ShowCount      bool
	ShowCategories models.CategorySet
	ShowFPS        bool
	ShowTimeInZone bool
	ShowTime       bool
	ShowVideoInfo  bool
	ShowAlertIcon  bool

	// Benchmark
	BenchmarkEnabled         bool
	BenchmarkDuration        time.Duration
	BenchmarkWarmup          time.Duration
	BenchmarkAggregationTime time.Duration
	BenchmarkResultsFile     string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

// TrackingRequired reports whether detection must run with tracking, either
// because it was asked for or because a scenario needs stable ids.
func (c *Config) TrackingRequired() bool {
	return c.TrackingEnabled || c.Door.Enabled || (c.Zone.Enabled && c.ShowTimeInZone)
}

// Load reads configuration from the environment, an optional .env file and
// an optional YAML settings file named by SETTINGS_FILE. Environment values
// win over the settings file.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	src := &source{}
	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		values, err := readSettingsFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
		log.Info().Str("file", path).Int("keys", len(values)).Msg("Loaded settings file")
	}

	return src.build()
}

func (s *source) build() (*Config, error) {
	cfg := &Config{
		// Application
		Version:     s.getEnv("VERSION", "1.0.0"),
		Environment: s.getEnv("ENVIRONMENT", "development"),
		WorkerID:    s.getEnv("WORKER_ID", "worker-1"),
		Port:        s.getEnvInt("PORT", 8000),
		LogLevel:    s.getEnv("LOG_LEVEL", "info"),
		PIDFile:     s.getEnv("PID_FILE", ""),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: s.getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    s.getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    s.getEnvInt("LOGDY_PORT", 8080),

		// Video source
		VideoSource:             s.getEnv("VIDEO_SOURCE", ""),
		ForcedResolutionEnabled: s.getEnvBool("VIDEO_SOURCE_FORCED_RESOLUTION_ENABLED", false),
		DefaultSourceFPS:        s.getEnvFloat("DEFAULT_SOURCE_FPS", 25),
		SourceReconnectWait:     s.getEnvDuration("VIDEO_SOURCE_RECONNECT_WAIT", 2*time.Second),
		SourceMaxReconnects:     s.getEnvInt("VIDEO_SOURCE_MAX_RECONNECTS", 60),

		// Model
		ModelLibrary:      ModelLibrary(strings.ToLower(s.getEnv("MODEL_LIBRARY", string(ModelLibraryGRPC)))),
		ModelID:           s.getEnv("MODEL_ID", "yolov8n"),
		ModelGRPCURL:      s.getEnv("MODEL_GRPC_URL", "localhost:50052"),
		ModelTimeout:      s.getEnvDuration("MODEL_TIMEOUT", 5*time.Second),
		ModelConfidence:   s.getEnvFloat("MODEL_CONFIDENCE", 0.25),
		ModelIOU:          s.getEnvFloat("MODEL_IOU", 0.7),
		ModelWidth:        s.getEnvInt("MODEL_WIDTH", 640),
		ModelHeight:       s.getEnvInt("MODEL_HEIGHT", 384),
		TrackingEnabled:   s.getEnvBool("MODEL_TRACKING_ENABLED", false),
		SkipFramesEnabled: s.getEnvBool("MODEL_SKIP_FRAMES_ENABLED", false),

		// Scenarios
		RaisedHandEnabled: s.getEnvBool("SCENARIO_RAISED_HAND_ENABLED", false),

		// Video output
		OutputFPS:       s.getEnvInt("VIDEO_OUTPUT_FPS", 25),
		StreamEnabled:   s.getEnvBool("VIDEO_OUTPUT_STREAM_ENABLED", false),
		StreamPath:      s.getEnv("VIDEO_OUTPUT_STREAM_PATH", "./hls"),
		StreamBandwidth: s.getEnvInt("VIDEO_OUTPUT_STREAM_BANDWIDTH", 1000),
		StreamHLSTime:   s.getEnvInt("VIDEO_OUTPUT_STREAM_HLS_TIME", 2),
		StreamHLSGOP:    s.getEnvInt("VIDEO_OUTPUT_STREAM_HLS_GOP", 25),
		ImageEnabled:    s.getEnvBool("VIDEO_OUTPUT_IMAGE_ENABLED", true),
		ImageQuality:    s.getEnvInt("VIDEO_OUTPUT_IMAGE_QUALITY", 80),
		ImagePassword:   s.getEnv("VIDEO_OUTPUT_IMAGE_PASSWORD", ""),

		// Notification
		NotificationEnabled:         s.getEnvBool("NOTIFICATION_ENABLED", false),
		NotificationTransport:       strings.ToLower(s.getEnv("NOTIFICATION_TRANSPORT", "nats")),
		NotificationDeviceID:        s.getEnv("NOTIFICATION_DEVICE_ID", ""),
		NotificationCameraID:        s.getEnv("NOTIFICATION_CAMERA_ID", ""),
		NotificationAggregationTime: s.getEnvDuration("NOTIFICATION_AGGREGATION_TIME", time.Minute),
		NotificationSubject:         s.getEnv("NOTIFICATION_SUBJECT", "fvgvision.messages"),
		NotificationAlertSubject:    s.getEnv("NOTIFICATION_ALERT_SUBJECT", "fvgvision.alerts"),
		NotificationEncoding:        strings.ToLower(s.getEnv("NOTIFICATION_ENCODING", "json")),
		NotificationWorkers:         s.getEnvInt("NOTIFICATION_WORKERS", 2),

		// NATS
		NatsURL:            s.getNatsURL(),
		NatsConnectTimeout: s.getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  s.getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  s.getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   s.getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// MQTT
		MQTTBrokerURL: s.getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTUsername:  s.getEnv("MQTT_USERNAME", ""),
		MQTTPassword:  s.getEnv("MQTT_PASSWORD", ""),
		MQTTClientID:  s.getEnv("MQTT_CLIENT_ID", ""),

		// Display
		ShowCount:      s.getEnvBool("DISPLAY_COUNT_ENABLED", true),
		ShowFPS:        s.getEnvBool("DISPLAY_FPS_ENABLED", true),
		ShowTimeInZone: s.getEnvBool("DISPLAY_TIME_IN_ZONE_ENABLED", true),
		ShowTime:       s.getEnvBool("DISPLAY_TIME_ENABLED", true),
		ShowVideoInfo:  s.getEnvBool("DISPLAY_VIDEO_INFO_ENABLED", true),
		ShowAlertIcon:  s.getEnvBool("DISPLAY_ALERT_ICON_ENABLED", true),

		// Benchmark
		BenchmarkEnabled:         s.getEnvBool("BENCHMARK_ENABLED", false),
		BenchmarkDuration:        s.getEnvDuration("BENCHMARK_DURATION", 5*time.Minute),
		BenchmarkWarmup:          s.getEnvDuration("BENCHMARK_WARMUP", 10*time.Second),
		BenchmarkAggregationTime: s.getEnvDuration("BENCHMARK_AGGREGATION_TIME", 10*time.Second),
		BenchmarkResultsFile:     s.getEnv("BENCHMARK_RESULTS_FILE", "benchmark.db"),

		// Graceful Shutdown
		ShutdownTimeout: s.getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if err := s.parseStructured(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// benchmark runs are measured without network side effects
	if cfg.BenchmarkEnabled && cfg.NotificationEnabled {
		log.Warn().Msg("Notifications disabled in benchmark mode")
		cfg.NotificationEnabled = false
	}
	return cfg, nil
}

// parseStructured fills the fields that need more than a scalar conversion.
func (s *source) parseStructured(cfg *Config) error {
	var err error

	if cfg.ForcedResolutionEnabled {
		cfg.ForcedWidth, cfg.ForcedHeight, err = ParseResolution(s.getEnv("VIDEO_SOURCE_FORCED_RESOLUTION", "1280x720"))
		if err != nil {
			return fmt.Errorf("VIDEO_SOURCE_FORCED_RESOLUTION: %w", err)
		}
	}

	if cfg.ModelCategories, err = models.ParseCategories(s.getEnv("MODEL_CATEGORIES", "ALL")); err != nil {
		return fmt.Errorf("MODEL_CATEGORIES: %w", err)
	}
	cfg.SkipFramesMask = ParseSkipMask(cfg.SkipFramesEnabled, s.getEnv("MODEL_SKIP_FRAMES_MASK", "1"))

	// Zone
	cfg.Zone = ZoneScenario{
		Enabled:     s.getEnvBool("SCENARIO_ZONE_ENABLED", false),
		CoolDown:    s.getEnvSeconds("SCENARIO_ZONE_COOL_DOWN", 2*time.Second),
		TimeLimit:   s.getEnvSeconds("SCENARIO_ZONE_TIME_LIMIT", 10*time.Second),
		DangerLimit: s.getEnvInt("SCENARIO_ZONE_DANGER_LIMIT", 5),
	}
	if cfg.Zone.Categories, err = models.ParseCategories(s.getEnv("SCENARIO_ZONE_CATEGORIES", "person")); err != nil {
		return fmt.Errorf("SCENARIO_ZONE_CATEGORIES: %w", err)
	}
	if cfg.Zone.Enabled {
		if cfg.Zone.Polygon, err = geometry.ParsePolygon(s.getEnv("SCENARIO_ZONE_COORDS", "")); err != nil {
			return fmt.Errorf("SCENARIO_ZONE_COORDS: %w", err)
		}
	}

	// Parking
	cfg.Parking = ParkingScenario{
		Enabled:     s.getEnvBool("SCENARIO_PARKING_ENABLED", false),
		CoolDown:    s.getEnvSeconds("SCENARIO_PARKING_COOL_DOWN", 2*time.Second),
		TimeLimit:   s.getEnvSeconds("SCENARIO_PARKING_TIME_LIMIT", 10*time.Second),
		DangerLimit: s.getEnvInt("SCENARIO_PARKING_DANGER_LIMIT", 5),
	}
	if cfg.Parking.Categories, err = models.ParseCategories(s.getEnv("SCENARIO_PARKING_CATEGORIES", "car")); err != nil {
		return fmt.Errorf("SCENARIO_PARKING_CATEGORIES: %w", err)
	}
	if cfg.Parking.Enabled {
		if cfg.Parking.Polygons, err = geometry.ParsePolygonList(s.getEnv("SCENARIO_PARKING_COORDS", "")); err != nil {
			return fmt.Errorf("SCENARIO_PARKING_COORDS: %w", err)
		}
	}

	// Door
	cfg.Door = DoorScenario{
		Enabled:         s.getEnvBool("SCENARIO_DOOR_ENABLED", false),
		EnteringEnabled: s.getEnvBool("SCENARIO_DOOR_ENTERING_ENABLED", true),
		EnteringLabel:   ToLabel(s.getEnv("SCENARIO_DOOR_ENTERING_LABEL", "Entering")),
		LeavingEnabled:  s.getEnvBool("SCENARIO_DOOR_LEAVING_ENABLED", true),
		LeavingLabel:    ToLabel(s.getEnv("SCENARIO_DOOR_LEAVING_LABEL", "Leaving")),
	}
	if cfg.Door.Categories, err = models.ParseCategories(s.getEnv("SCENARIO_DOOR_CATEGORIES", "person")); err != nil {
		return fmt.Errorf("SCENARIO_DOOR_CATEGORIES: %w", err)
	}
	if cfg.Door.Enabled {
		if cfg.Door.Regions, err = geometry.ParseDoorRegions(s.getEnv("SCENARIO_DOOR_COORDS", "")); err != nil {
			return fmt.Errorf("SCENARIO_DOOR_COORDS: %w", err)
		}
	}

	// Output and display
	if cfg.ImageType, err = ParseImageType(s.getEnv("VIDEO_OUTPUT_IMAGE_TYPE", "jpeg")); err != nil {
		return fmt.Errorf("VIDEO_OUTPUT_IMAGE_TYPE: %w", err)
	}
	if cfg.ShowCategories, err = models.ParseCategories(s.getEnv("DISPLAY_COUNT_CATEGORIES", "person|bicycle|car")); err != nil {
		return fmt.Errorf("DISPLAY_COUNT_CATEGORIES: %w", err)
	}
	cfg.ModelPose = cfg.RaisedHandEnabled
	return nil
}

// Validate checks relationships between fields.
func (c *Config) Validate() error {
	var errs []error
	switch c.ModelLibrary {
	case ModelLibraryGRPC, ModelLibraryPassthrough:
	default:
		errs = append(errs, fmt.Errorf("MODEL_LIBRARY: unsupported value %q", c.ModelLibrary))
	}
	if c.ModelWidth <= 0 || c.ModelHeight <= 0 {
		errs = append(errs, errors.New("MODEL_WIDTH and MODEL_HEIGHT must be positive"))
	}
	if c.OutputFPS <= 0 {
		errs = append(errs, errors.New("VIDEO_OUTPUT_FPS must be positive"))
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		errs = append(errs, errors.New("VIDEO_OUTPUT_IMAGE_QUALITY must be in 1..100"))
	}
	if c.NotificationEnabled {
		switch c.NotificationTransport {
		case "nats", "mqtt":
		default:
			errs = append(errs, fmt.Errorf("NOTIFICATION_TRANSPORT: unsupported value %q", c.NotificationTransport))
		}
		switch c.NotificationEncoding {
		case "json", "msgpack":
		default:
			errs = append(errs, fmt.Errorf("NOTIFICATION_ENCODING: unsupported value %q", c.NotificationEncoding))
		}
	}
	return errors.Join(errs...)
}

// source resolves keys from the environment first, then from the settings
// file.
type source struct {
	file map[string]string
}

func readSettingsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

func (s *source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s *source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *source) getEnvInt(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (s *source) getEnvFloat(key string, defaultValue float64) float64 {
	if value := s.lookup(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (s *source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.lookup(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSeconds accepts either a Go duration or a bare number of seconds.
func (s *source) getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := s.lookup(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed) * time.Second
		}
	}
	return s.getEnvDuration(key, defaultValue)
}

func (s *source) getEnvBool(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func (s *source) getNatsURL() string {
	if url := s.lookup("NATS_URL"); url != "" {
		return url
	}
	if isRunningInDocker() {
		return "nats://nats:4222"
	}
	return "nats://localhost:4222"
}
