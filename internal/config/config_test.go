package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgvision-worker-go/internal/geometry"
	"fvgvision-worker-go/internal/models"
)

func TestParseSkipMask(t *testing.T) {
	assert.Equal(t, []bool{true}, ParseSkipMask(false, "0 0 1"))
	assert.Equal(t, []bool{true, false, false}, ParseSkipMask(true, "0 0 1"))
	assert.Equal(t, []bool{false, true, true, true}, ParseSkipMask(true, "1110"))
	assert.Equal(t, []bool{true}, ParseSkipMask(true, "  "))
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1280x720")
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	for _, bad := range []string{"", "1280", "ax720", "1280x0"} {
		_, _, err := ParseResolution(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseImageType(t *testing.T) {
	it, err := ParseImageType("JPG")
	require.NoError(t, err)
	assert.Equal(t, ImageTypeJPEG, it)

	it, err = ParseImageType("webp")
	require.NoError(t, err)
	assert.Equal(t, ImageTypeWEBP, it)

	_, err = ParseImageType("png")
	assert.Error(t, err)
}

func TestToLabel(t *testing.T) {
	assert.Equal(t, "People entering", ToLabel("People_ entering"))
	assert.Equal(t, "In", ToLabel("In"))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModelLibraryGRPC, cfg.ModelLibrary)
	assert.Equal(t, []bool{true}, cfg.SkipFramesMask)
	assert.Equal(t, ImageTypeJPEG, cfg.ImageType)
	assert.True(t, cfg.ModelCategories.Has(models.CategoryTruck))
	assert.False(t, cfg.Zone.Enabled)
	assert.False(t, cfg.TrackingRequired())
}

func TestLoadScenarios(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	t.Setenv("SCENARIO_ZONE_ENABLED", "true")
	t.Setenv("SCENARIO_ZONE_COORDS", "0,0|100,0|100,100|0,100")
	t.Setenv("SCENARIO_ZONE_COOL_DOWN", "3")
	t.Setenv("SCENARIO_ZONE_TIME_LIMIT", "15s")
	t.Setenv("SCENARIO_DOOR_ENABLED", "true")
	t.Setenv("SCENARIO_DOOR_COORDS", "0,0|100,0")
	t.Setenv("SCENARIO_PARKING_ENABLED", "true")
	t.Setenv("SCENARIO_PARKING_COORDS", "[0,0|10,0|10,10][20,0|30,0|30,10]")
	t.Setenv("SCENARIO_DOOR_ENTERING_LABEL", "Come_in")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, geometry.Polygon{geometry.Pt(0, 0), geometry.Pt(100, 0), geometry.Pt(100, 100), geometry.Pt(0, 100)}, cfg.Zone.Polygon)
	assert.Equal(t, 3*time.Second, cfg.Zone.CoolDown)
	assert.Equal(t, 15*time.Second, cfg.Zone.TimeLimit)
	assert.Len(t, cfg.Parking.Polygons, 2)
	assert.Equal(t, "Come in", cfg.Door.EnteringLabel)
	assert.True(t, cfg.TrackingRequired(), "door forces tracking")
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")

	t.Run("unknown category", func(t *testing.T) {
		t.Setenv("MODEL_CATEGORIES", "person|dragon")
		_, err := Load()
		assert.ErrorIs(t, err, models.ErrUnknownCategory)
	})

	t.Run("bad zone", func(t *testing.T) {
		t.Setenv("SCENARIO_ZONE_ENABLED", "true")
		t.Setenv("SCENARIO_ZONE_COORDS", "1,1|2,2")
		_, err := Load()
		assert.ErrorIs(t, err, geometry.ErrInvalidPolygon)
	})

	t.Run("bad library", func(t *testing.T) {
		t.Setenv("MODEL_LIBRARY", "tensorflow")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "model_id: yolov8s\nvideo_output_fps: 12\nnotification_enabled: true\nbenchmark_enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SETTINGS_FILE", path)
	t.Setenv("VIDEO_OUTPUT_FPS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "yolov8s", cfg.ModelID)
	assert.Equal(t, 30, cfg.OutputFPS, "environment wins over the settings file")
	assert.True(t, cfg.BenchmarkEnabled)
	assert.False(t, cfg.NotificationEnabled, "benchmark disables notifications")
}

func TestLoadSettingsFileMissing(t *testing.T) {
	t.Setenv("SETTINGS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
