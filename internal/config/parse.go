package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSkipMask turns "1 0 1 1" into the per-frame detection mask. The
// string is read right to left. With skipping disabled every frame runs
// detection.
func ParseSkipMask(enabled bool, value string) []bool {
	if !enabled {
		return []bool{true}
	}
	bits := strings.ReplaceAll(value, " ", "")
	mask := make([]bool, 0, len(bits))
	for i := len(bits) - 1; i >= 0; i-- {
		mask = append(mask, bits[i] == '1')
	}
	if len(mask) == 0 {
		return []bool{true}
	}
	return mask
}

// ParseResolution parses "WIDTHxHEIGHT".
func ParseResolution(value string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(value)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q", value)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", value)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", value)
	}
	return w, h, nil
}

// ParseImageType accepts "jpeg", "jpg" or "webp".
func ParseImageType(value string) (ImageType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jpeg", "jpg":
		return ImageTypeJPEG, nil
	case "webp":
		return ImageTypeWEBP, nil
	default:
		return "", fmt.Errorf("unsupported image type %q", value)
	}
}

// ToLabel turns a config token into display text: spaces are dropped and
// underscores become spaces.
func ToLabel(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, " ", ""), "_", " ")
}
