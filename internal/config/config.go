package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"karolbroda.com/syllecho/internal/logger"
)

const (
	envPrefix = "SYLLECHO_"

	DefaultFrameInterval = 33 * time.Millisecond
	MinFrameInterval     = 8 * time.Millisecond
	PollInterval         = time.Second

	SeekStepMillis             = 5000
	OffsetStepMillis           = 100
	TranslationToleranceMillis = 300

	// ClockTailMillis is how long a silent clock runs past the last line.
	ClockTailMillis = 3000
)

type Config struct {
	MprisService     string
	SyncOffsetMillis int64
	HideHeader       bool
	MaxHold          time.Duration
	FrameInterval    time.Duration
	LogLevel         logger.Level
	LogFile          string
}

// LoadEnvFile reads KEY=value pairs into the environment without overriding
// variables that are already set. An empty path tries ./.env and ignores it
// when missing.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	return godotenv.Load(path)
}

func Load() *Config {
	syncOffset, err := strconv.ParseInt(getEnvOrDefault("SYNC_OFFSET_MS", "0"), 10, 64)
	if err != nil {
		syncOffset = 0
	}

	return &Config{
		MprisService:     getEnvOrDefault("MPRIS_SERVICE", ""),
		SyncOffsetMillis: syncOffset,
		HideHeader:       parseBool(getEnvOrDefault("HIDE_HEADER", "false")),
		MaxHold:          parseDuration(getEnvOrDefault("MAX_HOLD", "0"), 0),
		FrameInterval:    ClampFrameInterval(parseDuration(getEnvOrDefault("FRAME_INTERVAL", ""), DefaultFrameInterval)),
		LogLevel:         logger.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"), logger.INFO),
		LogFile:          getEnvOrDefault("LOG_FILE", ""),
	}
}

// ClampFrameInterval keeps the frame signal between 120fps and zero.
func ClampFrameInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultFrameInterval
	}
	return max(d, MinFrameInterval)
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback
	}
	return value
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseDuration accepts Go durations ("1.5s") and bare milliseconds ("1500").
func parseDuration(s string, fallback time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
