// Package config provides configuration for the visionaid daemon.
// Values come from the environment with optional .env loading; flags
// in cmd/visionaid override individual fields.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/visionaid/go-visionaid/internal/log"
)

// Config holds everything the daemon needs at startup.
type Config struct {
	// Pi endpoints
	PiBaseURL string // sensor API, e.g. http://pi:5000
	StreamURL string // MJPEG video feed; derived from PiBaseURL if empty

	// Detection
	ModelPath        string
	ClassesPath      string
	InferenceEvery   time.Duration
	ConfidenceThresh float64

	// Alerting
	CooldownWindow   time.Duration
	EscalationBypass bool // re-announce on zone escalation within the window

	// Safety polling
	SafetyPollEvery time.Duration
	EnvPollEvery    time.Duration
	PollTimeout     time.Duration

	// Speech
	TTSAPIKey  string
	TTSVoice   string
	STTAPIKey  string
	STTBaseURL string

	// Persistence & API
	DBPath  string
	APIPort string

	LogLevel string
}

// Startup validation errors.
var (
	ErrNoPiBaseURL = errors.New("config: PI_BASE_URL is required")
	ErrNoModel     = errors.New("config: detection model file not found")
	ErrNoClasses   = errors.New("config: relevant classes file not found")
)

// Load reads configuration from .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file, using environment", "err", err)
	}

	cfg := &Config{
		PiBaseURL:        os.Getenv("PI_BASE_URL"),
		StreamURL:        os.Getenv("STREAM_URL"),
		ModelPath:        getEnv("MODEL_PATH", "models/yolov8n.onnx"),
		ClassesPath:      getEnv("CLASSES_PATH", "relevant_classes"),
		InferenceEvery:   getEnvDuration("INFERENCE_INTERVAL", 5*time.Second),
		ConfidenceThresh: getEnvFloat("CONFIDENCE_THRESHOLD", 0.5),
		CooldownWindow:   getEnvDuration("COOLDOWN_WINDOW", 3*time.Second),
		EscalationBypass: getEnvBool("ESCALATION_BYPASS", false),
		SafetyPollEvery:  getEnvDuration("SAFETY_POLL_INTERVAL", 2*time.Second),
		EnvPollEvery:     getEnvDuration("ENV_POLL_INTERVAL", 30*time.Second),
		PollTimeout:      getEnvDuration("POLL_TIMEOUT", 5*time.Second),
		TTSAPIKey:        os.Getenv("ELEVENLABS_API_KEY"),
		TTSVoice:         os.Getenv("ELEVENLABS_VOICE_ID"),
		STTAPIKey:        os.Getenv("STT_API_KEY"),
		STTBaseURL:       os.Getenv("STT_BASE_URL"),
		DBPath:           getEnv("DB_PATH", "vision_data.db"),
		APIPort:          getEnv("API_PORT", "5001"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if cfg.StreamURL == "" && cfg.PiBaseURL != "" {
		cfg.StreamURL = cfg.PiBaseURL + "/video_feed"
	}

	return cfg
}

// Validate checks required startup resources. A missing model or class
// list is fatal: the pipeline cannot classify without them.
func (c *Config) Validate() error {
	if c.PiBaseURL == "" {
		return ErrNoPiBaseURL
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return ErrNoModel
	}
	if _, err := os.Stat(c.ClassesPath); err != nil {
		return ErrNoClasses
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
