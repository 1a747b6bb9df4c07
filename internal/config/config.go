package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Camera
	// CameraSource is a device index ("0") or a stream URL
	CameraSource        string
	CameraWidth         int
	CameraHeight        int
	CameraMaxRetries    int
	ReconnectBackoffMin time.Duration
	ReconnectBackoffMax time.Duration
	ReconnectJitterPct  int

	// Detection
	DetectorBackend    string // "yolo" or "remote"
	AIGRPCURL          string
	AITimeout          time.Duration
	YOLOConfigPath     string
	YOLOWeightsPath    string
	YOLONamesPath      string
	YOLOInputSize      int
	YOLOScoreThreshold float64
	YOLONMSThreshold   float64
	VehicleLabels      []string

	// Signal timing
	GreenSecondsPerVehicle float64
	MinGreenSeconds        float64
	YellowSeconds          float64
	CountdownTick          time.Duration
	PhasePause             time.Duration

	// Display
	DisplayRefreshInterval time.Duration
	DisplayWidth           int
	DisplayHeight          int
	JPEGQuality            int
	UIEnabled              bool

	// NATS (events and remote control)
	NatsEnabled        bool
	NatsURL            string
	NatsSubjectPrefix  string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// Event fan-out buffer per subscriber
	EventBufferSize int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "intersection-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Camera
		CameraSource:        getEnv("CAMERA_SOURCE", "0"),
		CameraWidth:         getEnvInt("CAMERA_WIDTH", 1280),
		CameraHeight:        getEnvInt("CAMERA_HEIGHT", 720),
		CameraMaxRetries:    getEnvInt("CAMERA_MAX_RETRIES", 5),
		ReconnectBackoffMin: getEnvDuration("RECONNECT_BACKOFF_MIN", 100*time.Millisecond),
		ReconnectBackoffMax: getEnvDuration("RECONNECT_BACKOFF_MAX", 2*time.Second),
		ReconnectJitterPct:  getEnvInt("RECONNECT_JITTER_PCT", 20),

		// Detection
		DetectorBackend:    getEnv("DETECTOR_BACKEND", "yolo"),
		AIGRPCURL:          getEnv("AI_GRPC_URL", "localhost:50052"),
		AITimeout:          getEnvDuration("AI_TIMEOUT", 5*time.Second),
		YOLOConfigPath:     getEnv("YOLO_CONFIG", "models/yolov3-tiny.cfg"),
		YOLOWeightsPath:    getEnv("YOLO_WEIGHTS", "models/yolov3-tiny.weights"),
		YOLONamesPath:      getEnv("YOLO_NAMES", "models/coco.names"),
		YOLOInputSize:      getEnvInt("YOLO_INPUT_SIZE", 416),
		YOLOScoreThreshold: getEnvFloat("YOLO_SCORE_THRESHOLD", 0.5),
		YOLONMSThreshold:   getEnvFloat("YOLO_NMS_THRESHOLD", 0.4),
		VehicleLabels:      getEnvList("VEHICLE_LABELS", []string{"car", "truck", "bus", "motorbike"}),

		// Signal timing
		GreenSecondsPerVehicle: getEnvFloat("GREEN_SECONDS_PER_VEHICLE", 3.0),
		MinGreenSeconds:        getEnvFloat("MIN_GREEN_SECONDS", 2.0),
		YellowSeconds:          getEnvFloat("YELLOW_SECONDS", 4.0),
		CountdownTick:          getEnvDuration("COUNTDOWN_TICK", 100*time.Millisecond),
		PhasePause:             getEnvDuration("PHASE_PAUSE", 1*time.Second),

		// Display
		DisplayRefreshInterval: getEnvDuration("DISPLAY_REFRESH_INTERVAL", 10*time.Millisecond),
		DisplayWidth:           getEnvInt("DISPLAY_WIDTH", 640),
		DisplayHeight:          getEnvInt("DISPLAY_HEIGHT", 480),
		JPEGQuality:            getEnvInt("JPEG_QUALITY", 80),
		UIEnabled:              getEnvBool("UI_ENABLED", true),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsSubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "intersection"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		EventBufferSize: getEnvInt("EVENT_BUFFER_SIZE", 64),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

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
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
