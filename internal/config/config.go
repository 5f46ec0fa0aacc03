package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenWeatherMap current-weather provider.
	WeatherAPIKey         string
	WeatherBaseURL        string
	WeatherCountry        string
	WeatherTimeout        time.Duration
	WeatherMaxRetries     int
	WeatherRateLimitDelay time.Duration
	WeatherRetryDelay     time.Duration

	// Fleet sync cadence.
	SyncInterval time.Duration
	SyncPacing   time.Duration

	// Gemini prediction and speech.
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiModel      string
	GeminiTimeout    time.Duration
	PredictorEnabled bool
	SpeechModel      string
	SpeechVoice      string
	SpeechEnabled    bool
	BriefingTimeout  time.Duration

	// Alert fan-out to Kafka.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool

	DefaultCityID string
}

// Load reads configuration from environment variables (and a .env file when
// present), applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	rateLimitDelay, err := parsePositiveDuration("WEATHER_RATE_LIMIT_DELAY", "2s")
	if err != nil {
		return nil, err
	}
	retryDelay, err := parsePositiveDuration("WEATHER_RETRY_DELAY", "1s")
	if err != nil {
		return nil, err
	}
	maxRetries, err := parseNonNegativeInt("WEATHER_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	syncInterval, err := parsePositiveDuration("SYNC_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	syncPacing, err := parsePositiveDuration("SYNC_PACING", "300ms")
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := parsePositiveDuration("GEMINI_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	briefingTimeout, err := parsePositiveDuration("BRIEFING_TIMEOUT", "45s")
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	predictorEnabled := parseFlag("PREDICTOR_ENABLED", geminiKey != "")
	speechEnabled := parseFlag("SPEECH_ENABLED", geminiKey != "")

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := parseFlag("KAFKA_ENABLED", len(brokers) > 0)

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WeatherAPIKey:         os.Getenv("OPENWEATHER_API_KEY"),
		WeatherBaseURL:        sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		WeatherCountry:        sharedcfg.EnvOrDefault("WEATHER_COUNTRY", "IN"),
		WeatherTimeout:        weatherTimeout,
		WeatherMaxRetries:     maxRetries,
		WeatherRateLimitDelay: rateLimitDelay,
		WeatherRetryDelay:     retryDelay,

		SyncInterval: syncInterval,
		SyncPacing:   syncPacing,

		GeminiAPIKey:     geminiKey,
		GeminiBaseURL:    sharedcfg.EnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:      sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiTimeout:    geminiTimeout,
		PredictorEnabled: predictorEnabled,
		SpeechModel:      sharedcfg.EnvOrDefault("SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		SpeechVoice:      sharedcfg.EnvOrDefault("SPEECH_VOICE", "Kore"),
		SpeechEnabled:    speechEnabled,
		BriefingTimeout:  briefingTimeout,

		KafkaBrokers:    brokers,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "climate-alerts"),
		KafkaEnabled:    kafkaEnabled,

		DefaultCityID: sharedcfg.EnvOrDefault("DEFAULT_CITY_ID", "1"),
	}

	if cfg.PredictorEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("PREDICTOR_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.SpeechEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("SPEECH_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFlag(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}
