package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Bounds for the user-configurable notification radius.
const (
	MinNotifyRadiusKm = 1.0
	MaxNotifyRadiusKm = 50.0
)

// Config holds all service settings, populated from environment variables.
// Both the API server and the notifier load the same config; each binary
// uses the subset it needs.
type Config struct {
	SupabaseURL     string
	SupabaseAnonKey string
	SupabaseTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SessionCacheSize int

	// PromoRadiusKm is the fixed cutoff for the promotions feed.
	PromoRadiusKm float64

	// Notifier settings.
	KafkaBrokers          []string
	KafkaAlertTopic       string
	NotifySchedule        string
	NotifyDefaultRadiusKm float64
	NotifyCooldown        time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	supabaseTimeout, err := parseDuration("SUPABASE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cooldown, err := parseDuration("NOTIFY_COOLDOWN", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	promoRadius, err := parseFloat("PROMO_RADIUS_KM", 100)
	if err != nil {
		return nil, err
	}

	notifyRadius, err := parseFloat("NOTIFY_DEFAULT_RADIUS_KM", 4)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("SESSION_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseTimeout: supabaseTimeout,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SessionCacheSize: cacheSize,
		PromoRadiusKm:    promoRadius,

		KafkaBrokers:          parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic:       envOrDefault("KAFKA_ALERT_TOPIC", "proximity-alerts"),
		NotifySchedule:        envOrDefault("NOTIFY_SCHEDULE", "@every 15m"),
		NotifyDefaultRadiusKm: notifyRadius,
		NotifyCooldown:        cooldown,
	}

	if cfg.SupabaseURL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, errors.New("SUPABASE_ANON_KEY is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.PromoRadiusKm <= 0 {
		return nil, errors.New("PROMO_RADIUS_KM must be positive")
	}
	if cfg.NotifyDefaultRadiusKm < MinNotifyRadiusKm || cfg.NotifyDefaultRadiusKm > MaxNotifyRadiusKm {
		return nil, fmt.Errorf("NOTIFY_DEFAULT_RADIUS_KM must be in [%v, %v]", MinNotifyRadiusKm, MaxNotifyRadiusKm)
	}
	if cfg.NotifyCooldown <= 0 {
		return nil, errors.New("NOTIFY_COOLDOWN must be positive")
	}

	return cfg, nil
}

// ClampNotifyRadius forces a user-supplied notification radius into the
// supported range, falling back to def when unset or non-positive.
func ClampNotifyRadius(radiusKm, def float64) float64 {
	if radiusKm <= 0 {
		return def
	}
	if radiusKm < MinNotifyRadiusKm {
		return MinNotifyRadiusKm
	}
	if radiusKm > MaxNotifyRadiusKm {
		return MaxNotifyRadiusKm
	}
	return radiusKm
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
