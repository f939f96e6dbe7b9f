package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"
)

type Config struct {
	APIBaseURL     string
	HTTPTimeout    time.Duration
	PollInterval   time.Duration
	MaxUploadBytes int64
	HEICConverter  string

	RateLimitRPS   float64
	RateLimitBurst int
	BreakerEnabled bool

	SessionStore  string
	SessionPath   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	NATSURL           string
	NATSSubjectPrefix string

	MetricsAddr     string
	OTelEnabled     bool
	OTelServiceName string
	LogLevel        string

	DevBackendPort        string
	DevBackendAutoAdvance time.Duration
	DevBackendAdmins      []string
}

// Load reads .env, then the YAML file named by DOCCTL_CONFIG, then the environment.
// Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	src := source{}
	if path := os.Getenv("DOCCTL_CONFIG"); path != "" {
		fileValues, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src = fileValues
	}

	cfg := Config{
		APIBaseURL:     src.mustEnv("API_BASE_URL", "http://localhost:5000/api"),
		HTTPTimeout:    src.mustEnvDuration("HTTP_TIMEOUT", 60*time.Second),
		PollInterval:   src.mustEnvDuration("POLL_INTERVAL", 3*time.Second),
		MaxUploadBytes: int64(src.mustEnvInt("MAX_UPLOAD_BYTES", 20*1024*1024)),
		HEICConverter:  src.mustEnv("HEIC_CONVERTER", "heif-convert"),

		RateLimitRPS:   src.mustEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: src.mustEnvInt("RATE_LIMIT_BURST", 5),
		BreakerEnabled: src.mustEnvBool("BREAKER_ENABLED", true),

		SessionStore:  strings.ToLower(src.mustEnv("SESSION_STORE", SessionStoreFile)),
		SessionPath:   src.mustEnv("SESSION_PATH", defaultSessionPath()),
		RedisAddr:     src.mustEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: src.mustEnv("REDIS_PASSWORD", ""),
		RedisDB:       src.mustEnvInt("REDIS_DB", 0),
		SessionTTL:    src.mustEnvDuration("SESSION_TTL", 24*time.Hour),

		NATSURL:           src.mustEnv("NATS_URL", ""),
		NATSSubjectPrefix: src.mustEnv("NATS_SUBJECT_PREFIX", "documents.lifecycle"),

		MetricsAddr:     src.mustEnv("METRICS_ADDR", ""),
		OTelEnabled:     src.mustEnvBool("OTEL_ENABLED", false),
		OTelServiceName: src.mustEnv("OTEL_SERVICE_NAME", "docctl"),
		LogLevel:        src.mustEnv("LOG_LEVEL", "info"),

		DevBackendPort:        src.mustEnv("DEVBACKEND_PORT", "5000"),
		DevBackendAutoAdvance: src.mustEnvDuration("DEVBACKEND_AUTO_ADVANCE", 2*time.Second),
		DevBackendAdmins:      splitList(src.mustEnv("DEVBACKEND_ADMINS", "")),
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, errors.New("API_BASE_URL must not be empty"))
	} else if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL must be an http(s) url, got %q", c.APIBaseURL))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	switch c.HEICConverter {
	case "heif-convert", "magick", "sips":
	default:
		errs = append(errs, fmt.Errorf("HEIC_CONVERTER must be one of heif-convert, magick, sips, got %q", c.HEICConverter))
	}
	switch c.SessionStore {
	case SessionStoreFile, SessionStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be file or redis, got %q", c.SessionStore))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}
	return errors.Join(errs...)
}

// source holds values from the YAML file keyed by upper-case env name.
type source map[string]string

func readFile(path string) (source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(source, len(values))
	for key, value := range values {
		if value == nil {
			continue
		}
		var text string
		switch v := value.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			text = strings.Join(parts, ",")
		default:
			text = fmt.Sprint(v)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = text
	}
	return out, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("3s") and bare seconds ("3").
func (s source) mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", ".docctl-session.json")
	}
	return filepath.Join(dir, "docctl", "session.json")
}
