package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	Workers         int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	PollInterval    time.Duration
	ShutdownTimeout time.Duration

	DownloadDir string
	MediaDir    string

	PostgresDSN string

	RedisAddr  string
	RedisDB    int
	RateLimit  int
	RateWindow time.Duration

	RabbitMQURL      string
	RabbitMQExchange string

	S3Endpoint   string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3UseSSL     bool
	S3PresignTTL time.Duration
}

// Load reads the process environment, optionally seeded from the given .env
// files (default ".env"). Missing files are not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		Workers:         envIntOr("WORKERS", 4),
		MaxRetries:      envIntOr("MAX_RETRIES", 3),
		RetryBaseDelay:  envDurationOr("RETRY_BASE_DELAY", 2*time.Second),
		RetryMaxDelay:   envDurationOr("RETRY_MAX_DELAY", time.Minute),
		PollInterval:    envDurationOr("POLL_INTERVAL", 5*time.Second),
		ShutdownTimeout: envDurationOr("SHUTDOWN_TIMEOUT", 30*time.Second),

		DownloadDir: envOr("DOWNLOAD_DIR", "./downloads"),
		MediaDir:    envOr("MEDIA_DIR", "./media"),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisDB:    envIntOr("REDIS_DB", 0),
		RateLimit:  envIntOr("RATE_LIMIT", 100),
		RateWindow: envDurationOr("RATE_WINDOW", 15*time.Minute),

		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: envOr("RABBITMQ_EXCHANGE", "jobs.exchange"),

		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Bucket:     envOr("S3_BUCKET", "media"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:     envBoolOr("S3_USE_SSL", false),
		S3PresignTTL: envDurationOr("S3_PRESIGN_TTL", 24*time.Hour),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be >= 1, got %d", c.Workers))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be >= 1, got %d", c.MaxRetries))
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		errs = append(errs, fmt.Errorf("RETRY_MAX_DELAY (%s) is below RETRY_BASE_DELAY (%s)", c.RetryMaxDelay, c.RetryBaseDelay))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required with S3_ENDPOINT"))
	}
	return errors.Join(errs...)
}

// String is safe to log.
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "http_addr=%s workers=%d max_retries=%d retry_base=%s retry_max=%s",
		c.HTTPAddr, c.Workers, c.MaxRetries, c.RetryBaseDelay, c.RetryMaxDelay)
	fmt.Fprintf(&b, " download_dir=%s media_dir=%s", c.DownloadDir, c.MediaDir)
	fmt.Fprintf(&b, " postgres_dsn=%s redis_addr=%s rabbitmq_url=%s s3_endpoint=%s",
		orOff(RedactDSN(c.PostgresDSN)), orOff(c.RedisAddr), orOff(RedactDSN(c.RabbitMQURL)), orOff(c.S3Endpoint))
	return b.String()
}

func orOff(v string) string {
	if v == "" {
		return "off"
	}
	return v
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactDSN masks the password in URL-style DSNs: user:pass@ -> user:****@.
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return i
}

// envDurationOr accepts Go durations ("90s") or plain seconds ("90").
func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[config] invalid %s=%q, using %s", key, v, def)
	return def
}

func envBoolOr(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}
