package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hsinghweb/web-history-search-rag/internal/chunker"
)

type Config struct {
	Port string

	// Indexing backend connection
	BackendURL string

	// Optional bearer key for this service's API
	APIKey string

	// Chunking must match the backend's setting or positional chunk
	// lookup degrades to the fuzzy fallback.
	ChunkSize int

	// Highlight delivery
	InjectDelay time.Duration
	SendRetries int
	RetryDelay  time.Duration
	PulseWindow time.Duration

	// How long an opened session may wait for its page view to report
	// loaded before the pending delivery is abandoned and the session
	// reaped.
	LoadTimeout time.Duration

	// Visit pipeline
	QueueSize   int
	WorkerCount int

	// Upload limits
	MaxBodyBytes int64

	// Exclusion policy
	ExcludedHosts []string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		BackendURL: envOr("BACKEND_URL", "http://localhost:8000"),
		APIKey:     os.Getenv("WHS_API_KEY"),

		ChunkSize: envInt("CHUNK_SIZE", chunker.DefaultSize),

		InjectDelay: envDuration("INJECT_DELAY", 1*time.Second),
		SendRetries: envInt("SEND_RETRIES", 5),
		RetryDelay:  envDuration("RETRY_DELAY", 500*time.Millisecond),
		PulseWindow: envDuration("PULSE_WINDOW", 2*time.Second),
		LoadTimeout: envDuration("LOAD_TIMEOUT", 2*time.Minute),

		QueueSize:   envInt("QUEUE_SIZE", 100),
		WorkerCount: envInt("WORKER_COUNT", 2),

		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 10485760), // 10MB

		ExcludedHosts: splitHosts(envOr("EXCLUDED_HOSTS",
			"localhost,127.0.0.1,accounts.google.com,mail.google.com")),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.SendRetries <= 0 {
		cfg.SendRetries = 5
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 2 * time.Minute
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10485760
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
