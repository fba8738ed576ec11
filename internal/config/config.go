// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Config
//
// Everything the sink needs at startup, resolved once from the
// environment by Load() and immutable afterwards.
type Config struct {

	// ---------------------------
	// AWS / S3 target
	// ---------------------------

	AWSRegion string // AWS region (e.g. eu-west-1)
	Bucket    string // bucket receiving artifacts and event records
	KeyPrefix string // optional prefix prepended to every object key

	// Custom endpoint support (MinIO / localstack / private gateways).
	// When S3Endpoint is set, path-style addressing is used.
	S3Endpoint  string
	S3VerifyTLS bool // false disables TLS certificate verification

	// Optional static credentials. When either is empty the SDK's
	// default chain (env, shared config, instance role) is used.
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	S3Timeout time.Duration // per HeadObject/PutObject call timeout

	// ---------------------------
	// Identity / network
	// ---------------------------

	ServiceName string // logical service name stamped on every log line
	InstanceID  string // hostname, or a random UUID when unavailable
	HTTPAddr    string // ingest server bind address

	// ---------------------------
	// Ingestion parameters
	// ---------------------------

	MaxBodySize   int64  // max /ingest request body (bytes)
	ChannelSize   int    // record queue depth before backpressure kicks in
	UploadWorkers int    // concurrent remote check-and-upload slots
	StageDir      string // directory for staged generic-event files

	// ---------------------------
	// Logging
	// ---------------------------

	LogLevel   string // zerolog level name ("info", "debug", ...)
	LogPretty  bool   // console writer for local development
	LogSampleN uint32 // sample 1/N of debug+info lines (0/1 = no sampling)
}

// Load resolves the configuration from the environment.
// The S3 target is mandatory (fail-fast); everything else carries an
// operational default so a bare deployment next to the honeypot works.
func Load() Config {
	return Config{
		AWSRegion: must("AWS_REGION"),
		Bucket:    must("BUCKET"),
		KeyPrefix: optional("KEY_PREFIX", ""),

		S3Endpoint:  optional("S3_ENDPOINT", ""),
		S3VerifyTLS: optionalBool("S3_VERIFY_TLS", true),

		AWSAccessKeyID:     optional("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: optional("AWS_SECRET_ACCESS_KEY", ""),

		S3Timeout: optionalDur("S3_TIMEOUT", 30*time.Second),

		ServiceName: optional("SERVICE_NAME", "trapsink"),
		InstanceID:  fallbackInstanceID(),
		HTTPAddr:    optional("HTTP_ADDR", ":8080"),

		MaxBodySize:   optionalInt64("MAX_BODY_SIZE", 1<<20), // 1MB
		ChannelSize:   optionalInt("CHANNEL_SIZE", 1024),
		UploadWorkers: optionalInt("UPLOAD_WORKERS", 8),
		StageDir:      optional("STAGE_DIR", os.TempDir()),

		LogLevel:   optional("LOG_LEVEL", "info"),
		LogPretty:  optionalBool("LOG_PRETTY", false),
		LogSampleN: uint32(optionalInt("LOG_SAMPLE_N", 0)),
	}
}

// must fails the process when a required env var is missing. Catching a
// misconfigured deployment at startup beats failing uploads at runtime.
func must(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing required env: %s", key)
	}
	return v
}

func optional(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func optionalInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s=%q: %v", key, v, err)
	}
	return n
}

func optionalInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid int64 env %s=%q: %v", key, v, err)
	}
	return n
}

func optionalBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("invalid bool env %s=%q: %v", key, v, err)
	}
	return b
}

func optionalDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s=%q: %v", key, v, err)
	}
	return d
}

// fallbackInstanceID identifies this sink instance in logs and staged
// file names. Hostname first (unique per container/task), random UUID
// when the hostname is unavailable.
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return uuid.NewString()
}
