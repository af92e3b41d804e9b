// Package config loads ThreatSleuth settings from an optional YAML file and
// the environment. Environment variables take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

const mib = 1024 * 1024

// Config holds the settings shared by the server, worker and CLI.
type Config struct {
	LoggerEnv   string        `yaml:"logger_env"`
	Features    string        `yaml:"features"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	Model  ModelConfig  `yaml:"model"`
	Upload UploadConfig `yaml:"upload"`
	Server ServerConfig `yaml:"server"`
	Worker WorkerConfig `yaml:"worker"`
}

// ModelConfig locates the trained model. With neither field set the default
// search paths are used.
type ModelConfig struct {
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
}

// UploadConfig limits what may be submitted for classification.
type UploadConfig struct {
	MaxSizeMB         int64    `yaml:"max_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// WorkerConfig configures the queue worker.
type WorkerConfig struct {
	Subscription      string `yaml:"subscription"`
	UploadsBucket     string `yaml:"uploads_bucket"`
	NotificationTopic string `yaml:"notification_topic"`
	Concurrency       int    `yaml:"concurrency"`
	MetricsAddr       string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LoggerEnv:   "dev",
		ScanTimeout: 30 * time.Second,
		Upload: UploadConfig{
			MaxSizeMB:         50,
			AllowedExtensions: []string{"exe", "zip", "txt", "bin", "dll"},
		},
		Server: ServerConfig{
			Port:        "5000",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Worker: WorkerConfig{
			Concurrency: 1,
		},
	}
}

// Load builds a configuration from the defaults, the YAML file at path (if
// path is not empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("LOGGER_ENV", &c.LoggerEnv)
	str("PORT", &c.Server.Port)
	str("THREATSLEUTH_FEATURES", &c.Features)
	str("THREATSLEUTH_MODEL_PATH", &c.Model.Path)
	str("THREATSLEUTH_MODEL_BUCKET", &c.Model.Bucket)
	str("THREATSLEUTH_UPLOADS_BUCKET", &c.Worker.UploadsBucket)
	str("THREATSLEUTH_SUBSCRIPTION", &c.Worker.Subscription)
	str("THREATSLEUTH_NOTIFICATION_TOPIC", &c.Worker.NotificationTopic)
	str("THREATSLEUTH_METRICS_ADDR", &c.Worker.MetricsAddr)
	list("THREATSLEUTH_ALLOWED_EXTENSIONS", &c.Upload.AllowedExtensions)
	list("THREATSLEUTH_CORS_ORIGINS", &c.Server.CORSOrigins)

	if v, ok := lookup("THREATSLEUTH_MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("THREATSLEUTH_MAX_UPLOAD_MB: %w", err)
		}
		c.Upload.MaxSizeMB = n
	}
	if v, ok := lookup("THREATSLEUTH_SCAN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("THREATSLEUTH_SCAN_TIMEOUT: %w", err)
		}
		c.ScanTimeout = d
	}
	if v, ok := lookup("THREATSLEUTH_WORKER_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("THREATSLEUTH_WORKER_CONCURRENCY: %w", err)
		}
		c.Worker.Concurrency = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the configuration and normalises the extension list to
// lower case without leading dots.
func (c *Config) Validate() error {
	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: max upload size must be positive, got %d MB", ErrInvalid, c.Upload.MaxSizeMB)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("%w: scan timeout must be positive, got %v", ErrInvalid, c.ScanTimeout)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("%w: worker concurrency must be at least 1, got %d", ErrInvalid, c.Worker.Concurrency)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: no allowed extensions", ErrInvalid)
	}
	exts := make([]string, 0, len(c.Upload.AllowedExtensions))
	for _, e := range c.Upload.AllowedExtensions {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), ".")))
	}
	slices.Sort(exts)
	c.Upload.AllowedExtensions = slices.Compact(exts)
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Upload.MaxSizeMB * mib
}

// ExtensionAllowed reports whether ext, without a leading dot, may be
// uploaded. Matching is case insensitive.
func (c *Config) ExtensionAllowed(ext string) bool {
	_, found := slices.BinarySearch(c.Upload.AllowedExtensions, strings.ToLower(ext))
	return ext != "" && found
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("logger_env", c.LoggerEnv),
		slog.String("features", c.Features),
		slog.Duration("scan_timeout", c.ScanTimeout),
		slog.String("model_path", c.Model.Path),
		slog.String("model_bucket", c.Model.Bucket),
		slog.Int64("max_upload_mb", c.Upload.MaxSizeMB),
		slog.Any("allowed_extensions", c.Upload.AllowedExtensions),
		slog.String("port", c.Server.Port),
		slog.Any("cors_origins", c.Server.CORSOrigins),
		slog.String("subscription", c.Worker.Subscription),
		slog.String("uploads_bucket", c.Worker.UploadsBucket),
		slog.String("notification_topic", c.Worker.NotificationTopic),
		slog.Int("worker_concurrency", c.Worker.Concurrency),
		slog.String("metrics_addr", c.Worker.MetricsAddr),
	)
}
