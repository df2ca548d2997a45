package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CHATROOM_DOCUMENTS_URI.
const EnvPrefix = "CHATROOM"

// Config represents the global ~/.chatroom/config.toml.
type Config struct {
	DefaultProfile string             `toml:"default_profile" mapstructure:"default_profile"`
	Log            LogConfig          `toml:"log" mapstructure:"log"`
	Identity       IdentityConfig     `toml:"identity" mapstructure:"identity"`
	Documents      DocumentsConfig    `toml:"documents" mapstructure:"documents"`
	Upload         UploadConfig       `toml:"upload" mapstructure:"upload"`
	Connectivity   ConnectivityConfig `toml:"connectivity" mapstructure:"connectivity"`
	Breaker        BreakerConfig      `toml:"breaker" mapstructure:"breaker"`
}

type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
}

// IdentityConfig points at an Identity Toolkit compatible REST endpoint.
type IdentityConfig struct {
	Endpoint       string `toml:"endpoint" mapstructure:"endpoint"`
	APIKey         string `toml:"api_key" mapstructure:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// DocumentsConfig selects the remote message channel backend.
// Backend is one of "mongo", "redis" or "memory".
type DocumentsConfig struct {
	Backend    string `toml:"backend" mapstructure:"backend"`
	URI        string `toml:"uri" mapstructure:"uri"`
	Database   string `toml:"database" mapstructure:"database"`
	Collection string `toml:"collection" mapstructure:"collection"`
}

// UploadConfig selects the image object store. Backend is "cloudinary" or "s3".
type UploadConfig struct {
	Backend       string `toml:"backend" mapstructure:"backend"`
	Endpoint      string `toml:"endpoint" mapstructure:"endpoint"`
	CloudName     string `toml:"cloud_name" mapstructure:"cloud_name"`
	UploadPreset  string `toml:"upload_preset" mapstructure:"upload_preset"`
	Folder        string `toml:"folder" mapstructure:"folder"`
	MaxWidth      int    `toml:"max_width" mapstructure:"max_width"`
	JPEGQuality   int    `toml:"jpeg_quality" mapstructure:"jpeg_quality"`
	Region        string `toml:"region" mapstructure:"region"`
	Bucket        string `toml:"bucket" mapstructure:"bucket"`
	PublicBaseURL string `toml:"public_base_url" mapstructure:"public_base_url"`
}

type ConnectivityConfig struct {
	Targets         []string `toml:"targets" mapstructure:"targets"`
	IntervalSeconds int      `toml:"interval_seconds" mapstructure:"interval_seconds"`
	TimeoutMillis   int      `toml:"timeout_millis" mapstructure:"timeout_millis"`
}

// BreakerConfig tunes the circuit breaker around outbound HTTP calls.
type BreakerConfig struct {
	MaxFailures        int `toml:"max_failures" mapstructure:"max_failures"`
	OpenTimeoutSeconds int `toml:"open_timeout_seconds" mapstructure:"open_timeout_seconds"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		Log:            LogConfig{Level: "info"},
		Identity: IdentityConfig{
			Endpoint:       "https://identitytoolkit.googleapis.com/v1",
			TimeoutSeconds: 15,
		},
		Documents: DocumentsConfig{
			Backend:    "mongo",
			URI:        "mongodb://localhost:27017",
			Database:   "chatroom",
			Collection: "messages",
		},
		Upload: UploadConfig{
			Backend:      "cloudinary",
			Endpoint:     "https://api.cloudinary.com/v1_1",
			UploadPreset: "chat_uploads",
			Folder:       "chat_images",
			MaxWidth:     1280,
			JPEGQuality:  70,
		},
		Connectivity: ConnectivityConfig{
			Targets:         []string{"identitytoolkit.googleapis.com:443", "api.cloudinary.com:443"},
			IntervalSeconds: 5,
			TimeoutMillis:   2000,
		},
		Breaker: BreakerConfig{
			MaxFailures:        5,
			OpenTimeoutSeconds: 30,
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("default_profile", d.DefaultProfile)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("identity.endpoint", d.Identity.Endpoint)
	v.SetDefault("identity.api_key", d.Identity.APIKey)
	v.SetDefault("identity.timeout_seconds", d.Identity.TimeoutSeconds)
	v.SetDefault("documents.backend", d.Documents.Backend)
	v.SetDefault("documents.uri", d.Documents.URI)
	v.SetDefault("documents.database", d.Documents.Database)
	v.SetDefault("documents.collection", d.Documents.Collection)
	v.SetDefault("upload.backend", d.Upload.Backend)
	v.SetDefault("upload.endpoint", d.Upload.Endpoint)
	v.SetDefault("upload.cloud_name", d.Upload.CloudName)
	v.SetDefault("upload.upload_preset", d.Upload.UploadPreset)
	v.SetDefault("upload.folder", d.Upload.Folder)
	v.SetDefault("upload.max_width", d.Upload.MaxWidth)
	v.SetDefault("upload.jpeg_quality", d.Upload.JPEGQuality)
	v.SetDefault("upload.region", d.Upload.Region)
	v.SetDefault("upload.bucket", d.Upload.Bucket)
	v.SetDefault("upload.public_base_url", d.Upload.PublicBaseURL)
	v.SetDefault("connectivity.targets", d.Connectivity.Targets)
	v.SetDefault("connectivity.interval_seconds", d.Connectivity.IntervalSeconds)
	v.SetDefault("connectivity.timeout_millis", d.Connectivity.TimeoutMillis)
	v.SetDefault("breaker.max_failures", d.Breaker.MaxFailures)
	v.SetDefault("breaker.open_timeout_seconds", d.Breaker.OpenTimeoutSeconds)
	return v
}

// Load reads config from the given path, applying defaults and CHATROOM_*
// environment overrides. Returns an error if the file is missing.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadOrDefault is Load, falling back to defaults plus environment
// overrides when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return unmarshal(newViper())
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Interval is the connectivity probe period.
func (c ConnectivityConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout bounds a single connectivity probe.
func (c ConnectivityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// Timeout bounds a single identity request.
func (c IdentityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OpenTimeout is how long the breaker stays open before probing again.
// Threshold is the number of consecutive failures that opens the breaker.
// Values below one fall back to the default.
func (c BreakerConfig) Threshold() uint32 {
	if c.MaxFailures <= 0 {
		return uint32(Default().Breaker.MaxFailures)
	}
	return uint32(c.MaxFailures)
}

func (c BreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutSeconds) * time.Second
}
