// Package config loads dtsmember settings from YAML, environment and
// defaults using viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/tracing"
)

// KV backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	configName = "dtsmember"
	configType = "yaml"
	envPrefix  = "DTSMEMBER"
)

var (
	// ErrLog is returned for an unknown log level or format.
	ErrLog = errors.New("config: bad log setting")

	// ErrAudit is returned for a bad audit capacity or policy.
	ErrAudit = errors.New("config: bad audit setting")

	// ErrKV is returned for an unknown backend or a missing path.
	ErrKV = errors.New("config: bad kv setting")
)

// Config is the full dtsmember configuration.
type Config struct {
	// Actor is recorded in audit entries.
	Actor   string         `mapstructure:"actor"`
	Log     LogConfig      `mapstructure:"log"`
	Audit   AuditConfig    `mapstructure:"audit"`
	KV      KVConfig       `mapstructure:"kv"`
	Shard   ShardConfig    `mapstructure:"shard"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig sizes each registration's audit ring.
type AuditConfig struct {
	Capacity int `mapstructure:"capacity"`

	// Policy is "reject" or "evict-oldest" and applies once the ring is full.
	Policy string `mapstructure:"policy"`
}

// KVConfig selects where publisher and cache registrations mirror
// committed objects.
type KVConfig struct {
	Backend string `mapstructure:"backend"`

	// Path is the SQLite database for the sqlite backend.
	Path string `mapstructure:"path"`

	// TTL expires memory backend entries. Zero keeps them forever.
	TTL time.Duration `mapstructure:"ttl"`
}

// ShardConfig places shard records in a SQLite database. An empty path
// keeps registrations on their in-memory tables.
type ShardConfig struct {
	Path string `mapstructure:"path"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Actor:   "dtsmember",
		Log:     LogConfig{Level: "info", Format: FormatText},
		Audit:   AuditConfig{Capacity: member.DefaultAuditCapacity, Policy: member.AuditReject.String()},
		KV:      KVConfig{Backend: BackendNone},
		Tracing: tracing.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("actor", d.Actor)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("audit.capacity", d.Audit.Capacity)
	v.SetDefault("audit.policy", d.Audit.Policy)
	v.SetDefault("kv.backend", d.KV.Backend)
	v.SetDefault("kv.path", d.KV.Path)
	v.SetDefault("kv.ttl", d.KV.TTL)
	v.SetDefault("shard.path", d.Shard.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load reads path, or dtsmember.yaml from the working directory when path
// is empty. A missing default file is not an error; a missing explicit
// file is. DTSMEMBER_* environment variables override file values
// (DTSMEMBER_KV_BACKEND sets kv.backend).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log.format %q", ErrLog, c.Log.Format)
	}

	if c.Audit.Capacity < 1 {
		return fmt.Errorf("%w: audit.capacity must be positive, got %d", ErrAudit, c.Audit.Capacity)
	}
	if _, err := member.ParseAuditPolicy(c.Audit.Policy); err != nil {
		return fmt.Errorf("%w: %v", ErrAudit, err)
	}

	switch c.KV.Backend {
	case BackendNone, BackendMemory:
	case BackendSQLite:
		if c.KV.Path == "" {
			return fmt.Errorf("%w: kv.path is required for the sqlite backend", ErrKV)
		}
	default:
		return fmt.Errorf("%w: kv.backend %q", ErrKV, c.KV.Backend)
	}
	if c.KV.TTL < 0 {
		return fmt.Errorf("%w: kv.ttl is negative", ErrKV)
	}

	return c.Tracing.Validate()
}

// AuditPolicy returns the parsed audit policy. Call after Validate.
func (c Config) AuditPolicy() member.AuditPolicy {
	p, err := member.ParseAuditPolicy(c.Audit.Policy)
	if err != nil {
		return member.AuditReject
	}
	return p
}

// Logger builds the slog logger described by the log section. verbose
// forces debug level.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil || verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrLog, s)
	}
	return l, nil
}

// DefaultYAML is written by WriteDefault.
const DefaultYAML = `# dtsmember configuration
actor: dtsmember

log:
  level: info      # debug, info, warn, error
  format: text     # text or json

audit:
  capacity: 8
  policy: reject   # reject or evict-oldest once the ring is full

kv:
  backend: none    # none, memory or sqlite
  # path: member.db
  # ttl: 10m       # memory backend only

shard:
  path: ""         # SQLite file for shard records; empty keeps tables in memory

tracing:
  enabled: false
  exporter: file   # none, file, stdout, otlp
  # file_path: traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: dts-member
`

// WriteDefault writes DefaultYAML to path unless a file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(DefaultYAML), 0o644)
}
