// Package config loads the gateway's configuration: structured
// ticket_server/data_server/locations/resolvers/service_info sections
// from a YAML file (spec.md §6.3), overlaid with HTSGET_-prefixed
// environment variables for the handful of fields operators commonly
// override per-deployment (addresses, TLS paths, log level).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TicketServerConfig configures the HTTP adapter that serves htsget
// tickets.
type TicketServerConfig struct {
	Addr            string `yaml:"addr"`
	TLSCert         string `yaml:"tls_cert"`
	TLSKey          string `yaml:"tls_key"`
	CORSAllowOrigin string `yaml:"cors_allow_origin"`
	AuthEnabled     bool   `yaml:"auth_enabled"`
}

// DataServerConfig configures the optional local data server that
// serves the byte ranges a ticket points at.
type DataServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	LocalPath string `yaml:"local_path"`
	ServeAt   string `yaml:"serve_at"`
	TLSCert   string `yaml:"tls_cert"`
	TLSKey    string `yaml:"tls_key"`
}

// LocationConfig names one storage backend a resolver rule can point
// at. Backend is one of "file", "s3", "https". A location may also be
// given as the shorthand string form ("file://path/prefix",
// "s3://bucket/prefix", "https://host/prefix"), expanded by
// ParseLocationShorthand.
type LocationConfig struct {
	Name           string         `yaml:"name"`
	Backend        string         `yaml:"backend"`
	Prefix         string         `yaml:"prefix"`
	Bucket         string         `yaml:"bucket"`
	ForcePathStyle bool           `yaml:"force_path_style"`
	ResponseURL    string         `yaml:"response_url"`
	ForwardHeaders bool           `yaml:"forward_headers"`
	Crypt4GH       Crypt4GHConfig `yaml:"crypt4gh"`
}

// Crypt4GHConfig enables the Crypt4GH decoding decorator over a
// location, spec.md §4.8. Keys are base64-encoded raw 32 byte X25519
// keys.
type Crypt4GHConfig struct {
	Enabled             bool   `yaml:"enabled"`
	RecipientPrivateKey string `yaml:"recipient_private_key"`
	RecipientPublicKey  string `yaml:"recipient_public_key"`
	SenderPrivateKey    string `yaml:"sender_private_key"`
	SenderPublicKey     string `yaml:"sender_public_key"`
}

// AllowGuardConfig is the on-disk form of resolver.AllowGuard.
type AllowGuardConfig struct {
	ReferenceNames []string `yaml:"reference_names"`
	Start          *uint32  `yaml:"start"`
	End            *uint32  `yaml:"end"`
	Formats        []string `yaml:"formats"`
	Classes        []string `yaml:"classes"`
	Fields         []string `yaml:"fields"`
	Tags           []string `yaml:"tags"`
}

// ResolverRuleConfig is one entry of the resolvers list: a regex over
// incoming ids, a backreference substitution, the name of the
// LocationConfig to serve matches from, and an allow guard.
type ResolverRuleConfig struct {
	Regex        string           `yaml:"regex"`
	Substitution string           `yaml:"substitution_string"`
	Storage      string           `yaml:"storage"`
	AllowGuard   AllowGuardConfig `yaml:"allow_guard"`
	ObjectType   string           `yaml:"object_type"`
}

// IndexCacheConfig configures the optional companion-index byte cache
// sitting in front of every location's BAI/CRAI/TBI/CSI/GZI fetches.
// Backend is one of "" (disabled), "file", or "s3".
type IndexCacheConfig struct {
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	LifecycleDays  int    `yaml:"lifecycle_days"`
}

// Config is the gateway's full configuration, spec.md §6.3.
type Config struct {
	TicketServer TicketServerConfig           `yaml:"ticket_server"`
	DataServer   DataServerConfig             `yaml:"data_server"`
	Locations    []LocationConfig             `yaml:"locations"`
	Resolvers    []ResolverRuleConfig         `yaml:"resolvers"`
	IndexCache   IndexCacheConfig             `yaml:"index_cache"`
	ServiceInfo  map[string]interface{}       `yaml:"service_info"`
	LogLevel     slog.Level                   `yaml:"-"`
}

// Load reads path (if non-empty and present) as YAML, then applies
// HTSGET_-prefixed environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.LogLevel = parseLogLevel(envOr("HTSGET_LOG_LEVEL", "info"))
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		TicketServer: TicketServerConfig{Addr: ":8080"},
		DataServer:   DataServerConfig{Addr: ":8081", ServeAt: "/data"},
	}
}

// applyEnvOverrides maps HTSGET_-prefixed environment variables onto
// the handful of addressable fields operators routinely override,
// using the nested-key underscore-to-dot convention of spec.md §6.3
// (e.g. HTSGET_TICKET_SERVER_ADDR overrides ticket_server.addr).
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("HTSGET_TICKET_SERVER_ADDR"); ok {
		cfg.TicketServer.Addr = v
	}
	if v, ok := os.LookupEnv("HTSGET_TLS_CERT"); ok {
		cfg.TicketServer.TLSCert = v
	}
	if v, ok := os.LookupEnv("HTSGET_TLS_KEY"); ok {
		cfg.TicketServer.TLSKey = v
	}
	if v, ok := os.LookupEnv("HTSGET_DATA_SERVER_ADDR"); ok {
		cfg.DataServer.Addr = v
	}
	if v, ok := os.LookupEnv("HTSGET_DATA_SERVER_LOCAL_PATH"); ok {
		cfg.DataServer.LocalPath = v
	}
	if v, ok := os.LookupEnv("HTSGET_DATA_SERVER_SERVE_AT"); ok {
		cfg.DataServer.ServeAt = v
	}
	if v, ok := os.LookupEnv("HTSGET_DATA_SERVER_ENABLED"); ok {
		cfg.DataServer.Enabled = v == "true"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLocationShorthand expands a "file://path/prefix",
// "s3://bucket/prefix", or "https://host/prefix" string form into a
// LocationConfig, per spec.md §6.3's locations shorthand.
func ParseLocationShorthand(s string) (LocationConfig, error) {
	switch {
	case strings.HasPrefix(s, "file://"):
		return LocationConfig{Backend: "file", Prefix: strings.TrimPrefix(s, "file://")}, nil
	case strings.HasPrefix(s, "s3://"):
		rest := strings.TrimPrefix(s, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		return LocationConfig{Backend: "s3", Bucket: bucket, Prefix: prefix}, nil
	case strings.HasPrefix(s, "https://"), strings.HasPrefix(s, "http://"):
		return LocationConfig{Backend: "https", ResponseURL: s}, nil
	default:
		return LocationConfig{}, fmt.Errorf("unrecognized location shorthand: %s", s)
	}
}
