package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "github.com/goccy/go-yaml"
)

// FileConfig mirrors the subset of Config tunables that a deployment might
// reasonably template into a checked-in file rather than set per-process
// environment variables for. Durations are strings here since both YAML
// and TOML decode time.Duration as a plain scalar, not natively.
type FileConfig struct {
	Addr                 string   `yaml:"addr" toml:"addr"`
	BaseURL              string   `yaml:"base_url" toml:"base_url"`
	ReadTimeout          string   `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout         string   `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout          string   `yaml:"idle_timeout" toml:"idle_timeout"`
	AuthorizationServers []string `yaml:"authorization_servers" toml:"authorization_servers"`
	Audience             string   `yaml:"audience" toml:"audience"`
	ScopesSupported      []string `yaml:"scopes_supported" toml:"scopes_supported"`
	JWKSCacheTTL         string   `yaml:"jwks_cache_ttl" toml:"jwks_cache_ttl"`
	ClockSkew            string   `yaml:"clock_skew" toml:"clock_skew"`
	SessionTTL           string   `yaml:"session_ttl" toml:"session_ttl"`

	Transport      string `yaml:"transport" toml:"transport"`
	TCPAddr        string `yaml:"tcp_addr" toml:"tcp_addr"`
	UnixSocketPath string `yaml:"unix_socket_path" toml:"unix_socket_path"`
	WebSocketAddr  string `yaml:"websocket_addr" toml:"websocket_addr"`
	SecurityPreset string `yaml:"security_preset" toml:"security_preset"`
}

// LoadFile reads a YAML or TOML file (chosen by extension, .yaml/.yml vs
// .toml) into a FileConfig.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing YAML config %q: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return nil, fmt.Errorf("parsing TOML config %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	return &fc, nil
}

// LoadWithFile builds a Config the same way Load does, except each field's
// default comes from fc (when set) instead of the hardcoded fallback.
// Environment variables always take precedence over the file, matching
// spec §2A's "env wins" ambient-config precedence.
func LoadWithFile(path string) (*Config, error) {
	fc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	readTimeout, err := parseDurationWithDefault("SERVER_READ_TIMEOUT", orDefault(fc.ReadTimeout, "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := parseDurationWithDefault("SERVER_WRITE_TIMEOUT", orDefault(fc.WriteTimeout, "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
	}
	idleTimeout, err := parseDurationWithDefault("SERVER_IDLE_TIMEOUT", orDefault(fc.IdleTimeout, "120s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_IDLE_TIMEOUT: %w", err)
	}
	jwksCacheTTL, err := parseDurationWithDefault("OAUTH_JWKS_CACHE_TTL", orDefault(fc.JWKSCacheTTL, "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid OAUTH_JWKS_CACHE_TTL: %w", err)
	}
	clockSkew, err := parseDurationWithDefault("OAUTH_CLOCK_SKEW", orDefault(fc.ClockSkew, "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OAUTH_CLOCK_SKEW: %w", err)
	}
	sessionTTL, err := parseDurationWithDefault("MCP_SESSION_TTL", orDefault(fc.SessionTTL, "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_SESSION_TTL: %w", err)
	}

	cfg := &Config{
		Addr:         getEnvWithDefault("SERVER_ADDR", orDefault(fc.Addr, ":8080")),
		BaseURL:      firstNonEmpty(os.Getenv("SERVER_BASE_URL"), fc.BaseURL),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,

		AuthorizationServers: firstNonEmptySlice(parseCommaSeparated("OAUTH_AUTHORIZATION_SERVERS"), fc.AuthorizationServers),
		Audience:             firstNonEmpty(os.Getenv("OAUTH_AUDIENCE"), fc.Audience),
		ScopesSupported:      firstNonEmptySlice(parseCommaSeparated("OAUTH_SCOPES_SUPPORTED"), fc.ScopesSupported),
		JWKSCacheTTL:         jwksCacheTTL,
		ClockSkew:            clockSkew,

		SessionTTL: sessionTTL,

		Transport:      getEnvWithDefault("MCP_TRANSPORT", orDefault(fc.Transport, "stdio")),
		TCPAddr:        firstNonEmpty(os.Getenv("MCP_TCP_ADDR"), fc.TCPAddr),
		UnixSocketPath: firstNonEmpty(os.Getenv("MCP_UNIX_SOCKET_PATH"), fc.UnixSocketPath),
		WebSocketAddr:  getEnvWithDefault("MCP_WEBSOCKET_ADDR", orDefault(fc.WebSocketAddr, ":8081")),
		SecurityPreset: getEnvWithDefault("MCP_SECURITY_PRESET", orDefault(fc.SecurityPreset, "balanced")),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptySlice(primary, fallback []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return fallback
}
