// Package config loads PixelTunes settings.
//
// Sources are applied in order, later ones winning: built-in defaults, a TOML
// file, then PIXELTUNES_* environment variables (a .env file in the working
// directory is read first and never overrides variables already set).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// EnvConfigPath names the variable that points at the config file.
const EnvConfigPath = "PIXELTUNES_CONFIG"

// relConfigPath is the config location relative to the XDG config dirs
const relConfigPath = "pixeltunes/config.toml"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Provider ProviderConfig `koanf:"provider"`
	Cache    CacheConfig    `koanf:"cache"`
	Storage  StorageConfig  `koanf:"storage"`
	Redis    RedisConfig    `koanf:"redis"`
	Minio    MinioConfig    `koanf:"minio"`
	Player   PlayerConfig   `koanf:"player"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr         string `koanf:"addr"`
	MediaBaseURL string `koanf:"media_base_url"` // prefix of local upload stream URLs
}

// ProviderConfig selects and tunes the metadata provider.
type ProviderConfig struct {
	Kind        string        `koanf:"kind"` // "gdstudio" or "netease"
	BaseURL     string        `koanf:"base_url"`
	Source      string        `koanf:"source"` // gdstudio catalogue, e.g. "netease"
	Bitrate     int           `koanf:"bitrate"`
	CoverSize   int           `koanf:"cover_size"`
	SearchLimit int           `koanf:"search_limit"`
	Timeout     time.Duration `koanf:"timeout"`
}

// CacheConfig controls the provider response cache.
type CacheConfig struct {
	Kind      string        `koanf:"kind"` // "memory", "redis" or "none"
	StreamTTL time.Duration `koanf:"stream_ttl"`
	MetaTTL   time.Duration `koanf:"meta_ttl"`
}

// StorageConfig selects the upload and favorites backends.
type StorageConfig struct {
	Blob       string `koanf:"blob"` // "sqlite", "minio" or "memory"
	KV         string `koanf:"kv"`   // "sqlite", "redis" or "memory"
	SQLitePath string `koanf:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
	Region    string `koanf:"region"`
}

// PlayerConfig tunes the playback controller and discovery.
type PlayerConfig struct {
	DefaultVolume     float64       `koanf:"default_volume"`
	StatusLogInterval time.Duration `koanf:"status_log_interval"` // 0 disables the status log
	RecentTagLimit    int           `koanf:"recent_tag_limit"`
	DiscoveryTags     []string      `koanf:"discovery_tags"` // empty means the built-in list
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "text" or "json"
	File   string `koanf:"file"`
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string]string{
	"PIXELTUNES_ADDR":                "server.addr",
	"PIXELTUNES_MEDIA_BASE_URL":      "server.media_base_url",
	"PIXELTUNES_PROVIDER":            "provider.kind",
	"PIXELTUNES_PROVIDER_URL":        "provider.base_url",
	"PIXELTUNES_PROVIDER_SOURCE":     "provider.source",
	"PIXELTUNES_BITRATE":             "provider.bitrate",
	"PIXELTUNES_COVER_SIZE":          "provider.cover_size",
	"PIXELTUNES_SEARCH_LIMIT":        "provider.search_limit",
	"PIXELTUNES_PROVIDER_TIMEOUT":    "provider.timeout",
	"PIXELTUNES_CACHE":               "cache.kind",
	"PIXELTUNES_STREAM_TTL":          "cache.stream_ttl",
	"PIXELTUNES_META_TTL":            "cache.meta_ttl",
	"PIXELTUNES_BLOB_STORE":          "storage.blob",
	"PIXELTUNES_KV_STORE":            "storage.kv",
	"PIXELTUNES_SQLITE_PATH":         "storage.sqlite_path",
	"PIXELTUNES_REDIS_ADDR":          "redis.addr",
	"PIXELTUNES_REDIS_PASSWORD":      "redis.password",
	"PIXELTUNES_REDIS_DB":            "redis.db",
	"PIXELTUNES_MINIO_ENDPOINT":      "minio.endpoint",
	"PIXELTUNES_MINIO_ACCESS_KEY":    "minio.access_key",
	"PIXELTUNES_MINIO_SECRET_KEY":    "minio.secret_key",
	"PIXELTUNES_MINIO_BUCKET":        "minio.bucket",
	"PIXELTUNES_MINIO_USE_SSL":       "minio.use_ssl",
	"PIXELTUNES_DEFAULT_VOLUME":      "player.default_volume",
	"PIXELTUNES_STATUS_LOG_INTERVAL": "player.status_log_interval",
	"PIXELTUNES_DISCOVERY_TAGS":      "player.discovery_tags",
	"PIXELTUNES_LOG_LEVEL":           "log.level",
	"PIXELTUNES_LOG_FORMAT":          "log.format",
	"PIXELTUNES_LOG_FILE":            "log.file",
}

// Default returns a configuration that runs without any external service.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MediaBaseURL: "/media/local",
		},
		Provider: ProviderConfig{
			Kind:        "gdstudio",
			BaseURL:     "https://music-api.gdstudio.xyz",
			Source:      "netease",
			Bitrate:     320,
			CoverSize:   500,
			SearchLimit: 20,
			Timeout:     10 * time.Second,
		},
		Cache: CacheConfig{
			Kind:      "memory",
			StreamTTL: 20 * time.Minute,
			MetaTTL:   24 * time.Hour,
		},
		Storage: StorageConfig{
			Blob: "sqlite",
			KV:   "sqlite",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "pixeltunes:",
		},
		Minio: MinioConfig{
			Endpoint: "localhost:9000",
			Bucket:   "pixeltunes",
		},
		Player: PlayerConfig{
			DefaultVolume:     0.5,
			StatusLogInterval: 2 * time.Second,
			RecentTagLimit:    20,
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise
// PIXELTUNES_CONFIG and then the XDG config dirs are searched, and a
// missing file just leaves the defaults in place.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	if resolved != "" {
		if err := k.Load(file.Provider(resolved), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", resolved, err)
		}
	}

	for env, key := range envKeys {
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			if err := k.Set(key, strings.TrimSpace(v)); err != nil {
				return Config{}, fmt.Errorf("failed to apply %s: %w", env, err)
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config file %s: %w", env, err)
		}
		return env, nil
	}

	found, err := xdg.SearchConfigFile(relConfigPath)
	if err != nil {
		return "", nil
	}
	return found, nil
}

// DefaultPath is where a user config file is expected.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, relConfigPath)
}

func (c *Config) normalize() {
	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	c.Provider.BaseURL = strings.TrimSuffix(c.Provider.BaseURL, "/")
	c.Cache.Kind = strings.ToLower(strings.TrimSpace(c.Cache.Kind))
	c.Storage.Blob = strings.ToLower(strings.TrimSpace(c.Storage.Blob))
	c.Storage.KV = strings.ToLower(strings.TrimSpace(c.Storage.KV))
	c.Storage.SQLitePath = expandPath(c.Storage.SQLitePath)
	c.Log.File = expandPath(c.Log.File)

	tags := c.Player.DiscoveryTags[:0]
	for _, tag := range c.Player.DiscoveryTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	c.Player.DiscoveryTags = tags
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Validate checks every enumerated and ranged field.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return domain.NewValidationError("server.addr", c.Server.Addr, "must not be empty")
	case !slices.Contains([]string{"gdstudio", "netease"}, c.Provider.Kind):
		return domain.NewValidationError("provider.kind", c.Provider.Kind, "must be gdstudio or netease")
	case c.Provider.Bitrate <= 0:
		return domain.NewValidationError("provider.bitrate", c.Provider.Bitrate, "must be positive")
	case c.Provider.CoverSize <= 0:
		return domain.NewValidationError("provider.cover_size", c.Provider.CoverSize, "must be positive")
	case c.Provider.SearchLimit <= 0:
		return domain.NewValidationError("provider.search_limit", c.Provider.SearchLimit, "must be positive")
	case c.Provider.Timeout <= 0:
		return domain.NewValidationError("provider.timeout", c.Provider.Timeout, "must be positive")
	case !slices.Contains([]string{"memory", "redis", "none"}, c.Cache.Kind):
		return domain.NewValidationError("cache.kind", c.Cache.Kind, "must be memory, redis or none")
	case c.Cache.StreamTTL < 0 || c.Cache.MetaTTL < 0:
		return domain.NewValidationError("cache", nil, "ttl must not be negative")
	case !slices.Contains([]string{"sqlite", "minio", "memory"}, c.Storage.Blob):
		return domain.NewValidationError("storage.blob", c.Storage.Blob, "must be sqlite, minio or memory")
	case !slices.Contains([]string{"sqlite", "redis", "memory"}, c.Storage.KV):
		return domain.NewValidationError("storage.kv", c.Storage.KV, "must be sqlite, redis or memory")
	case c.Storage.Blob == "minio" && strings.TrimSpace(c.Minio.Bucket) == "":
		return domain.NewValidationError("minio.bucket", c.Minio.Bucket, "required for the minio blob store")
	case c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1:
		return domain.NewValidationError("player.default_volume", c.Player.DefaultVolume, "must be between 0.0 and 1.0")
	case c.Player.StatusLogInterval < 0:
		return domain.NewValidationError("player.status_log_interval", c.Player.StatusLogInterval, "must not be negative")
	case c.Player.RecentTagLimit <= 0:
		return domain.NewValidationError("player.recent_tag_limit", c.Player.RecentTagLimit, "must be positive")
	case !slices.Contains([]string{"text", "json"}, c.Log.Format):
		return domain.NewValidationError("log.format", c.Log.Format, "must be text or json")
	}
	return nil
}

// UsesRedis reports whether any component needs a redis connection.
func (c Config) UsesRedis() bool {
	return c.Cache.Kind == "redis" || c.Storage.KV == "redis"
}

// UsesSQLite reports whether any component needs the sqlite database.
func (c Config) UsesSQLite() bool {
	return c.Storage.Blob == "sqlite" || c.Storage.KV == "sqlite"
}

// IsNotExist reports whether err came from a missing config file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
