// Package config loads storemap settings from storemap.yaml, STOREMAP_*
// environment variables and a .env file, and sets up the global logger.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Map       MapConfig       `mapstructure:"map"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Favorites FavoritesConfig `mapstructure:"favorites"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PostGIS   PostGISConfig   `mapstructure:"postgis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// MapConfig configures the initial map view.
type MapConfig struct {
	CenterLat float64      `mapstructure:"center_lat"`
	CenterLng float64      `mapstructure:"center_lng"`
	Zoom      int          `mapstructure:"zoom"`
	Width     int          `mapstructure:"width"`
	Height    int          `mapstructure:"height"`
	Colors    ColorsConfig `mapstructure:"colors"`
}

// ColorsConfig holds the map palette as hex colors.
type ColorsConfig struct {
	Landscape string `mapstructure:"landscape"`
	Road      string `mapstructure:"road"`
	Water     string `mapstructure:"water"`
	Text      string `mapstructure:"text"`
	POI       string `mapstructure:"poi"`
}

// GeocodeConfig configures the geocoding provider and sequencer.
type GeocodeConfig struct {
	APIKey       string  `mapstructure:"api_key"`
	BaseURL      string  `mapstructure:"base_url"`
	BackoffMs    int     `mapstructure:"backoff_ms"`
	MaxRetries   int     `mapstructure:"max_retries"`
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
	Cache        bool    `mapstructure:"cache"`
}

// Backoff returns the throttle backoff as a duration.
func (g GeocodeConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffMs) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// DirectoryConfig configures where the store directory comes from.
type DirectoryConfig struct {
	Source       string `mapstructure:"source"`
	StorageKey   string `mapstructure:"storage_key"`
	Icon         string `mapstructure:"icon"`
	ActiveIcon   string `mapstructure:"active_icon"`
	SnapshotSecs int    `mapstructure:"snapshot_secs"`
}

// SnapshotInterval returns the snapshot period as a duration.
func (d DirectoryConfig) SnapshotInterval() time.Duration {
	return time.Duration(d.SnapshotSecs) * time.Second
}

// FavoritesConfig configures the favorites list.
type FavoritesConfig struct {
	StorageKey string `mapstructure:"storage_key"`
}

// StorageConfig selects the key/value backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// PostGISConfig configures the optional PostGIS location store.
type PostGISConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks
// for storemap.yaml in the working directory; a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storemap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("STOREMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("map.center_lat", 19.4326077)
	v.SetDefault("map.center_lng", -99.133208)
	v.SetDefault("map.zoom", 12)
	v.SetDefault("map.width", 1024)
	v.SetDefault("map.height", 768)
	v.SetDefault("map.colors.landscape", "ffffff")
	v.SetDefault("map.colors.road", "bbc0c4")
	v.SetDefault("map.colors.water", "e9ebed")
	v.SetDefault("map.colors.text", "666666")
	v.SetDefault("map.colors.poi", "f5f5f5")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.backoff_ms", 1020)
	v.SetDefault("geocode.max_retries", 0)
	v.SetDefault("geocode.rate_limit_rps", 10)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.cache", true)
	v.SetDefault("directory.source", "store_directory.json")
	v.SetDefault("directory.storage_key", "stores")
	v.SetDefault("directory.icon", "./images/store.png")
	v.SetDefault("directory.active_icon", "./images/store_on.png")
	v.SetDefault("directory.snapshot_secs", 30)
	v.SetDefault("favorites.storage_key", "favorite_stores")
	v.SetDefault("storage.driver", "badger")
	v.SetDefault("storage.path", "./data/storemap")
	v.SetDefault("postgis.dsn", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger. An empty format picks
// console output on a terminal and json otherwise.
func InitLogger(cfg LogConfig) error {
	format := cfg.Format
	if format == "" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "console"
		}
	}

	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
