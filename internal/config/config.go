package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"skinquote/internal/aggregate"
	"skinquote/internal/logger"
	"skinquote/internal/provider"
)

const configFileEnvName = "CONFIG_FILE"

type Server struct {
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// Marketplace configures one outbound marketplace client. MaxRequestsPerMinute
// and MinRequestIntervalSec are zero by default, meaning unthrottled.
type Marketplace struct {
	Endpoint              string `mapstructure:"endpoint"`
	ListingURL            string `mapstructure:"listing_url"`
	TimeoutSec            int    `mapstructure:"timeout_sec"`
	MaxRequestsPerMinute  int    `mapstructure:"max_requests_per_minute"`
	MinRequestIntervalSec int    `mapstructure:"min_request_interval_sec"`
	Burst                 int    `mapstructure:"burst"`
}

func (m Marketplace) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

func (m Marketplace) MinInterval() time.Duration {
	return time.Duration(m.MinRequestIntervalSec) * time.Second
}

type Catalog struct {
	DatabaseURL string `mapstructure:"database_url"`
	Limit       int    `mapstructure:"limit"`
}

type Compare struct {
	PreferredSource string `mapstructure:"preferred_source"`
}

type Config struct {
	Server  Server        `mapstructure:"server"`
	Log     logger.Config `mapstructure:"log"`
	Steam   Marketplace   `mapstructure:"steam"`
	DMarket Marketplace   `mapstructure:"dmarket"`
	Catalog Catalog       `mapstructure:"catalog"`
	Compare Compare       `mapstructure:"compare"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Log:    logger.Config{Level: "info", Format: "json"},
		Steam: Marketplace{
			Endpoint:   "https://steamcommunity.com/market/priceoverview/",
			ListingURL: "https://steamcommunity.com/market/listings",
			TimeoutSec: 10,
			Burst:      1,
		},
		DMarket: Marketplace{
			Endpoint:   "https://api.dmarket.com/exchange/v1/market/items",
			ListingURL: "https://dmarket.com/ingame-items/item-list/csgo-skins",
			TimeoutSec: 10,
			Burst:      1,
		},
		Catalog: Catalog{Limit: 10},
		Compare: Compare{PreferredSource: string(provider.SourceSteam)},
	}
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

// PreferredSource is the marketplace that wins an exact price tie.
func (c Config) PreferredSource() provider.Source {
	src, err := aggregate.ParseSource(c.Compare.PreferredSource)
	if err != nil {
		return provider.SourceSteam
	}
	return src
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port is empty"))
	}
	if c.Server.RequestTimeoutSec <= 0 {
		errs = append(errs, errors.New("server.request_timeout_sec must be positive"))
	}
	if c.Catalog.Limit <= 0 {
		errs = append(errs, errors.New("catalog.limit must be positive"))
	}
	if _, err := aggregate.ParseSource(c.Compare.PreferredSource); err != nil {
		errs = append(errs, fmt.Errorf("compare.preferred_source: %w", err))
	}
	for name, m := range map[string]Marketplace{"steam": c.Steam, "dmarket": c.DMarket} {
		if m.Endpoint == "" {
			errs = append(errs, fmt.Errorf("%s.endpoint is empty", name))
		}
		if m.TimeoutSec <= 0 {
			errs = append(errs, fmt.Errorf("%s.timeout_sec must be positive", name))
		}
		if m.MaxRequestsPerMinute < 0 || m.MinRequestIntervalSec < 0 {
			errs = append(errs, fmt.Errorf("%s: throttle settings must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"server.port":                      "PORT",
	"server.request_timeout_sec":       "REQUEST_TIMEOUT_SEC",
	"log.level":                        "LOG_LEVEL",
	"log.format":                       "LOG_FORMAT",
	"steam.endpoint":                   "STEAM_ENDPOINT",
	"steam.max_requests_per_minute":    "STEAM_MAX_RPM",
	"steam.min_request_interval_sec":   "STEAM_MIN_INTERVAL_SEC",
	"steam.burst":                      "STEAM_BURST",
	"dmarket.endpoint":                 "DMARKET_ENDPOINT",
	"dmarket.max_requests_per_minute":  "DMARKET_MAX_RPM",
	"dmarket.min_request_interval_sec": "DMARKET_MIN_INTERVAL_SEC",
	"dmarket.burst":                    "DMARKET_BURST",
	"catalog.database_url":             "DATABASE_URL",
	"catalog.limit":                    "CATALOG_LIMIT",
	"compare.preferred_source":         "PREFERRED_SOURCE",
}

// BindFlags registers the command line flags understood by NewLoader.
func BindFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("config", "", "config file (json or yaml); also "+configFileEnvName)
	fs.String("port", def.Server.Port, "HTTP listen port")
	fs.String("log-level", def.Log.Level, "log level: debug, info, warn, error")
}

// Loader layers defaults, an optional config file, environment variables and
// flags, in increasing order of precedence.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader prepares a loader. fs may be nil; otherwise it must have been
// passed to BindFlags and parsed.
func NewLoader(fs *pflag.FlagSet) (*Loader, error) {
	var path string
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	l := newLoader(path)
	if fs != nil {
		for key, flag := range map[string]string{"server.port": "port", "log.level": "log-level"} {
			if f := fs.Lookup(flag); f != nil {
				if err := l.v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}
	return l, nil
}

// Load reads config from path. If path is empty it falls back to CONFIG_FILE,
// then to config.yaml or config.json in the working directory, then to
// defaults. Environment variables override file values.
func Load(path string) (Config, error) {
	return newLoader(path).Load()
}

func newLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v, Default())
	for key, name := range env {
		_ = v.BindEnv(key, name)
	}
	return &Loader{v: v, path: resolvePath(path)}
}

func resolvePath(path string) string {
	if path != "" {
		return path
	}
	if p, ok := os.LookupEnv(configFileEnvName); ok {
		return p
	}
	for _, p := range []string{"config.yaml", "config.json"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Path is the config file in use, or empty when running on defaults.
func (l *Loader) Path() string { return l.path }

func (l *Loader) Load() (Config, error) {
	if l.path != "" {
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Watch calls onChange with the reloaded config whenever the config file is
// written. Invalid edits are passed to onError and otherwise ignored. It is a
// no-op without a config file.
func (l *Loader) Watch(onChange func(Config), onError func(error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.request_timeout_sec", c.Server.RequestTimeoutSec)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.output", c.Log.Output)
	for name, m := range map[string]Marketplace{"steam": c.Steam, "dmarket": c.DMarket} {
		v.SetDefault(name+".endpoint", m.Endpoint)
		v.SetDefault(name+".listing_url", m.ListingURL)
		v.SetDefault(name+".timeout_sec", m.TimeoutSec)
		v.SetDefault(name+".max_requests_per_minute", m.MaxRequestsPerMinute)
		v.SetDefault(name+".min_request_interval_sec", m.MinRequestIntervalSec)
		v.SetDefault(name+".burst", m.Burst)
	}
	v.SetDefault("catalog.database_url", c.Catalog.DatabaseURL)
	v.SetDefault("catalog.limit", c.Catalog.Limit)
	v.SetDefault("compare.preferred_source", c.Compare.PreferredSource)
}
