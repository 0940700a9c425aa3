package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Cache        CacheConfig
	Region       RegionConfig
	Projection   ProjectionConfig
	Search       SearchConfig
	Sources      SourcesConfig
	Invalidation InvalidationConfig
	NATS         NATSConfig
	Telemetry    TelemetryConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	Enabled      bool
	Driver       string
	TTL          time.Duration
	PartialTTL   time.Duration
	KeyPrecision int
	KeyPrefix    string
}

// RegionConfig is the serviceable rectangle used for soft coordinate validation.
type RegionConfig struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

type ProjectionConfig struct {
	SourceCRS string
	TargetCRS string
}

type SearchConfig struct {
	DefaultRadius int
	MinRadius     int
	MaxRadius     int
	DefaultLimit  int
	MaxLimit      int
	SourceTimeout time.Duration
}

// SourcesConfig lists the source kinds whose provider stores lat/lon transposed.
type SourcesConfig struct {
	Swapped map[string]bool
}

type InvalidationConfig struct {
	Enabled       bool
	Transport     string
	Stream        string
	ConsumerGroup string
}

type NATSConfig struct {
	URL     string
	Subject string
}

type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type LogConfig struct {
	Level string
}

const (
	CacheDriverRedis  = "redis"
	CacheDriverValkey = "valkey"

	TransportRedisStream = "redis_stream"
	TransportNATS        = "nats"
)

// sourceKinds mirrors domain.AllSourceKinds; config stays free of domain imports.
var sourceKinds = []string{
	"cultural_events",
	"libraries",
	"cultural_spaces",
	"future_heritages",
	"public_reservations",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "seoul_services")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 600)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_DRIVER", CacheDriverRedis)
	v.SetDefault("CACHE_TTL", 300)
	v.SetDefault("CACHE_PARTIAL_TTL", 30)
	v.SetDefault("CACHE_KEY_PRECISION", 4)
	v.SetDefault("CACHE_KEY_PREFIX", "location")

	// Seoul
	v.SetDefault("REGION_MIN_LAT", 37.0)
	v.SetDefault("REGION_MAX_LAT", 38.0)
	v.SetDefault("REGION_MIN_LON", 126.0)
	v.SetDefault("REGION_MAX_LON", 128.0)

	v.SetDefault("PROJECTION_SOURCE_CRS", "EPSG:2097")
	v.SetDefault("PROJECTION_TARGET_CRS", "EPSG:4326")

	v.SetDefault("SEARCH_DEFAULT_RADIUS", 2000)
	v.SetDefault("SEARCH_MIN_RADIUS", 100)
	v.SetDefault("SEARCH_MAX_RADIUS", 10000)
	v.SetDefault("SEARCH_DEFAULT_LIMIT", 50)
	v.SetDefault("SEARCH_MAX_LIMIT", 200)
	v.SetDefault("SEARCH_SOURCE_TIMEOUT", 5000)

	v.SetDefault("SOURCE_PUBLIC_RESERVATIONS_SWAPPED", false)

	v.SetDefault("INVALIDATION_ENABLED", true)
	v.SetDefault("INVALIDATION_TRANSPORT", TransportRedisStream)
	v.SetDefault("INVALIDATION_STREAM", "stream:sources:changed")
	v.SetDefault("INVALIDATION_CONSUMER_GROUP", "cache-invalidation-workers")

	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_SUBJECT", "sources.changed")

	v.SetDefault("TELEMETRY_ENABLED", false)
	v.SetDefault("TELEMETRY_ENDPOINT", "localhost:4317")
	v.SetDefault("TELEMETRY_SERVICE_NAME", "seoul-location-services")

	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("API_HOST"),
			Port: v.GetInt("API_PORT"),
			Env:  v.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Enabled:      v.GetBool("CACHE_ENABLED"),
			Driver:       strings.ToLower(v.GetString("CACHE_DRIVER")),
			TTL:          time.Duration(v.GetInt("CACHE_TTL")) * time.Second,
			PartialTTL:   time.Duration(v.GetInt("CACHE_PARTIAL_TTL")) * time.Second,
			KeyPrecision: v.GetInt("CACHE_KEY_PRECISION"),
			KeyPrefix:    v.GetString("CACHE_KEY_PREFIX"),
		},
		Region: RegionConfig{
			MinLat: v.GetFloat64("REGION_MIN_LAT"),
			MaxLat: v.GetFloat64("REGION_MAX_LAT"),
			MinLon: v.GetFloat64("REGION_MIN_LON"),
			MaxLon: v.GetFloat64("REGION_MAX_LON"),
		},
		Projection: ProjectionConfig{
			SourceCRS: v.GetString("PROJECTION_SOURCE_CRS"),
			TargetCRS: v.GetString("PROJECTION_TARGET_CRS"),
		},
		Search: SearchConfig{
			DefaultRadius: v.GetInt("SEARCH_DEFAULT_RADIUS"),
			MinRadius:     v.GetInt("SEARCH_MIN_RADIUS"),
			MaxRadius:     v.GetInt("SEARCH_MAX_RADIUS"),
			DefaultLimit:  v.GetInt("SEARCH_DEFAULT_LIMIT"),
			MaxLimit:      v.GetInt("SEARCH_MAX_LIMIT"),
			SourceTimeout: time.Duration(v.GetInt("SEARCH_SOURCE_TIMEOUT")) * time.Millisecond,
		},
		Sources: SourcesConfig{
			Swapped: make(map[string]bool, len(sourceKinds)),
		},
		Invalidation: InvalidationConfig{
			Enabled:       v.GetBool("INVALIDATION_ENABLED"),
			Transport:     strings.ToLower(v.GetString("INVALIDATION_TRANSPORT")),
			Stream:        v.GetString("INVALIDATION_STREAM"),
			ConsumerGroup: v.GetString("INVALIDATION_CONSUMER_GROUP"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_SUBJECT"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     v.GetBool("TELEMETRY_ENABLED"),
			Endpoint:    v.GetString("TELEMETRY_ENDPOINT"),
			ServiceName: v.GetString("TELEMETRY_SERVICE_NAME"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	for _, kind := range sourceKinds {
		cfg.Sources.Swapped[kind] = v.GetBool("SOURCE_" + strings.ToUpper(kind) + "_SWAPPED")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Region.MinLat >= c.Region.MaxLat || c.Region.MinLon >= c.Region.MaxLon {
		errs = append(errs, fmt.Errorf("region bounds are empty: lat [%v, %v], lon [%v, %v]",
			c.Region.MinLat, c.Region.MaxLat, c.Region.MinLon, c.Region.MaxLon))
	}
	if c.Cache.KeyPrecision < 0 || c.Cache.KeyPrecision > 10 {
		errs = append(errs, fmt.Errorf("CACHE_KEY_PRECISION must be within [0, 10], got %d", c.Cache.KeyPrecision))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive"))
	}
	if c.Cache.PartialTTL <= 0 || c.Cache.PartialTTL > c.Cache.TTL {
		errs = append(errs, fmt.Errorf("CACHE_PARTIAL_TTL must be within (0, CACHE_TTL]"))
	}
	if c.Cache.Driver != CacheDriverRedis && c.Cache.Driver != CacheDriverValkey {
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver))
	}
	if c.Search.MinRadius <= 0 || c.Search.MinRadius > c.Search.MaxRadius {
		errs = append(errs, fmt.Errorf("search radius range [%d, %d] is invalid", c.Search.MinRadius, c.Search.MaxRadius))
	}
	if c.Search.DefaultRadius < c.Search.MinRadius || c.Search.DefaultRadius > c.Search.MaxRadius {
		errs = append(errs, fmt.Errorf("SEARCH_DEFAULT_RADIUS %d outside [%d, %d]", c.Search.DefaultRadius, c.Search.MinRadius, c.Search.MaxRadius))
	}
	if c.Search.MaxLimit <= 0 || c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		errs = append(errs, fmt.Errorf("search limit default %d / max %d is invalid", c.Search.DefaultLimit, c.Search.MaxLimit))
	}
	if c.Search.SourceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_SOURCE_TIMEOUT must be positive"))
	}
	if c.Invalidation.Transport != TransportRedisStream && c.Invalidation.Transport != TransportNATS {
		errs = append(errs, fmt.Errorf("unknown INVALIDATION_TRANSPORT %q", c.Invalidation.Transport))
	}

	return errors.Join(errs...)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DSN is the key/value connection string the pgx driver accepts.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// GetDatabaseURL is the URL form of the DSN, as golang-migrate expects it.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

func (c *Config) GetRedisAddr() string {
	return c.Redis.Addr()
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
