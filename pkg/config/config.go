package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/user/stay-harvester/internal/entity"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	PacingFixed = "fixed"
	PacingRate  = "rate"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogJSON  bool   `mapstructure:"LOG_JSON"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	CheckIn            string `mapstructure:"CHECK_IN"`
	CheckOut           string `mapstructure:"CHECK_OUT"`
	Currency           string `mapstructure:"CURRENCY"`
	Language           string `mapstructure:"LANGUAGE"`
	Zoom               int    `mapstructure:"ZOOM"`
	PriceMin           int    `mapstructure:"PRICE_MIN"`
	PriceMax           int    `mapstructure:"PRICE_MAX"`
	PlaceType          string `mapstructure:"PLACE_TYPE"`
	Amenities          []int  `mapstructure:"AMENITIES"`
	MaxListingsPerCity int    `mapstructure:"MAX_LISTINGS_PER_CITY"`

	PacingMode  string        `mapstructure:"PACING_MODE"`
	PacingDelay time.Duration `mapstructure:"PACING_DELAY"`
	PacingRPS   float64       `mapstructure:"PACING_RPS"`
	PacingBurst int           `mapstructure:"PACING_BURST"`

	PageLoadTimeout time.Duration `mapstructure:"PAGE_LOAD_TIMEOUT"`
	BrowserHeadless bool          `mapstructure:"BROWSER_HEADLESS"`
	ProxyURL        string        `mapstructure:"PROXY_URL"`

	// HarvestSchedule is a cron expression. Empty runs one harvest and exits.
	HarvestSchedule string `mapstructure:"HARVEST_SCHEDULE"`

	PushgatewayURL string        `mapstructure:"PUSHGATEWAY_URL"`
	RunLockTTL     time.Duration `mapstructure:"RUN_LOCK_TTL"`
	RunHistorySize int           `mapstructure:"RUN_HISTORY_SIZE"`
	ServerPort     string        `mapstructure:"SERVER_PORT"`

	Cities []entity.City `mapstructure:"cities"`
}

// DefaultCities are the harvest targets used when no config file lists any.
func DefaultCities() []entity.City {
	return []entity.City{
		{Name: "Ho Chi Minh City", Box: entity.BoundingBox{NELat: 10.8231, NELong: 106.7297, SWLat: 10.7075, SWLong: 106.6072}},
		{Name: "Ha Noi", Box: entity.BoundingBox{NELat: 21.0542, NELong: 105.8519, SWLat: 20.9387, SWLong: 105.7334}},
		{Name: "Da Nang", Box: entity.BoundingBox{NELat: 16.0787, NELong: 108.2500, SWLat: 15.9650, SWLong: 108.1333}},
	}
}

// Load reads configuration from .env, harvester.yaml and the environment.
func Load() (*Config, error) {
	return LoadFrom(".env", "harvester.yaml")
}

// LoadFrom reads configuration from the given env and YAML files, both
// optional, with environment variables taking precedence.
func LoadFrom(envFile, yamlFile string) (*Config, error) {
	v := viper.New()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.SetConfigFile(yamlFile)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", yamlFile, err)
	}

	v.AutomaticEnv()
	setDefaults(v)

	// AMENITIES=4,8 arrives as one string; split it before the int decode
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToWeakSliceHookFunc(","),
	))

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Cities) == 0 {
		cfg.Cities = DefaultCities()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", true)
	v.SetDefault("STORE_DRIVER", StoreMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "airbnb_db")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CHECK_IN", "2025-06-15")
	v.SetDefault("CHECK_OUT", "2025-06-16")
	v.SetDefault("CURRENCY", "VND")
	v.SetDefault("LANGUAGE", "en")
	v.SetDefault("ZOOM", 10)
	v.SetDefault("PRICE_MIN", 0)
	v.SetDefault("PRICE_MAX", 0)
	v.SetDefault("PLACE_TYPE", "")
	v.SetDefault("AMENITIES", []int{})
	v.SetDefault("MAX_LISTINGS_PER_CITY", 20)
	v.SetDefault("PACING_MODE", PacingFixed)
	v.SetDefault("PACING_DELAY", time.Second)
	v.SetDefault("PACING_RPS", 1.0)
	v.SetDefault("PACING_BURST", 1)
	v.SetDefault("PAGE_LOAD_TIMEOUT", 60*time.Second)
	v.SetDefault("BROWSER_HEADLESS", true)
	v.SetDefault("PROXY_URL", "")
	v.SetDefault("HARVEST_SCHEDULE", "")
	v.SetDefault("PUSHGATEWAY_URL", "")
	v.SetDefault("RUN_LOCK_TTL", 2*time.Hour)
	v.SetDefault("RUN_HISTORY_SIZE", 50)
	v.SetDefault("SERVER_PORT", "8080")
}

// Validate checks the values a harvest cannot run without.
func (c *Config) Validate() error {
	checkIn, checkOut, err := c.StayDates()
	if err != nil {
		return err
	}
	if !checkOut.After(checkIn) {
		return fmt.Errorf("CHECK_OUT %s must be after CHECK_IN %s", c.CheckOut, c.CheckIn)
	}
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == StorePostgres && c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required when STORE_DRIVER=postgres")
	}
	switch c.PacingMode {
	case PacingFixed, PacingRate:
	default:
		return fmt.Errorf("unknown PACING_MODE %q", c.PacingMode)
	}
	if c.MaxListingsPerCity <= 0 {
		return fmt.Errorf("MAX_LISTINGS_PER_CITY must be positive, got %d", c.MaxListingsPerCity)
	}
	for _, a := range c.Amenities {
		if a <= 0 {
			return fmt.Errorf("AMENITIES holds invalid amenity id %d", a)
		}
	}
	for i, city := range c.Cities {
		if city.Name == "" {
			return fmt.Errorf("city #%d has no name", i+1)
		}
	}
	return nil
}

// StayDates parses the configured check-in and check-out dates.
func (c *Config) StayDates() (time.Time, time.Time, error) {
	checkIn, err := entity.ParseCalendarDate(c.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid CHECK_IN %q: %w", c.CheckIn, err)
	}
	checkOut, err := entity.ParseCalendarDate(c.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid CHECK_OUT %q: %w", c.CheckOut, err)
	}
	return checkIn, checkOut, nil
}
