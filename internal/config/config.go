package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/imageutil"
	"github.com/ajitpratap0/closetlog/internal/names"
	"github.com/ajitpratap0/closetlog/internal/prefs"
	"github.com/ajitpratap0/closetlog/internal/recommend"
	"github.com/ajitpratap0/closetlog/internal/store"
	"github.com/ajitpratap0/closetlog/internal/weather"
)

// Config holds all configuration for closetlog.
type Config struct {
	Storage   StorageConfig     `mapstructure:"storage"`
	Images    ImagesConfig      `mapstructure:"images"`
	Names     NamesConfig       `mapstructure:"names"`
	Locale    string            `mapstructure:"locale"`
	Timezone  string            `mapstructure:"timezone"`
	Weather   WeatherConfig     `mapstructure:"weather"`
	Claude    ClaudeConfig      `mapstructure:"claude"`
	Recommend recommend.Weights `mapstructure:"recommend"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	API       APIConfig         `mapstructure:"api"`
}

// StorageConfig selects the local preference store.
type StorageConfig struct {
	Driver   string        `mapstructure:"driver"`
	Path     string        `mapstructure:"path"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// ImagesConfig selects the image blob store and compression settings.
type ImagesConfig struct {
	Driver     string   `mapstructure:"driver"`
	Dir        string   `mapstructure:"dir"`
	TargetSize int      `mapstructure:"target_size"`
	Quality    int      `mapstructure:"quality"`
	MaxKB      int      `mapstructure:"max_kb"`
	CacheSize  int      `mapstructure:"cache_size"`
	S3         S3Config `mapstructure:"s3"`
}

// S3Config holds S3 / MinIO settings for the s3 image driver.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// NamesConfig holds item-name suggestion settings.
type NamesConfig struct {
	RecentCapacity int `mapstructure:"recent_capacity"`
}

// WeatherConfig holds OpenWeatherMap settings.
type WeatherConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Lang     string        `mapstructure:"lang"`
	Throttle time.Duration `mapstructure:"throttle"`
	Lat      float64       `mapstructure:"lat"`
	Lon      float64       `mapstructure:"lon"`
}

// String masks the API key.
func (w WeatherConfig) String() string {
	return fmt.Sprintf("WeatherConfig{APIKey:%s, BaseURL:%s, Lat:%g, Lon:%g}", maskAPIKey(w.APIKey), w.BaseURL, w.Lat, w.Lon)
}

// ClaudeConfig holds Anthropic Claude API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	masked := maskAPIKey(c.APIKey)
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", masked, c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	dataDir := filepath.Join(homeDir(), ".closetlog")

	v.SetDefault("storage.driver", string(prefs.DriverBolt))
	v.SetDefault("storage.path", filepath.Join(dataDir, "closetlog.db"))
	v.SetDefault("storage.debounce", store.DefaultDebounce)

	v.SetDefault("images.driver", string(blob.DriverFilesystem))
	v.SetDefault("images.dir", filepath.Join(dataDir, "images"))
	v.SetDefault("images.target_size", imageutil.DefaultTargetSize)
	v.SetDefault("images.quality", imageutil.DefaultQuality)
	v.SetDefault("images.max_kb", imageutil.DefaultMaxKB)
	v.SetDefault("images.cache_size", imageutil.DefaultCacheSize)
	v.SetDefault("images.s3.region", "us-east-1")
	v.SetDefault("images.s3.prefix", "images/")

	v.SetDefault("names.recent_capacity", names.DefaultRecentCapacity)

	v.SetDefault("locale", "en")
	v.SetDefault("timezone", "Local")

	v.SetDefault("weather.base_url", weather.DefaultBaseURL)
	v.SetDefault("weather.lang", "en")
	v.SetDefault("weather.throttle", weather.DefaultThrottle)

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	w := recommend.DefaultWeights()
	v.SetDefault("recommend.category", w.Category)
	v.SetDefault("recommend.staleness", w.Staleness)
	v.SetDefault("recommend.frequency", w.Frequency)
	v.SetDefault("recommend.favorite", w.Favorite)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("CLOSETLOG")
	v.AutomaticEnv()

	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("weather.api_key", "OPENWEATHERMAP_API_KEY")
	_ = v.BindEnv("storage.driver", "CLOSETLOG_STORAGE_DRIVER")
	_ = v.BindEnv("storage.path", "CLOSETLOG_STORAGE_PATH")
	_ = v.BindEnv("images.driver", "CLOSETLOG_IMAGES_DRIVER")
	_ = v.BindEnv("images.dir", "CLOSETLOG_IMAGES_DIR")
	_ = v.BindEnv("images.s3.bucket", "CLOSETLOG_IMAGES_S3_BUCKET")
	_ = v.BindEnv("images.s3.endpoint", "CLOSETLOG_IMAGES_S3_ENDPOINT")
	_ = v.BindEnv("images.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("images.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("api.listen_addr", "CLOSETLOG_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "CLOSETLOG_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK: use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if !prefs.Driver(c.Storage.Driver).IsValid() {
		return fmt.Errorf("storage.driver %q must be one of %v", c.Storage.Driver, prefs.ValidDrivers)
	}
	if c.Storage.Driver != string(prefs.DriverMemory) && c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Storage.Debounce < 0 {
		return fmt.Errorf("storage.debounce must be >= 0")
	}
	if !blob.Driver(c.Images.Driver).IsValid() {
		return fmt.Errorf("images.driver %q must be one of %v", c.Images.Driver, blob.ValidDrivers)
	}
	if c.Images.Driver == string(blob.DriverFilesystem) && c.Images.Dir == "" {
		return fmt.Errorf("images.dir must not be empty")
	}
	if c.Images.Driver == string(blob.DriverS3) && c.Images.S3.Bucket == "" {
		return fmt.Errorf("images.s3.bucket must be set for the s3 driver")
	}
	if c.Images.TargetSize <= 0 {
		return fmt.Errorf("images.target_size must be greater than 0")
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be between 1 and 100")
	}
	if c.Images.MaxKB < 0 {
		return fmt.Errorf("images.max_kb must be >= 0")
	}
	if c.Names.RecentCapacity <= 0 {
		return fmt.Errorf("names.recent_capacity must be greater than 0")
	}
	if _, err := c.LocaleTag(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Weather.Throttle < 0 {
		return fmt.Errorf("weather.throttle must be >= 0")
	}
	if c.Weather.Lat < -90 || c.Weather.Lat > 90 || c.Weather.Lon < -180 || c.Weather.Lon > 180 {
		return fmt.Errorf("weather.lat/lon out of range")
	}
	r := c.Recommend
	if r.Category < 0 || r.Staleness < 0 || r.Frequency < 0 || r.Favorite < 0 {
		return fmt.Errorf("recommend weights must be >= 0")
	}
	return nil
}

// LocaleTag parses the collation locale.
func (c *Config) LocaleTag() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("locale %q: %w", c.Locale, err)
	}
	return tag, nil
}

// Location loads the time zone used for calendar-day math.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ImageOptions returns the compression settings.
func (c *Config) ImageOptions() imageutil.Options {
	return imageutil.Options{TargetSize: c.Images.TargetSize, Quality: c.Images.Quality, MaxKB: c.Images.MaxKB}
}

// BlobS3 converts the S3 section for the blob store.
func (c *Config) BlobS3() blob.S3Config {
	s := c.Images.S3
	return blob.S3Config{
		Bucket:          s.Bucket,
		Region:          s.Region,
		Prefix:          s.Prefix,
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		PathStyle:       s.PathStyle,
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
