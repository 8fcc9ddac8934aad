package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Redis    RedisConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Calendar CalendarConfig
	Shop     ShopConfig
	Contact  ContactConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds the single admin credential guarding command endpoints.
type AuthConfig struct {
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	TokenExpiry       time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig tunes the feed aggregation core.
type CalendarConfig struct {
	Relays         []string
	FetchTimeout   time.Duration
	CacheTTL       time.Duration
	CacheKey       string
	MonthsAhead    int
	ResyncSchedule string
}

// ShopConfig points at the upstream commerce catalog endpoint.
type ShopConfig struct {
	CatalogURL   string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// ContactConfig configures the mailto builder behind the contact form.
type ContactConfig struct {
	Recipient     string
	SubjectPrefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenExpiry:       parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Calendar = CalendarConfig{
		Relays:         splitAndTrim(v.GetString("CALENDAR_RELAYS")),
		FetchTimeout:   parseDuration(v.GetString("CALENDAR_FETCH_TIMEOUT"), 10*time.Second),
		CacheTTL:       parseDuration(v.GetString("CALENDAR_CACHE_TTL"), 12*time.Hour),
		CacheKey:       v.GetString("CALENDAR_CACHE_KEY"),
		MonthsAhead:    v.GetInt("CALENDAR_MONTHS_AHEAD"),
		ResyncSchedule: v.GetString("CALENDAR_RESYNC_SCHEDULE"),
	}

	cfg.Shop = ShopConfig{
		CatalogURL:   v.GetString("SHOP_CATALOG_URL"),
		CacheTTL:     parseDuration(v.GetString("SHOP_CACHE_TTL"), time.Hour),
		FetchTimeout: parseDuration(v.GetString("SHOP_FETCH_TIMEOUT"), 10*time.Second),
	}

	cfg.Contact = ContactConfig{
		Recipient:     v.GetString("CONTACT_RECIPIENT"),
		SubjectPrefix: v.GetString("CONTACT_SUBJECT_PREFIX"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ADMIN_EMAIL", "secretary@example.org")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_RELAYS", "https://api.allorigins.win/raw?url=,https://corsproxy.io/?,https://api.codetabs.com/v1/proxy?quest=")
	v.SetDefault("CALENDAR_FETCH_TIMEOUT", "10s")
	v.SetDefault("CALENDAR_CACHE_TTL", "12h")
	v.SetDefault("CALENDAR_CACHE_KEY", "lodge:calendar:merged")
	v.SetDefault("CALENDAR_MONTHS_AHEAD", 6)
	v.SetDefault("CALENDAR_RESYNC_SCHEDULE", "@every 12h")

	v.SetDefault("SHOP_CATALOG_URL", "")
	v.SetDefault("SHOP_CACHE_TTL", "1h")
	v.SetDefault("SHOP_FETCH_TIMEOUT", "10s")

	v.SetDefault("CONTACT_RECIPIENT", "secretary@example.org")
	v.SetDefault("CONTACT_SUBJECT_PREFIX", "[Lodge Website]")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
