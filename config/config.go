package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Clinic   ClinicConfig
	Resolver ResolverConfig
}

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	TimeZone     string
	MaxIdleConns int
	MaxOpenConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// ClinicConfig holds the business-hour rules used to decide whether a
// requested (date, time) is bookable.
type ClinicConfig struct {
	OpenTime               string
	CloseTime              string
	SlotGranularityMinutes int
	TimeZone               string
}

// ResolverConfig bounds the lookup retry used when a concurrent
// registration already owns a national ID but is not yet visible.
type ResolverConfig struct {
	LookupAttempts int
	LookupBackoff  time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads the given env file (if present) and the process
// environment. Missing files are not an error.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "Asia/Seoul")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CLINIC_OPEN_TIME", "09:00")
	v.SetDefault("CLINIC_CLOSE_TIME", "18:00")
	v.SetDefault("CLINIC_SLOT_MINUTES", 30)
	v.SetDefault("CLINIC_TIMEZONE", "Asia/Seoul")
	v.SetDefault("RESOLVER_LOOKUP_ATTEMPTS", 5)
	v.SetDefault("RESOLVER_LOOKUP_BACKOFF", "20ms")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	lookupBackoff, err := time.ParseDuration(v.GetString("RESOLVER_LOOKUP_BACKOFF"))
	if err != nil {
		lookupBackoff = 20 * time.Millisecond
	}

	config := &Config{
		App: AppConfig{
			Port:     v.GetString("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			TimeZone:     v.GetString("DB_TIMEZONE"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Clinic: ClinicConfig{
			OpenTime:               v.GetString("CLINIC_OPEN_TIME"),
			CloseTime:              v.GetString("CLINIC_CLOSE_TIME"),
			SlotGranularityMinutes: v.GetInt("CLINIC_SLOT_MINUTES"),
			TimeZone:               v.GetString("CLINIC_TIMEZONE"),
		},
		Resolver: ResolverConfig{
			LookupAttempts: v.GetInt("RESOLVER_LOOKUP_ATTEMPTS"),
			LookupBackoff:  lookupBackoff,
		},
	}

	if config.Clinic.SlotGranularityMinutes <= 0 {
		return nil, errors.New("CLINIC_SLOT_MINUTES must be positive")
	}
	if config.Resolver.LookupAttempts <= 0 {
		config.Resolver.LookupAttempts = 1
	}

	return config, nil
}
