package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingToken       = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingITTourToken = errors.New("ITTOUR_API_TOKEN is required")
	ErrInvalidBackend     = errors.New("invalid session backend")
	ErrInvalidRates       = errors.New("invalid CURRENCY_RATES format")
)

type Config struct {
	Telegram  TelegramConfig
	LLM       LLMConfig
	ITTour    ITTourConfig
	Session   SessionConfig
	Currency  CurrencyConfig
	Lexicon   LexiconConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
	Timeouts  TimeoutConfig
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type LLMConfig struct {
	Enabled bool
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type ITTourConfig struct {
	Token          string
	BaseURL        string
	AcceptLanguage string
	Timeout        time.Duration
}

type SessionConfig struct {
	Backend   string // memory | redis
	TTL       time.Duration
	RedisAddr string
	RedisDB   int
}

type CurrencyConfig struct {
	// Rates - курсы к гривне, формат "usd=41.5,eur=45.2"
	Rates      map[string]float64
	StaleAfter time.Duration
	// RefreshInterval - период перечитывания курсов, 0 отключает рефреш
	RefreshInterval time.Duration
	Strict          bool
}

type LexiconConfig struct {
	CountryPath  string
	FromCityPath string
}

type LogConfig struct {
	Level string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type MetricsConfig struct {
	Addr string
}

type TimeoutConfig struct {
	Turn time.Duration
}

func Load() (*Config, error) {
	rates, err := parseRates(getEnvOrDefault("CURRENCY_RATES", "usd=41.5,eur=45.0"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug: getEnvBoolOrDefault("TELEGRAM_DEBUG", false),
		},
		LLM: LLMConfig{
			Enabled: getEnvBoolOrDefault("ENABLE_LLM", true),
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-5-mini"),
			BaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout: time.Duration(getEnvIntOrDefault("OPENAI_TIMEOUT_SEC", 20)) * time.Second,
		},
		ITTour: ITTourConfig{
			Token:          os.Getenv("ITTOUR_API_TOKEN"),
			BaseURL:        getEnvOrDefault("ITTOUR_BASE_URL", "https://api.ittour.com.ua"),
			AcceptLanguage: getEnvOrDefault("ACCEPT_LANGUAGE", "ua"),
			Timeout:        time.Duration(getEnvIntOrDefault("ITTOUR_TIMEOUT_SEC", 25)) * time.Second,
		},
		Session: SessionConfig{
			Backend:   getEnvOrDefault("SESSION_BACKEND", "memory"),
			TTL:       time.Duration(getEnvIntOrDefault("SESSION_TTL_SEC", 1800)) * time.Second,
			RedisAddr: getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisDB:   getEnvIntOrDefault("REDIS_DB", 0),
		},
		Currency: CurrencyConfig{
			Rates:           rates,
			StaleAfter:      time.Duration(getEnvIntOrDefault("CURRENCY_STALE_AFTER_SEC", 86400)) * time.Second,
			RefreshInterval: time.Duration(getEnvIntOrDefault("CURRENCY_REFRESH_SEC", 0)) * time.Second,
			Strict:          getEnvBoolOrDefault("CURRENCY_STRICT_RATES", false),
		},
		Lexicon: LexiconConfig{
			CountryPath:  getEnvOrDefault("COUNTRY_MAP_PATH", "data/country_map.json"),
			FromCityPath: getEnvOrDefault("FROM_CITY_MAP_PATH", "data/from_city_map.json"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ":9090"),
		},
		Timeouts: TimeoutConfig{
			Turn: time.Duration(getEnvIntOrDefault("TURN_TIMEOUT_SEC", 60)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	if c.ITTour.Token == "" {
		return ErrMissingITTourToken
	}
	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return ErrInvalidBackend
	}
	return nil
}

// parseRates разбирает "usd=41.5,eur=45.0" в таблицу курсов.
func parseRates(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, ErrInvalidRates
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || rate <= 0 {
			return nil, ErrInvalidRates
		}
		out[strings.ToLower(strings.TrimSpace(parts[0]))] = rate
	}
	return out, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
