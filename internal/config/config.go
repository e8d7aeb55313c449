package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/bida-club-backend/internal/engine"
)

type Config struct {
	Port           int           `yaml:"port"`
	DatabaseURL    string        `yaml:"database_url"`
	TurnSeconds    int           `yaml:"turn_seconds"`
	CaromWinScore  int           `yaml:"carom_win_score"`
	RoomIdleTTL    time.Duration `yaml:"room_idle_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	WSRateLimit    float64       `yaml:"ws_rate_limit"`
	WSRateBurst    int           `yaml:"ws_rate_burst"`
	LogLevel       string        `yaml:"log_level"`
	Env            string        `yaml:"env"`
}

func Default() Config {
	return Config{
		Port:           8080,
		TurnSeconds:    engine.DefaultTurnLimit,
		CaromWinScore:  engine.DefaultWinScore,
		RoomIdleTTL:    30 * time.Minute,
		AllowedOrigins: []string{"*"},
		WSRateLimit:    10,
		WSRateBurst:    20,
		LogLevel:       "info",
		Env:            "development",
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if
// set), then lets individual environment variables override both.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TurnSeconds = getEnvInt("TURN_SECONDS", cfg.TurnSeconds)
	cfg.CaromWinScore = getEnvInt("CAROM_WIN_SCORE", cfg.CaromWinScore)
	cfg.RoomIdleTTL = getEnvDuration("ROOM_IDLE_TTL", cfg.RoomIdleTTL)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.WSRateLimit = getEnvFloat("WS_RATE_LIMIT", cfg.WSRateLimit)
	cfg.WSRateBurst = getEnvInt("WS_RATE_BURST", cfg.WSRateBurst)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Env = getEnv("APP_ENV", cfg.Env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TurnSeconds <= 0 {
		return fmt.Errorf("turn_seconds must be positive, got %d", c.TurnSeconds)
	}
	if c.CaromWinScore <= 0 {
		return fmt.Errorf("carom_win_score must be positive, got %d", c.CaromWinScore)
	}
	if c.WSRateLimit <= 0 || c.WSRateBurst <= 0 {
		return fmt.Errorf("websocket rate limit must be positive")
	}
	return nil
}

func (c Config) Production() bool { return c.Env == "production" }

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
