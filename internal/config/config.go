package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cbt-exam-runner/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format" validate:"omitempty,oneof=json pretty"`
	} `yaml:"log"`
	Exam struct {
		RequiredCount int              `yaml:"required_count" validate:"gte=1"`
		MaxScale      int              `yaml:"max_scale" validate:"gte=1"`
		Duration      string           `yaml:"duration"`
		Tick          string           `yaml:"tick"`
		LoadTimeout   string           `yaml:"load_timeout"`
		Subjects      []domain.Subject `yaml:"subjects" validate:"required,min=1,dive"`
	} `yaml:"exam"`
	Bank struct {
		Source  string `yaml:"source" validate:"oneof=fs http postgres"`
		Dir     string `yaml:"dir" validate:"required_if=Source fs"`
		BaseURL string `yaml:"base_url" validate:"required_if=Source http"`
		Timeout string `yaml:"timeout"`
		TTL     string `yaml:"ttl"`
	} `yaml:"bank"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	History struct {
		Driver string `yaml:"driver" validate:"oneof=memory file sqlite redis postgres"`
		Path   string `yaml:"path" validate:"required_if=Driver file"`
		DSN    string `yaml:"dsn"`
		Key    string `yaml:"key"`
	} `yaml:"history"`
}

var validate = validator.New()

// Default returns the built-in settings: ten subjects with English mandatory,
// banks read from data/banks and history kept in memory.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Exam.RequiredCount = 4
	cfg.Exam.MaxScale = 400
	cfg.Exam.Duration = "2h"
	cfg.Exam.Tick = "1s"
	cfg.Exam.Subjects = DefaultSubjects()
	cfg.Bank.Source = "fs"
	cfg.Bank.Dir = "data/banks"
	cfg.Bank.Timeout = "10s"
	cfg.Bank.TTL = "10m"
	cfg.History.Driver = "memory"
	cfg.History.Key = "jamb_history"
	return cfg
}

func DefaultSubjects() []domain.Subject {
	ids := []string{
		"English", "Mathematics", "Physics", "Chemistry", "Biology",
		"Government", "Literature", "Economics", "Commerce", "Accounting",
	}
	subjects := make([]domain.Subject, 0, len(ids))
	for _, id := range ids {
		subjects = append(subjects, domain.Subject{ID: id, Mandatory: id == "English"})
	}
	return subjects
}

// Load reads YAML config from path on top of Default, applies env overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file if present. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// FromEnv returns Default with env overrides, for runs without a config file.
func FromEnv() (Config, error) {
	cfg := Default()
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Postgres.URL = getEnv("POSTGRES_URL", cfg.Postgres.URL)
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	mandatory := 0
	for _, s := range c.Exam.Subjects {
		if s.Mandatory {
			mandatory++
		}
	}
	if mandatory != 1 {
		return fmt.Errorf("invalid config: exactly one mandatory subject required, got %d", mandatory)
	}
	if c.Exam.RequiredCount > len(c.Exam.Subjects) {
		return fmt.Errorf("invalid config: required_count %d exceeds %d subjects", c.Exam.RequiredCount, len(c.Exam.Subjects))
	}
	if c.Bank.Source == "postgres" && c.Postgres.URL == "" {
		return fmt.Errorf("invalid config: bank source postgres needs postgres.url")
	}
	if c.History.Driver == "postgres" && c.Postgres.URL == "" {
		return fmt.Errorf("invalid config: history driver postgres needs postgres.url")
	}
	if c.History.Driver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: history driver redis needs redis.addr")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
