package config

import (
	"os"
	"time"

	"github.com/peterhellberg/duration"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TokenEnv overrides API.Token so the bearer never has to live in the file.
const TokenEnv = "QUIZ_API_TOKEN"

type Config struct {
	API struct {
		BaseURL  string `yaml:"baseUrl"`
		Token    string `yaml:"token"`
		Timeout  string `yaml:"timeout"`
		AIModel  string `yaml:"aiModel"`
		Language string `yaml:"language"`
	} `yaml:"api"`
	Store struct {
		Driver string `yaml:"driver"` // sqlite, redis or memory
		Path   string `yaml:"path"`
		TTL    string `yaml:"ttl"`
	} `yaml:"store"`
	Server struct {
		Port    string   `yaml:"port"`
		Origins []string `yaml:"origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Course struct {
		TTL string `yaml:"ttl"`
	} `yaml:"course"`
	Devserver struct {
		Port     string `yaml:"port"`
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"tokenTtl"`
	} `yaml:"devserver"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{}
	cfg.API.BaseURL = "http://localhost:8081"
	cfg.API.Timeout = "30s"
	cfg.API.AIModel = "openai"
	cfg.API.Language = "sv"
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "drillbi-quiz.db"
	cfg.Store.TTL = "7d"
	cfg.Server.Port = "8080"
	cfg.Course.TTL = "10m"
	cfg.Devserver.Port = "8081"
	cfg.Devserver.Secret = "drillbi-dev-secret"
	cfg.Devserver.TokenTTL = "1d"
	return cfg
}

// Load reads YAML config from path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, pkgerrors.Wrapf(err, "read config %s", path)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, pkgerrors.Wrapf(err, "parse config %s", path)
		}
	}
	if token := os.Getenv(TokenEnv); token != "" {
		cfg.API.Token = token
	}
	return cfg, nil
}

// TTLDuration parses a duration string ("90s", "10m", "7d", "2w") or returns
// the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := duration.Parse(raw); err == nil {
		return d
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
