package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	Workers     int
	CacheTTL    time.Duration
	Sources     SourcesConfig
}

// SourcesConfig carries per-provider credentials and rate-limit settings.
// Values come from the environment; an optional SOURCES_CONFIG YAML file
// overrides them (deploys that rotate provider keys mount it as a secret).
type SourcesConfig struct {
	Hostaway struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		MinDelayMS int    `yaml:"min_delay_ms"`
	} `yaml:"hostaway"`
	GooglePlaces struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		MinDelayMS int    `yaml:"min_delay_ms"`
	} `yaml:"google_places"`
	GoogleBusiness struct {
		BaseURL      string `yaml:"base_url"`
		TokenURL     string `yaml:"token_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RefreshToken string `yaml:"refresh_token"`
		MinDelayMS   int    `yaml:"min_delay_ms"`
	} `yaml:"google_business"`
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/flexreviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		Workers:     atoi("INGEST_WORKERS", 4),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 600)) * time.Second,
	}

	c.Sources.Hostaway.BaseURL = env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1")
	c.Sources.Hostaway.APIKey = env("HOSTAWAY_API_KEY", "")
	c.Sources.Hostaway.MinDelayMS = atoi("HOSTAWAY_MIN_DELAY_MS", 250)

	c.Sources.GooglePlaces.BaseURL = env("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place")
	c.Sources.GooglePlaces.APIKey = env("PLACES_API_KEY", "")
	c.Sources.GooglePlaces.MinDelayMS = atoi("PLACES_MIN_DELAY_MS", 250)

	c.Sources.GoogleBusiness.BaseURL = env("GBP_BASE_URL", "https://mybusiness.googleapis.com/v4")
	c.Sources.GoogleBusiness.TokenURL = env("GBP_TOKEN_URL", "https://oauth2.googleapis.com/token")
	c.Sources.GoogleBusiness.ClientID = env("GBP_CLIENT_ID", "")
	c.Sources.GoogleBusiness.ClientSecret = env("GBP_CLIENT_SECRET", "")
	c.Sources.GoogleBusiness.RefreshToken = env("GBP_REFRESH_TOKEN", "")
	c.Sources.GoogleBusiness.MinDelayMS = atoi("GBP_MIN_DELAY_MS", 500)

	if path := os.Getenv("SOURCES_CONFIG"); path != "" {
		if err := loadSourcesFile(path, &c.Sources); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("sources config file ignored")
		}
	}

	if c.Sources.Hostaway.APIKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty")
	}
	return c
}

func loadSourcesFile(path string, dst *SourcesConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (s SourcesConfig) HostawayDelay() time.Duration {
	return time.Duration(s.Hostaway.MinDelayMS) * time.Millisecond
}

func (s SourcesConfig) PlacesDelay() time.Duration {
	return time.Duration(s.GooglePlaces.MinDelayMS) * time.Millisecond
}

func (s SourcesConfig) BusinessDelay() time.Duration {
	return time.Duration(s.GoogleBusiness.MinDelayMS) * time.Millisecond
}
