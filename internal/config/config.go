// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Caption strategies
const (
	CaptionTemplate = "template"
	CaptionOllama   = "ollama"
	CaptionOpenAI   = "openai"
)

// Config holds every setting the server, the republish handler and the jobs need
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DB Database

	Facebook Facebook
	Caption  Caption

	UploadConcurrency int `env:"UPLOAD_CONCURRENCY" envDefault:"4"`

	JWTSecret         string `env:"JWT_SECRET"`
	AdminUsername     string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	SMTP SMTP

	TokenCheckSchedule string `env:"TOKEN_CHECK_SCHEDULE" envDefault:"@every 6h"`
}

// Database selects where Postgres credentials come from
type Database struct {
	SecretName     string `env:"DB_SECRET_NAME"`
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           int    `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD"`
	Name           string `env:"DB_NAME" envDefault:"shoppost"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	EnsureDatabase bool   `env:"DB_ENSURE_DATABASE" envDefault:"false"`
}

// Facebook holds the Page credentials for the Graph API
type Facebook struct {
	AccessToken string `env:"FACEBOOK_ACCESS_TOKEN"`
	PageID      string `env:"FACEBOOK_PAGE_ID"`
	GraphURL    string `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com"`
	APIVersion  string `env:"FACEBOOK_API_VERSION" envDefault:"v18.0"`
}

// Caption selects and configures the caption backend
type Caption struct {
	Strategy       string `env:"CAPTION_STRATEGY" envDefault:"template"`
	OllamaURL      string `env:"OLLAMA_URL"`
	OllamaModel    string `env:"OLLAMA_MODEL" envDefault:"llama3"`
	CFClientID     string `env:"CAPTION_CF_CLIENT_ID"`
	CFClientSecret string `env:"CAPTION_CF_CLIENT_SECRET"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	OpenAIModel    string `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	PoolsFile      string `env:"CAPTION_POOLS_FILE"`
	Seed           uint64 `env:"CAPTION_SEED"`
}

// SMTP configures failure notification mail; notifications go to the log when Host is empty
type SMTP struct {
	Host     string   `env:"SMTP_HOST"`
	Port     int      `env:"SMTP_PORT" envDefault:"587"`
	Username string   `env:"SMTP_USERNAME"`
	Password string   `env:"SMTP_PASSWORD"`
	From     string   `env:"NOTIFY_FROM"`
	To       []string `env:"NOTIFY_TO" envSeparator:","`
}

// Load reads .env files when present, then parses the environment
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Caption.Strategy = strings.ToLower(strings.TrimSpace(cfg.Caption.Strategy))
	return cfg, nil
}

// IsDevelopment reports whether error responses may include stack traces
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Validate checks the settings the publish pipeline cannot run without
func (c *Config) Validate() error {
	var errs []error
	if c.Facebook.AccessToken == "" {
		errs = append(errs, errors.New("FACEBOOK_ACCESS_TOKEN is required"))
	}
	if c.Facebook.PageID == "" {
		errs = append(errs, errors.New("FACEBOOK_PAGE_ID is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.UploadConcurrency < 1 {
		errs = append(errs, errors.New("UPLOAD_CONCURRENCY must be at least 1"))
	}

	switch c.Caption.Strategy {
	case CaptionTemplate:
	case CaptionOllama:
		if c.Caption.OllamaURL == "" {
			errs = append(errs, errors.New("OLLAMA_URL is required for the ollama caption strategy"))
		}
	case CaptionOpenAI:
		if c.Caption.OpenAIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai caption strategy"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CAPTION_STRATEGY %q", c.Caption.Strategy))
	}

	if c.SMTP.Host != "" && (c.SMTP.From == "" || len(c.SMTP.To) == 0) {
		errs = append(errs, errors.New("NOTIFY_FROM and NOTIFY_TO are required when SMTP_HOST is set"))
	}
	return errors.Join(errs...)
}
