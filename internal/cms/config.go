package cms

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the content-store connection settings, parsed from the
// environment. The site must run fine with none of these set; an
// unconfigured client answers every query with ErrNotConfigured instead
// of failing startup.
type Config struct {
	ProjectID  string        `env:"NARRATIVEGEO_CMS_PROJECT_ID"`
	Dataset    string        `env:"NARRATIVEGEO_CMS_DATASET" envDefault:"production"`
	Token      string        `env:"NARRATIVEGEO_CMS_TOKEN"`
	APIVersion string        `env:"NARRATIVEGEO_CMS_API_VERSION" envDefault:"2023-08-01"`
	Timeout    time.Duration `env:"NARRATIVEGEO_CMS_TIMEOUT" envDefault:"10s"`

	// BaseURL overrides the project-derived endpoint, for self-hosted
	// stores and tests.
	BaseURL string `env:"NARRATIVEGEO_CMS_BASE_URL"`
}

// FromEnv parses the content-store settings from the environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse cms env: %w", err)
	}
	return cfg, nil
}

// Configured reports whether enough settings are present to reach a
// content store.
func (c Config) Configured() bool {
	return c.ProjectID != "" || c.BaseURL != ""
}
