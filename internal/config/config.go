package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the report service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string

	// TemplateDir holds the DOCX report template assets. A missing template
	// is regenerated there on first use.
	TemplateDir string
	// ReportPlaceholder substitutes for template variables without data.
	ReportPlaceholder string
	// RenderConcurrency bounds the per-assignment parallel render fan-out.
	RenderConcurrency int
	// RequireReviewBeforeExport refuses exports of evaluations no teacher
	// has reviewed yet.
	RequireReviewBeforeExport bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WENZHI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "WenZhi Report API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("template.dir", "templates/word")
	v.SetDefault("report.placeholder", "（本项暂无数据）")
	v.SetDefault("render.concurrency", 4)
	v.SetDefault("export.require_review", false)

	cfg := Config{
		AppName:                   v.GetString("app.name"),
		AppEnv:                    v.GetString("app.env"),
		AppPort:                   v.GetString("app.port"),
		DatabaseURL:               v.GetString("database.url"),
		TemplateDir:               v.GetString("template.dir"),
		ReportPlaceholder:         v.GetString("report.placeholder"),
		RenderConcurrency:         v.GetInt("render.concurrency"),
		RequireReviewBeforeExport: v.GetBool("export.require_review"),
	}

	if cfg.RenderConcurrency <= 0 {
		return Config{}, fmt.Errorf("render concurrency must be positive, got %d", cfg.RenderConcurrency)
	}

	if cfg.TemplateDir == "" {
		return Config{}, fmt.Errorf("template dir must not be empty")
	}

	return cfg, nil
}
