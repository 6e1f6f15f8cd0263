package ingest

import (
	"context"

	"github.com/Kamar-Folarin/docsync/internal/config"
)

// Result is the outcome of ingesting one file. Written == 0 means the file was not classified.
type Result struct {
	Written int
}

// Ingester turns one file into stored content
type Ingester interface {
	Ingest(ctx context.Context, path string) (Result, error)
}

// Settings identifies the provider configuration a pipeline was built for
type Settings struct {
	Provider string
	Model    string
	Token    string
}

// SettingsFromConfig extracts the pipeline settings value from config
func SettingsFromConfig(cfg *config.PipelineConfig) Settings {
	return Settings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Token:    cfg.APIToken,
	}
}
