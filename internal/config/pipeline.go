package config

// PipelineConfig holds ingestion pipeline configuration
type PipelineConfig struct {
	Provider     string
	Model        string
	APIToken     string
	ChunkWords   int
	ChunkOverlap int
}

// DefaultPipelineConfig returns the default pipeline configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		ChunkWords:   200,
		ChunkOverlap: 20,
	}
}
