package config

// Config holds folio configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Log      LogCfg      `mapstructure:"log" yaml:"log"`
	Engine   EngineCfg   `mapstructure:"engine" yaml:"engine"`
	Jobs     JobsCfg     `mapstructure:"jobs" yaml:"jobs"`
	Ingest   IngestCfg   `mapstructure:"ingest" yaml:"ingest"`
	Renumber RenumberCfg `mapstructure:"renumber" yaml:"renumber"`
}

// LogCfg controls structured logging.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// EngineCfg selects and configures the recognition engine.
type EngineCfg struct {
	Name      string       `mapstructure:"name" yaml:"name"` // "tesseract"
	Tesseract TesseractCfg `mapstructure:"tesseract" yaml:"tesseract"`
}

// TesseractCfg configures the tesseract engine.
type TesseractCfg struct {
	Binary         string `mapstructure:"binary" yaml:"binary"`                   // tesseract executable, used for orientation detection
	Languages      string `mapstructure:"languages" yaml:"languages"`             // default language tag, e.g. "eng+nld"
	PSM            int    `mapstructure:"psm" yaml:"psm"`                         // page segmentation mode
	OEM            int    `mapstructure:"oem" yaml:"oem"`                         // OCR engine mode
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // per-invocation bound for the external binary
}

// JobsCfg configures the worker pool.
type JobsCfg struct {
	Workers        int `mapstructure:"workers" yaml:"workers"`
	QueueSize      int `mapstructure:"queue_size" yaml:"queue_size"`
	MaxAttempts    int `mapstructure:"max_attempts" yaml:"max_attempts"`       // attempts per job including the first
	RetryDelayMS   int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`   // base backoff between attempts
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // per-job execution bound
}

// IngestCfg configures batch ingest.
type IngestCfg struct {
	Language         string `mapstructure:"language" yaml:"language"`                     // default document language tag
	StageConcurrency int    `mapstructure:"stage_concurrency" yaml:"stage_concurrency"`   // parallel asset copies
	PDFRenderDPI     int    `mapstructure:"pdf_render_dpi" yaml:"pdf_render_dpi"`         // resolution for PDF page rasters
}

// RenumberCfg configures the page renumber repair.
type RenumberCfg struct {
	// TempOffset is the base for temporary page numbers during the
	// two-phase reassignment. Must exceed any plausible page count.
	TempOffset int `mapstructure:"temp_offset" yaml:"temp_offset"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
		Engine: EngineCfg{
			Name: "tesseract",
			Tesseract: TesseractCfg{
				Binary:         "tesseract",
				Languages:      "eng+nld",
				PSM:            3,
				OEM:            3,
				TimeoutSeconds: 120,
			},
		},
		Jobs: JobsCfg{
			Workers:        4,
			QueueSize:      256,
			MaxAttempts:    3,
			RetryDelayMS:   500,
			TimeoutSeconds: 120,
		},
		Ingest: IngestCfg{
			Language:         "eng+nld",
			StageConcurrency: 4,
			PDFRenderDPI:     300,
		},
		Renumber: RenumberCfg{
			TempOffset: 10000,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Engine.Name == "" {
		return errEmpty("engine.name")
	}
	if c.Jobs.Workers < 1 {
		return errRange("jobs.workers", "must be >= 1")
	}
	if c.Jobs.QueueSize < 1 {
		return errRange("jobs.queue_size", "must be >= 1")
	}
	if c.Jobs.MaxAttempts < 1 {
		return errRange("jobs.max_attempts", "must be >= 1")
	}
	if c.Renumber.TempOffset < 1000 {
		return errRange("renumber.temp_offset", "must be >= 1000")
	}
	return nil
}
