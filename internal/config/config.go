// Package config loads the muniwatch application settings and installs the
// global logger.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Crawl    CrawlConfig    `yaml:"crawl" mapstructure:"crawl"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CrawlConfig bounds site navigation and the worker pool.
type CrawlConfig struct {
	Concurrency          int           `yaml:"concurrency" mapstructure:"concurrency"`
	UserAgent            string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxSections          int           `yaml:"max_sections" mapstructure:"max_sections"`
	MaxSubsections       int           `yaml:"max_subsections" mapstructure:"max_subsections"`
	MaxCandidates        int           `yaml:"max_candidates" mapstructure:"max_candidates"`
	RespectRobots        bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	UseLastModified      bool          `yaml:"use_last_modified" mapstructure:"use_last_modified"`
	ProbeDefaultSections bool          `yaml:"probe_default_sections" mapstructure:"probe_default_sections"`
	Deadline             time.Duration `yaml:"deadline" mapstructure:"deadline"`
}

// ExtractConfig configures text extraction and OCR.
type ExtractConfig struct {
	MinChars      int     `yaml:"min_chars" mapstructure:"min_chars"`
	MaxTextChars  int     `yaml:"max_text_chars" mapstructure:"max_text_chars"`
	PdfToTextBin  string  `yaml:"pdftotext_bin" mapstructure:"pdftotext_bin"`
	PdfToPPMBin   string  `yaml:"pdftoppm_bin" mapstructure:"pdftoppm_bin"`
	TesseractBin  string  `yaml:"tesseract_bin" mapstructure:"tesseract_bin"`
	OCRDPI        int     `yaml:"ocr_dpi" mapstructure:"ocr_dpi"`
	OCRLanguages  string  `yaml:"ocr_languages" mapstructure:"ocr_languages"`
	OCRMaxPages   int     `yaml:"ocr_max_pages" mapstructure:"ocr_max_pages"`
	OCRContrast   float64 `yaml:"ocr_contrast" mapstructure:"ocr_contrast"`
	OCRSharpen    float64 `yaml:"ocr_sharpen" mapstructure:"ocr_sharpen"`
	DisableOCR    bool    `yaml:"disable_ocr" mapstructure:"disable_ocr"`
	MaxBodyMBytes int     `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// AnalysisConfig selects the AI review provider.
type AnalysisConfig struct {
	Provider       string        `yaml:"provider" mapstructure:"provider"`
	Model          string        `yaml:"model" mapstructure:"model"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxChars       int           `yaml:"max_chars" mapstructure:"max_chars"`
}

// OutputConfig controls where and how reports are written.
type OutputConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	Format        string `yaml:"format" mapstructure:"format"`
	PertinentOnly bool   `yaml:"pertinent_only" mapstructure:"pertinent_only"`
}

// CacheConfig locates the persisted section cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads config.yaml (optional) and MUNIWATCH_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".muniwatch"))
	}

	v.SetEnvPrefix("MUNIWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.user_agent", "muniwatch/1.0 (+https://github.com/gaurav-prasanna/muniwatch)")
	v.SetDefault("crawl.max_sections", 15)
	v.SetDefault("crawl.max_subsections", 20)
	v.SetDefault("crawl.max_candidates", 300)
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("crawl.use_last_modified", false)
	v.SetDefault("crawl.probe_default_sections", false)
	v.SetDefault("crawl.deadline", 0)

	v.SetDefault("extract.min_chars", 100)
	v.SetDefault("extract.max_text_chars", 50000)
	v.SetDefault("extract.pdftotext_bin", "pdftotext")
	v.SetDefault("extract.pdftoppm_bin", "pdftoppm")
	v.SetDefault("extract.tesseract_bin", "tesseract")
	v.SetDefault("extract.ocr_dpi", 300)
	v.SetDefault("extract.ocr_languages", "fra+eng")
	v.SetDefault("extract.ocr_max_pages", 20)
	v.SetDefault("extract.ocr_contrast", 50.0)
	v.SetDefault("extract.ocr_sharpen", 1.0)
	v.SetDefault("extract.max_body_mb", 50)

	v.SetDefault("analysis.provider", "")
	v.SetDefault("analysis.max_attempts", 5)
	v.SetDefault("analysis.initial_backoff", 5*time.Second)
	v.SetDefault("analysis.max_chars", 8000)

	v.SetDefault("output.dir", "data")
	v.SetDefault("output.format", "json")
	v.SetDefault("output.pertinent_only", true)

	v.SetDefault("cache.path", "data/site_structure_cache.json")
}

// InitLogger initializes the global zap logger based on config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
