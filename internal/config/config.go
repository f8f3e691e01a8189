// Package config loads querier settings from defaults, an optional TOML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mgpai22/querier/internal/llm"
)

type Binaries struct {
	YTDLP   string `toml:"yt_dlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

type Config struct {
	MediaDir   string `toml:"media_dir"`
	StorageDir string `toml:"storage_dir"`
	OutputDir  string `toml:"output_dir"`
	IndexName  string `toml:"index_name"`

	CaptionLanguage string  `toml:"caption_language"`
	PaddingSeconds  float64 `toml:"padding_seconds"`

	TopK              int           `toml:"top_k"`
	RetrievalTimeout  time.Duration `toml:"retrieval_timeout"`
	LLMTimeout        time.Duration `toml:"llm_timeout"`
	RenderConcurrency int           `toml:"render_concurrency"`

	LLMProvider string  `toml:"llm_provider"`
	LLMModel    string  `toml:"llm_model"`
	Temperature float64 `toml:"temperature"`

	EmbedProvider string `toml:"embed_provider"`
	EmbedModel    string `toml:"embed_model"`

	TranscribeProvider string `toml:"transcribe_provider"`
	TranscribeModel    string `toml:"transcribe_model"`

	Binaries Binaries `toml:"binaries"`

	OpenAIAPIKey    string `toml:"openai_api_key"`
	GeminiAPIKey    string `toml:"gemini_api_key"`
	AnthropicAPIKey string `toml:"anthropic_api_key"`
}

// Default returns the settings used when nothing else is configured.
// Directories are relative to the working directory.
func Default() *Config {
	return &Config{
		MediaDir:           "media",
		StorageDir:         "storage",
		OutputDir:          ".",
		IndexName:          "videos",
		CaptionLanguage:    "pt",
		PaddingSeconds:     6,
		TopK:               10,
		RetrievalTimeout:   30 * time.Second,
		LLMTimeout:         2 * time.Minute,
		RenderConcurrency:  2,
		LLMProvider:        string(llm.ProviderOpenAI),
		Temperature:        llm.DefaultTemperature,
		EmbedProvider:      string(llm.ProviderOpenAI),
		TranscribeProvider: string(llm.ProviderOpenAI),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/querier/config.toml, falling back to
// ~/.config/querier/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "querier", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "querier", "config.toml"), nil
}

// Load builds the configuration. An empty path reads DefaultPath if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	home, _ := os.UserHomeDir()
	cfg.MediaDir = expandHome(cfg.MediaDir, home)
	cfg.StorageDir = expandHome(cfg.StorageDir, home)
	cfg.OutputDir = expandHome(cfg.OutputDir, home)

	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		env string
		dst *string
	}{
		{"QUERIER_MEDIA_DIR", &c.MediaDir},
		{"QUERIER_STORAGE_DIR", &c.StorageDir},
		{"QUERIER_OUTPUT_DIR", &c.OutputDir},
		{"QUERIER_INDEX_NAME", &c.IndexName},
		{"QUERIER_CAPTION_LANGUAGE", &c.CaptionLanguage},
		{"QUERIER_LLM_PROVIDER", &c.LLMProvider},
		{"QUERIER_LLM_MODEL", &c.LLMModel},
		{"QUERIER_EMBED_PROVIDER", &c.EmbedProvider},
		{"QUERIER_EMBED_MODEL", &c.EmbedModel},
		{"QUERIER_TRANSCRIBE_PROVIDER", &c.TranscribeProvider},
		{"QUERIER_TRANSCRIBE_MODEL", &c.TranscribeModel},
		{"OPENAI_API_KEY", &c.OpenAIAPIKey},
		{"GEMINI_API_KEY", &c.GeminiAPIKey},
		{"ANTHROPIC_API_KEY", &c.AnthropicAPIKey},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("QUERIER_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QUERIER_TOP_K: %w", err)
		}
		c.TopK = n
	}
	if v := os.Getenv("QUERIER_PADDING_SECONDS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("QUERIER_PADDING_SECONDS: %w", err)
		}
		c.PaddingSeconds = f
	}
	if v := os.Getenv("QUERIER_LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUERIER_LLM_TIMEOUT: %w", err)
		}
		c.LLMTimeout = d
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.IndexName == "" {
		errs = append(errs, errors.New("index_name must not be empty"))
	}
	if c.CaptionLanguage == "" {
		errs = append(errs, errors.New("caption_language must not be empty"))
	}
	if c.PaddingSeconds < 0 {
		errs = append(errs, fmt.Errorf("padding_seconds must not be negative, got %v", c.PaddingSeconds))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.RenderConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("render_concurrency must be positive, got %d", c.RenderConcurrency))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature))
	}

	if _, err := llm.ParseProvider(c.LLMProvider); err != nil {
		errs = append(errs, fmt.Errorf("llm_provider: %w", err))
	}
	if p, err := llm.ParseProvider(c.EmbedProvider); err != nil || p == llm.ProviderAnthropic {
		errs = append(errs, fmt.Errorf("embed_provider must be openai or gemini, got %q", c.EmbedProvider))
	}
	if p, err := llm.ParseProvider(c.TranscribeProvider); err != nil || p == llm.ProviderAnthropic {
		errs = append(errs, fmt.Errorf("transcribe_provider must be openai or gemini, got %q", c.TranscribeProvider))
	}

	return errors.Join(errs...)
}

// APIKey returns the configured key for provider.
func (c *Config) APIKey(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	case llm.ProviderGemini:
		return c.GeminiAPIKey
	case llm.ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func expandHome(path, home string) string {
	if home != "" && len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
