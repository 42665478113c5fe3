package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/errors"
)

// Environment variables consulted after the config file.
const (
	EnvMode    = "WAVEASSIST_MODE"
	EnvModel   = "WAVEASSIST_MODEL"
	EnvBaseURL = "WAVEASSIST_BASE_URL"

	DefaultAPIKeyEnv = "OPENROUTER_API_KEY"
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "openai/gpt-4o-mini"
)

// Config represents the complete configuration for WaveAssist
type Config struct {
	Mode       string           `yaml:"mode"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Coercion   CoercionConfig   `yaml:"coercion"`
	Template   TemplateConfig   `yaml:"template"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	LLM        LLMConfig        `yaml:"llm"`
	Dev        DevConfig        `yaml:"dev"`
}

// ExtractionConfig controls how JSON is located in free text
type ExtractionConfig struct {
	Repair bool `yaml:"repair"`
}

// CoercionConfig controls coercion behaviour beyond the mode
type CoercionConfig struct {
	LooseKeys         bool `yaml:"loose_keys"`
	UnknownFieldNotes bool `yaml:"unknown_field_notes"`
}

// TemplateConfig controls template and Go source generation
type TemplateConfig struct {
	Descriptive bool   `yaml:"descriptive"`
	Indent      int    `yaml:"indent"`
	Package     string `yaml:"package"`
	RootName    string `yaml:"root_name"`
}

// AnalyzerConfig controls schema inference from sample values
type AnalyzerConfig struct {
	DetectIntegers bool         `yaml:"detect_integers"`
	MergeObjects   bool         `yaml:"merge_objects"`
	DetectFormats  bool         `yaml:"detect_formats"`
	Formats        []FormatRule `yaml:"formats"`
}

// FormatRule describes string values matching Pattern with Description
type FormatRule struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`

	// compiled regex (not serialized)
	regex *regexp.Regexp
}

// LLMConfig controls the OpenAI-compatible chat completion client
type LLMConfig struct {
	BaseURL               string        `yaml:"base_url"`
	Model                 string        `yaml:"model"`
	APIKeyEnv             string        `yaml:"api_key_env"`
	UnsupportedJSONModels []string      `yaml:"unsupported_json_models"`
	RetryOnFormatError    bool          `yaml:"retry_on_format_error"`
	Temperature           *float64      `yaml:"temperature"` // nil leaves it to the provider
	MaxTokens             int           `yaml:"max_tokens"`
	Timeout               time.Duration `yaml:"timeout"`

	// resolved from the environment (not serialized)
	APIKey string `yaml:"-"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Mode: coercer.Soft.String(),
		Extraction: ExtractionConfig{
			Repair: false,
		},
		Coercion: CoercionConfig{
			LooseKeys:         false,
			UnknownFieldNotes: true,
		},
		Template: TemplateConfig{
			Descriptive: false,
			Indent:      2,
			Package:     "main",
			RootName:    "Response",
		},
		Analyzer: AnalyzerConfig{
			DetectIntegers: true,
			MergeObjects:   true,
			DetectFormats:  true,
			Formats: []FormatRule{
				{Pattern: `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`, Description: "UUID"},
				{Pattern: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`, Description: "RFC 3339 timestamp"},
				{Pattern: `^\d{4}-\d{2}-\d{2}$`, Description: "date (YYYY-MM-DD)"},
				{Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`, Description: "email address"},
			},
		},
		LLM: LLMConfig{
			BaseURL:               DefaultBaseURL,
			Model:                 DefaultModel,
			APIKeyEnv:             DefaultAPIKeyEnv,
			UnsupportedJSONModels: []string{},
			RetryOnFormatError:    true,
			Temperature:           float64Ptr(0.7),
			MaxTokens:             0,
			Timeout:               60 * time.Second,
		},
		Dev: DevConfig{
			Debug: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to read config file", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("failed to parse config file", err)
	}

	if err := cfg.compilePatterns(); err != nil {
		return nil, errors.NewConfigError("failed to compile patterns", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".waveassist.yml", ".waveassist.yaml", "waveassist.yml", "waveassist.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// compilePatterns compiles all regex patterns in the config
func (c *Config) compilePatterns() error {
	for i := range c.Analyzer.Formats {
		rule := &c.Analyzer.Formats[i]
		regex, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("invalid format pattern '%s': %w", rule.Pattern, err)
		}
		rule.regex = regex
	}
	return nil
}

// MatchesValue checks if this format rule matches the given string value
func (fr *FormatRule) MatchesValue(value string) bool {
	if fr.regex == nil {
		// Try to compile if not already compiled (fallback)
		regex, err := regexp.Compile(fr.Pattern)
		if err != nil {
			return false
		}
		fr.regex = regex
	}
	return fr.regex.MatchString(value)
}

// FindFormat finds the first format rule that matches the value
func (c *Config) FindFormat(value string) (FormatRule, bool) {
	if !c.Analyzer.DetectFormats {
		return FormatRule{}, false
	}
	for i := range c.Analyzer.Formats {
		rule := &c.Analyzer.Formats[i]
		if rule.MatchesValue(value) {
			return *rule, true
		}
	}
	return FormatRule{}, false
}

// CoercionMode returns the configured mode, defaulting to Soft when unset.
func (c *Config) CoercionMode() (coercer.Mode, error) {
	if c.Mode == "" {
		return coercer.Soft, nil
	}
	return coercer.ParseMode(c.Mode)
}

// CoercerOptions maps the coercion section onto coercer options.
func (c *Config) CoercerOptions() []coercer.Option {
	return []coercer.Option{
		coercer.WithLooseKeys(c.Coercion.LooseKeys),
		coercer.WithUnknownFieldNotes(c.Coercion.UnknownFieldNotes),
	}
}

// IndentString returns the template indentation as spaces.
func (c *Config) IndentString() string {
	if c.Template.Indent <= 0 {
		return ""
	}
	return strings.Repeat(" ", c.Template.Indent)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if _, err := c.CoercionMode(); err != nil {
		return errors.NewConfigError("invalid mode", err)
	}
	if c.Template.Indent < 0 {
		return errors.NewConfigError(fmt.Sprintf("template indent must not be negative, got %d", c.Template.Indent), nil)
	}
	if c.LLM.Timeout <= 0 {
		return errors.NewConfigError(fmt.Sprintf("llm timeout must be positive, got %s", c.LLM.Timeout), nil)
	}
	if c.LLM.MaxTokens < 0 {
		return errors.NewConfigError(fmt.Sprintf("llm max_tokens must not be negative, got %d", c.LLM.MaxTokens), nil)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return errors.NewConfigError(fmt.Sprintf("llm temperature must be between 0 and 2, got %g", *t), nil)
	}
	return nil
}

func float64Ptr(f float64) *float64 {
	return &f
}

// LoadDotEnv loads variables from a .env file when it exists. Variables that
// are already set are never overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewConfigError("failed to stat env file", err)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.NewConfigError("failed to load env file", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config and resolves the
// API key from the variable named by llm.api_key_env.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	keyEnv := c.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultAPIKeyEnv
	}
	c.LLM.APIKey = os.Getenv(keyEnv)
}

// Overrides holds values set explicitly on the command line. Zero values
// leave the loaded configuration untouched.
type Overrides struct {
	Mode   string
	Model  string
	Repair bool
	Loose  bool
	Debug  bool
	Indent *int
}

// LoadConfigWithCLI builds the effective configuration: defaults, then the
// config file, then .env and environment variables, then CLI overrides.
func LoadConfigWithCLI(configPath, envFile string, o Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if o.Mode != "" {
		cfg.Mode = o.Mode
	}
	if o.Model != "" {
		cfg.LLM.Model = o.Model
	}
	if o.Repair {
		cfg.Extraction.Repair = true
	}
	if o.Loose {
		cfg.Coercion.LooseKeys = true
	}
	if o.Debug {
		cfg.Dev.Debug = true
	}
	if o.Indent != nil {
		cfg.Template.Indent = *o.Indent
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
