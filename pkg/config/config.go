// Package config builds the single Config value that is passed to every
// component. Values come from built-in defaults, then an optional YAML file,
// then environment variables (a .env file in the working directory is loaded
// first and never overrides variables already set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"edinet_qa/pkg/core/agent"
	"edinet_qa/pkg/core/sections"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Configuration errors. They are terminal: retrying will not help until the
// operator fixes the environment.
var (
	ErrMissingAPIKey   = errors.New("EDINET_API_KEY is not set")
	ErrMissingRegistry = errors.New("organization registry file not found")
)

const (
	DefaultBaseURL     = "https://api.edinet-fsa.go.jp/api/v2"
	DefaultRegistryURL = "https://disclosure2dl.edinet-fsa.go.jp/searchdocument/codelist/Edinetcode.zip"
	// EnvConfigFile names the optional YAML file.
	EnvConfigFile = "EDINET_QA_CONFIG"
)

// Config is built once at startup and read-only afterwards.
type Config struct {
	EDINETAPIKey  string `yaml:"edinet_api_key"`
	EDINETBaseURL string `yaml:"edinet_base_url"`
	RegistryPath  string `yaml:"registry_path"`
	RegistryURL   string `yaml:"registry_url"`

	CacheDir      string        `yaml:"cache_dir"`
	CacheTTLHours int           `yaml:"cache_ttl_hours"`
	LookbackDays  int           `yaml:"lookback_days"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	Concurrency   int           `yaml:"concurrency"`
	ForceRefresh  bool          `yaml:"force_refresh"`

	SectionCatalogPath string           `yaml:"section_catalog_path"`
	MaxSections        int              `yaml:"max_sections"`
	MaxSectionChars    int              `yaml:"max_section_chars"`
	RouterLLMEnabled   bool             `yaml:"router_llm_enabled"`
	SectionScoring     sections.Scoring `yaml:"section_scoring"`
	// PromptDir holds Hjson prompt files that override the built-in ones.
	PromptDir string `yaml:"prompt_dir"`

	// FiscalYearCutoffMonth: period ends in months 1..N count toward the
	// previous fiscal year. 0 disables the offset.
	FiscalYearCutoffMonth int `yaml:"fiscal_year_cutoff_month"`

	DatabaseURL string `yaml:"database_url"`

	DefaultProvider     string `yaml:"default_provider"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`
	AzureOpenAIAPIKey   string `yaml:"azure_openai_api_key"`
	AzureOpenAIEndpoint string `yaml:"azure_openai_endpoint"`
	DeepSeekAPIKey      string `yaml:"deepseek_api_key"`
	DeepSeekBaseURL     string `yaml:"deepseek_base_url"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	GoogleAPIKey        string `yaml:"google_api_key"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		EDINETBaseURL:         DefaultBaseURL,
		RegistryPath:          "data/EdinetcodeDlInfo.csv",
		RegistryURL:           DefaultRegistryURL,
		CacheDir:              ".cache/edinet",
		CacheTTLHours:         24,
		LookbackDays:          365,
		HTTPTimeout:           30 * time.Second,
		Concurrency:           4,
		MaxSections:           sections.DefaultMaxSections,
		MaxSectionChars:       20000,
		FiscalYearCutoffMonth: 6,
		SectionScoring:        sections.DefaultScoring(),
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// EDINET_QA_CONFIG variable is consulted, and when that is empty too no file
// is read. Environment variables win over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

type envReader struct {
	err error
}

func (r *envReader) str(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

// duration accepts Go durations ("45s") and bare seconds ("45").
func (r *envReader) duration(key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" || r.err != nil {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

func (c *Config) applyEnv() error {
	var r envReader
	r.str("EDINET_API_KEY", &c.EDINETAPIKey)
	r.str("EDINET_BASE_URL", &c.EDINETBaseURL)
	r.str("EDINET_REGISTRY_PATH", &c.RegistryPath)
	r.str("EDINET_REGISTRY_URL", &c.RegistryURL)
	r.str("EDINET_CACHE_DIR", &c.CacheDir)
	r.integer("EDINET_CACHE_TTL_HOURS", &c.CacheTTLHours)
	r.integer("EDINET_LOOKBACK_DAYS", &c.LookbackDays)
	r.duration("EDINET_HTTP_TIMEOUT", &c.HTTPTimeout)
	r.integer("EDINET_CONCURRENCY", &c.Concurrency)
	r.boolean("EDINET_FORCE_REFRESH", &c.ForceRefresh)
	r.str("EDINET_SECTION_CATALOG", &c.SectionCatalogPath)
	r.integer("EDINET_MAX_SECTIONS", &c.MaxSections)
	r.integer("EDINET_MAX_SECTION_CHARS", &c.MaxSectionChars)
	r.boolean("EDINET_ROUTER_LLM", &c.RouterLLMEnabled)
	r.str("EDINET_PROMPT_DIR", &c.PromptDir)
	r.integer("EDINET_FISCAL_YEAR_CUTOFF_MONTH", &c.FiscalYearCutoffMonth)
	r.integer("EDINET_SECTION_KEYWORD_WEIGHT", &c.SectionScoring.KeywordWeight)
	r.integer("EDINET_SECTION_PRIORITY_BIAS", &c.SectionScoring.PriorityBias)
	r.str("EDINET_SECTION_PRIORITY_PREFIX", &c.SectionScoring.PriorityPrefix)
	r.str("DATABASE_URL", &c.DatabaseURL)
	r.str("EDINET_QA_PROVIDER", &c.DefaultProvider)
	r.str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	r.str("AZURE_OPENAI_API_KEY", &c.AzureOpenAIAPIKey)
	r.str("AZURE_OPENAI_ENDPOINT", &c.AzureOpenAIEndpoint)
	r.str("DEEPSEEK_API_KEY", &c.DeepSeekAPIKey)
	r.str("DEEPSEEK_BASE_URL", &c.DeepSeekBaseURL)
	r.str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	r.str("GOOGLE_API_KEY", &c.GoogleAPIKey)
	return r.err
}

// normalize clamps out-of-range values back to usable ones.
func (c *Config) normalize() {
	d := Default()
	if c.CacheTTLHours < 1 {
		c.CacheTTLHours = 1
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxSections <= 0 {
		c.MaxSections = d.MaxSections
	}
	if c.MaxSectionChars <= 0 {
		c.MaxSectionChars = d.MaxSectionChars
	}
	if c.FiscalYearCutoffMonth < 0 || c.FiscalYearCutoffMonth > 12 {
		c.FiscalYearCutoffMonth = 0
	}
	if c.EDINETBaseURL == "" {
		c.EDINETBaseURL = d.EDINETBaseURL
	}
	c.EDINETBaseURL = strings.TrimRight(c.EDINETBaseURL, "/")
}

// Validate reports the missing prerequisites of a run.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.EDINETAPIKey) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if info, err := os.Stat(c.RegistryPath); err != nil || info.IsDir() {
		errs = append(errs, fmt.Errorf("%w: %s (run `edinetqa registry fetch`)", ErrMissingRegistry, c.RegistryPath))
	}
	return errors.Join(errs...)
}

// AgentConfig returns the provider credentials for agent.NewManager.
func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		ActiveProvider:      c.DefaultProvider,
		OpenAIAPIKey:        c.OpenAIAPIKey,
		AzureOpenAIAPIKey:   c.AzureOpenAIAPIKey,
		AzureOpenAIEndpoint: c.AzureOpenAIEndpoint,
		DeepSeekAPIKey:      c.DeepSeekAPIKey,
		DeepSeekBaseURL:     c.DeepSeekBaseURL,
		AnthropicAPIKey:     c.AnthropicAPIKey,
		GoogleAPIKey:        c.GoogleAPIKey,
	}
}
