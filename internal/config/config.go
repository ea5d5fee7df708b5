package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type ResolverConfig struct {
	// StrictThreshold admits a query for verbatim reuse of a library graph;
	// LooseThreshold admits it as scaffolding for fresh synthesis. Both are
	// normalized similarities in [0,1]. Hand-tuned, no derivation claimed.
	StrictThreshold float64           `toml:"strict_threshold"`
	LooseThreshold  float64           `toml:"loose_threshold"`
	Aliases         map[string]string `toml:"aliases"`
}

type CacheConfig struct {
	FastCapacity int    `toml:"fast_capacity"`
	Dir          string `toml:"dir"`
	TTLHours     int    `toml:"ttl_hours"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type RateLimitConfig struct {
	Quota         int `toml:"quota"`
	WindowSeconds int `toml:"window_seconds"`
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type PipelineConfig struct {
	Concurrency       int `toml:"concurrency"`
	MaxDepth          int `toml:"max_depth"`
	RunTimeoutSeconds int `toml:"run_timeout_seconds"`
}

func (c PipelineConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

type LibraryConfig struct {
	Dir string `toml:"dir"`
}

// Prompts holds the fmt.Sprintf templates for each pipeline stage.
type Prompts struct {
	Classify  string `toml:"classify"`
	Structure string `toml:"structure"`
	Expand    string `toml:"expand"`
	Crosslink string `toml:"crosslink"`
}

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Cache     CacheConfig     `toml:"cache"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Library   LibraryConfig   `toml:"library"`
	Prompts   Prompts         `toml:"prompts"`
}

// Default returns a configuration that works without any config file:
// Ollama locally, modest cache, and the built-in prompt templates.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "gpt-oss:latest",
			BaseURL:  "http://localhost:11434",
		},
		Resolver: ResolverConfig{
			StrictThreshold: 0.93,
			LooseThreshold:  0.72,
			Aliases:         map[string]string{},
		},
		Cache: CacheConfig{
			FastCapacity: 128,
			Dir:          "data/cache",
			TTLHours:     7 * 24,
		},
		RateLimit: RateLimitConfig{
			Quota:         10,
			WindowSeconds: 60,
		},
		Pipeline: PipelineConfig{
			Concurrency:       4,
			MaxDepth:          3,
			RunTimeoutSeconds: 300,
		},
		Library: LibraryConfig{
			Dir: "data/library",
		},
		Prompts: DefaultPrompts(),
	}
}

// Load reads a TOML config file and fills any omitted sections with
// defaults, so a partial file only has to name what it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.fillPrompts()
	return cfg, nil
}

func (c *Config) fillPrompts() {
	def := DefaultPrompts()
	if c.Prompts.Classify == "" {
		c.Prompts.Classify = def.Classify
	}
	if c.Prompts.Structure == "" {
		c.Prompts.Structure = def.Structure
	}
	if c.Prompts.Expand == "" {
		c.Prompts.Expand = def.Expand
	}
	if c.Prompts.Crosslink == "" {
		c.Prompts.Crosslink = def.Crosslink
	}
}
