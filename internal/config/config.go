package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/quotefeed/internal/feed"
	"github.com/TobiSchelling/quotefeed/internal/retrieval"
	"github.com/TobiSchelling/quotefeed/internal/upstream"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Upstream     Upstream  `yaml:"upstream"`
	Retrieval    Retrieval `yaml:"retrieval"`
	Feed         Feed      `yaml:"feed"`
	TaxonomyFile string    `yaml:"taxonomy_file"`
	Output       Output    `yaml:"output"`
	Server       Server    `yaml:"server"`
	Logging      Logging   `yaml:"logging"`
}

type Upstream struct {
	URL       string       `yaml:"url"`
	URLEnv    string       `yaml:"url_env"`
	Path      string       `yaml:"path"`
	Timeout   string       `yaml:"timeout"`
	UserAgent string       `yaml:"user_agent"`
	Feeds     []FeedSource `yaml:"feeds"`
}

type FeedSource struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Retrieval struct {
	SafetyMargin  int `yaml:"safety_margin"`
	PoolSize      int `yaml:"pool_size"`
	TagPoolSize   int `yaml:"tag_pool_size"`
	CollectTarget int `yaml:"collect_target"`
	MaxAttempts   int `yaml:"max_attempts"`
	TagMinimum    int `yaml:"tag_minimum"`
	TagLimit      int `yaml:"tag_limit"`
}

type Feed struct {
	PrefetchThreshold int `yaml:"prefetch_threshold"`
	PrefetchSize      int `yaml:"prefetch_size"`
	InitialSize       int `yaml:"initial_size"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for quotefeed.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "quotefeed")
}

// DataDir returns the XDG data directory for quotefeed.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "quotefeed")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/quotefeed/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'quotefeed init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	r := retrieval.DefaultOptions()
	f := feed.DefaultOptions()
	cfg := &Config{
		Upstream: Upstream{
			URLEnv: "QUOTES_API_URL",
			Path:   upstream.DefaultPath,
		},
		Retrieval: Retrieval{
			SafetyMargin:  r.SafetyMargin,
			PoolSize:      r.PoolSize,
			TagPoolSize:   r.TagPoolSize,
			CollectTarget: r.CollectTarget,
			MaxAttempts:   r.MaxAttempts,
			TagMinimum:    r.TagMinimum,
			TagLimit:      r.TagLimit,
		},
		Feed: Feed{
			PrefetchThreshold: f.PrefetchThreshold,
			PrefetchSize:      f.PrefetchSize,
			InitialSize:       f.InitialSize,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadEnv loads KEY=value pairs from path (default ".env") into the
// process environment without overriding variables already set. A missing
// file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// UpstreamURL returns the configured endpoint base URL, falling back to
// the environment variable named by url_env.
func (c *Config) UpstreamURL() string {
	if u := strings.TrimSpace(c.Upstream.URL); u != "" {
		return u
	}
	if c.Upstream.URLEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.Upstream.URLEnv))
}

// Timeout parses upstream.timeout. Empty, "0" and unparsable values mean
// no timeout. A bare number is read as seconds.
func (c *Config) Timeout() time.Duration {
	s := strings.TrimSpace(c.Upstream.Timeout)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// RetrievalOptions converts the retrieval section.
func (c *Config) RetrievalOptions() retrieval.Options {
	return retrieval.Options{
		SafetyMargin:  c.Retrieval.SafetyMargin,
		PoolSize:      c.Retrieval.PoolSize,
		TagPoolSize:   c.Retrieval.TagPoolSize,
		CollectTarget: c.Retrieval.CollectTarget,
		MaxAttempts:   c.Retrieval.MaxAttempts,
		TagMinimum:    c.Retrieval.TagMinimum,
		TagLimit:      c.Retrieval.TagLimit,
	}
}

// FeedOptions converts the feed section.
func (c *Config) FeedOptions() feed.Options {
	return feed.Options{
		PrefetchThreshold: c.Feed.PrefetchThreshold,
		PrefetchSize:      c.Feed.PrefetchSize,
		InitialSize:       c.Feed.InitialSize,
	}
}

// FeedConfigs converts the configured RSS feeds.
func (c *Config) FeedConfigs() []upstream.FeedConfig {
	out := make([]upstream.FeedConfig, 0, len(c.Upstream.Feeds))
	for _, f := range c.Upstream.Feeds {
		out = append(out, upstream.FeedConfig{URL: f.URL, Name: f.Name})
	}
	return out
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Quiet reports whether library logging should be discarded.
func (c *Config) Quiet() bool {
	return strings.EqualFold(c.Logging.Level, "QUIET")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
