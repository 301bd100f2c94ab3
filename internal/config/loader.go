package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/reconscan/internal/worker"
)

// DefaultConfigFile is the configuration file name searched in the current
// and home directories.
const DefaultConfigFile = ".reconscan"

// XDGConfigFile is the configuration file name inside XDGConfigDir.
const XDGConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the .reconscan configuration file. Unset fields
// leave the corresponding Config value unchanged.
type File struct {
	MaxConcurrency  int                `yaml:"max_concurrency,omitempty"`
	MaxIntensity    string             `yaml:"max_intensity,omitempty"`
	IntensityLimits map[string]int     `yaml:"intensity_limits,omitempty"`
	RateLimit       map[string]float64 `yaml:"rate_limit,omitempty"`
	Timeout         time.Duration      `yaml:"timeout,omitempty"`
	MaxDepth        int                `yaml:"max_depth,omitempty"`
	DNSServers      []string           `yaml:"dns_servers,omitempty"`
	Ports           []int              `yaml:"ports,omitempty"`
	Spider          *SpiderFile        `yaml:"spider,omitempty"`
	Workers         []string           `yaml:"workers,omitempty"`
	WorkerFiles     []string           `yaml:"worker_files,omitempty"`
	Proxy           string             `yaml:"proxy,omitempty"`
	Tor             bool               `yaml:"tor,omitempty"`
	UserAgent       string             `yaml:"user_agent,omitempty"`
}

// SpiderFile is the spider section of the configuration file.
type SpiderFile struct {
	MaxDepth *int     `yaml:"max_depth,omitempty"`
	MaxPages *int     `yaml:"max_pages,omitempty"`
	Ignore   []string `yaml:"ignore,omitempty"`
	Follow   []string `yaml:"follow,omitempty"`
}

// LoadConfigFile reads a configuration file. A missing file yields
// ErrConfigNotFound; callers decide whether that matters.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, when given
//  2. .reconscan in the current directory
//  3. .reconscan in the home directory
//  4. config.yaml in the XDG config directory
//
// It returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Apply copies the values set in f into c.
func (c *Config) Apply(f *File) error {
	if f == nil {
		return nil
	}
	if f.MaxConcurrency != 0 {
		c.MaxConcurrency = f.MaxConcurrency
	}
	if f.MaxIntensity != "" {
		tier, err := worker.ParseIntensity(f.MaxIntensity)
		if err != nil {
			return fmt.Errorf("max_intensity: %w", err)
		}
		c.MaxIntensity = tier
	}
	for name, n := range f.IntensityLimits {
		tier, err := worker.ParseIntensity(name)
		if err != nil {
			return fmt.Errorf("intensity_limits: %w", err)
		}
		if c.IntensityLimits == nil {
			c.IntensityLimits = make(map[worker.Intensity]int)
		}
		c.IntensityLimits[tier] = n
	}
	for name, r := range f.RateLimit {
		tier, err := worker.ParseIntensity(name)
		if err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
		if c.RateLimits == nil {
			c.RateLimits = make(map[worker.Intensity]float64)
		}
		c.RateLimits[tier] = r
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.MaxDepth != 0 {
		c.MaxDepth = f.MaxDepth
	}
	if len(f.DNSServers) > 0 {
		c.DNSServers = f.DNSServers
	}
	if len(f.Ports) > 0 {
		c.Ports = f.Ports
	}
	if sp := f.Spider; sp != nil {
		if sp.MaxDepth != nil {
			c.SpiderMaxDepth = *sp.MaxDepth
		}
		if sp.MaxPages != nil {
			c.SpiderMaxPages = *sp.MaxPages
		}
		if len(sp.Ignore) > 0 {
			c.SpiderIgnore = sp.Ignore
		}
		if len(sp.Follow) > 0 {
			c.SpiderFollow = sp.Follow
		}
	}
	if len(f.Workers) > 0 {
		c.Workers = f.Workers
	}
	if len(f.WorkerFiles) > 0 {
		c.WorkerFiles = f.WorkerFiles
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.Tor {
		c.UseTor = true
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	return nil
}
