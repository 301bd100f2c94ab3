package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/reconscan/internal/crawler"
	"github.com/nao1215/reconscan/internal/engine"
	"github.com/nao1215/reconscan/internal/worker"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "reconscan"

	// DefaultMaxConcurrency bounds the invocations running at once.
	DefaultMaxConcurrency = engine.DefaultMaxConcurrency

	// DefaultTimeout is the per-invocation timeout.
	DefaultTimeout = engine.DefaultTimeout

	// DefaultDialTimeout applies to each network connection a worker opens.
	DefaultDialTimeout = 10 * time.Second

	// DefaultTorStartupTimeout is the time the embedded Tor daemon gets to
	// bootstrap. It usually needs one to three minutes.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultUserAgent is sent by HTTP workers.
	DefaultUserAgent = "reconscan/1.0 (+https://github.com/nao1215/reconscan)"

	// DefaultDBFile is the SQLite file name inside DBDir.
	DefaultDBFile = "reconscan.db"
)

// Config holds all reconscan options. It is filled from defaults, then the
// configuration file, then CLI flags.
type Config struct {
	// MaxConcurrency bounds the invocations running at once.
	MaxConcurrency int

	// MaxIntensity excludes workers above this tier.
	MaxIntensity worker.Intensity

	// IntensityLimits bounds concurrent invocations per tier. Tiers without
	// an entry are only bound by MaxConcurrency.
	IntensityLimits map[worker.Intensity]int

	// RateLimits caps invocations per second per tier.
	RateLimits map[worker.Intensity]float64

	// Timeout is the per-invocation timeout. Zero disables it.
	Timeout time.Duration

	// MaxDepth stops dispatch of values at this depth. Zero means unlimited.
	MaxDepth int

	// DNSServers are the resolvers used by the dns/* workers. Empty means
	// the system configuration.
	DNSServers []string

	// Ports are scanned by net/port_scan. Empty means the built-in list.
	Ports []int

	// SpiderMaxDepth is how many links web/spider follows from the start page.
	SpiderMaxDepth int

	// SpiderMaxPages bounds the pages web/spider fetches per website.
	SpiderMaxPages int

	// SpiderIgnore are path patterns web/spider never fetches.
	SpiderIgnore []string

	// SpiderFollow restricts web/spider to matching paths. Empty means all.
	SpiderFollow []string

	// Workers restricts the run to these worker ids. Empty means all.
	Workers []string

	// WorkerFiles are YAML worker definitions loaded in addition to the
	// built-in workers.
	WorkerFiles []string

	// ProxyAddress routes worker connections through a SOCKS5 proxy.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes worker connections
	// through it.
	UseTor bool

	// TorStartupTimeout is the bootstrap timeout of the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// DialTimeout applies to each connection opened by a worker.
	DialTimeout time.Duration

	// UserAgent is sent by HTTP workers.
	UserAgent string

	// Targets are the root values given on the command line.
	Targets []string

	// SeedFile is a YAML or JSON list of value records used as roots.
	SeedFile string

	// Verbose enables Debug logging.
	Verbose bool

	// JSONOutput streams results as JSON lines instead of text.
	JSONOutput bool

	// MarkdownFile receives a Markdown summary of the run when set.
	MarkdownFile string

	// OutputFile receives the result stream instead of stdout when set.
	OutputFile string

	// SaveToDB persists the run to the SQLite database in DBDir.
	SaveToDB bool

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxConcurrency:    DefaultMaxConcurrency,
		MaxIntensity:      worker.Aggressive,
		IntensityLimits:   map[worker.Intensity]int{},
		RateLimits:        map[worker.Intensity]float64{},
		Timeout:           DefaultTimeout,
		SpiderMaxDepth:    crawler.DefaultMaxDepth,
		SpiderMaxPages:    crawler.DefaultMaxPages,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DialTimeout:       DefaultDialTimeout,
		UserAgent:         DefaultUserAgent,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for reconscan.
// On Linux: ~/.local/share/reconscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for reconscan.
// On Linux: ~/.config/reconscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DBDir, DefaultDBFile)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && c.SeedFile == "" {
		return ErrNoTarget
	}
	return c.ValidateOptions()
}

// ValidateOptions is Validate without the target check. It is used by
// commands that run workers on values given another way.
func (c *Config) ValidateOptions() error {
	if c.MaxConcurrency <= 0 {
		return ErrInvalidMaxConcurrency
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	for tier, n := range c.IntensityLimits {
		if n <= 0 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidIntensityLimit, tier, n)
		}
	}
	for tier, r := range c.RateLimits {
		if r <= 0 {
			return fmt.Errorf("%w: %s=%g", ErrInvalidRateLimit, tier, r)
		}
	}
	for _, p := range c.Ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, p)
		}
	}
	if c.SpiderMaxDepth < 0 || c.SpiderMaxPages < 0 {
		return ErrInvalidSpiderLimit
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	if c.UseTor && c.TorStartupTimeout <= 0 {
		return ErrInvalidTorStartupTimeout
	}
	return nil
}

// ParseIntensityLimits parses "tier=n" settings, e.g. "active=2".
func ParseIntensityLimits(settings []string) (map[worker.Intensity]int, error) {
	limits := make(map[worker.Intensity]int, len(settings))
	for _, s := range settings {
		tier, raw, err := splitTierValue(s)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTierValue, s)
		}
		limits[tier] = n
	}
	return limits, nil
}

// ParseRateLimits parses "tier=rate" settings, e.g. "aggressive=0.5".
func ParseRateLimits(settings []string) (map[worker.Intensity]float64, error) {
	limits := make(map[worker.Intensity]float64, len(settings))
	for _, s := range settings {
		tier, raw, err := splitTierValue(s)
		if err != nil {
			return nil, err
		}
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTierValue, s)
		}
		limits[tier] = r
	}
	return limits, nil
}

// ParsePorts parses a comma separated port list such as "22,80,8000-8010".
func ParsePorts(s string) ([]int, error) {
	var ports []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(field, "-")
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, field)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(hi); err != nil || to < from {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPort, field)
			}
		}
		if from < 1 || to > 65535 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, field)
		}
		for p := from; p <= to; p++ {
			ports = append(ports, p)
		}
	}
	return ports, nil
}

func splitTierValue(s string) (worker.Intensity, string, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidTierValue, s)
	}
	tier, err := worker.ParseIntensity(name)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrInvalidTierValue, err)
	}
	return tier, strings.TrimSpace(raw), nil
}
