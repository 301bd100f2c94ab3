package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when neither a target argument nor a seed file is given.
	ErrNoTarget = errors.New("no target specified: provide a target or use --seeds")

	// ErrInvalidMaxConcurrency is returned when the global concurrency bound is not positive.
	ErrInvalidMaxConcurrency = errors.New("invalid max concurrency: must be positive")

	// ErrInvalidTimeout is returned when the invocation timeout is negative.
	// Zero disables the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidMaxDepth is returned when the depth limit is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidIntensityLimit is returned for a non-positive per-intensity bound.
	ErrInvalidIntensityLimit = errors.New("invalid intensity limit: must be positive")

	// ErrInvalidRateLimit is returned for a non-positive per-intensity rate.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be positive")

	// ErrInvalidPort is returned when a scan port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port: must be between 1 and 65535")

	// ErrInvalidSpiderLimit is returned when a spider depth or page limit is negative.
	ErrInvalidSpiderLimit = errors.New("invalid spider limit: must be non-negative")

	// ErrConflictingProxy is returned when both --proxy and --tor are given.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")

	// ErrInvalidTorStartupTimeout is returned when the embedded Tor startup timeout is not positive.
	ErrInvalidTorStartupTimeout = errors.New("invalid tor startup timeout: must be positive")

	// ErrInvalidTierValue is returned when a "tier=value" setting cannot be parsed.
	ErrInvalidTierValue = errors.New("invalid tier setting: expected TIER=VALUE")
)
