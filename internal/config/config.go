// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all recall and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// =============================================================================
// RECALL CONFIGURATION
// =============================================================================

// Clamp bounds for operator-tunable durations. Out-of-range values are
// pulled to the nearest bound, never rejected.
const (
	MinCooldownSeconds = 5.0
	MaxCooldownSeconds = 300.0
	MinRewindSeconds   = 0.5
	MaxRewindSeconds   = 30.0
	MinKillWindow      = 0.5
	MaxKillWindow      = 15.0

	// FixedSamplingInterval is not operator-tunable; the adaptive sampler
	// owns the effective cadence.
	FixedSamplingInterval = 0.1
)

// RewindConfig holds the recall timing knobs.
type RewindConfig struct {
	CooldownSeconds   float64 // Seconds between recalls per entity
	RewindSeconds     float64 // How far back a recall reaches
	KillWindowSeconds float64 // Post-recall death attribution window
}

// DefaultRewind returns the default recall configuration.
func DefaultRewind() RewindConfig {
	return RewindConfig{
		CooldownSeconds:   45,
		RewindSeconds:     3,
		KillWindowSeconds: 3,
	}
}

// RewindFromEnv returns recall configuration with environment variable
// overrides, clamped into their valid ranges.
func RewindFromEnv() RewindConfig {
	cfg := DefaultRewind()

	if v := getEnvFloat("RECALL_COOLDOWN_SECONDS", -1); v >= 0 {
		cfg.CooldownSeconds = v
	}
	if v := getEnvFloat("RECALL_REWIND_SECONDS", -1); v >= 0 {
		cfg.RewindSeconds = v
	}
	if v := getEnvFloat("RECALL_KILL_WINDOW_SECONDS", -1); v >= 0 {
		cfg.KillWindowSeconds = v
	}

	cfg.CooldownSeconds = clamp(cfg.CooldownSeconds, MinCooldownSeconds, MaxCooldownSeconds)
	cfg.RewindSeconds = clamp(cfg.RewindSeconds, MinRewindSeconds, MaxRewindSeconds)
	cfg.KillWindowSeconds = clamp(cfg.KillWindowSeconds, MinKillWindow, MaxKillWindow)

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server and tick loop settings.
type ServerConfig struct {
	Port        int
	DebugPort   int    // Localhost-only metrics/pprof listener
	TickRate    int    // Session updates per second
	JournalPath string // JSONL recall journal ("" disables file output)
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		DebugPort:   6060,
		TickRate:    30,
		JournalPath: "recall-journal.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("DEBUG_PORT", 0); p > 0 {
		cfg.DebugPort = p
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if path, ok := os.LookupEnv("JOURNAL_PATH"); ok {
		cfg.JournalPath = path
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Rewind RewindConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Rewind: RewindFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// LIVE PROVIDER
// =============================================================================

// ProviderCacheTTL bounds how stale a live duration read may be. Operators
// can retune the environment at runtime and see it applied within this long.
const ProviderCacheTTL = 3 * time.Second

// Provider serves the recall durations with a short-lived cache, so hot
// paths never pay an environment read per tick but tuning still lands
// within seconds.
type Provider struct {
	mu        sync.Mutex
	cached    RewindConfig
	fetchedAt time.Time
}

// NewProvider returns a provider primed with the current environment.
func NewProvider() *Provider {
	return &Provider{
		cached:    RewindFromEnv(),
		fetchedAt: time.Now(),
	}
}

func (p *Provider) current() RewindConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.fetchedAt) > ProviderCacheTTL {
		p.cached = RewindFromEnv()
		p.fetchedAt = time.Now()
	}
	return p.cached
}

// CooldownDuration returns the live cooldown in seconds.
func (p *Provider) CooldownDuration() float64 {
	return p.current().CooldownSeconds
}

// RewindDuration returns the live rewind reach in seconds.
func (p *Provider) RewindDuration() float64 {
	return p.current().RewindSeconds
}

// KillWindowDuration returns the live attribution window in seconds.
func (p *Provider) KillWindowDuration() float64 {
	return p.current().KillWindowSeconds
}

// SamplingInterval returns the fixed capture cadence.
func (p *Provider) SamplingInterval() float64 {
	return FixedSamplingInterval
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
