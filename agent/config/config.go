package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/CURENT/pv-curve-llm/agent"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	History   HistoryConfig   `mapstructure:"history"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Curve     CurveConfig     `mapstructure:"curve"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	v *viper.Viper // retained so Watch observes the instance that read the file
}

// HistoryConfig bounds the derived views over the interaction log.
type HistoryConfig struct {
	MaxConversationTurns int `mapstructure:"max_conversation_turns"` // recent-turn window size
	MaxSimulationResults int `mapstructure:"max_simulation_results"` // recent-result window size
	ChangedWindow        int `mapstructure:"changed_window"`         // turns scanned for "recently changed" parameters
	MaxSummaryLen        int `mapstructure:"max_summary_len"`        // hard cap on the context summary, in bytes
}

// EngineConfig stores workflow engine settings.
type EngineConfig struct {
	MaxChainedTurns      int     `mapstructure:"max_chained_turns"`      // ceiling on follow-up dispatches per raw input
	ClassifyContextTurns int     `mapstructure:"classify_context_turns"` // exchanges handed to the classifier
	MinConfidence        float64 `mapstructure:"min_confidence"`         // below this the label falls back to question
	CacheEnabled         bool    `mapstructure:"cache_enabled"`          // memoize classifier calls
	CacheCapacity        int     `mapstructure:"cache_capacity"`         // LRU capacity
	CacheTTLSeconds      int     `mapstructure:"cache_ttl_seconds"`      // cache entry TTL
	EnableTracing        bool    `mapstructure:"enable_tracing"`         // structured span logging per turn
	ResumeTurns          int     `mapstructure:"resume_turns"`           // persisted turns replayed when resuming a session
}

// CurveConfig stores sweep settings for the curve generator.
type CurveConfig struct {
	MaxSteps      int     `mapstructure:"max_steps"`      // safety bound on sweep iterations
	NRTolerance   float64 `mapstructure:"nr_tolerance"`   // Newton-Raphson mismatch tolerance
	NRMaxIter     int     `mapstructure:"nr_max_iter"`    // Newton-Raphson iteration cap per step
	OutputDir     string  `mapstructure:"output_dir"`     // where curve artifacts are written
	PersistCurves bool    `mapstructure:"persist_curves"` // write curve CSV artifacts
}

// RetrievalConfig stores snippet retrieval settings.
type RetrievalConfig struct {
	K           int     `mapstructure:"k"`            // results returned to responders
	RRFK        float64 `mapstructure:"rrf_k"`        // RRF rank constant
	WeightFTS   float64 `mapstructure:"weight_fts"`   // FTS5 source weight
	WeightTerms float64 `mapstructure:"weight_terms"` // in-memory term index weight
}

// Text provider selection. ProviderStatic phrases answers from retrieved
// context fully offline; ProviderNone routes classification and extraction
// straight to the rules implementations.
const (
	ProviderNone   = "none"
	ProviderStatic = "static"
)

// ProviderConfig selects the text completion backend.
type ProviderConfig struct {
	Kind string `mapstructure:"kind"` // none|static
}

// DatabaseConfig stores the embedded session database location.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"` // persist turns to libsql
	Path    string `mapstructure:"path"`    // path to the .db file
}

// LoggingConfig stores zerolog settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // trace|debug|info|warn|error
	Pretty bool   `mapstructure:"pretty"` // console writer for interactive use
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.v = v
	return &cfg, nil
}

// Watch re-unmarshals the config on file change and invokes onChange with the
// fresh value. Invalid edits are reported through onError and skipped, so a
// bad save never replaces a running configuration.
func (c *Config) Watch(onChange func(*Config), onError func(error)) {
	if c.v == nil {
		// A Config constructed in code has no backing file to watch.
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := c.v.Unmarshal(&cfg); err != nil {
			if onError != nil {
				onError(fmt.Errorf("config reload failed for %s: %w", e.Name, err))
			}
			return
		}
		if err := cfg.Validate(); err != nil {
			if onError != nil {
				onError(fmt.Errorf("config reload rejected for %s: %w", e.Name, err))
			}
			return
		}
		cfg.v = c.v
		onChange(&cfg)
	})
	c.v.WatchConfig()
}

// Validate clamps nothing and rejects nonsensical bounds outright; the caller
// decides whether to fall back to defaults.
func (c *Config) Validate() error {
	if c.History.MaxConversationTurns < 1 {
		return fmt.Errorf("history.max_conversation_turns must be >= 1, got %d", c.History.MaxConversationTurns)
	}
	if c.History.MaxSimulationResults < 1 {
		return fmt.Errorf("history.max_simulation_results must be >= 1, got %d", c.History.MaxSimulationResults)
	}
	if c.History.MaxSummaryLen < 64 {
		return fmt.Errorf("history.max_summary_len must be >= 64, got %d", c.History.MaxSummaryLen)
	}
	if c.Engine.MaxChainedTurns < 1 {
		return fmt.Errorf("engine.max_chained_turns must be >= 1, got %d", c.Engine.MaxChainedTurns)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %g", c.Engine.MinConfidence)
	}
	if c.Curve.NRMaxIter < 1 {
		return fmt.Errorf("curve.nr_max_iter must be >= 1, got %d", c.Curve.NRMaxIter)
	}
	if c.Provider.Kind != ProviderNone && c.Provider.Kind != ProviderStatic {
		return fmt.Errorf("provider.kind must be %q or %q, got %q", ProviderNone, ProviderStatic, c.Provider.Kind)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// History bounds
	v.SetDefault("history.max_conversation_turns", 10)
	v.SetDefault("history.max_simulation_results", 5)
	v.SetDefault("history.changed_window", 5)
	v.SetDefault("history.max_summary_len", 2000)

	// Engine defaults
	v.SetDefault("engine.max_chained_turns", 8)
	v.SetDefault("engine.classify_context_turns", 3)
	v.SetDefault("engine.min_confidence", 0.5)
	v.SetDefault("engine.cache_enabled", true)
	v.SetDefault("engine.cache_capacity", 512)
	v.SetDefault("engine.cache_ttl_seconds", 3600)
	v.SetDefault("engine.enable_tracing", true)
	v.SetDefault("engine.resume_turns", 50)

	// Provider
	v.SetDefault("provider.kind", ProviderStatic)

	// Curve sweep defaults
	v.SetDefault("curve.max_steps", 2000)
	v.SetDefault("curve.nr_tolerance", 1e-8)
	v.SetDefault("curve.nr_max_iter", 30)
	v.SetDefault("curve.output_dir", filepath.Join(internal.DefaultDataDir, "generated"))
	v.SetDefault("curve.persist_curves", false)

	// Retrieval defaults
	v.SetDefault("retrieval.k", 6)
	v.SetDefault("retrieval.rrf_k", 60.0)
	v.SetDefault("retrieval.weight_fts", 0.55)
	v.SetDefault("retrieval.weight_terms", 0.45)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", filepath.Join(internal.DefaultDataDir, internal.DefaultDatabaseFile))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

// Default returns the built-in configuration without touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}
