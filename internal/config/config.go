// Package config loads brainy's tunables through a viper.Viper instance,
// the way the teacher's cmd/bd/config.go and internal/config/yaml_config.go
// load config.yaml — a project-local YAML file, environment variable
// overrides, and sane defaults, merged in viper's usual precedence order
// (explicit Set > flag > env > config file > default). Unlike the
// teacher's CLI-oriented config (which mixes startup-only and daemon-only
// keys, see its YamlOnlyKeys map), this is an embeddable library: callers
// construct a Config once at store-open time, and only the subset of
// fields documented as hot-reloadable may change underneath them via
// fsnotify afterward.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// HNSW holds the vector index tuning knobs (spec.md §2.5).
type HNSW struct {
	M              int `mapstructure:"m"`
	EfConstruction int `mapstructure:"ef_construction"`
	EfSearch       int `mapstructure:"ef_search"`
}

// Throttle holds the throttle adaptor's tunable caps (spec.md §4.14).
type Throttle struct {
	InitialBackoffMs int64 `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int64 `mapstructure:"max_backoff_ms"`
}

// Memory holds the memory-basis override (spec.md §5). Zero means
// "detect"; a positive value always wins over any environment/cgroup
// probe in internal/memlimit.
type Memory struct {
	OverrideBytes int64 `mapstructure:"override_bytes"`
}

// Values is the full set of loaded tunables.
type Values struct {
	DataDir         string   `mapstructure:"data_dir"`
	VectorDimension int      `mapstructure:"vector_dimension"`
	HNSW            HNSW     `mapstructure:"hnsw"`
	Throttle        Throttle `mapstructure:"throttle"`
	Memory          Memory   `mapstructure:"memory"`
}

// HotReloadableKeys are the only config.yaml keys a running store will
// pick up after a fsnotify-triggered reload. DataDir and VectorDimension
// are fixed at open time — changing either underneath an open store would
// desync the blob layout or the HNSW index's vector width, so a reload
// touching them is ignored: the running value is kept and no warning is
// emitted.
var HotReloadableKeys = map[string]bool{
	"hnsw.ef_search":            true,
	"throttle.initial_backoff_ms": true,
	"throttle.max_backoff_ms":     true,
	"memory.override_bytes":       true,
}

func defaults() Values {
	return Values{
		DataDir:         ".brainy",
		VectorDimension: 0, // 0 disables the vector-width check; no dimension is inferred from the first add()
		HNSW: HNSW{
			M:              16,
			EfConstruction: 100,
			EfSearch:       50,
		},
		Throttle: Throttle{
			InitialBackoffMs: 1000,
			MaxBackoffMs:     30000,
		},
	}
}

// Config is the loaded, live-reloadable configuration. Safe for concurrent
// use; Snapshot returns a consistent copy of the current values.
type Config struct {
	mu sync.RWMutex
	v  *viper.Viper
	cur Values
}

// Load reads configPath (if it exists) over the built-in defaults, with
// BRAINY_-prefixed environment variables taking precedence (e.g.
// BRAINY_HNSW_EF_SEARCH overrides hnsw.ef_search), matching the teacher's
// own env-override-beats-file convention in LoadLocalConfigWithEnv.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BRAINY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("vector_dimension", d.VectorDimension)
	v.SetDefault("hnsw.m", d.HNSW.M)
	v.SetDefault("hnsw.ef_construction", d.HNSW.EfConstruction)
	v.SetDefault("hnsw.ef_search", d.HNSW.EfSearch)
	v.SetDefault("throttle.initial_backoff_ms", d.Throttle.InitialBackoffMs)
	v.SetDefault("throttle.max_backoff_ms", d.Throttle.MaxBackoffMs)
	v.SetDefault("memory.override_bytes", d.Memory.OverrideBytes)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var vals Values
	if err := v.Unmarshal(&vals); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &Config{v: v, cur: vals}, nil
}

// Snapshot returns a copy of the currently loaded values.
func (c *Config) Snapshot() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Watch starts an fsnotify watch on the backing config file via viper and
// invokes onChange with the new snapshot on every reload of the file,
// whichever keys changed. Non-hot-reloadable edits (data_dir,
// vector_dimension) are silently kept at their open-time value.
func (c *Config) Watch(onChange func(Values)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		prev := c.cur
		var next Values
		if err := c.v.Unmarshal(&next); err != nil {
			c.mu.Unlock()
			return
		}
		next.DataDir = prev.DataDir
		next.VectorDimension = prev.VectorDimension
		c.cur = next
		c.mu.Unlock()

		if onChange != nil {
			onChange(next)
		}
	})
	c.v.WatchConfig()
}
