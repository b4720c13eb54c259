// Package config loads the block tree's node-level configuration from
// a YAML file, mirroring the teacher's genesis-config loader.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoreBackend selects the kv.Provider implementation a Tree is built
// against.
type StoreBackend string

const (
	BackendLevelDB StoreBackend = "leveldb"
	BackendBolt    StoreBackend = "bbolt"
)

// StoreConfig configures the on-disk stores backing a Tree.
type StoreConfig struct {
	Backend   StoreBackend `yaml:"backend"`
	Dir       string       `yaml:"dir"`
	HeaderDir string       `yaml:"header_dir"`
	BlockDir  string       `yaml:"block_dir"`
	MetaDir   string       `yaml:"meta_dir"`
}

// CacheConfig configures the tree's in-memory LRU caches.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// BootstrapConfig configures LoadBlocksFromDb.
type BootstrapConfig struct {
	BatchSize uint64 `yaml:"batch_size"`
	MaxToLoad uint64 `yaml:"max_to_load"`
}

// TreeConfig is the top-level node configuration.
type TreeConfig struct {
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	ChainID   uint64          `yaml:"chain_id"`
}

// configFile is the document wrapper, matching the teacher's
// ConfigFile/GenesisConfig split so the YAML file can carry a
// top-level key instead of inlining TreeConfig's fields at the root.
type configFile struct {
	Config TreeConfig `yaml:"config"`
}

// Load reads and parses a tree config YAML file at path, applying
// defaults for any zero-valued field that has no sane zero meaning.
func Load(path string) (*TreeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var cf configFile
	if err := yaml.NewDecoder(f).Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg := cf.Config
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *TreeConfig) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendLevelDB
	}
	if cfg.Store.HeaderDir == "" {
		cfg.Store.HeaderDir = joinDir(cfg.Store.Dir, "headers")
	}
	if cfg.Store.BlockDir == "" {
		cfg.Store.BlockDir = joinDir(cfg.Store.Dir, "blocks")
	}
	if cfg.Store.MetaDir == "" {
		cfg.Store.MetaDir = joinDir(cfg.Store.Dir, "meta")
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 64
	}
	if cfg.Bootstrap.BatchSize == 0 {
		cfg.Bootstrap.BatchSize = 1000
	}
}

func joinDir(base, sub string) string {
	if base == "" {
		return sub
	}
	return base + "/" + sub
}

func validate(cfg *TreeConfig) error {
	switch cfg.Store.Backend {
	case BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Dir == "" && cfg.Store.Backend == BackendLevelDB {
		return fmt.Errorf("store.dir is required")
	}
	return nil
}
