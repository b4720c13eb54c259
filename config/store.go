package config

import (
	"fmt"

	"github.com/mezonai/blocktree/kv"
)

// OpenStores constructs the header, block, and meta providers named by
// a StoreConfig, choosing the backend by cfg.Backend. Callers are
// responsible for closing all three.
func OpenStores(cfg StoreConfig) (headers, blocks, meta kv.Provider, err error) {
	open := openLevelDB
	if cfg.Backend == BackendBolt {
		open = openBolt
	}

	if headers, err = open(cfg.HeaderDir); err != nil {
		return nil, nil, nil, fmt.Errorf("open header store: %w", err)
	}
	if blocks, err = open(cfg.BlockDir); err != nil {
		headers.Close()
		return nil, nil, nil, fmt.Errorf("open block store: %w", err)
	}
	if meta, err = open(cfg.MetaDir); err != nil {
		headers.Close()
		blocks.Close()
		return nil, nil, nil, fmt.Errorf("open meta store: %w", err)
	}
	return headers, blocks, meta, nil
}

func openLevelDB(dir string) (kv.Provider, error) {
	return kv.NewLevelDBProvider(dir)
}

func openBolt(dir string) (kv.Provider, error) {
	return kv.NewBoltProvider(dir + ".bolt")
}
