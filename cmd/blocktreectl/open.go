package main

import (
	"context"
	"fmt"

	"github.com/mezonai/blocktree/chainspec"
	"github.com/mezonai/blocktree/config"
	"github.com/mezonai/blocktree/loader"
	"github.com/mezonai/blocktree/tree"
)

// openTree loads the configured store, constructs a Tree over it, and
// replays persisted state far enough for the inspection subcommands to
// read Head/BestSuggested/levels. The returned closer releases the
// underlying store handles.
func openTree(cfgPath string) (*tree.Tree, func() error, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	headers, blocks, meta, err := config.OpenStores(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	closeAll := func() error {
		var firstErr error
		for _, p := range []interface{ Close() error }{headers, blocks, meta} {
			if err := p.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	t := tree.New(tree.Config{
		Headers:       headers,
		Blocks:        blocks,
		Meta:          meta,
		Spec:          chainspec.Static(cfg.ChainID),
		CacheCapacity: cfg.Cache.Capacity,
	})

	if err := loader.LoadBlocksFromDb(context.Background(), t, loader.Options{
		BatchSize: cfg.Bootstrap.BatchSize,
		MaxToLoad: cfg.Bootstrap.MaxToLoad,
	}); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("load blocks from db: %w", err)
	}

	return t, closeAll, nil
}
