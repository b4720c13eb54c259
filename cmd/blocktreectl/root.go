// Package main implements blocktreectl, a read-only inspection CLI
// for an on-disk block tree store.
package main

import (
	"os"

	"github.com/mezonai/blocktree/internal/logx"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "blocktreectl",
	Short: "Inspect a block tree store",
	Long:  "Command line interface for inspecting an on-disk block tree index.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "blocktree.yml", "path to the tree config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "command execution failed:", err)
		os.Exit(1)
	}
}
