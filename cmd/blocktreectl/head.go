package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Print the current main-chain head",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, closeStores, err := openTree(configPath)
		if err != nil {
			return err
		}
		defer closeStores()

		head := t.Head()
		if head == nil {
			fmt.Println("no head: no block has been promoted yet")
			return nil
		}
		fmt.Printf("number=%d hash=%s parent=%s td=%d\n", head.Number, head.Hash, head.ParentHash, head.TotalDifficulty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(headCmd)
}
