package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bestCmd = &cobra.Command{
	Use:   "best",
	Short: "Print the best-known suggested header and its full-block counterpart",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, closeStores, err := openTree(configPath)
		if err != nil {
			return err
		}
		defer closeStores()

		fmt.Printf("best known number=%d\n", t.BestKnownNumber())

		if h := t.BestSuggested(); h != nil {
			fmt.Printf("best suggested: number=%d hash=%s td=%d\n", h.Number, h.Hash, h.TotalDifficulty)
		} else {
			fmt.Println("best suggested: none")
		}

		if h := t.BestSuggestedFullBlock(); h != nil {
			fmt.Printf("best suggested full block: number=%d hash=%s td=%d\n", h.Number, h.Hash, h.TotalDifficulty)
		} else {
			fmt.Println("best suggested full block: none")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bestCmd)
}
