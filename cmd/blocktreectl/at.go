package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var atShowBody bool

var atCmd = &cobra.Command{
	Use:   "at <number>",
	Short: "Print the main-chain block or header at a height",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid height %q: %w", args[0], err)
		}

		t, closeStores, err := openTree(configPath)
		if err != nil {
			return err
		}
		defer closeStores()

		h, err := t.FindHeaderByNumber(number)
		if err != nil {
			return err
		}
		if h == nil {
			fmt.Printf("no block at height %d\n", number)
			return nil
		}
		fmt.Printf("number=%d hash=%s parent=%s td=%d\n", h.Number, h.Hash, h.ParentHash, h.TotalDifficulty)

		if atShowBody {
			b, err := t.FindBlockByNumber(number)
			if err != nil {
				return err
			}
			if b == nil || b.Body == nil {
				fmt.Println("no body stored")
				return nil
			}
			fmt.Printf("transactions=%d\n", len(b.Body.Transactions))
		}
		return nil
	},
}

func init() {
	atCmd.Flags().BoolVar(&atShowBody, "body", false, "also print the transaction count from the stored body")
	rootCmd.AddCommand(atCmd)
}
