package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBlockHashCmd(o *rootOptions) *cobra.Command {
	var number uint64

	cmd := &cobra.Command{
		Use:   "block-hash",
		Short: "Print the hash of a block by number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			c, err := o.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			hash, found, err := c.BlockHash(ctx, number)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "Block number %d not found.\n", number)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Block hash for block number %d: %s\n", number, hash.Hex())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&number, "number", 1, "Block number to look up.")
	return cmd
}
