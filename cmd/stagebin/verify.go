package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aexvir/stagebin/release"
)

func newVerifyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the staged binaries against the receipt of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			receipt, err := release.ReadReceipt(filepath.Join(g.root, release.ReceiptName))
			if err != nil {
				return err
			}
			if err := receipt.Verify(g.root); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d artifacts of %s match the receipt\n", len(receipt.Artifacts), receipt.Tag)
			return nil
		},
	}
}
