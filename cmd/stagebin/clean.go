package main

import (
	"github.com/spf13/cobra"

	"github.com/aexvir/stagebin/release"
)

func newCleanCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove staged artifacts and reset the manifest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			matrix, err := g.loadMatrix()
			if err != nil {
				return err
			}

			packager, err := release.New(matrix, g.root, g.manifest)
			if err != nil {
				return err
			}
			return packager.Clean(cmd.Context())
		},
	}
}
