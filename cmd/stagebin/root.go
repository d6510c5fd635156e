package main

import (
	"github.com/spf13/cobra"

	"github.com/aexvir/stagebin/platform"
)

// globals are the flags shared by every command.
type globals struct {
	root     string
	manifest string
	matrix   string
}

// loadMatrix returns the matrix file given with --matrix, or the built-in one.
func (g *globals) loadMatrix() (*platform.Matrix, error) {
	if g.matrix == "" {
		return platform.DefaultMatrix(), nil
	}
	return platform.LoadMatrixFile(g.matrix)
}

func newRootCmd() *cobra.Command {
	var g globals

	root := &cobra.Command{
		Use:   "stagebin",
		Short: "Stage and run platform specific release binaries",
		Long: `stagebin downloads the binaries of a release for every platform in its
matrix, lays them out as <root>/<slug>/<binary> and records the release
version in a json manifest. At runtime it picks the binary matching the host.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.root, "root", "bin", "install root holding one directory per artifact")
	flags.StringVar(&g.manifest, "manifest", "package.json", "json manifest whose version tracks the staged release")
	flags.StringVar(&g.matrix, "matrix", "", "yaml file describing the platform matrix (defaults to the built-in one)")

	root.AddCommand(
		newPackageCmd(&g),
		newCleanCmd(&g),
		newWhichCmd(&g),
		newExecCmd(&g),
		newVerifyCmd(&g),
	)

	return root
}
