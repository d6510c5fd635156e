package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aexvir/stagebin"
	"github.com/aexvir/stagebin/release"
)

type packageOptions struct {
	version    string
	prerelease bool

	product   string
	repo      string
	host      string
	api       string
	urlformat string

	timeout    time.Duration
	jobs       int
	fromDir    string
	extractor  string
	noProgress bool
	noReceipt  bool
}

func newPackageCmd(g *globals) *cobra.Command {
	var opts packageOptions

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Fetch every artifact of a release into the install root",
		Long: `Fetch every artifact of a release into the install root.

The install root is cleared first. Each artifact tarball is downloaded,
extracted into <root>/<slug> and checked for its binary. Only when all of them
made it is the manifest version updated. Tags that aren't semantic versions
are packaged as prereleases.`,
		Example: `  stagebin package --version v0.5.2
  stagebin package -v latest --jobs 4
  stagebin package -v v0.6.0-rc.1 --prerelease --from-dir ./dist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPackage(cmd, g, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.version, "version", "v", "", `release tag to package, or "latest"`)
	flags.BoolVar(&opts.prerelease, "prerelease", false, "mark the release as a prerelease")
	flags.StringVar(&opts.product, "product", release.DefaultProduct, "product name prefixing every tarball")
	flags.StringVar(&opts.repo, "repo", release.DefaultRepo, "repository publishing the release, as owner/name")
	flags.StringVar(&opts.host, "host", release.DefaultHost, "release host base url")
	flags.StringVar(&opts.api, "api", release.DefaultAPIBase, "api base url used to resolve the latest release")
	flags.StringVar(&opts.urlformat, "url-format", release.DefaultURLFormat, "template of the download url")
	flags.DurationVar(&opts.timeout, "timeout", release.DefaultTimeout, "timeout of each download")
	flags.IntVar(&opts.jobs, "jobs", 1, "artifacts fetched at the same time")
	flags.StringVar(&opts.fromDir, "from-dir", "", "take the tarballs from this directory instead of downloading them")
	flags.StringVar(&opts.extractor, "extractor", "native", "how tarballs are extracted: native or tar")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "don't show download progress bars")
	flags.BoolVar(&opts.noReceipt, "no-receipt", false, "don't write "+release.ReceiptName+" into the install root")

	return cmd
}

func runPackage(cmd *cobra.Command, g *globals, opts packageOptions) error {
	if opts.version == "" {
		return fmt.Errorf("%w; pass it with --version", release.ErrMissingTag)
	}

	matrix, err := g.loadMatrix()
	if err != nil {
		return err
	}

	var extractor release.Extractor
	switch opts.extractor {
	case "native":
		extractor = release.TarGzExtractor{}
	case "tar":
		extractor = release.TarCommand{}
	default:
		return fmt.Errorf("unknown extractor %q; expected native or tar", opts.extractor)
	}

	var downloader release.Downloader
	if opts.fromDir != "" {
		downloader = release.NewDirDownloader(opts.fromDir)
	} else {
		downloader = release.NewHTTPDownloader(
			release.WithTimeout(opts.timeout),
			// bars of concurrent downloads would trample each other
			release.WithProgress(!opts.noProgress && opts.jobs == 1),
		)
	}

	packagerOpts := []release.Option{
		release.WithProduct(opts.product),
		release.WithRepo(opts.repo),
		release.WithHost(opts.host),
		release.WithURLFormat(opts.urlformat),
		release.WithDownloader(downloader),
		release.WithExtractor(extractor),
		release.WithJobs(opts.jobs),
	}
	if opts.noReceipt {
		packagerOpts = append(packagerOpts, release.WithoutReceipt())
	}

	packager, err := release.New(matrix, g.root, g.manifest, packagerOpts...)
	if err != nil {
		return err
	}

	tag := opts.version
	if tag == "latest" {
		tag, err = release.LatestTag(cmd.Context(), nil, opts.api, opts.repo, release.TokenFromEnv())
		if err != nil {
			return fmt.Errorf("failed to resolve latest release: %w", err)
		}
		stagebin.LogItem(fmt.Sprintf("latest release of %s is %s", opts.repo, tag))
	}

	return packager.Package(cmd.Context(), tag, opts.prerelease)
}
