// Package release stages the artifacts of a release under an install root.
//
// A [Packager] walks the artifacts of a [platform.Matrix], downloads the
// tarball of each one, extracts it into a directory named after its slug and
// checks the expected binary made it. Once every artifact is in place the
// version of the release is written into a json manifest, so the manifest
// never claims a release that isn't fully staged.
//
//	matrix := platform.DefaultMatrix()
//	packager, err := release.New(matrix, "bin", "package.json", release.WithJobs(4))
//	if err != nil {
//		return err
//	}
//	return packager.Package(ctx, "v0.5.2", false)
//
// Downloading and extracting are behind the [Downloader] and [Extractor]
// interfaces; besides the http and in-process implementations there's
// [DirDownloader], which picks assets from a local directory, and
// [TarCommand], which shells out to the system tar.
package release
