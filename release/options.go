package release

import "time"

// Option customizes a [Packager].
type Option func(p *Packager)

// WithProduct sets the product name prefixing every tarball.
func WithProduct(product string) Option {
	return func(p *Packager) {
		p.product = product
	}
}

// WithRepo sets the repository releases are published under, as owner/name.
func WithRepo(repo string) Option {
	return func(p *Packager) {
		p.repo = repo
	}
}

// WithHost sets the base url of the release host.
func WithHost(host string) Option {
	return func(p *Packager) {
		p.host = host
	}
}

// WithURLFormat overrides the template used to build download urls.
// The fields available are the ones of [Template].
func WithURLFormat(format string) Option {
	return func(p *Packager) {
		p.urlformat = format
	}
}

// WithDownloader replaces the http downloader.
func WithDownloader(downloader Downloader) Option {
	return func(p *Packager) {
		p.downloader = downloader
	}
}

// WithExtractor replaces the native tar.gz extractor.
func WithExtractor(extractor Extractor) Option {
	return func(p *Packager) {
		p.extractor = extractor
	}
}

// WithJobs sets how many artifacts are fetched at the same time.
func WithJobs(jobs int) Option {
	return func(p *Packager) {
		p.jobs = jobs
	}
}

// WithClock replaces the time source used for prerelease timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		p.now = now
	}
}

// WithoutReceipt skips writing the receipt into the install root.
func WithoutReceipt() Option {
	return func(p *Packager) {
		p.receipt = false
	}
}

// WithoutOutput silences everything the packager prints: steps, summary,
// warnings and per artifact lines. The built-in downloaders and extractors
// handed to the packager are silenced too; other implementations are
// responsible for their own output.
func WithoutOutput() Option {
	return func(p *Packager) {
		p.quiet = true
	}
}
