package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aexvir/stagebin"
	"github.com/aexvir/stagebin/platform"
)

const (
	DefaultProduct = "dotslash"
	DefaultRepo    = "facebook/dotslash"
	DefaultHost    = "https://github.com"

	stagingPrefix = ".staging-"
)

// ErrMissingTag is returned when no release identifier was supplied.
var ErrMissingTag = errors.New("missing required release tag")

// State is the phase a packaging run is in.
type State string

const (
	StateIdle             State = "idle"
	StateClearing         State = "clearing install root"
	StateFetching         State = "fetching artifacts"
	StateCommitting       State = "committing artifacts"
	StateUpdatingManifest State = "updating manifest"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Status is a snapshot of the current packaging run.
type Status struct {
	State State
	// Fetched counts artifacts downloaded, extracted and verified so far.
	Fetched int
	Total   int
}

// Packager stages every artifact of a release under an install root and
// records the release version in a manifest.
//
// The install root ends up holding one directory per artifact slug, each with
// the contents of its tarball. The manifest is only touched once every
// artifact was fetched and verified.
type Packager struct {
	matrix   *platform.Matrix
	root     string
	manifest string

	product   string
	repo      string
	host      string
	urlformat string

	downloader Downloader
	extractor  Extractor
	jobs       int
	now        func() time.Time
	receipt    bool
	quiet      bool

	mu     sync.Mutex
	status Status
}

// New creates a packager for the artifacts of matrix.
// installRoot is the directory holding one subdirectory per slug and
// manifestPath the json document whose version field tracks the staged release.
func New(matrix *platform.Matrix, installRoot, manifestPath string, opts ...Option) (*Packager, error) {
	if matrix == nil {
		return nil, errors.New("matrix is required")
	}
	if installRoot == "" {
		return nil, errors.New("install root is required")
	}
	if manifestPath == "" {
		return nil, errors.New("manifest path is required")
	}

	p := Packager{
		matrix:   matrix,
		root:     installRoot,
		manifest: manifestPath,

		product:   DefaultProduct,
		repo:      DefaultRepo,
		host:      DefaultHost,
		urlformat: DefaultURLFormat,

		downloader: NewHTTPDownloader(),
		extractor:  TarGzExtractor{},
		jobs:       1,
		now:        time.Now,
		receipt:    true,

		status: Status{State: StateIdle},
	}

	for _, opt := range opts {
		opt(&p)
	}

	switch {
	case p.product == "":
		return nil, errors.New("product name is required")
	case p.repo == "":
		return nil, errors.New("repository is required")
	case p.jobs < 1:
		return nil, fmt.Errorf("jobs must be at least 1, got %d", p.jobs)
	}

	if err := validateFormat(p.urlformat); err != nil {
		return nil, fmt.Errorf("invalid url format: %w", err)
	}

	if p.quiet {
		p.silence()
	}

	return &p, nil
}

// silence makes the built-in downloaders and extractors stop printing.
func (p *Packager) silence() {
	switch d := p.downloader.(type) {
	case *HTTPDownloader:
		d.quiet = true
	case *DirDownloader:
		d.quiet = true
	}

	if tc, ok := p.extractor.(TarCommand); ok {
		tc.Quiet = true
		p.extractor = tc
	}
}

func (p *Packager) logItem(text string) {
	if !p.quiet {
		stagebin.LogItem(text)
	}
}

func (p *Packager) logWarn(text string) {
	if !p.quiet {
		stagebin.LogWarn(text)
	}
}

func (p *Packager) logDetail(text string) {
	if !p.quiet {
		stagebin.LogDetail(text)
	}
}

// Status reports the state of the current or last packaging run.
func (p *Packager) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Packager) setState(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
}

func (p *Packager) markFetched() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Fetched++
}

// staged is an artifact extracted and verified in the staging directory.
type staged struct {
	platform.Entry
	URL string
}

// run holds what a single packaging run owns.
type run struct {
	info      VersionInfo
	staging   string
	artifacts []staged
}

// Package fetches every artifact of the release tagged tag and updates the
// manifest version.
//
// The run clears the install root first, downloads each tarball into a fresh
// scratch directory, extracts it into a staging directory inside the install
// root and verifies the expected binary is there and executable. Only when
// every artifact made it are the staged directories moved into place and the
// manifest rewritten. Any failure aborts the run; the scratch and staging
// directories are removed either way.
//
// Tags that aren't semantic versions are packaged as prereleases; see [Classify].
func (p *Packager) Package(ctx context.Context, tag string, prerelease bool) (err error) {
	if tag == "" {
		return ErrMissingTag
	}
	if _, err := ReadManifest(p.manifest); err != nil {
		return err
	}

	r := run{info: Classify(tag, prerelease)}
	if r.info.Coerced {
		p.logWarn(fmt.Sprintf(
			"tag %q is not a semantic version; packaging it as prerelease %s",
			tag, r.info.Version,
		))
	}

	p.mu.Lock()
	p.status = Status{State: StateIdle, Total: len(p.matrix.Artifacts())}
	p.mu.Unlock()

	defer func() {
		if err != nil {
			p.setState(StateFailed)
			return
		}
		p.setState(StateDone)
	}()

	opts := []stagebin.Option{
		stagebin.WithPostExecFunc(func(_ context.Context) error {
			if r.staging == "" {
				return nil
			}
			return os.RemoveAll(r.staging)
		}),
	}
	if p.quiet {
		opts = append(opts, stagebin.WithoutOutput())
	}

	return stagebin.New(opts...).Execute(
		ctx,
		stagebin.NewStep("clear install root", p.clear),
		stagebin.NewStep(
			fmt.Sprintf("fetch %d artifacts for %s", len(p.matrix.Artifacts()), tag),
			func(ctx context.Context) error { return p.fetchAll(ctx, &r) },
		),
		stagebin.NewStep("commit artifacts", func(_ context.Context) error { return p.commit(&r) }),
		stagebin.NewStep("update manifest", func(_ context.Context) error {
			p.setState(StateUpdatingManifest)
			version := r.info.ManifestVersion(p.now())
			p.logDetail(fmt.Sprintf("setting %s version to %s", p.manifest, version))
			return UpdateManifestVersion(p.manifest, version)
		}),
	)
}

// clear removes every directory directly under the install root, together
// with the receipt of the previous run. Other files are left alone.
func (p *Packager) clear(_ context.Context) error {
	p.setState(StateClearing)

	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("failed to create install root: %w", err)
	}

	entries, err := os.ReadDir(p.root)
	if err != nil {
		return fmt.Errorf("failed to list install root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p.logDetail(fmt.Sprintf("removing %s", entry.Name()))
		if err := os.RemoveAll(filepath.Join(p.root, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	if err := os.Remove(filepath.Join(p.root, ReceiptName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove previous receipt: %w", err)
	}

	return nil
}

// fetchAll fetches every artifact into the staging directory.
// The scratch directory holding the tarballs is removed before returning,
// whatever the outcome.
func (p *Packager) fetchAll(ctx context.Context, r *run) error {
	p.setState(StateFetching)

	scratch, err := os.MkdirTemp("", p.product+"-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	r.staging = filepath.Join(p.root, stagingPrefix+uuid.NewString())
	if err := os.Mkdir(r.staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	artifacts := p.matrix.Artifacts()
	r.artifacts = make([]staged, len(artifacts))

	if p.jobs == 1 {
		for i, entry := range artifacts {
			fetched, err := p.fetch(ctx, r, entry, scratch)
			if err != nil {
				return err
			}
			r.artifacts[i] = fetched
		}
		return nil
	}

	// artifacts write to disjoint directories and tarball names, so they can
	// be fetched side by side; the first failure cancels the others
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.jobs)

	for i, entry := range artifacts {
		if gctx.Err() != nil {
			break
		}

		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			fetched, err := p.fetch(gctx, r, entry, scratch)
			if err != nil {
				return err
			}
			r.artifacts[i] = fetched
			return nil
		})
	}

	return group.Wait()
}

// fetch downloads, extracts and verifies a single artifact.
func (p *Packager) fetch(ctx context.Context, r *run, entry platform.Entry, scratch string) (staged, error) {
	tarball := TarballName(p.product, entry.Slug)

	url, err := Template{
		Host:     p.host,
		Repo:     p.repo,
		Tag:      r.info.Tag,
		Version:  r.info.Version,
		Product:  p.product,
		Platform: entry.Platform,
		Arch:     entry.Arch,
		Slug:     entry.Slug,
		Binary:   entry.Binary,
		Tarball:  tarball,
	}.Resolve(p.urlformat)
	if err != nil {
		return staged{}, fmt.Errorf("failed to resolve url for %s: %w", entry.Slug, err)
	}

	p.logItem(fmt.Sprintf("fetching %s %s binary (%s %s)", entry.Platform, entry.Arch, entry.Slug, entry.Binary))

	archive := filepath.Join(scratch, tarball)
	if err := p.downloader.Download(ctx, url, archive); err != nil {
		return staged{}, fmt.Errorf("failed to fetch %s: %w", entry.Slug, err)
	}

	destination := filepath.Join(r.staging, entry.Slug)
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return staged{}, fmt.Errorf("failed to create directory for %s: %w", entry.Slug, err)
	}

	if err := p.extractor.Extract(ctx, archive, destination); err != nil {
		return staged{}, fmt.Errorf("failed to extract %s: %w", entry.Slug, err)
	}

	// only one tarball at a time sits in the scratch directory
	if err := os.Remove(archive); err != nil {
		return staged{}, fmt.Errorf("failed to remove %s: %w", tarball, err)
	}

	binary := filepath.Join(destination, entry.Binary)
	if err := checkExecutable(binary); err != nil {
		return staged{}, &ExtractionError{Slug: entry.Slug, Path: binary, Err: err}
	}

	p.markFetched()
	return staged{Entry: entry, URL: url}, nil
}

// commit moves the staged artifacts into the install root and writes the receipt.
func (p *Packager) commit(r *run) error {
	p.setState(StateCommitting)

	for _, artifact := range r.artifacts {
		from := filepath.Join(r.staging, artifact.Slug)
		to := filepath.Join(p.root, artifact.Slug)

		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to move %s into the install root: %w", artifact.Slug, err)
		}
	}

	if err := os.Remove(r.staging); err != nil {
		return fmt.Errorf("failed to remove staging directory: %w", err)
	}
	r.staging = ""

	if !p.receipt {
		return nil
	}

	receipt, err := newReceipt(p.root, r.info, r.artifacts)
	if err != nil {
		return err
	}
	return receipt.Write(filepath.Join(p.root, ReceiptName))
}
