package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/aexvir/stagebin"
)

const (
	// DefaultTimeout bounds a single download, including reading the body.
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "stagebin/1.0"

	maxRedirects = 10
	// how much of an error response ends up in the error message
	maxErrorBody = 4 << 10
)

// Downloader fetches a remote file into destination.
type Downloader interface {
	Download(ctx context.Context, url, destination string) error
}

// HTTPError is returned when the server answers with a non 2xx status.
type HTTPError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("received unexpected response when downloading %s: http%d", e.URL, e.Status)
	}
	return fmt.Sprintf("received unexpected response when downloading %s: http%d: %s", e.URL, e.Status, e.Body)
}

// HTTPDownloader downloads files over http(s), following redirects.
// Failures are final: there are no retries.
type HTTPDownloader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	progress  bool
	quiet     bool
}

// DownloaderOption customizes an [HTTPDownloader].
type DownloaderOption func(d *HTTPDownloader)

// NewHTTPDownloader creates a downloader with a 5 minute per download timeout.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := HTTPDownloader{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		progress:  true,
	}

	for _, opt := range opts {
		opt(&d)
	}

	return &d
}

// WithHTTPClient replaces the http client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.client = client
	}
}

// WithTimeout sets the per download timeout; zero disables it.
func WithTimeout(timeout time.Duration) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.userAgent = agent
	}
}

// WithProgress toggles the progress bar shown when stderr is a terminal.
func WithProgress(enabled bool) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.progress = enabled
	}
}

// WithoutNoise drops every line the downloader prints, progress bar included.
func WithoutNoise() DownloaderOption {
	return func(d *HTTPDownloader) {
		d.quiet = true
	}
}

// Download fetches url into destination.
// The body is written to destination.part and only renamed into place once
// complete; nothing is left behind on failure.
func (d *HTTPDownloader) Download(ctx context.Context, url, destination string) (err error) {
	if !d.quiet {
		stagebin.LogDetail(fmt.Sprintf("downloading %s", url))
	}

	start := time.Now()
	defer func() {
		if d.quiet {
			return
		}
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{URL: url, Status: resp.StatusCode, Body: string(body)}
	}

	var data io.Reader = resp.Body
	if d.progress && !d.quiet {
		var finish func()
		data, finish = progress(resp.Body, resp.ContentLength)
		defer finish()
	}

	return writeFile(data, destination)
}

// DirDownloader serves release assets from a local directory instead of the
// network, picking the file named like the last segment of the url.
// Useful to package assets produced by a local build.
type DirDownloader struct {
	dir   string
	quiet bool
}

// NewDirDownloader creates a downloader reading assets from dir.
func NewDirDownloader(dir string) *DirDownloader {
	return &DirDownloader{dir: dir}
}

func (d *DirDownloader) Download(ctx context.Context, url, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	source := filepath.Join(d.dir, path.Base(url))
	if !d.quiet {
		stagebin.LogDetail(fmt.Sprintf("copying %s", source))
	}

	file, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("asset not found: %s: %w", source, err)
		}
		return fmt.Errorf("failed to open asset: %w", err)
	}
	defer file.Close()

	return writeFile(file, destination)
}

func writeFile(data io.Reader, destination string) (err error) {
	partial := destination + ".part"

	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", partial, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			_ = os.Remove(partial)
		}
	}()

	if _, err := io.Copy(out, data); err != nil {
		return fmt.Errorf("failed to copy data to file %s: %w", partial, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", partial, err)
	}

	if err := os.Rename(partial, destination); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", destination, err)
	}
	return nil
}

// progress wraps an io.Reader to display a progress bar when running in a terminal.
// Returns the wrapped reader and a function to finalize the progress display.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{string . "prefix"}}{{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }} {{string . "suffix"}}`,
				),
			),
		).
		SetWriter(os.Stderr).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
