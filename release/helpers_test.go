package release

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	content  string
	mode     int64
	typeflag byte
	linkname string
}

func executable(name, content string) tarEntry {
	return tarEntry{name: name, content: content, mode: 0o755, typeflag: tar.TypeReg}
}

// tarball builds a gzip compressed tar archive in memory.
func tarball(t *testing.T, entries ...tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, entry := range entries {
		header := tar.Header{
			Name:     entry.name,
			Mode:     entry.mode,
			Typeflag: entry.typeflag,
			Linkname: entry.linkname,
		}
		if entry.typeflag == tar.TypeReg {
			header.Size = int64(len(entry.content))
		}
		if header.Mode == 0 {
			header.Mode = 0o755
		}

		require.NoError(t, tw.WriteHeader(&header))
		if entry.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry.content))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// releaseServer serves assets keyed by escaped request path and records
// every path requested.
type releaseServer struct {
	*httptest.Server

	mu       sync.Mutex
	assets   map[string][]byte
	requests []string
}

func newReleaseServer(t *testing.T, assets map[string][]byte) *releaseServer {
	t.Helper()

	rs := releaseServer{assets: assets}
	rs.Server = httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				rs.mu.Lock()
				rs.requests = append(rs.requests, r.URL.EscapedPath())
				data, ok := rs.assets[r.URL.EscapedPath()]
				rs.mu.Unlock()

				if !ok {
					w.WriteHeader(http.StatusNotFound)
					w.Write([]byte("Not Found"))
					return
				}
				w.Write(data)
			},
		),
	)
	t.Cleanup(rs.Close)

	return &rs
}

func (rs *releaseServer) Requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.requests...)
}

// downloaderFunc adapts a function to the Downloader interface.
type downloaderFunc func(ctx context.Context, url, destination string) error

func (f downloaderFunc) Download(ctx context.Context, url, destination string) error {
	return f(ctx, url, destination)
}

// MockExtractor is a testify mock implementation of the Extractor interface
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, archive, destination string) error {
	args := m.Called(ctx, archive, destination)
	return args.Error(0)
}

func readVersion(t *testing.T, path string) string {
	t.Helper()

	manifest, err := ReadManifest(path)
	require.NoError(t, err)

	version, err := manifest.Version()
	require.NoError(t, err)
	return version
}

// dirs lists the directories directly under root.
func dirs(t *testing.T, root string) []string {
	t.Helper()

	entries, err := os.ReadDir(root)
	require.NoError(t, err)

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

// isolateTemp points the scratch area of the packager at a directory owned by
// the test and returns it.
func isolateTemp(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "tmp")
	require.NoError(t, os.Mkdir(dir, 0o755))
	t.Setenv("TMPDIR", dir)
	return dir
}

// captureOutput returns everything fn writes to stdout, coloured output included.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	reader, writer, err := os.Pipe()
	require.NoError(t, err)

	stdout, output := os.Stdout, color.Output
	os.Stdout, color.Output = writer, writer

	captured := make(chan string)
	go func() {
		data, _ := io.ReadAll(reader)
		captured <- string(data)
	}()

	defer func() {
		os.Stdout, color.Output = stdout, output
	}()
	fn()

	require.NoError(t, writer.Close())
	return <-captured
}
