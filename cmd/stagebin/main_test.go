package main

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/stagebin/platform"
	"github.com/aexvir/stagebin/release"
)

const matrixDoc = `linux:
  "*": {slug: linux, binary: tool}
darwin:
  "*": {slug: macos, binary: tool}
windows:
  "*": {slug: windows, binary: tool}
`

type workspace struct {
	dir      string
	root     string
	manifest string
	matrix   string
	assets   string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()

	dir := t.TempDir()
	ws := workspace{
		dir:      dir,
		root:     filepath.Join(dir, "bin"),
		manifest: filepath.Join(dir, "package.json"),
		matrix:   filepath.Join(dir, "matrix.yaml"),
		assets:   filepath.Join(dir, "dist"),
	}

	require.NoError(t, os.WriteFile(ws.manifest, []byte("{\n  \"name\": \"tool\",\n  \"version\": \"0.0.0-dev\"\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(ws.matrix, []byte(matrixDoc), 0o644))
	require.NoError(t, os.Mkdir(ws.assets, 0o755))

	for _, slug := range []string{"linux", "macos", "windows"} {
		writeTarball(t, filepath.Join(ws.assets, release.TarballName("tool", slug)), "tool", "#!/bin/sh\necho \"$@\"\nexit ${EXIT_CODE:-0}\n")
	}

	return ws
}

func (ws workspace) args(args ...string) []string {
	return append(args, "--root", ws.root, "--manifest", ws.manifest, "--matrix", ws.matrix)
}

func writeTarball(t *testing.T, path, name, content string) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// run executes the command tree with args, returning what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func manifestVersion(t *testing.T, path string) string {
	t.Helper()

	manifest, err := release.ReadManifest(path)
	require.NoError(t, err)
	version, err := manifest.Version()
	require.NoError(t, err)
	return version
}

func TestPackage(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws.args("package", "-v", "v1.4.0", "--product", "tool", "--from-dir", ws.assets, "--no-progress")...)
	require.NoError(t, err)

	for _, slug := range []string{"linux", "macos", "windows"} {
		assert.FileExists(t, filepath.Join(ws.root, slug, "tool"))
	}
	assert.FileExists(t, filepath.Join(ws.root, release.ReceiptName))
	assert.Equal(t, "1.4.0", manifestVersion(t, ws.manifest))

	_, err = run(t, ws.args("clean")...)
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(ws.root, "linux"))
	assert.Equal(t, release.DevVersion, manifestVersion(t, ws.manifest))
}

func TestVerify(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws.args("package", "-v", "v1.4.0", "--product", "tool", "--from-dir", ws.assets, "--no-progress")...)
	require.NoError(t, err)

	out, err := run(t, ws.args("verify")...)
	require.NoError(t, err)
	assert.Equal(t, "3 artifacts of v1.4.0 match the receipt\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(ws.root, "macos", "tool"), []byte("tampered"), 0o755))

	_, err = run(t, ws.args("verify")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't match the receipt")
}

func TestVerify_NoReceipt(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws.args("verify")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read receipt")
}

func TestPackage_MissingVersion(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws.args("package", "--from-dir", ws.assets)...)
	require.Error(t, err)
	assert.ErrorIs(t, err, release.ErrMissingTag)

	assert.NoDirExists(t, ws.root)
	assert.Equal(t, release.DevVersion, manifestVersion(t, ws.manifest))
}

func TestPackage_UnknownExtractor(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws.args("package", "-v", "v1.0.0", "--extractor", "zip")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown extractor")
	assert.NoDirExists(t, ws.root)
}

func TestWhich(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws.args("which", "--os", "darwin", "--arch", "arm64")...)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.root, "macos", "tool")+"\n", out)

	_, err = run(t, ws.args("which", "--os", "plan9", "--arch", "amd64")...)
	assert.ErrorIs(t, err, platform.ErrUnsupportedPlatform)
}

func TestWhich_DefaultMatrix(t *testing.T) {
	out, err := run(t, "which", "--root", "bin", "--os", "windows", "--arch", "arm64")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("bin", "windows-arm64", "dotslash.exe")+"\n", out)

	_, err = run(t, "which", "--root", "bin", "--os", "windows", "--arch", "386")
	assert.ErrorIs(t, err, platform.ErrUnsupportedArch)
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the staged tool is a shell script")
	}

	ws := newWorkspace(t)

	_, err := run(t, ws.args("package", "-v", "v1.4.0", "--product", "tool", "--from-dir", ws.assets, "--no-progress")...)
	require.NoError(t, err)

	out, err := run(t, ws.args("exec", "--", "hello", "world")...)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)

	t.Setenv("EXIT_CODE", "3")
	_, err = run(t, ws.args("exec", "--", "failing")...)
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestExec_NotStaged(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws.args("exec", "--os", "linux", "--", "hello")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run stagebin package first")
	assert.Equal(t, 1, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 42, exitCode(&exitError{code: 42}))
}
