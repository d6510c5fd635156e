package release

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/aexvir/stagebin"
)

// Extractor unpacks an archive into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, archive, destination string) error
}

// ExtractionError is returned when an artifact didn't yield a usable binary.
type ExtractionError struct {
	Slug string
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction of %s produced no usable binary at %s: %s", e.Slug, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TarGzExtractor extracts .tar.gz archives in process.
// Regular files keep the permission bits recorded in the archive, so
// executables stay executable. Every write goes through an [os.Root] opened
// on the destination, so neither entry names nor symlinks extracted earlier
// can place a file outside of it. Symlinks resolving outside the destination
// are rejected.
type TarGzExtractor struct{}

func (TarGzExtractor) Extract(ctx context.Context, archive, destination string) error {
	file, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer decompressor.Close()

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", destination, err)
	}

	root, err := os.OpenRoot(destination)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", destination, err)
	}
	defer root.Close()

	reader := tar.NewReader(decompressor)
	var links []string

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read archive: %w", err)
		}

		name, err := entryName(header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(name, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", name, err)
			}

		case tar.TypeReg:
			if err := writeEntry(root, reader, name, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			target := filepath.FromSlash(header.Linkname)
			if filepath.IsAbs(target) || !filepath.IsLocal(filepath.Join(filepath.Dir(name), target)) {
				return fmt.Errorf("symlink %s points outside of the archive: %s", header.Name, header.Linkname)
			}

			if err := replaceEntry(root, name, func() error { return root.Symlink(target, name) }); err != nil {
				return fmt.Errorf("failed to create symlink %s: %w", name, err)
			}
			links = append(links, name)

		case tar.TypeLink:
			// hardlink targets are relative to the archive root
			target, err := entryName(header.Linkname)
			if err != nil {
				return fmt.Errorf("hardlink %s points outside of the archive: %s", header.Name, header.Linkname)
			}

			if err := replaceEntry(root, name, func() error { return root.Link(target, name) }); err != nil {
				return fmt.Errorf("failed to create hardlink %s: %w", name, err)
			}

		case tar.TypeXGlobalHeader:
			continue

		default:
			return fmt.Errorf("unsupported entry %s of type %q in archive", header.Name, header.Typeflag)
		}
	}

	// a link can be harmless on its own and escape once a later entry turns
	// one of the components it goes through into another link
	for _, link := range links {
		if _, err := root.Stat(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("symlink %s points outside of the archive: %w", link, err)
		}
	}

	return nil
}

// entryName turns an archive path into a path local to the destination.
func entryName(name string) (string, error) {
	local := filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return local, nil
}

// replaceEntry creates a link through create, removing whatever sat at name before.
func replaceEntry(root *os.Root, name string, create func() error) error {
	if err := root.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	if err := root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return create()
}

func writeEntry(root *os.Root, content io.Reader, name string, mode os.FileMode) error {
	if err := root.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(name), err)
	}

	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", name, err)
	}

	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy data to file %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", name, err)
	}

	// the umask applied at creation may have dropped bits
	if err := root.Chmod(name, mode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}
	return nil
}

// TarCommand extracts archives by running the system tar.
type TarCommand struct {
	// Executable defaults to "tar".
	Executable string
	// Quiet drops the runner output; tar's own stderr still shows.
	Quiet bool
}

func (t TarCommand) Extract(ctx context.Context, archive, destination string) error {
	executable := t.Executable
	if executable == "" {
		executable = "tar"
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", destination, err)
	}

	opts := []stagebin.RunnerOpt{
		stagebin.WithArgs("-xzf", archive, "-C", destination),
		stagebin.WithStdOut(io.Discard),
		stagebin.WithErrMsg("     system tar couldn't extract the archive; the native extractor doesn't depend on it"),
	}
	if t.Quiet {
		opts = append(opts, stagebin.WithQuiet())
	}

	if err := stagebin.Run(ctx, executable, opts...); err != nil {
		return fmt.Errorf("failed to extract %s: %w", archive, err)
	}
	return nil
}
