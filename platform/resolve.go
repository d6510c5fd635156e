package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrUnsupportedPlatform is returned when the matrix has no entry for a platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrUnsupportedArch is returned when a known platform has neither an entry
	// for the architecture nor a wildcard entry.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// Resolve returns the descriptor for a platform and architecture.
// The exact architecture entry wins; when there is none the platform's
// [Wildcard] entry is used. It never guesses across platforms.
func (m *Matrix) Resolve(platform, arch string) (Descriptor, error) {
	archs, ok := m.index[platform]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q (arch %q)", ErrUnsupportedPlatform, platform, arch)
	}

	if d, ok := archs[arch]; ok {
		return d, nil
	}

	if d, ok := archs[Wildcard]; ok {
		return d, nil
	}

	return Descriptor{}, fmt.Errorf("%w: %q on platform %q", ErrUnsupportedArch, arch, platform)
}

// Resolver locates installed binaries under an install root.
type Resolver struct {
	matrix *Matrix
	root   string
}

// NewResolver creates a resolver for binaries laid out as root/<slug>/<binary>.
func NewResolver(matrix *Matrix, root string) *Resolver {
	return &Resolver{matrix: matrix, root: root}
}

// Locate returns the path of the binary for the given platform and architecture.
func (r *Resolver) Locate(platform, arch string) (string, error) {
	d, err := r.matrix.Resolve(platform, arch)
	if err != nil {
		return "", err
	}
	return BinaryPath(r.root, d), nil
}

// LocateHost detects the running host and returns the path of its binary.
func (r *Resolver) LocateHost(ctx context.Context, detector Detector) (string, error) {
	host, err := detector.Detect(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to detect host: %w", err)
	}
	return r.Locate(host.OS, host.Arch)
}

// BinaryPath is where the binary of a descriptor lives under root.
func BinaryPath(root string, d Descriptor) string {
	return filepath.Join(root, d.Slug, d.Binary)
}
