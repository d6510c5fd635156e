package platform

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadMatrix reads a matrix from a yaml document shaped like
//
//	linux:
//	  arm64: {slug: linux-musl.aarch64, binary: dotslash}
//	darwin:
//	  "*": {slug: macos, binary: dotslash}
//
// Document order is kept, so it also defines the order artifacts are fetched in.
func LoadMatrix(r io.Reader) (*Matrix, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("matrix document is empty")
		}
		return nil, fmt.Errorf("failed to parse matrix: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("matrix document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: matrix must be a mapping of platforms", root.Line)
	}

	var entries []Entry
	for i := 0; i+1 < len(root.Content); i += 2 {
		platform, archs := root.Content[i], root.Content[i+1]

		if archs.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: platform %q must be a mapping of architectures", archs.Line, platform.Value)
		}
		if len(archs.Content) == 0 {
			return nil, fmt.Errorf("line %d: platform %q has no architectures", archs.Line, platform.Value)
		}

		for j := 0; j+1 < len(archs.Content); j += 2 {
			arch, value := archs.Content[j], archs.Content[j+1]

			var d Descriptor
			if err := value.Decode(&d); err != nil {
				return nil, fmt.Errorf("line %d: %s/%s: %w", value.Line, platform.Value, arch.Value, err)
			}

			entries = append(entries, Entry{Platform: platform.Value, Arch: arch.Value, Descriptor: d})
		}
	}

	return NewMatrix(entries...)
}

// LoadMatrixFile reads a matrix from a yaml file.
func LoadMatrixFile(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix file: %w", err)
	}
	defer file.Close()

	m, err := LoadMatrix(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
