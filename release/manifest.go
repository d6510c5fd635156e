package release

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

const versionField = "version"

// Manifest is a json document, like a package.json, holding the version of
// the staged release next to fields this package doesn't care about.
// Top level fields keep their order across a read-modify-write cycle.
type Manifest struct {
	fields []field
}

type field struct {
	key   string
	value json.RawMessage
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

// ParseManifest parses a manifest document.
// Comments and trailing commas are tolerated; they don't survive a rewrite.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var m Manifest
	positions := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid manifest: unexpected %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid manifest: field %q: %w", key, err)
		}

		// last value wins, first position is kept
		if i, dup := positions[key]; dup {
			m.fields[i].value = value
			continue
		}
		positions[key] = len(m.fields)
		m.fields = append(m.fields, field{key: key, value: value})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid manifest: trailing data after top level object")
	}

	if _, err := m.Version(); err != nil {
		return nil, err
	}

	return &m, nil
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if tok != delim {
		return fmt.Errorf("invalid manifest: expected %q, got %v", delim, tok)
	}
	return nil
}

// Version returns the version field; empty when the manifest has none.
func (m *Manifest) Version() (string, error) {
	for _, f := range m.fields {
		if f.key != versionField {
			continue
		}

		var version string
		if err := json.Unmarshal(f.value, &version); err != nil {
			return "", fmt.Errorf("manifest version must be a string, got %s", f.value)
		}
		return version, nil
	}
	return "", nil
}

// SetVersion sets the version field, appending it if missing.
func (m *Manifest) SetVersion(version string) {
	encoded, _ := json.Marshal(version)

	for i := range m.fields {
		if m.fields[i].key == versionField {
			m.fields[i].value = encoded
			return
		}
	}
	m.fields = append(m.fields, field{key: versionField, value: encoded})
}

// Bytes renders the manifest with two space indentation and a trailing newline.
func (m *Manifest) Bytes() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(f.value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format manifest: %w", err)
	}
	out.WriteByte('\n')

	return out.Bytes(), nil
}

// Write replaces the file at path with the manifest.
// The content goes to a temporary file next to it first, then gets renamed
// over the original, so readers never see a half written manifest.
func (m *Manifest) Write(path string) (err error) {
	data, err := m.Bytes()
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// UpdateManifestVersion reads the manifest at path, sets its version and
// writes it back.
func UpdateManifestVersion(path, version string) error {
	manifest, err := ReadManifest(path)
	if err != nil {
		return err
	}
	manifest.SetVersion(version)
	return manifest.Write(path)
}
