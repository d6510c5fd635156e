package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the architecture key used as fallback when a platform has no
// entry for the requested architecture.
const Wildcard = "*"

// Descriptor identifies a release artifact.
type Descriptor struct {
	// Slug names both the release tarball and the directory the artifact is
	// extracted into under the install root.
	Slug string `yaml:"slug"`
	// Binary is the file name of the executable inside the extracted directory.
	Binary string `yaml:"binary"`
}

// Entry is a single row of the matrix.
type Entry struct {
	Platform string
	Arch     string
	Descriptor
}

func (e Entry) String() string {
	return fmt.Sprintf("%s/%s (%s %s)", e.Platform, e.Arch, e.Slug, e.Binary)
}

// Matrix maps platform and architecture identifiers to artifact descriptors.
// It is immutable once built; construct it with [NewMatrix].
type Matrix struct {
	entries   []Entry
	platforms []string
	index     map[string]map[string]Descriptor
}

// NewMatrix builds a matrix from entries, keeping their order.
// Every row is validated: identifiers must be non-empty, a (platform, arch) pair
// can appear only once and a slug can't be claimed by two different descriptors,
// since it names the directory the artifact ends up in.
func NewMatrix(entries ...Entry) (*Matrix, error) {
	if len(entries) == 0 {
		return nil, errors.New("matrix has no entries")
	}

	m := Matrix{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]map[string]Descriptor),
	}
	slugs := make(map[string]Entry)

	for _, entry := range entries {
		if err := validate(entry); err != nil {
			return nil, err
		}

		archs, ok := m.index[entry.Platform]
		if !ok {
			archs = make(map[string]Descriptor)
			m.index[entry.Platform] = archs
			m.platforms = append(m.platforms, entry.Platform)
		}

		if _, dup := archs[entry.Arch]; dup {
			return nil, fmt.Errorf("duplicate matrix entry for %s/%s", entry.Platform, entry.Arch)
		}

		if other, claimed := slugs[entry.Slug]; claimed && other.Descriptor != entry.Descriptor {
			return nil, fmt.Errorf("slug %q is used by both %s and %s", entry.Slug, other, entry)
		}

		archs[entry.Arch] = entry.Descriptor
		slugs[entry.Slug] = entry
		m.entries = append(m.entries, entry)
	}

	return &m, nil
}

// MustMatrix is like [NewMatrix] but panics on invalid input.
// Meant for tables that are fixed at compile time.
func MustMatrix(entries ...Entry) *Matrix {
	m, err := NewMatrix(entries...)
	if err != nil {
		panic(err)
	}
	return m
}

func validate(entry Entry) error {
	switch {
	case entry.Platform == "":
		return fmt.Errorf("matrix entry %s has no platform", entry)
	case entry.Arch == "":
		return fmt.Errorf("matrix entry %s has no architecture", entry)
	}

	if err := validName("slug", entry.Slug); err != nil {
		return fmt.Errorf("matrix entry %s/%s: %w", entry.Platform, entry.Arch, err)
	}
	if err := validName("binary", entry.Binary); err != nil {
		return fmt.Errorf("matrix entry %s/%s: %w", entry.Platform, entry.Arch, err)
	}

	return nil
}

// slugs and binary names end up as path elements, so they must be exactly one.
func validName(field, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s is empty", field)
	case name == "." || name == "..":
		return fmt.Errorf("%s %q is not a valid file name", field, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%s %q must not contain path separators", field, name)
	}
	return nil
}

// Entries returns every row of the matrix in declaration order.
func (m *Matrix) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Artifacts returns the rows that need fetching: one per slug, first
// occurrence wins, in declaration order.
func (m *Matrix) Artifacts() []Entry {
	seen := make(map[string]bool, len(m.entries))
	artifacts := make([]Entry, 0, len(m.entries))

	for _, entry := range m.entries {
		if seen[entry.Slug] {
			continue
		}
		seen[entry.Slug] = true
		artifacts = append(artifacts, entry)
	}

	return artifacts
}

// Platforms returns the platform identifiers in declaration order.
func (m *Matrix) Platforms() []string {
	return append([]string(nil), m.platforms...)
}

// Lookup returns the descriptor stored for the exact (platform, arch) key.
// No wildcard fallback is applied; see [Matrix.Resolve] for that.
func (m *Matrix) Lookup(platform, arch string) (Descriptor, bool) {
	d, ok := m.index[platform][arch]
	return d, ok
}
