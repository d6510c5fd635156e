package platform

// DefaultMatrix returns the table of artifacts published for every release.
// Keep it in sync with the release workflow: each slug here needs a build job
// producing <product>-<slug>.tar.gz.
func DefaultMatrix() *Matrix {
	return MustMatrix(
		Entry{Platform: "linux", Arch: "arm64", Descriptor: Descriptor{Slug: "linux-musl.aarch64", Binary: "dotslash"}},
		Entry{Platform: "linux", Arch: "amd64", Descriptor: Descriptor{Slug: "linux-musl.x86_64", Binary: "dotslash"}},
		// universal binary
		Entry{Platform: "darwin", Arch: Wildcard, Descriptor: Descriptor{Slug: "macos", Binary: "dotslash"}},
		Entry{Platform: "windows", Arch: "arm64", Descriptor: Descriptor{Slug: "windows-arm64", Binary: "dotslash.exe"}},
		Entry{Platform: "windows", Arch: "amd64", Descriptor: Descriptor{Slug: "windows", Binary: "dotslash.exe"}},
	)
}
