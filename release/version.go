package release

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// DevVersion is the manifest version when no release is staged.
const DevVersion = "0.0.0-dev"

// every run of characters not allowed in a semver identifier
var nonIdentifierChars = regexp.MustCompile(`[^0-9A-Za-z-]+`)

// VersionInfo is the outcome of classifying a release tag.
type VersionInfo struct {
	// Tag is the release identifier as given; it's used verbatim in download urls.
	Tag string
	// Version is the semantic version derived from the tag, without the leading v.
	Version string
	// Prerelease marks versions that get a timestamp suffix in the manifest.
	Prerelease bool
	// Coerced is set when the tag isn't a semantic version and Version was
	// synthesized from it; such releases are always prereleases.
	Coerced bool
}

// Classify derives the version of a release tag.
//
// Tags must be strict semantic versions with a leading v, e.g. v1.2.3,
// v1.2.3-rc.1 or v1.2.3-rc.1+build.5; shorthands like v1.2 don't qualify.
// Matching tags keep the prerelease flag supplied by the caller.
//
// Any other tag becomes 0.0.0-<tag>, with every run of characters outside
// [0-9A-Za-z-] collapsed to a single dash, and is forced to be a prerelease.
func Classify(tag string, prerelease bool) VersionInfo {
	if isStrictSemver(tag) {
		return VersionInfo{
			Tag:        tag,
			Version:    strings.TrimPrefix(tag, "v"),
			Prerelease: prerelease,
		}
	}

	return VersionInfo{
		Tag:        tag,
		Version:    "0.0.0-" + nonIdentifierChars.ReplaceAllString(tag, "-"),
		Prerelease: true,
		Coerced:    true,
	}
}

// semver.IsValid accepts shorthands like v1 and v1.2; requiring the canonical
// form (minus build metadata, which Canonical drops) rules them out.
func isStrictSemver(tag string) bool {
	if !semver.IsValid(tag) {
		return false
	}

	core, _, _ := strings.Cut(tag, "+")
	return semver.Canonical(tag) == core
}

// ManifestVersion is the version written to the manifest.
// Prereleases get the current unix time in milliseconds appended to their
// prerelease part, so repeated runs against the same tag produce distinct
// versions; build metadata stays at the end.
func (v VersionInfo) ManifestVersion(now time.Time) string {
	if !v.Prerelease {
		return v.Version
	}

	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	version, build, hasBuild := strings.Cut(v.Version, "+")

	// the stamp joins the prerelease part ahead of "+build"; appended after
	// the build metadata it would be ignored by semver precedence
	version = version + "-" + stamp
	if hasBuild {
		version += "+" + build
	}
	return version
}
