package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		tag        string
		prerelease bool
		expected   VersionInfo
	}{
		{
			name:     "plain release",
			tag:      "v1.2.3",
			expected: VersionInfo{Tag: "v1.2.3", Version: "1.2.3"},
		},
		{
			name:     "prerelease and build metadata",
			tag:      "v1.2.3-beta.1+build5",
			expected: VersionInfo{Tag: "v1.2.3-beta.1+build5", Version: "1.2.3-beta.1+build5"},
		},
		{
			name:       "caller flag is kept for semver tags",
			tag:        "v2.0.0",
			prerelease: true,
			expected:   VersionInfo{Tag: "v2.0.0", Version: "2.0.0", Prerelease: true},
		},
		{
			name:     "arbitrary tag",
			tag:      "nightly/2024-01-01",
			expected: VersionInfo{Tag: "nightly/2024-01-01", Version: "0.0.0-nightly-2024-01-01", Prerelease: true, Coerced: true},
		},
		{
			name:     "runs of invalid characters collapse",
			tag:      "feat//x__y  z",
			expected: VersionInfo{Tag: "feat//x__y  z", Version: "0.0.0-feat-x-y-z", Prerelease: true, Coerced: true},
		},
		{
			name:     "missing v prefix",
			tag:      "1.2.3",
			expected: VersionInfo{Tag: "1.2.3", Version: "0.0.0-1-2-3", Prerelease: true, Coerced: true},
		},
		{
			name:     "shorthand",
			tag:      "v1.2",
			expected: VersionInfo{Tag: "v1.2", Version: "0.0.0-v1-2", Prerelease: true, Coerced: true},
		},
		{
			name:     "leading zeros",
			tag:      "v01.2.3",
			expected: VersionInfo{Tag: "v01.2.3", Version: "0.0.0-v01-2-3", Prerelease: true, Coerced: true},
		},
		{
			name:     "uppercase prefix",
			tag:      "V1.2.3",
			expected: VersionInfo{Tag: "V1.2.3", Version: "0.0.0-V1-2-3", Prerelease: true, Coerced: true},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.tag, test.prerelease))
		})
	}
}

func TestVersionInfo_ManifestVersion(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		info     VersionInfo
		expected string
	}{
		{
			name:     "release",
			info:     VersionInfo{Version: "1.2.3"},
			expected: "1.2.3",
		},
		{
			name:     "prerelease",
			info:     VersionInfo{Version: "1.2.3", Prerelease: true},
			expected: "1.2.3-1700000000123",
		},
		{
			name:     "prerelease keeps build metadata last",
			info:     VersionInfo{Version: "1.2.3-beta.1+build5", Prerelease: true},
			expected: "1.2.3-beta.1-1700000000123+build5",
		},
		{
			name:     "coerced",
			info:     Classify("nightly", false),
			expected: "0.0.0-nightly-1700000000123",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.info.ManifestVersion(now))
		})
	}
}
