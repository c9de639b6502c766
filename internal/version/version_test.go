package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stub(t *testing.T, version, commit, built string, info *debug.BuildInfo) {
	t.Helper()

	oldVersion, oldCommit, oldBuilt, oldRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = oldVersion, oldCommit, oldBuilt, oldRead
	})

	Version, GitCommit, BuildTime = version, commit, built
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return info, info != nil
	}
}

func TestStampedVersion(t *testing.T) {
	stub(t, "v1.2.0", "0123456789abcdef", "2026-01-02T03:04:05Z", nil)

	assert.Equal(t, "v1.2.0", GetVersion())
	assert.Equal(t, "0123456789abcdef", GetGitCommit())
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())

	info := GetBuildInfo()
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), info.BuildTime)
	assert.Contains(t, GetDetailedVersion(), "Commit: 0123456789abcdef")
	assert.Contains(t, GetDetailedVersion(), "Built: 2026-01-02T03:04:05Z")
}

func TestVersionFromBuildInfo(t *testing.T) {
	stub(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abcdef0123456"}},
	})

	assert.Equal(t, "dev-abcdef0", GetVersion())
	assert.Equal(t, "abcdef0123456", GetGitCommit())
	assert.Equal(t, "dev-abcdef0", GetShortVersion())
	assert.True(t, GetBuildInfo().BuildTime.IsZero())
}

func TestUnknownBuild(t *testing.T) {
	stub(t, "dev", "unknown", "unknown", nil)

	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "unknown", GetGitCommit())
	assert.Equal(t, "dev", GetShortVersion())
	assert.NotContains(t, GetDetailedVersion(), "Commit:")
}

func TestParseISOTime(t *testing.T) {
	assert.True(t, parseISOTime("").IsZero())
	assert.True(t, parseISOTime("yesterday").IsZero())
	assert.Equal(t, 2026, parseISOTime("2026-03-04 05:06:07").Year())
}
