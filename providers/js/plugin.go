package js

import "github.com/blang/semver"

var (
	LatestProviderVersion  = semver.MustParse("1.0.0")
	MinimumProviderVersion = semver.MustParse("1.0.0")
)

type PluginMeta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// checkVersion accepts any version from the minimum up to the latest major.
func checkVersion(version string) error {
	v, err := semver.Parse(version)
	if err != nil {
		return err
	}
	if v.LT(MinimumProviderVersion) {
		return &versionError{version: version, reason: "must be at least " + MinimumProviderVersion.String()}
	}
	if v.Major > LatestProviderVersion.Major {
		return &versionError{version: version, reason: "major version is newer than " + LatestProviderVersion.String()}
	}
	return nil
}

type versionError struct {
	version string
	reason  string
}

func (e *versionError) Error() string {
	return "provider version " + e.version + " is not supported: " + e.reason
}
