package release

import (
	"strings"

	"github.com/CloudNativeWorks/lynx-node/internal/platform"
)

var familySubstrings = map[platform.OSFamily][]string{
	platform.Debian: {"debian", "ubuntu"},
	platform.RedHat: {"rhel", "redhat", "centos", "fedora", "rocky", "alma"},
}

var armSubstrings = []string{"arm", "aarch64"}

// assetFilter keeps names for which it returns true
type assetFilter func(lowerName string) bool

func containsAny(name string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// filtersFor returns the ordered filter chain for a platform, or nil when
// the platform has an unknown component and nothing can match.
func filtersFor(profile platform.Profile, extension string) []assetFilter {
	family, ok := familySubstrings[profile.OSFamily]
	if !ok {
		return nil
	}

	var archFilter assetFilter
	switch profile.Arch {
	case platform.ARM64:
		archFilter = func(name string) bool { return containsAny(name, armSubstrings) }
	case platform.AMD64:
		archFilter = func(name string) bool { return !containsAny(name, armSubstrings) }
	default:
		return nil
	}

	ext := strings.ToLower(extension)
	return []assetFilter{
		func(name string) bool { return containsAny(name, family) },
		archFilter,
		func(name string) bool { return strings.Contains(name, ext) },
	}
}

// SelectAsset applies the family, architecture and extension filters in
// order and returns the first surviving asset in the order given. Matching
// is a case-insensitive substring test on the asset name.
func SelectAsset(assets []Asset, profile platform.Profile, extension string) (Asset, bool) {
	filters := filtersFor(profile, extension)
	if filters == nil {
		return Asset{}, false
	}

	remaining := assets
	for _, keep := range filters {
		var next []Asset
		for _, a := range remaining {
			if keep(strings.ToLower(a.Name)) {
				next = append(next, a)
			}
		}
		remaining = next
	}

	if len(remaining) == 0 {
		return Asset{}, false
	}
	return remaining[0], true
}

// SelectFilename is SelectAsset over bare file names
func SelectFilename(names []string, profile platform.Profile, extension string) (string, bool) {
	assets := make([]Asset, len(names))
	for i, n := range names {
		assets[i] = Asset{Name: n}
	}
	a, ok := SelectAsset(assets, profile, extension)
	return a.Name, ok
}
