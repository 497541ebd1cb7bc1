package semver

import (
	"fmt"
	"sort"

	masterminds "github.com/Masterminds/semver/v3"
)

const resolverLogPrefix = "semver:resolver"

// ParseVersions parses published version strings, skipping invalid ones.
// The result is sorted descending.
func ParseVersions(published []string) []*masterminds.Version {
	out := make([]*masterminds.Version, 0, len(published))
	for _, s := range published {
		v, err := masterminds.NewVersion(s)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(masterminds.Collection(out)))
	return out
}

// ResolveVersion finds the best published version for rangeStr.
//
//   - empty range: latest stable release, or latest prerelease if there is no stable one
//   - major only ("2"): same rule restricted to that major
//   - anything else: highest version satisfying the constraint, falling back to an exact match
func ResolveVersion(published []string, rangeStr string) (*masterminds.Version, error) {
	versions := ParseVersions(published)
	if len(versions) == 0 {
		return nil, fmt.Errorf("%s - no published versions", resolverLogPrefix)
	}

	if rangeStr == "" {
		if v := latestPreferStable(versions, -1); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%s - no published versions", resolverLogPrefix)
	}

	if IsMajorOnly(rangeStr) {
		major := ExtractMajorFromRange(rangeStr)
		if v := latestPreferStable(versions, major); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%s - no version in major %d", resolverLogPrefix, major)
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		if v := findExact(versions, rangeStr); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%s - invalid range %q: %w", resolverLogPrefix, rangeStr, err)
	}

	for _, v := range versions {
		if constraint.Check(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%s - no version satisfies %q", resolverLogPrefix, rangeStr)
}

// GetUniqueMajors returns all unique major versions sorted descending.
func GetUniqueMajors(published []string) []int {
	seen := make(map[int]bool)
	var majors []int

	for _, v := range ParseVersions(published) {
		m := int(v.Major())
		if !seen[m] {
			seen[m] = true
			majors = append(majors, m)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(majors)))
	return majors
}

// SatisfiesRange checks if a version string satisfies a range.
func SatisfiesRange(version, rangeStr string) bool {
	sv, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}
	if IsMajorOnly(rangeStr) {
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}
	return constraint.Check(sv)
}

// --- internal helpers ---

// latestPreferStable expects versions sorted descending. major < 0 means any.
func latestPreferStable(versions []*masterminds.Version, major int) *masterminds.Version {
	var firstPre *masterminds.Version
	for _, v := range versions {
		if major >= 0 && int(v.Major()) != major {
			continue
		}
		if v.Prerelease() == "" {
			return v
		}
		if firstPre == nil {
			firstPre = v
		}
	}
	return firstPre
}

func findExact(versions []*masterminds.Version, versionStr string) *masterminds.Version {
	for _, v := range versions {
		if v.Original() == versionStr || v.String() == versionStr {
			return v
		}
	}
	return nil
}
