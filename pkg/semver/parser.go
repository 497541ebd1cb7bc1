// Package semver parses add-on references and resolves them against the
// versions an add-on publishes.
package semver

import (
	"fmt"
	"regexp"
	"strings"
)

const logPrefix = "semver:parser"

// AddonRef holds the parsed components of an add-on reference string.
type AddonRef struct {
	// Add-on identifier (e.g., "cinemeta")
	ID string
	// Version range if specified (e.g., "^1.2.0", "1", ""); empty means latest
	Range string
	// Raw input string
	Raw string
}

var (
	addonIDRegex      = regexp.MustCompile(`^[a-z][a-z0-9._-]*$`)
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// ParseAddonRef parses an add-on reference string.
//
// Supported formats:
//   - cinemeta            (latest stable)
//   - cinemeta@1          (major only)
//   - cinemeta@1.2.3      (exact version)
//   - cinemeta@^1.2.0     (caret range)
//   - cinemeta@~1.2.0     (tilde range)
//   - cinemeta@>=1.0.0    (comparison range)
func ParseAddonRef(input string) (*AddonRef, error) {
	raw := strings.TrimSpace(input)

	id, rangeStr, hasAt := strings.Cut(raw, "@")
	if id == "" {
		return nil, fmt.Errorf("%s - invalid add-on reference, missing id: %q", logPrefix, raw)
	}
	if !ValidateAddonID(id) {
		return nil, fmt.Errorf("%s - invalid add-on id: %q", logPrefix, id)
	}
	if hasAt && strings.TrimSpace(rangeStr) == "" {
		return nil, fmt.Errorf("%s - empty version range in %q", logPrefix, raw)
	}

	return &AddonRef{ID: id, Range: strings.TrimSpace(rangeStr), Raw: raw}, nil
}

// String rebuilds the reference.
func (r *AddonRef) String() string {
	return BuildAddonRef(r.ID, r.Range)
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	var major int
	fmt.Sscanf(rangeStr, "%d", &major)
	return major
}

// BuildAddonRef builds an add-on reference from an id and optional version.
func BuildAddonRef(id, version string) string {
	if version != "" {
		return id + "@" + version
	}
	return id
}

// ValidateAddonID validates an add-on id (lowercase start, then letters, digits, dots, hyphens, underscores).
func ValidateAddonID(id string) bool {
	return addonIDRegex.MatchString(id)
}
