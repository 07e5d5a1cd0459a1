package fetch

import (
	"regexp"
	"strconv"
	"strings"
)

// Pre-release rank (lower = earlier in release cycle). Plain releases rank 0.
var preReleaseRank = map[string]int{
	"alpha": -4,
	"a":     -4,
	"beta":  -3,
	"b":     -3,
	"pre":   -2,
	"rc":    -1,
}

// versionCoreRegex splits "1.2.3-rc1" into "1.2.3" and "-rc1"
var versionCoreRegex = regexp.MustCompile(`^(\d+(?:\.\d+)*)(.*)$`)

// preReleaseRegex matches suffixes like -rc1, _beta2, .alpha, rc.3
var preReleaseRegex = regexp.MustCompile(`^[-_.~]?(alpha|beta|pre|rc|a|b)[-_.]?(\d*)`)

type parsedVersion struct {
	parts  []int
	rank   int
	preNum int
}

func parseVersion(v string) parsedVersion {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")

	m := versionCoreRegex.FindStringSubmatch(v)
	if m == nil {
		return parsedVersion{}
	}

	fields := strings.Split(m[1], ".")
	pv := parsedVersion{parts: make([]int, len(fields))}
	for i, f := range fields {
		pv.parts[i], _ = strconv.Atoi(f)
	}

	if pre := preReleaseRegex.FindStringSubmatch(strings.ToLower(m[2])); pre != nil {
		pv.rank = preReleaseRank[pre[1]]
		if pre[2] != "" {
			pv.preNum, _ = strconv.Atoi(pre[2])
		}
	}
	return pv
}

// CompareVersions compares two dotted version strings, ignoring a leading "v".
// Missing components count as zero and pre-releases sort before the release.
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	a, b := parseVersion(v1), parseVersion(v2)

	n := len(a.parts)
	if len(b.parts) > n {
		n = len(b.parts)
	}
	for i := 0; i < n; i++ {
		if c := compareInt(at(a.parts, i), at(b.parts, i)); c != 0 {
			return c
		}
	}

	if c := compareInt(a.rank, b.rank); c != 0 {
		return c
	}
	return compareInt(a.preNum, b.preNum)
}

// HighestVersion returns the greatest version in versions, or "" if empty.
// Ties keep the earliest entry.
func HighestVersion(versions []string) string {
	best := ""
	for i, v := range versions {
		if i == 0 || CompareVersions(v, best) > 0 {
			best = v
		}
	}
	return best
}

func at(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
