// Package pathmatch implements the path and pattern matcher (C1): parsing
// of "scheme://seg/seg" paths is handled by kernel/foundation; this package
// matches a pattern against a concrete path, extracting {param} bindings and
// scoring specificity for route registry tie-breaks.
package pathmatch

import (
	"strconv"
	"strings"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// Pattern is a parsed route pattern: a scheme plus a sequence of segments,
// each either literal, a "{name}" param, a bare "*" wildcard (matches
// exactly one segment), or a trailing "*" that consumes the remainder.
type Pattern struct {
	Scheme   string
	Segments []string
	raw      string
}

// ParsePattern parses a pattern string in the same "scheme://seg/seg" wire
// format as foundation.ParsePath; individual segments may additionally be
// "{name}" or "*".
func ParsePattern(raw string) (Pattern, error) {
	p, err := foundation.ParsePath(raw)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Scheme: p.Scheme, Segments: p.Segments, raw: raw}, nil
}

// String returns the original pattern text.
func (p Pattern) String() string {
	if p.raw != "" {
		return p.raw
	}
	return p.Scheme + "://" + strings.Join(p.Segments, "/")
}

// Match tests a concrete path against the pattern. A bare "*" matches
// exactly one segment and binds nothing; a trailing "*" (last segment of
// the pattern) consumes every remaining concrete segment, joined by "/",
// and is bound to params["*"]. Scheme must match exactly.
func Match(pattern Pattern, path foundation.Path) (bool, map[string]string) {
	if pattern.Scheme != path.Scheme {
		return false, nil
	}

	params := map[string]string{}

	for i, seg := range pattern.Segments {
		isLast := i == len(pattern.Segments)-1

		if seg == "*" && isLast {
			if i > len(path.Segments) {
				return false, nil
			}
			params["*"] = strings.Join(path.Segments[i:], "/")
			return true, params
		}

		if i >= len(path.Segments) {
			return false, nil
		}
		concrete := path.Segments[i]

		switch {
		case seg == "*":
			// bare wildcard: matches one segment, binds nothing
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			name := seg[1 : len(seg)-1]
			params[name] = concrete
		default:
			if seg != concrete {
				return false, nil
			}
		}
	}

	if len(pattern.Segments) != len(path.Segments) {
		return false, nil
	}
	return true, params
}

// Specificity weights, per segment kind.
const (
	WeightLiteral  = 3
	WeightParam    = 2
	WeightWildcard = 1
)

// Specificity sums the per-segment weight of a pattern: literal=3,
// param=2, wildcard=1. Higher is more specific. Two patterns with equal
// Specificity are tied and must be broken by registration order (C3's
// concern, not this package's).
func Specificity(pattern Pattern) int {
	score := 0
	for _, seg := range pattern.Segments {
		switch {
		case seg == "*":
			score += WeightWildcard
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			score += WeightParam
		default:
			score += WeightLiteral
		}
	}
	return score
}

// SpecificityKey renders a Specificity score offset by 1000 as a decimal
// string, so keys for scores from 0 to 8999 have the same width and sort
// lexically in score order.
func SpecificityKey(pattern Pattern) string {
	return strconv.Itoa(1000 + Specificity(pattern))
}
