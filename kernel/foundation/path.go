package foundation

import "strings"

// Path is a parsed "scheme://seg/seg" address. Segments never contain the
// separator; scheme is always lower-case by convention but not enforced
// here (callers own case sensitivity policy).
type Path struct {
	Scheme   string
	Segments []string
}

// ParsePath splits a wire-format path into its scheme and segments.
// Returns ErrPath on anything that doesn't contain "scheme://".
func ParsePath(raw string) (Path, error) {
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return Path{}, ErrPath
	}
	scheme := raw[:idx]
	rest := raw[idx+3:]
	if scheme == "" {
		return Path{}, ErrPath
	}
	var segments []string
	if rest != "" {
		segments = strings.Split(rest, "/")
	}
	for _, s := range segments {
		if s == "" {
			return Path{}, ErrPath
		}
	}
	return Path{Scheme: scheme, Segments: segments}, nil
}

// String renders the path back to wire format. ParsePath(p.String()) always
// round-trips to an equal Path.
func (p Path) String() string {
	return p.Scheme + "://" + strings.Join(p.Segments, "/")
}

// Child returns a new path with the given segments appended.
func (p Path) Child(segments ...string) Path {
	next := make([]string, 0, len(p.Segments)+len(segments))
	next = append(next, p.Segments...)
	next = append(next, segments...)
	return Path{Scheme: p.Scheme, Segments: next}
}

// FirstSegment returns the first path segment, or "" if the path has none.
func (p Path) FirstSegment() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0]
}
