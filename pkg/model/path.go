package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: either a name or a positional index.
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

// Name returns a named segment.
func Name(name string) Segment {
	return Segment{Name: name}
}

// Index returns a positional segment.
func Index(idx int) Segment {
	return Segment{Index: idx, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// Path addresses a value inside a form. Top-level fields use a single name
// segment; values inside array instances use group, instance and field.
type Path []Segment

// P builds a Path from strings and ints. Any other part type panics, as paths
// are assembled from literals or already-validated names.
func P(parts ...any) Path {
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		switch typed := part.(type) {
		case string:
			out = append(out, Name(typed))
		case int:
			out = append(out, Index(typed))
		case Segment:
			out = append(out, typed)
		default:
			panic(fmt.Sprintf("model: unsupported path part %T", part))
		}
	}
	return out
}

// ParsePath splits a dotted path. Purely numeric segments become indexes.
func ParsePath(raw string) Path {
	raw = strings.Trim(strings.TrimSpace(raw), ".")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ".")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil && idx >= 0 {
			out = append(out, Index(idx))
			continue
		}
		out = append(out, Name(part))
	}
	return out
}

// String renders the dotted form, e.g. "dependents.0.name".
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Empty reports whether the path has no segments.
func (p Path) Empty() bool {
	return len(p) == 0
}

// Last returns the final segment rendered as a string.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1].String()
}

// Child returns a copy of p extended with parts.
func (p Path) Child(parts ...any) Path {
	out := make(Path, 0, len(p)+len(parts))
	out = append(out, p...)
	return append(out, P(parts...)...)
}

// Equal compares two paths segment by segment.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
