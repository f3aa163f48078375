// Package annotation holds per-image defect tags and their text ledger.
package annotation

import (
	"slices"
	"strconv"
	"strings"
)

// Tag is a defect code. Codes 1-3 have toggles; other codes are stored as-is.
type Tag int

// Recognised defect tags.
const (
	TagMissingLabel  Tag = 1
	TagWrongLabel    Tag = 2
	TagShapeMismatch Tag = 3
)

func (t Tag) String() string {
	return strconv.Itoa(int(t))
}

// TagSet is a sorted set of tags without duplicates. The zero value is the
// empty set. Methods never modify the receiver.
type TagSet []Tag

// NewTagSet builds a set from tags in any order.
func NewTagSet(tags ...Tag) TagSet {
	if len(tags) == 0 {
		return nil
	}
	out := slices.Clone(tags)
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether t is in the set.
func (s TagSet) Contains(t Tag) bool {
	_, ok := slices.BinarySearch(s, t)
	return ok
}

// With returns the set plus t.
func (s TagSet) With(t Tag) TagSet {
	if s.Contains(t) {
		return s.Clone()
	}
	return NewTagSet(append(s.Clone(), t)...)
}

// Without returns the set minus t.
func (s TagSet) Without(t Tag) TagSet {
	out := make(TagSet, 0, len(s))
	for _, v := range s {
		if v != t {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Toggle adds t when absent and removes it when present.
func (s TagSet) Toggle(t Tag) TagSet {
	if s.Contains(t) {
		return s.Without(t)
	}
	return s.With(t)
}

// Clone returns an independent copy.
func (s TagSet) Clone() TagSet {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// Equal reports whether both sets hold the same tags.
func (s TagSet) Equal(other TagSet) bool {
	return slices.Equal(s, other)
}

// String joins the codes with commas, e.g. "1,3".
func (s TagSet) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}
