// Package filter drops discovered resources whose tags opt them out.
package filter

import (
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Filter excludes resources carrying any of a set of tag values.
type Filter struct {
	exclude map[string]map[string]bool
}

// New creates a Filter that excludes a resource when, for any filter, the
// resource has tag Key with one of Values.
func New(exclude []lifecycle.TagFilter) *Filter {
	m := make(map[string]map[string]bool, len(exclude))
	for _, f := range exclude {
		if m[f.Key] == nil {
			m[f.Key] = make(map[string]bool, len(f.Values))
		}
		for _, v := range f.Values {
			m[f.Key][v] = true
		}
	}
	return &Filter{exclude: m}
}

// ShouldInclude returns false if any exclusion matches the tags.
func (f *Filter) ShouldInclude(tags map[string]string) bool {
	if f.IsEmpty() {
		return true
	}
	for k, v := range tags {
		if f.exclude[k][v] {
			return false
		}
	}
	return true
}

// IsEmpty returns true if no exclusions are configured.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.exclude) == 0
}
