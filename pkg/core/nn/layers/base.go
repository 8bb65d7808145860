package layers

import (
	"fmt"
	"sync/atomic"
)

var layerCounter int64

// Base provides the name-management every concrete layer embeds: explicit
// names win, otherwise a default of the form "{prefix}_{index}" is assigned
// at construction time from a process-wide counter.
type Base struct {
	name    string
	nameSet bool
	prefix  string
	idx     int64
}

// NewBase creates a Base with an auto-generated default name. Pass an
// explicit name (non-empty) to override it; an empty name keeps the default.
func NewBase(prefix, explicitName string) Base {
	idx := atomic.AddInt64(&layerCounter, 1)
	b := Base{prefix: prefix, idx: idx}
	if explicitName != "" {
		b.name = explicitName
		b.nameSet = true
	}
	return b
}

// Name returns the explicit name if one was set, otherwise "{prefix}_{idx}".
func (b Base) Name() string {
	if b.nameSet {
		return b.name
	}
	return fmt.Sprintf("%s_%d", b.prefix, b.idx)
}

// cloneBase returns a Base with a freshly assigned index (Clone must not
// share a counter slot with its source) but the same name/prefix otherwise.
func (b Base) cloneBase() Base {
	clone := b
	clone.idx = atomic.AddInt64(&layerCounter, 1)
	return clone
}
