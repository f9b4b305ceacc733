package cram

import (
	"math"

	"github.com/Schaudge/cram/sam"
)

// infiniteTemplate marks a record whose SA tag forces an unbounded
// expected template count: a chimeric read may have segments in other
// slices, so its name can never be proven complete here.
const infiniteTemplate = math.MaxInt32

// expectedTemplateCount derives how many records a read's template is
// expected to contribute: 2 if paired else 1, overridden by the TC tag
// if present, forced unbounded by an SA tag.
func expectedTemplateCount(rec *sam.Record) int32 {
	if _, ok := rec.Tag([]byte("SA")); ok {
		return infiniteTemplate
	}
	if tc, ok := rec.Tag([]byte("TC")); ok {
		if v, ok := tc.Value().(int32); ok {
			return v
		}
	}
	if rec.Flags&sam.Paired != 0 {
		return 2
	}
	return 1
}

// eliminateNames counts name occurrences across the slice and marks
// DISCARD_NAME on every record whose name is complete-in-slice: the
// occurrence count equals the expected template count and all
// occurrences agree on that expectation. It runs before the mate
// resolver, whose linkability check reads the DISCARD_NAME bits set
// here; the resolver in turn strips the bit from any record it leaves
// DETACHED.
func (s *sliceAssembler) eliminateNames() {
	if !s.opts.LossyReadNames {
		return
	}

	type tally struct {
		count    int
		expected int32
		uniform  bool
	}
	byName := make(map[string]*tally)

	for _, cr := range s.records {
		t, ok := byName[cr.name]
		if !ok {
			t = &tally{expected: cr.expected, uniform: true}
			byName[cr.name] = t
		}
		if t.expected != cr.expected {
			t.uniform = false
		}
		t.count++
	}

	for _, cr := range s.records {
		t := byName[cr.name]
		if t.uniform && int32(t.count) == t.expected {
			cr.CF |= flagDiscardName
		}
	}
}
