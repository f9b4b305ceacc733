package cram

import (
	"testing"

	"github.com/Schaudge/cram/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 5 (complete case): two paired reads sharing a name, both linked
// via the mate resolver, yield a complete-in-slice template and so both get
// DISCARD_NAME, remaining linked rather than detached.
func TestNameEliminationLinkedPairDiscardsName(t *testing.T) {
	sa, ref := newTestSlice(t, "chr1", make([]byte, 400))
	co := mustCigar(t, "100M")

	r1, err := sam.NewRecord("pair", ref, ref, 99, 199, 200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r1.Flags |= sam.Paired | sam.Read1

	r2, err := sam.NewRecord("pair", ref, ref, 199, 99, -200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r2.Flags |= sam.Paired | sam.Read2

	require.NoError(t, sa.AddRecord(r1))
	require.NoError(t, sa.AddRecord(r2))

	sa.opts.LossyReadNames = true
	sa.eliminateNames()
	sa.resolveMates()

	assert.True(t, sa.records[0].CF.has(flagDiscardName))
	assert.True(t, sa.records[1].CF.has(flagDiscardName))
	assert.True(t, sa.records[0].CF.has(flagMateDownstream))
	assert.False(t, sa.records[1].CF.has(flagDetached))
}

// Scenario 5 (incomplete case): a name's occurrences share an expected
// template count of 2, but only one is present in the slice (the record
// stays DETACHED with no resolvable mate) -- DISCARD_NAME must not be set.
func TestNameEliminationDetachedRetainsName(t *testing.T) {
	sa, ref := newTestSlice(t, "chr1", make([]byte, 400))
	co := mustCigar(t, "100M")

	rec, err := sam.NewRecord("lonely", ref, ref, 99, 199, 200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	rec.Flags |= sam.Paired | sam.Read1

	require.NoError(t, sa.AddRecord(rec))

	sa.opts.LossyReadNames = true
	sa.eliminateNames()
	sa.resolveMates()

	assert.True(t, sa.records[0].CF.has(flagDetached))
	assert.False(t, sa.records[0].CF.has(flagDiscardName))
}

// A name whose occurrences disagree on expected template count (e.g. one
// record's TC tag overrides the pair-flag default) is not uniform and so
// is never marked complete-in-slice, even if raw counts happen to match.
func TestNameEliminationNonUniformExpectedStaysNamed(t *testing.T) {
	sa, ref := newTestSlice(t, "chr1", make([]byte, 400))
	co := mustCigar(t, "100M")

	tc3, err := sam.NewAux(sam.Tag{'T', 'C'}, int32(3))
	require.NoError(t, err)

	r1, err := sam.NewRecord("x", ref, ref, 99, 199, 200, 60, co, make([]byte, 100), make([]byte, 100), []sam.Aux{tc3})
	require.NoError(t, err)
	r1.Flags |= sam.Paired | sam.Read1

	r2, err := sam.NewRecord("x", ref, ref, 199, 99, -200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r2.Flags |= sam.Paired | sam.Read2

	require.NoError(t, sa.AddRecord(r1))
	require.NoError(t, sa.AddRecord(r2))

	sa.opts.LossyReadNames = true
	sa.eliminateNames()
	sa.resolveMates()

	assert.False(t, sa.records[0].CF.has(flagDiscardName))
	assert.False(t, sa.records[1].CF.has(flagDiscardName))
}

// An SA tag forces an unbounded (infinite) expected template count,
// so the name is never considered complete.
func TestNameEliminationSATagForcesInfinite(t *testing.T) {
	sa, ref := newTestSlice(t, "chr1", make([]byte, 400))
	co := mustCigar(t, "100M")

	saTag, err := sam.NewAux(sam.Tag{'S', 'A'}, "chr1,1,+,100M,60,0;")
	require.NoError(t, err)

	r1, err := sam.NewRecord("x", ref, ref, 99, 199, 200, 60, co, make([]byte, 100), make([]byte, 100), []sam.Aux{saTag})
	require.NoError(t, err)
	r1.Flags |= sam.Paired | sam.Read1

	r2, err := sam.NewRecord("x", ref, ref, 199, 99, -200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r2.Flags |= sam.Paired | sam.Read2

	require.NoError(t, sa.AddRecord(r1))
	require.NoError(t, sa.AddRecord(r2))

	assert.EqualValues(t, infiniteTemplate, sa.records[0].expected)

	sa.opts.LossyReadNames = true
	sa.eliminateNames()
	sa.resolveMates()

	assert.False(t, sa.records[0].CF.has(flagDiscardName))
	assert.False(t, sa.records[1].CF.has(flagDiscardName))
}

// Over-count case: three records share a name with an expected template
// count of 2, so the name is never complete-in-slice. In lossy mode the
// two positionally consistent records must not be linked either --
// linking requires both names to be discardable -- so all three stay
// detached with their names intact.
func TestNameEliminationOvercountBlocksLinking(t *testing.T) {
	sa, ref := newTestSlice(t, "chr1", make([]byte, 400))
	sa.opts.LossyReadNames = true
	co := mustCigar(t, "100M")

	r1, err := sam.NewRecord("x", ref, ref, 99, 199, 200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r1.Flags |= sam.Paired | sam.Read1

	r2, err := sam.NewRecord("x", ref, ref, 199, 99, -200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r2.Flags |= sam.Paired | sam.Read2

	r3, err := sam.NewRecord("x", ref, ref, 299, 399, 200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r3.Flags |= sam.Paired | sam.Read1

	require.NoError(t, sa.AddRecord(r1))
	require.NoError(t, sa.AddRecord(r2))
	require.NoError(t, sa.AddRecord(r3))

	sa.eliminateNames()
	sa.resolveMates()

	for i, cr := range sa.records {
		assert.True(t, cr.CF.has(flagDetached), "record %d should stay detached", i)
		assert.False(t, cr.CF.has(flagDiscardName), "record %d should keep its name", i)
	}
}
