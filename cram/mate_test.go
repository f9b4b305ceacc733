package cram

import (
	"testing"

	"github.com/Schaudge/cram/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 4: detached -> downstream pairing.
func TestMateDetachedThenDownstream(t *testing.T) {
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
	sa.resolveMates()

	c1, c2 := sa.records[0], sa.records[1]
	assert.True(t, c1.CF.has(flagMateDownstream))
	assert.False(t, c1.CF.has(flagDetached))
	assert.EqualValues(t, 0, c1.MateLine)
	// The second (target) record needs no mate bookkeeping of its own:
	// the first record's NF pointer already lets a decoder find it.
	assert.False(t, c2.CF.has(flagDetached))
	assert.False(t, c2.CF.has(flagMateDownstream))

	// Stats consistency: the demotion retracted every mate-field value
	// added for the first record, and the CF histogram holds exactly the
	// values the CF codec will be fed.
	assert.Equal(t, 0, sa.stats[SeriesNP].n)
	assert.Equal(t, 0, sa.stats[SeriesMF].n)
	assert.Equal(t, 0, sa.stats[SeriesTS].n)
	assert.Equal(t, 0, sa.stats[SeriesNS].n)
	assert.Equal(t, 1, sa.stats[SeriesNF].freq(0))
	assert.Equal(t, 1, sa.stats[SeriesCF].freq(c1.CF.wire()))
	assert.Equal(t, 1, sa.stats[SeriesCF].freq(c2.CF.wire()))
}

func TestMateNotLinkableStaysDetached(t *testing.T) {
	sa, ref := newTestSlice(t, "chr1", make([]byte, 400))
	co := mustCigar(t, "100M")

	r1, err := sam.NewRecord("pair", ref, ref, 99, 199, 200, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r1.Flags |= sam.Paired | sam.Read1

	// Mismatched TLEN sign/value: not linkable.
	r2, err := sam.NewRecord("pair", ref, ref, 299, 99, 50, 60, co, make([]byte, 100), make([]byte, 100), nil)
	require.NoError(t, err)
	r2.Flags |= sam.Paired | sam.Read2

	require.NoError(t, sa.AddRecord(r1))
	require.NoError(t, sa.AddRecord(r2))
	sa.resolveMates()

	assert.True(t, sa.records[0].CF.has(flagDetached))
	assert.True(t, sa.records[1].CF.has(flagDetached))
}
