package cram

import (
	"testing"

	"github.com/Schaudge/cram/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An XI:i:5 tag shrinks to type C (the smallest SAM aux type that
// preserves the value 5) and lands in the external block keyed by the
// 24-bit id (X<<16)|(I<<8)|C. The fixed byte length rides in the
// zero-bit length codec, so the block holds only the value byte.
func TestAuxIntegerShrinking(t *testing.T) {
	e := newAuxEncoder(newTagMetrics())
	cr := &Record{}

	aux, err := sam.NewAux(sam.Tag{'X', 'I'}, int32(5))
	require.NoError(t, err)

	_, err = e.encodeRecord(cr, sam.AuxFields{aux}, false, false)
	require.NoError(t, err)

	require.Len(t, e.td.entries, 1)
	assert.Equal(t, []byte{'X', 'I', 'C', 0}, e.td.entries[0])
	assert.EqualValues(t, 0, cr.TL)

	id := makeTagID(sam.Tag{'X', 'I'}, 'C')
	assert.EqualValues(t, 0x584943, id)
	tc, ok := e.tagsUsed[id]
	require.True(t, ok)
	assert.Equal(t, []byte{0x05}, tc.block.data)
}

// With preserve_aux_size, the type is retained as 'i' and the full 4-byte
// little-endian value is stored verbatim.
func TestAuxIntegerPreserveSize(t *testing.T) {
	e := newAuxEncoder(newTagMetrics())
	cr := &Record{}

	aux, err := sam.NewAux(sam.Tag{'X', 'I'}, int32(5))
	require.NoError(t, err)

	_, err = e.encodeRecord(cr, sam.AuxFields{aux}, false, true)
	require.NoError(t, err)

	require.Len(t, e.td.entries, 1)
	assert.Equal(t, []byte{'X', 'I', 'i', 0}, e.td.entries[0])

	id := makeTagID(sam.Tag{'X', 'I'}, 'i')
	tc, ok := e.tagsUsed[id]
	require.True(t, ok)
	assert.Equal(t, []byte{5, 0, 0, 0}, tc.block.data)
}

// RG is always stripped from the tag stream (it is recovered from the
// numeric rg index) and its string value is returned to the caller.
func TestAuxRGStrippedAndReturned(t *testing.T) {
	e := newAuxEncoder(newTagMetrics())
	cr := &Record{}

	rg, err := sam.NewAux(sam.Tag{'R', 'G'}, "sample1")
	require.NoError(t, err)

	rgName, err := e.encodeRecord(cr, sam.AuxFields{rg}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "sample1", rgName)
	assert.Equal(t, []byte{0}, e.td.entries[0])
}

// MD/NM are dropped unless preserve_aux_order is set.
func TestAuxMDNMDroppedUnlessPreserved(t *testing.T) {
	e := newAuxEncoder(newTagMetrics())
	cr := &Record{}
	md, err := sam.NewAux(sam.Tag{'M', 'D'}, "8")
	require.NoError(t, err)

	_, err = e.encodeRecord(cr, sam.AuxFields{md}, false, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, e.td.entries[0])

	e2 := newAuxEncoder(newTagMetrics())
	cr2 := &Record{}
	_, err = e2.encodeRecord(cr2, sam.AuxFields{md}, true, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{'M', 'D', 'Z', 0}, e2.td.entries[0])
}

// TD dictionary: identical ordered aux-key sets share a TL; different
// sets get distinct TL values.
func TestAuxTagDictionarySharedAndDistinctTL(t *testing.T) {
	e := newAuxEncoder(newTagMetrics())

	xi5, err := sam.NewAux(sam.Tag{'X', 'I'}, int32(5))
	require.NoError(t, err)
	xi9, err := sam.NewAux(sam.Tag{'X', 'I'}, int32(9))
	require.NoError(t, err)
	yz, err := sam.NewAux(sam.Tag{'Y', 'Z'}, "hi")
	require.NoError(t, err)

	cr1 := &Record{}
	_, err = e.encodeRecord(cr1, sam.AuxFields{xi5}, false, false)
	require.NoError(t, err)

	cr2 := &Record{}
	_, err = e.encodeRecord(cr2, sam.AuxFields{xi9}, false, false)
	require.NoError(t, err)
	assert.Equal(t, cr1.TL, cr2.TL)

	cr3 := &Record{}
	_, err = e.encodeRecord(cr3, sam.AuxFields{xi5, yz}, false, false)
	require.NoError(t, err)
	assert.NotEqual(t, cr1.TL, cr3.TL)
	assert.Len(t, e.td.entries, 2)
}
