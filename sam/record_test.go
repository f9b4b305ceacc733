package sam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeqRoundTrip(t *testing.T) {
	for _, s := range []string{"ACGT", "ACGTN", "A", "", "ACGTACGTACGT"} {
		seq := NewSeq([]byte(s))
		assert.Equal(t, s, string(seq.Expand()))
	}
}

func TestCigarParseAndFormat(t *testing.T) {
	cases := []struct {
		in      string
		wantLen int
	}{
		{"8M", 8},
		{"4S4M", 8},
		{"35M2I100M", 137},
		{"100M10D5M", 105},
	}
	for _, c := range cases {
		cg, err := ParseCigar([]byte(c.in))
		require.NoError(t, err)
		assert.Equal(t, c.in, cg.String())
		assert.True(t, cg.IsValid(c.wantLen))
	}
}

func TestCigarStar(t *testing.T) {
	cg, err := ParseCigar([]byte("*"))
	require.NoError(t, err)
	assert.Nil(t, cg)
}

func TestRecordEnd(t *testing.T) {
	ref := NewReference("chr1", "", 1000)
	co, err := ParseCigar([]byte("8M"))
	require.NoError(t, err)
	r, err := NewRecord("r1", ref, ref, 0, 0, 8, 60, co, []byte("ACGTACGT"), []byte("IIIIIIII"), nil)
	require.NoError(t, err)
	defer PutInFreePool(r)

	assert.Equal(t, 8, r.End())
	assert.Equal(t, 8, r.Len())
}

func TestRecordUnmappedEnd(t *testing.T) {
	r, err := NewRecord("r1", nil, nil, -1, -1, 0, 0, nil, []byte("ACGT"), []byte("IIII"), nil)
	require.NoError(t, err)
	defer PutInFreePool(r)
	r.Flags |= Unmapped

	assert.True(t, IsValidRecord(r))
	assert.Equal(t, 1, r.End())
}

func TestAuxValueRoundTrip(t *testing.T) {
	a, err := NewAux(Tag{'N', 'M'}, int32(3))
	require.NoError(t, err)
	assert.Equal(t, byte('i'), a.Type())
	assert.Equal(t, int32(3), a.Value())

	a, err = NewAux(Tag{'R', 'G'}, "group1")
	require.NoError(t, err)
	assert.Equal(t, byte('Z'), a.Type())
	assert.Equal(t, "group1", a.Value())
}

func TestFlagsString(t *testing.T) {
	f := Paired | Read1 | Reverse
	s := f.String()
	assert.Contains(t, s, "p")
	assert.Contains(t, s, "1")
	assert.Contains(t, s, "r")
}

// A SAM-text round trip through the same header must reproduce the
// record exactly, field for field, as Record.Equal defines it.
func TestRecordSAMRoundTripEqual(t *testing.T) {
	ref := NewReference("chr1", "", 1000)
	h, err := NewHeader([]*Reference{ref}, nil)
	require.NoError(t, err)

	line := []byte("r1\t99\tchr1\t100\t60\t4M2I4M\t=\t200\t108\tACGTTTACGT\tIIIIIIIIII\tNM:i:3\tXZ:Z:hello")

	var a Record
	require.NoError(t, a.UnmarshalSAM(h, line))

	out, err := a.MarshalSAM(FlagDecimal)
	require.NoError(t, err)

	var b Record
	require.NoError(t, b.UnmarshalSAM(h, out))

	assert.True(t, a.Equal(&b))

	// A disturbed copy must not compare equal.
	b.MapQ++
	assert.False(t, a.Equal(&b))
}
