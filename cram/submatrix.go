package cram

import "strings"

// substitutionMatrix is the 5x4 base-substitution table: one row per
// reference base (A,C,G,T,N), each row holding the other four bases in
// the order mismatches are observed most frequently, so the common case
// needs the fewest bits to name.
type substitutionMatrix [5][4]byte

// rowOrder is the fixed decode order per row: row A is decoded "CGTN",
// row C is "AGTN", row G is "ACTN", row T is "ACGN", row N is "ACGT".
var rowOrder = [5]string{"CGTN", "AGTN", "ACTN", "ACGN", "ACGT"}

var baseRowIndex = map[byte]int{'A': 0, 'C': 1, 'G': 2, 'T': 3, 'N': 4}

// newSubstitutionMatrix builds the default matrix, ordering each row by
// observed substitution frequency if freq is non-nil, falling back to
// rowOrder's fixed ordering otherwise.
func newSubstitutionMatrix(freq map[[2]byte]int) *substitutionMatrix {
	var m substitutionMatrix
	for row := 0; row < 5; row++ {
		refBase := "ACGTN"[row]
		bases := []byte(rowOrder[row])
		if freq != nil {
			sortBasesByFreq(bases, refBase, freq)
		}
		copy(m[row][:], bases)
	}
	return &m
}

func sortBasesByFreq(bases []byte, ref byte, freq map[[2]byte]int) {
	for i := 1; i < len(bases); i++ {
		for j := i; j > 0; j-- {
			a, b := bases[j-1], bases[j]
			if freq[[2]byte{ref, a}] < freq[[2]byte{ref, b}] {
				bases[j-1], bases[j] = bases[j], bases[j-1]
			}
		}
	}
}

// subIdx returns the index of val within key, or len(key) -- never a
// valid index -- if val is absent. Callers assume the value is always
// present; if a row is ever missing a base, the encoded value silently
// becomes 4 rather than an error. That is a known footgun, kept as-is so
// an absent base surfaces as a decodable-but-wrong stream instead of a
// mid-slice abort. See DESIGN.md.
func subIdx(key string, val byte) int {
	if idx := strings.IndexByte(key, val); idx >= 0 {
		return idx
	}
	return len(key)
}

// rowIndex returns the in-row code (0..3) encoding the substitution of
// refBase -> subBase under m: the position of subBase within the row,
// which newSubstitutionMatrix may have ordered by observed frequency.
// subIdx's silent-failure value of 4 passes through when subBase is not
// present in the row.
func (m *substitutionMatrix) rowIndex(refBase, subBase byte) byte {
	row, ok := baseRowIndex[refBase]
	if !ok {
		row = 4
	}
	return byte(subIdx(string(m[row][:]), subBase))
}

// encode packs the matrix into the 5-byte wire form: for each row, the
// 2-bit code assigned to each substitute base, in the row's fixed decode
// order, packed MSB-first.
func (m *substitutionMatrix) encode() [5]byte {
	var out [5]byte
	for row := 0; row < 5; row++ {
		refBase := "ACGTN"[row]
		var b byte
		for col := 0; col < 4; col++ {
			b |= m.rowIndex(refBase, rowOrder[row][col]) << uint(6-2*col)
		}
		out[row] = b
	}
	return out
}
