package sam

import "bytes"

// Equal checks if the two records are identical, except for the Scratch
// field.
func (r *Record) Equal(other *Record) bool {
	return r.Name == other.Name &&
		r.Ref == other.Ref &&
		r.Pos == other.Pos &&
		r.MapQ == other.MapQ &&
		r.Cigar.Equal(other.Cigar) &&
		r.Flags == other.Flags &&
		r.MateRef == other.MateRef &&
		r.MatePos == other.MatePos &&
		r.TempLen == other.TempLen &&
		r.Seq.Equal(other.Seq) &&
		bytes.Equal(r.Qual, other.Qual) &&
		r.AuxFields.Equal(other.AuxFields)
}

// Equal checks if the two values are identical.
func (s Seq) Equal(other Seq) bool {
	if s.Length != other.Length {
		return false
	}
	for i := range s.Seq {
		if s.Seq[i] != other.Seq[i] {
			return false
		}
	}
	return true
}

// Equal checks if the two values are identical.
func (s Cigar) Equal(other Cigar) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Equal checks if the two values are identical.
func (s AuxFields) Equal(other AuxFields) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !bytes.Equal(s[i], other[i]) {
			return false
		}
	}
	return true
}
