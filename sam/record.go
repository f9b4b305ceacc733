// Copyright ©2012-2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Record represents a SAM/BAM record: an aligned (or unaligned) sequencing
// read together with its mapping information and auxiliary tags. This is
// the unit of input the cram package's encoder consumes.
type Record struct {
	Name      string
	Ref       *Reference
	Pos       int
	MapQ      byte
	Cigar     Cigar
	Flags     Flags
	MateRef   *Reference
	MatePos   int
	TempLen   int
	Seq       Seq
	Qual      []byte
	AuxFields AuxFields

	Scratch []byte
}

// NewRecord returns a Record, checking for consistency of the provided
// attributes.
func NewRecord(name string, ref, mRef *Reference, p, mPos, tLen int, mapQ byte, co []CigarOp, seq, qual []byte, aux []Aux) (*Record, error) {
	if !(validPos(p) && validPos(mPos) && validLen(len(seq))) {
		return nil, errors.New("sam: value out of range")
	}
	if len(name) == 0 || len(name) > 254 {
		return nil, errors.New("sam: name absent or too long")
	}
	if qual != nil && len(qual) != len(seq) {
		return nil, errors.New("sam: sequence/quality length mismatch")
	}
	if ref != nil {
		if ref.id < -1 {
			return nil, errors.New("sam: linking to invalid reference")
		}
	} else if p != -1 {
		return nil, errors.New("sam: specified position != -1 without reference")
	}
	if mRef != nil {
		if mRef.id < -1 {
			return nil, errors.New("sam: linking to invalid mate reference")
		}
	} else if mPos != -1 {
		return nil, errors.New("sam: specified mate position != -1 without mate reference")
	}
	r := GetFromFreePool()
	r.Name = name
	r.Ref = ref
	r.Pos = p
	r.MapQ = mapQ
	r.Cigar = co
	r.Flags = 0
	r.MateRef = mRef
	r.MatePos = mPos
	r.TempLen = tLen
	r.Seq = NewSeq(seq)
	r.Qual = qual
	r.AuxFields = aux
	return r, nil
}

func validPos(p int) bool { return p >= -1 }
func validLen(n int) bool { return n >= 0 }

// IsValidRecord returns whether the record satisfies the conditions that
// it has the Unmapped flag set if it is not placed; that the MateUnmapped
// flag is set if it is paired and its mate is unplaced; that the CIGAR
// length matches the sequence length if non-zero; and that the Paired,
// ProperPair, Unmapped and MateUnmapped flags are consistent.
func IsValidRecord(r *Record) bool {
	if (r.Ref == nil || r.Pos == -1) && r.Flags&Unmapped == 0 {
		return false
	}
	if r.Flags&Paired != 0 && (r.MateRef == nil || r.MatePos == -1) && r.Flags&MateUnmapped == 0 {
		return false
	}
	if r.Flags&(Unmapped|ProperPair) == Unmapped|ProperPair {
		return false
	}
	if len(r.Qual) != 0 && r.Seq.Length != len(r.Qual) {
		return false
	}
	if r.Seq.Length != 0 && len(r.Cigar) != 0 && !r.Cigar.IsValid(r.Seq.Length) {
		return false
	}
	return true
}

// Tag returns the Aux field whose tag matches the first two bytes of tag,
// and true. If no tag matches, it returns nil, false.
func (r *Record) Tag(tag []byte) (v Aux, ok bool) {
	if len(tag) < 2 {
		panic("sam: tag too short")
	}
	for _, aux := range r.AuxFields {
		if aux.matches(tag) {
			return aux, true
		}
	}
	return nil, false
}

// RefID returns the reference ID for the Record, or -1 if unmapped.
func (r *Record) RefID() int { return r.Ref.ID() }

// Start returns the lower-coordinate end of the alignment.
func (r *Record) Start() int { return r.Pos }

// Len returns the length of the alignment on the reference.
func (r *Record) Len() int { return r.End() - r.Start() }

// End returns the highest reference-consuming coordinate of the alignment.
func (r *Record) End() int {
	if r.Flags&Unmapped != 0 || len(r.Cigar) == 0 {
		return r.Pos + 1
	}
	pos := r.Pos
	end := pos
	for _, co := range r.Cigar {
		pos += co.Len() * co.Type().Consumes().Reference
		if pos > end {
			end = pos
		}
	}
	return end
}

// Strand returns 1 for a forward-strand alignment and -1 for reverse.
func (r *Record) Strand() int8 {
	if r.Flags&Reverse == Reverse {
		return -1
	}
	return 1
}

// LessByName returns true if the receiver sorts by name before other.
func (r *Record) LessByName(other *Record) bool { return r.Name < other.Name }

// LessByCoordinate returns true if the receiver sorts by coordinate before
// other according to the SAM specification.
func (r *Record) LessByCoordinate(other *Record) bool {
	rRefName := r.Ref.Name()
	oRefName := other.Ref.Name()
	switch {
	case oRefName == "*":
		return true
	case rRefName == "*":
		return false
	}
	return (rRefName < oRefName) || (rRefName == oRefName && r.Pos < other.Pos)
}

// String returns a string representation of the Record.
func (r *Record) String() string {
	end := r.End()
	return fmt.Sprintf("%s %v %v %d %s:%d..%d %d %s:%d %d %s %v %v",
		r.Name,
		r.Flags,
		r.Cigar,
		r.MapQ,
		r.Ref.Name(),
		r.Pos,
		end,
		end-r.Pos,
		r.MateRef.Name(),
		r.MatePos,
		r.TempLen,
		r.Seq.Expand(),
		r.Qual,
		r.AuxFields,
	)
}

// UnmarshalText implements encoding.TextUnmarshaler. It calls UnmarshalSAM
// with a nil Header.
func (r *Record) UnmarshalText(b []byte) error { return r.UnmarshalSAM(nil, b) }

// UnmarshalSAM parses a SAM-format alignment line in b, using references
// from h. If h is nil and the line references non-empty reference names,
// fake references with a zero length and an ID of -1 are created.
func (r *Record) UnmarshalSAM(h *Header, b []byte) error {
	f := bytes.Split(b, []byte{'\t'})
	if len(f) < 11 {
		return errors.New("sam: missing SAM fields")
	}
	*r = Record{Name: string(f[0])}
	flags, err := strconv.ParseUint(string(f[1]), 0, 16)
	if err != nil {
		return fmt.Errorf("sam: failed to parse flags: %v", err)
	}
	r.Flags = Flags(flags)
	r.Ref, err = referenceForName(h, string(f[2]))
	if err != nil {
		return fmt.Errorf("sam: failed to assign reference: %v", err)
	}
	r.Pos, err = strconv.Atoi(string(f[3]))
	r.Pos--
	if err != nil {
		return fmt.Errorf("sam: failed to parse position: %v", err)
	}
	mapQ, err := strconv.ParseUint(string(f[4]), 10, 8)
	if err != nil {
		return fmt.Errorf("sam: failed to parse map quality: %v", err)
	}
	r.MapQ = byte(mapQ)
	r.Cigar, err = ParseCigar(f[5])
	if err != nil {
		return fmt.Errorf("sam: failed to parse cigar string: %v", err)
	}
	if bytes.Equal(f[2], f[6]) || bytes.Equal(f[6], []byte{'='}) {
		r.MateRef = r.Ref
	} else {
		r.MateRef, err = referenceForName(h, string(f[6]))
		if err != nil {
			return fmt.Errorf("sam: failed to assign mate reference: %v", err)
		}
	}
	r.MatePos, err = strconv.Atoi(string(f[7]))
	r.MatePos--
	if err != nil {
		return fmt.Errorf("sam: failed to parse mate position: %v", err)
	}
	r.TempLen, err = strconv.Atoi(string(f[8]))
	if err != nil {
		return fmt.Errorf("sam: failed to parse template length: %v", err)
	}
	if !bytes.Equal(f[9], []byte{'*'}) {
		r.Seq = NewSeq(f[9])
		if len(r.Cigar) != 0 && !r.Cigar.IsValid(r.Seq.Length) {
			return errors.New("sam: sequence/CIGAR length mismatch")
		}
	}
	if !bytes.Equal(f[10], []byte{'*'}) {
		r.Qual = append(r.Qual, f[10]...)
		for i, q := range r.Qual {
			r.Qual[i] = q - 33
		}
	} else if r.Seq.Length != 0 {
		r.Qual = make([]byte, r.Seq.Length)
		for i := range r.Qual {
			r.Qual[i] = 0xff
		}
	}
	if len(r.Qual) != 0 && len(r.Qual) != r.Seq.Length {
		return errors.New("sam: sequence/quality length mismatch")
	}
	if len(f) > 11 {
		r.AuxFields = make([]Aux, len(f)-11)
		for i, aux := range f[11:] {
			a, err := ParseAux(aux)
			if err != nil {
				return err
			}
			r.AuxFields[i] = a
		}
	}
	return nil
}

func referenceForName(h *Header, name string) (*Reference, error) {
	if name == "*" {
		return nil, nil
	}
	if h == nil {
		return &Reference{id: -1, name: name}, nil
	}
	for _, r := range h.refs {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("sam: no reference with name %q", name)
}

// MarshalText implements encoding.TextMarshaler. It calls MarshalSAM with
// FlagDecimal.
func (r *Record) MarshalText() ([]byte, error) { return r.MarshalSAM(FlagDecimal) }

// MarshalSAM formats a Record as SAM using the specified flag format.
func (r *Record) MarshalSAM(flags int) ([]byte, error) {
	if flags < FlagDecimal || flags > FlagString {
		return nil, errors.New("sam: flag format option out of range")
	}
	if r.Qual != nil && len(r.Qual) != r.Seq.Length {
		return nil, errors.New("sam: sequence/quality length mismatch")
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\t%v\t%s\t%d\t%d\t%s\t%s\t%d\t%d\t%s\t%s",
		r.Name,
		formatFlags(r.Flags, flags),
		r.Ref.Name(),
		r.Pos+1,
		r.MapQ,
		r.Cigar,
		formatMate(r.Ref, r.MateRef),
		r.MatePos+1,
		r.TempLen,
		formatSeq(r.Seq),
		formatQual(r.Qual),
	)
	for _, t := range r.AuxFields {
		fmt.Fprintf(&buf, "\t%v", samAux(t))
	}
	return buf.Bytes(), nil
}

// Flag format constants for MarshalSAM.
const (
	FlagDecimal = iota
	FlagHex
	FlagString
)

func formatFlags(f Flags, format int) interface{} {
	switch format {
	case FlagDecimal:
		return uint16(f)
	case FlagHex:
		return fmt.Sprintf("0x%x", f)
	case FlagString:
		return f.String()
	default:
		panic("sam: invalid flag format")
	}
}

func formatMate(ref, mate *Reference) string {
	if mate != nil && ref == mate {
		return "="
	}
	return mate.Name()
}

func formatSeq(s Seq) []byte {
	if s.Length == 0 {
		return []byte{'*'}
	}
	return s.Expand()
}

func formatQual(q []byte) []byte {
	for _, v := range q {
		if v != 0xff {
			a := make([]byte, len(q))
			for i, qv := range q {
				a[i] = qv + 33
			}
			return a
		}
	}
	return []byte{'*'}
}

// Doublet is a nibble-encoded nucleotide base, as used in BAM's packed
// sequence representation.
type Doublet byte

// Seq is a nibble-packed nucleotide sequence, two bases per byte.
type Seq struct {
	Length int
	Seq    []Doublet
}

var (
	baseChars = [16]byte{'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}
	charBases [256]Doublet
)

func init() {
	for i := range charBases {
		charBases[i] = 0xf
	}
	for i, c := range baseChars {
		charBases[c] = Doublet(i)
		if c >= 'A' && c <= 'Z' {
			charBases[c+('a'-'A')] = Doublet(i)
		}
	}
}

// NewSeq returns a new Seq based on the given ASCII byte slice.
func NewSeq(s []byte) Seq {
	return Seq{Length: len(s), Seq: contract(s)}
}

func contract(s []byte) []Doublet {
	ns := make([]Doublet, (len(s)+1)>>1)
	var hi Doublet
	for i, b := range s {
		if i&1 == 0 {
			hi = charBases[b] << 4
		} else {
			ns[i>>1] = hi | charBases[b]
		}
	}
	if len(s)&1 != 0 {
		ns[len(ns)-1] = hi
	}
	return ns
}

// Expand returns the ASCII byte encoding of the receiver.
func (ns Seq) Expand() []byte {
	s := make([]byte, ns.Length)
	for i := range s {
		s[i] = ns.BaseChar(i)
	}
	return s
}

// SeqBase is BAM's 4-bit encoding of nucleotide base types. See section 4.2
// of https://samtools.github.io/hts-specs/SAMv1.pdf.
type SeqBase byte

const (
	BaseA SeqBase = 1
	BaseC SeqBase = 2
	BaseG SeqBase = 4
	BaseT SeqBase = 8
	BaseS SeqBase = 6
	BaseN SeqBase = 15

	// NumSeqBaseTypes is the number of possible SeqBase values.
	NumSeqBaseTypes = 16
)

// CharToSeqBase converts an ASCII base character to its SeqBase encoding.
func CharToSeqBase(char byte) SeqBase { return SeqBase(charBases[char]) }

// Base returns the pos'th base of the sequence.
//
// REQUIRES: 0 <= pos < seq.Length
func (ns Seq) Base(pos int) SeqBase {
	if pos%2 == 0 {
		return SeqBase(ns.Seq[pos/2] >> 4)
	}
	return SeqBase(ns.Seq[pos/2] & 0xf)
}

// BaseChar returns the pos'th base as a character, such as 'A' or 'T'.
//
// REQUIRES: 0 <= pos < seq.Length
func (ns Seq) BaseChar(pos int) byte { return baseChars[ns.Base(pos)] }

// Char converts a SeqBase to a human-readable character, e.g. BaseA.Char()
// == 'A'.
//
// REQUIRES: 0 <= b < NumSeqBaseTypes
func (b SeqBase) Char() byte { return baseChars[b] }
