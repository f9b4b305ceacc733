// Copyright ©2012-2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"fmt"
	"strconv"
)

// CigarOpType represents the type of operation described by a CigarOp.
type CigarOpType byte

// CIGAR operation types, in the order of the BAM CIGAR op codes.
const (
	CigarMatch       CigarOpType = iota // M
	CigarInsertion                      // I
	CigarDeletion                       // D
	CigarSkip                           // N
	CigarSoftClipped                    // S
	CigarHardClipped                    // H
	CigarPadded                         // P
	CigarEqual                          // =
	CigarMismatch                       // X
	CigarBack                           // B, historical; not used by this writer
)

var cigarOpCodes = [...]byte{'M', 'I', 'D', 'N', 'S', 'H', 'P', '=', 'X', 'B'}

// Consume describes how many reference and query bases a CigarOpType
// consumes per unit of operation length.
type Consume struct {
	Query, Reference int
}

var cigarConsumes = [...]Consume{
	CigarMatch:       {1, 1},
	CigarInsertion:   {1, 0},
	CigarDeletion:    {0, 1},
	CigarSkip:        {0, 1},
	CigarSoftClipped: {1, 0},
	CigarHardClipped: {0, 0},
	CigarPadded:      {0, 0},
	CigarEqual:       {1, 1},
	CigarMismatch:    {1, 1},
	CigarBack:        {0, 0},
}

// Consumes returns the query/reference base consumption for the op type.
func (t CigarOpType) Consumes() Consume { return cigarConsumes[t] }

// Char returns the one-character CIGAR code for the op type.
func (t CigarOpType) Char() byte { return cigarOpCodes[t] }

func (t CigarOpType) String() string { return string(t.Char()) }

// CigarOp is a single (length, type) pair of a CIGAR string.
type CigarOp uint32

// NewCigarOp returns a CigarOp of the given type and length.
func NewCigarOp(t CigarOpType, n int) CigarOp {
	return CigarOp(n)<<4 | CigarOp(t)
}

// Type returns the operation type of the CigarOp.
func (co CigarOp) Type() CigarOpType { return CigarOpType(co & 0xf) }

// Len returns the operation length of the CigarOp.
func (co CigarOp) Len() int { return int(co >> 4) }

func (co CigarOp) String() string { return fmt.Sprintf("%d%s", co.Len(), co.Type()) }

// Cigar is a CIGAR string: an ordered list of edit operations describing
// how a query sequence maps onto a reference sequence.
type Cigar []CigarOp

func (c Cigar) String() string {
	var b bytes.Buffer
	for _, co := range c {
		b.WriteString(co.String())
	}
	return b.String()
}

// IsValid returns whether the CIGAR is consistent with a query sequence of
// the given length: the sum of query-consuming operation lengths must equal
// length.
func (c Cigar) IsValid(length int) bool {
	var n int
	for _, co := range c {
		n += co.Len() * co.Type().Consumes().Query
	}
	return n == length
}

// RefLen returns the number of reference bases consumed by the CIGAR.
func (c Cigar) RefLen() int {
	var n int
	for _, co := range c {
		n += co.Len() * co.Type().Consumes().Reference
	}
	return n
}

var cigarOpFromChar = map[byte]CigarOpType{
	'M': CigarMatch,
	'I': CigarInsertion,
	'D': CigarDeletion,
	'N': CigarSkip,
	'S': CigarSoftClipped,
	'H': CigarHardClipped,
	'P': CigarPadded,
	'=': CigarEqual,
	'X': CigarMismatch,
	'B': CigarBack,
}

// ParseCigar parses a SAM-format CIGAR string, such as "35M2I100M".
func ParseCigar(b []byte) (Cigar, error) {
	if len(b) == 1 && b[0] == '*' {
		return nil, nil
	}
	var co Cigar
	i := 0
	for i < len(b) {
		j := i
		for j < len(b) && b[j] >= '0' && b[j] <= '9' {
			j++
		}
		if j == i || j == len(b) {
			return nil, fmt.Errorf("sam: invalid cigar string %q", b)
		}
		n, err := strconv.Atoi(string(b[i:j]))
		if err != nil {
			return nil, fmt.Errorf("sam: invalid cigar length: %v", err)
		}
		t, ok := cigarOpFromChar[b[j]]
		if !ok {
			return nil, fmt.Errorf("sam: unknown cigar operation %q", b[j])
		}
		co = append(co, NewCigarOp(t, n))
		i = j + 1
	}
	return co, nil
}
