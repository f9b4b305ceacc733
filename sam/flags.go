// Copyright ©2012-2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import "strings"

// Flags represent the BAM/SAM alignment flags bitfield, described in
// section 1.4 of https://samtools.github.io/hts-specs/SAMv1.pdf.
type Flags uint16

const (
	Paired        Flags = 1 << iota // The read is paired with another read.
	ProperPair                      // The alignment is mapped as expected for the paired read.
	Unmapped                        // The read is not mapped.
	MateUnmapped                    // The mate is not mapped.
	Reverse                         // The read is mapped to the reverse strand of the reference.
	MateReverse                     // The mate is mapped to the reverse strand of the reference.
	Read1                           // This is read 1 in the template.
	Read2                           // This is read 2 in the template.
	Secondary                       // This is a secondary alignment.
	QCFail                          // QC failure.
	Duplicate                       // Optical or PCR duplicate.
	Supplementary                   // Supplementary alignment (part of a chimeric alignment).
)

var flagStrings = [...]struct {
	flag Flags
	char byte
}{
	{Paired, 'p'},
	{ProperPair, 'P'},
	{Unmapped, 'u'},
	{MateUnmapped, 'U'},
	{Reverse, 'r'},
	{MateReverse, 'R'},
	{Read1, '1'},
	{Read2, '2'},
	{Secondary, 's'},
	{QCFail, 'f'},
	{Duplicate, 'd'},
	{Supplementary, 'S'},
}

// String returns the string representation of the flag field using the
// single-character encoding described in the samtools flagstat output.
func (f Flags) String() string {
	var b strings.Builder
	for _, fs := range flagStrings {
		if f&fs.flag != 0 {
			b.WriteByte(fs.char)
		}
	}
	return b.String()
}
