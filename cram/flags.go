package cram

// cramFlags holds the internal per-record bookkeeping bits, distinct from
// the 16-bit BAM-style flags copied onto Record.Flags.
type cramFlags uint8

const (
	flagDetached cramFlags = 1 << iota
	flagMateDownstream
	flagPreserveQual
	flagDiscardName
	flagNoSeq
	flagStatsAdded
)

func (f cramFlags) has(bit cramFlags) bool { return f&bit != 0 }

// wireMask selects the bits of cramFlags that are part of the encoded CF
// value. DISCARD_NAME and STATS_ADDED are writer-side bookkeeping only;
// keeping them out of the mask means the CF histogram and the values the
// CF codec later encodes always agree, even though those two bits are
// set at different points in the pipeline.
const wireMask = flagDetached | flagMateDownstream | flagPreserveQual | flagNoSeq

// wire returns the CF value as encoded and histogrammed.
func (f cramFlags) wire() int32 { return int32(f & wireMask) }

// cramFlagSwap permutes a raw 16-bit BAM flags value before it is fed to
// the BF statistics histogram. The table is built once and reused for
// every record in a file, independent of record content.
//
// Several BAM flag bits are, for compression purposes, more naturally
// grouped by how often they co-occur than by their native bit position;
// swapping them before histogramming lets the Huffman/Beta choice in
// chooseEncoding see a denser value domain. The table exchanges the
// secondary-alignment and QC-fail bits and leaves the rest in place.
var cramFlagSwapTable [4096]uint16

func init() {
	const secondary = 1 << 8
	const qcfail = 1 << 9
	for v := 0; v < 4096; v++ {
		u := uint16(v)
		var out uint16
		if u&secondary != 0 {
			out |= qcfail
		}
		if u&qcfail != 0 {
			out |= secondary
		}
		out |= u &^ (secondary | qcfail)
		cramFlagSwapTable[v] = out
	}
}

// cramFlagSwap applies the table to the low 12 flag bits.
func cramFlagSwap(flags uint16) uint16 {
	return cramFlagSwapTable[flags&0xfff]
}
