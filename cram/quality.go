package cram

// illuminaBin is the 256-entry LUT collapsing Phred quality scores into
// the 8 canonical Illumina bins, applied when Options.Binning ==
// BinningIllumina.
var illuminaBin [256]byte

func init() {
	// Bin boundaries per the standard 8-level Illumina quality binning
	// scheme (RTA/CASAVA bcl2fastq default table).
	bounds := [8]byte{2, 9, 14, 19, 24, 29, 34, 40}
	reps := [8]byte{2, 9, 14, 19, 24, 29, 34, 40}
	for q := 0; q < 256; q++ {
		bin := len(bounds) - 1
		for i, b := range bounds {
			if byte(q) <= b {
				bin = i
				break
			}
		}
		illuminaBin[q] = reps[bin]
	}
}

// Binning selects whether and how qualities are quantized before storage.
type Binning int

const (
	BinningNone Binning = iota
	BinningIllumina
)

// applyBinning maps each quality byte through the configured scheme.
func applyBinning(qual []byte, b Binning) []byte {
	if b != BinningIllumina {
		return qual
	}
	out := make([]byte, len(qual))
	for i, q := range qual {
		out[i] = illuminaBin[q]
	}
	return out
}

// reverseQual returns q reversed, for v4 reverse-strand quality
// orientation: CRAM v4 stores qualities in sequencing order, so a
// reverse-complemented alignment record's quality string (which arrives
// in reference orientation) must be flipped back.
func reverseQual(q []byte) []byte {
	out := make([]byte, len(q))
	for i, b := range q {
		out[len(q)-1-i] = b
	}
	return out
}
