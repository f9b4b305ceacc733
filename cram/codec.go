package cram

import (
	"fmt"

	"github.com/Schaudge/cram/varint"
)

// ValueKind distinguishes the payload width a Codec encodes.
type ValueKind int

const (
	KindByte ValueKind = iota
	KindInt
	KindLong
	KindByteArray
)

// Codec is the capability set every per-series encoder implements:
// encode appends count values (as raw int32s) to an output block, or, for
// byte-array codecs, one []byte value through EncodeBytes; and store
// serializes the codec's own parameters into the compression header
// ("rec_encoding_map" / "tag_encoding_map" entries).
type Codec interface {
	Encoding() Encoding
	// Encode appends vals to the codec's target block(s) and returns the
	// number of values written to the CORE block (block-external writes
	// contribute 0 to this count). Byte-array codecs return an error.
	Encode(core *block, vals []int32) (int, error)
	// EncodeBytes is used by byte-array codecs (IN/RN/SC/QS and aux
	// BYTE_ARRAY_LEN/STOP codecs); other codecs return an error.
	EncodeBytes(core *block, vals []byte) (int, error)
	// Store serializes the codec descriptor into the compression header.
	Store(out []byte) []byte
}

// block is a growable byte buffer identified by a content id, the unit
// the slice assembler compresses independently.
type block struct {
	contentID int32
	data      []byte
}

func newBlock(contentID int32) *block { return &block{contentID: contentID} }

func (b *block) write(p []byte) { b.data = append(b.data, p...) }

func (b *block) writeITF8(v int32) { b.data = varint.PutITF8(b.data, v) }

func (b *block) writeLTF8(v int64) { b.data = varint.PutLTF8(b.data, v) }

// externalCodec routes values verbatim (as itf8-encoded ints, or raw
// bytes for byte-array series) to a named external block, leaving all
// compression to the per-block general-purpose pass.
type externalCodec struct {
	target *block
}

func newExternalCodec(target *block) *externalCodec { return &externalCodec{target: target} }

func (c *externalCodec) Encoding() Encoding { return EncodingExternal }

func (c *externalCodec) Encode(_ *block, vals []int32) (int, error) {
	for _, v := range vals {
		c.target.writeITF8(v)
	}
	return 0, nil
}

func (c *externalCodec) EncodeBytes(_ *block, vals []byte) (int, error) {
	c.target.write(vals)
	return 0, nil
}

func (c *externalCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 1) // codec id 1: EXTERNAL
	params := varint.PutITF8(nil, c.target.contentID)
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// betaCodec is used for dense integer ranges (AP when position-sorted
// fails, and other tightly bounded series). Its descriptor records the
// offset (the minimum) and the bit width the range needs; Encode writes
// each value minus the offset as an itf8 integer in the CORE block, not
// as a packed fixed-width bit field.
type betaCodec struct {
	offset int32
	nbits  uint
}

func newBetaCodec(min, max int32) *betaCodec {
	span := uint32(max-min) + 1
	nbits := uint(0)
	for (uint32(1) << nbits) < span {
		nbits++
	}
	return &betaCodec{offset: min, nbits: nbits}
}

func (c *betaCodec) Encoding() Encoding { return EncodingBeta }

func (c *betaCodec) Encode(core *block, vals []int32) (int, error) {
	n := 0
	for _, v := range vals {
		core.writeITF8(v - c.offset)
		n++
	}
	return n, nil
}

func (c *betaCodec) EncodeBytes(*block, []byte) (int, error) {
	return 0, fmt.Errorf("cram: beta codec does not accept byte-array input")
}

func (c *betaCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 2) // codec id 2: BETA
	var params []byte
	params = varint.PutITF8(params, c.offset)
	params = varint.PutITF8(params, int32(c.nbits))
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// huffmanCodec assigns codewords from a symbol frequency table. A
// single-symbol alphabet gets a zero-length codeword: nothing is written
// at encode time, and the decoder recovers the value from the stored
// symbol table alone. Multi-symbol alphabets write the itf8-coded symbol
// into the CORE bitstream.
type huffmanCodec struct {
	symbols []int32
	freqs   []int32
}

func newHuffmanCodec(s *seriesStats) *huffmanCodec {
	syms := s.symbols()
	freqs := make([]int32, len(syms))
	for i, v := range syms {
		freqs[i] = int32(s.freq(v))
	}
	return &huffmanCodec{symbols: syms, freqs: freqs}
}

// newConstHuffman returns a single-symbol huffman codec for a value that
// is the same for every record, such as the byte length of a fixed-width
// aux tag. It costs zero bits per occurrence.
func newConstHuffman(v int32) *huffmanCodec {
	return &huffmanCodec{symbols: []int32{v}, freqs: []int32{1}}
}

func (c *huffmanCodec) Encoding() Encoding { return EncodingHuffman }

func (c *huffmanCodec) Encode(core *block, vals []int32) (int, error) {
	if len(c.symbols) == 1 {
		return 0, nil
	}
	for _, v := range vals {
		core.writeITF8(v)
	}
	return len(vals), nil
}

func (c *huffmanCodec) EncodeBytes(core *block, vals []byte) (int, error) {
	if len(c.symbols) == 1 {
		return 0, nil
	}
	for _, v := range vals {
		core.writeITF8(int32(v))
	}
	return len(vals), nil
}

func (c *huffmanCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 3) // codec id 3: HUFFMAN
	var params []byte
	params = varint.PutITF8(params, int32(len(c.symbols)))
	for _, v := range c.symbols {
		params = varint.PutITF8(params, v)
	}
	params = varint.PutITF8(params, int32(len(c.freqs)))
	for _, f := range c.freqs {
		params = varint.PutITF8(params, f)
	}
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// gammaCodec is chosen for series with a long tail that doesn't fit
// Beta's fixed width. Its descriptor carries the Elias-gamma codec id and
// offset; Encode writes each value minus the offset as an itf8 integer in
// the CORE block, not as an Elias-gamma bit code.
type gammaCodec struct{ offset int32 }

func newGammaCodec(offset int32) *gammaCodec { return &gammaCodec{offset: offset} }

func (c *gammaCodec) Encoding() Encoding { return EncodingGamma }

func (c *gammaCodec) Encode(core *block, vals []int32) (int, error) {
	for _, v := range vals {
		core.writeITF8(v - c.offset)
	}
	return len(vals), nil
}

func (c *gammaCodec) EncodeBytes(*block, []byte) (int, error) {
	return 0, fmt.Errorf("cram: gamma codec does not accept byte-array input")
}

func (c *gammaCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 4) // codec id 4: GAMMA
	params := varint.PutITF8(nil, c.offset)
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// subexpCodec is chosen for moderately-skewed wide ranges, a middle
// ground between Gamma and Beta. Its descriptor carries the subexponential
// codec id, offset and k; Encode writes each value minus the offset as an
// itf8 integer in the CORE block, not as a subexponential bit code.
type subexpCodec struct {
	offset int32
	k      uint
}

func newSubexpCodec(offset int32, k uint) *subexpCodec {
	return &subexpCodec{offset: offset, k: k}
}

func (c *subexpCodec) Encoding() Encoding { return EncodingSubexp }

func (c *subexpCodec) Encode(core *block, vals []int32) (int, error) {
	for _, v := range vals {
		core.writeITF8(v - c.offset)
	}
	return len(vals), nil
}

func (c *subexpCodec) EncodeBytes(*block, []byte) (int, error) {
	return 0, fmt.Errorf("cram: subexp codec does not accept byte-array input")
}

func (c *subexpCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 5) // codec id 5: SUBEXP
	var params []byte
	params = varint.PutITF8(params, c.offset)
	params = varint.PutITF8(params, int32(c.k))
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// byteArrayLenCodec composes a length codec with an external value
// stream: each call encodes the byte count through the length codec and
// appends the bytes themselves to the value block.
type byteArrayLenCodec struct {
	lenCodec Codec
	valBlock *block
}

func newByteArrayLenCodec(lenCodec Codec, valBlock *block) *byteArrayLenCodec {
	return &byteArrayLenCodec{lenCodec: lenCodec, valBlock: valBlock}
}

func (c *byteArrayLenCodec) Encoding() Encoding { return EncodingExternal }

func (c *byteArrayLenCodec) Encode(*block, []int32) (int, error) {
	return 0, fmt.Errorf("cram: byte-array-len codec requires EncodeBytes")
}

func (c *byteArrayLenCodec) EncodeBytes(core *block, vals []byte) (int, error) {
	n, err := c.lenCodec.Encode(core, []int32{int32(len(vals))})
	if err != nil {
		return n, err
	}
	c.valBlock.write(vals)
	return n, nil
}

func (c *byteArrayLenCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 6) // codec id 6: BYTE_ARRAY_LEN
	lenParams := c.lenCodec.Store(nil)
	var params []byte
	params = append(params, lenParams...)
	params = varint.PutITF8(params, c.valBlock.contentID)
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// byteArrayStopCodec terminates each value with a fixed byte, used for
// RN/SC/IN and the Z/H aux types.
type byteArrayStopCodec struct {
	term   byte
	target *block
}

func newByteArrayStopCodec(term byte, target *block) *byteArrayStopCodec {
	return &byteArrayStopCodec{term: term, target: target}
}

func (c *byteArrayStopCodec) Encoding() Encoding { return EncodingExternal }

func (c *byteArrayStopCodec) Encode(*block, []int32) (int, error) {
	return 0, fmt.Errorf("cram: byte-array-stop codec requires EncodeBytes")
}

func (c *byteArrayStopCodec) EncodeBytes(_ *block, vals []byte) (int, error) {
	c.target.write(vals)
	c.target.write([]byte{c.term})
	return 0, nil
}

func (c *byteArrayStopCodec) Store(out []byte) []byte {
	out = varint.PutITF8(out, 7) // codec id 7: BYTE_ARRAY_STOP
	var params []byte
	params = append(params, c.term)
	params = varint.PutITF8(params, c.target.contentID)
	out = varint.PutITF8(out, int32(len(params)))
	out = append(out, params...)
	return out
}

// newCodecFor builds an encoder for a series from its accumulated stats
// and value kind, routed to the supplied external block where the chosen
// encoding calls for one.
func newCodecFor(enc Encoding, stats *seriesStats, kind ValueKind, external *block, version int) Codec {
	switch enc {
	case EncodingHuffman:
		if kind == KindByteArray {
			return newExternalCodec(external)
		}
		return newHuffmanCodec(stats)
	case EncodingBeta:
		return newBetaCodec(stats.min(), stats.max())
	case EncodingGamma:
		return newGammaCodec(stats.min())
	case EncodingSubexp:
		return newSubexpCodec(stats.min(), 2)
	default:
		return newExternalCodec(external)
	}
}
