package cram

import (
	"fmt"
	"math"

	"github.com/Schaudge/cram/sam"
	"github.com/cespare/xxhash/v2"
)

// tagID is the 24-bit (key0<<16)|(key1<<8)|type identifier a tag's
// private external block is keyed by.
type tagID int32

func makeTagID(tag sam.Tag, typ byte) tagID {
	return tagID(int32(tag[0])<<16 | int32(tag[1])<<8 | int32(typ))
}

// tagCodec bundles the per-tag-key codec the aux encoder builds the
// first time a (key, type) pair is seen.
type tagCodec struct {
	id    tagID
	kind  ValueKind
	block *block
	codec Codec
}

// tagDictionary is the ordered set of distinct tag-key triples used by
// records in a container, keyed by the xxhash fingerprint of the
// 3-byte-per-tag scratch. Lookup is exact-match only, so a hash map
// suffices; records encode just the small index a lookup yields.
type tagDictionary struct {
	index   map[uint64]int32
	entries [][]byte
}

func newTagDictionary() *tagDictionary {
	return &tagDictionary{index: make(map[uint64]int32)}
}

// lookupOrInsert returns the TL index for the scratch bytes, inserting a
// new TD entry if this is the first time the tag-key set has been seen.
func (d *tagDictionary) lookupOrInsert(scratch []byte) int32 {
	h := xxhash.Sum64(scratch)
	if tl, ok := d.index[h]; ok {
		return tl
	}
	tl := int32(len(d.entries))
	d.entries = append(d.entries, append([]byte(nil), scratch...))
	d.index[h] = tl
	return tl
}

// auxEncoder dispatches aux tags to per-tag typed codecs and maintains
// the shared tag dictionary and per-tag external blocks. One auxEncoder
// is shared by all slices of a container.
type auxEncoder struct {
	td       *tagDictionary
	tagsUsed map[tagID]*tagCodec
	metrics  *tagMetrics
}

func newAuxEncoder(metrics *tagMetrics) *auxEncoder {
	return &auxEncoder{
		td:       newTagDictionary(),
		tagsUsed: make(map[tagID]*tagCodec),
		metrics:  metrics,
	}
}

// encodeRecord dispatches every aux field on fields, returning the RG
// tag's string value (if present) so the caller can resolve it against
// the SAM header. RG is always stripped (it is reconstructed from the
// numeric rg index), and MD/NM are stripped too unless preserveOrder is
// set, since both are regenerable from the reference.
func (e *auxEncoder) encodeRecord(cr *Record, fields sam.AuxFields, preserveOrder, preserveSize bool) (string, error) {
	var rgName string
	var scratch []byte

	for _, a := range fields {
		tag := a.Tag()
		typ := a.Type()

		if tag == (sam.Tag{'R', 'G'}) {
			if s, ok := a.Value().(string); ok {
				rgName = s
			}
			continue
		}
		if !preserveOrder && (tag == (sam.Tag{'M', 'D'}) || tag == (sam.Tag{'N', 'M'})) {
			continue
		}

		encTyp := typ
		val := a.Value()
		if !preserveSize {
			encTyp, val = shrinkInt(typ, val)
		}

		scratch = append(scratch, tag[0], tag[1], encTyp)

		id := makeTagID(tag, encTyp)
		tc, ok := e.tagsUsed[id]
		if !ok {
			var err error
			tc, err = e.newTagCodec(id, encTyp)
			if err != nil {
				return "", err
			}
			e.tagsUsed[id] = tc
			if e.metrics != nil {
				e.metrics.touch(id)
			}
		}
		if err := encodeTagValue(tc, val); err != nil {
			return "", err
		}
	}
	scratch = append(scratch, 0) // entry terminator
	cr.TL = e.td.lookupOrInsert(scratch)
	return rgName, nil
}

// shrinkInt narrows a signed/unsigned integer to the smallest SAM aux
// type that preserves its value.
func shrinkInt(typ byte, val interface{}) (byte, interface{}) {
	var v int64
	switch typ {
	case 'c', 's', 'i':
		switch x := val.(type) {
		case int8:
			v = int64(x)
		case int16:
			v = int64(x)
		case int32:
			v = int64(x)
		default:
			return typ, val
		}
	case 'C', 'S', 'I':
		switch x := val.(type) {
		case uint8:
			v = int64(x)
		case uint16:
			v = int64(x)
		case uint32:
			v = int64(x)
		default:
			return typ, val
		}
	default:
		return typ, val
	}

	switch {
	case v >= 0 && v <= 0xff:
		return 'C', uint8(v)
	case v >= -0x80 && v <= 0x7f:
		return 'c', int8(v)
	case v >= 0 && v <= 0xffff:
		return 'S', uint16(v)
	case v >= -0x8000 && v <= 0x7fff:
		return 's', int16(v)
	case v >= 0 && v <= 0xffffffff:
		return 'I', uint32(v)
	default:
		return 'i', int32(v)
	}
}

// newTagCodec builds the per-tag codec for a newly-seen (key, type)
// pair. Fixed-width types carry their byte length as a single-symbol
// huffman codec (zero bits per record), so the tag's external block holds
// only the value bytes; string types are stop-byte terminated; B arrays
// keep their length in-band via an external length stream.
func (e *auxEncoder) newTagCodec(id tagID, typ byte) (*tagCodec, error) {
	blk := newBlock(int32(id))
	tc := &tagCodec{id: id, block: blk, kind: KindByteArray}

	switch typ {
	case 'Z', 'H':
		tc.codec = newByteArrayStopCodec('\t', blk)
	case 'A', 'c', 'C':
		tc.codec = newByteArrayLenCodec(newConstHuffman(1), blk)
	case 's', 'S':
		tc.codec = newByteArrayLenCodec(newConstHuffman(2), blk)
	case 'i', 'I', 'f':
		tc.codec = newByteArrayLenCodec(newConstHuffman(4), blk)
	case 'd':
		tc.codec = newByteArrayLenCodec(newConstHuffman(8), blk)
	case 'B':
		tc.codec = newByteArrayLenCodec(newExternalCodec(blk), blk)
	default:
		return nil, fmt.Errorf("cram: unsupported aux sub-type %q", typ)
	}
	return tc, nil
}

// encodeTagValue appends val's wire bytes to tc's block via its codec.
func encodeTagValue(tc *tagCodec, val interface{}) error {
	b, err := marshalAuxValue(val)
	if err != nil {
		return err
	}
	_, err = tc.codec.EncodeBytes(nil, b)
	return err
}

func marshalAuxValue(val interface{}) ([]byte, error) {
	switch v := val.(type) {
	case sam.AuxChar:
		return []byte{byte(v)}, nil
	case int8:
		return []byte{byte(v)}, nil
	case uint8:
		return []byte{v}, nil
	case int16:
		return le16(uint16(v)), nil
	case uint16:
		return le16(v), nil
	case int32:
		return le32(uint32(v)), nil
	case uint32:
		return le32(v), nil
	case float32:
		return le32(math.Float32bits(v)), nil
	case float64:
		return le64(math.Float64bits(v)), nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("cram: unsupported aux value type %T", val)
	}
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func le64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}
