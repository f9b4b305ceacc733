package cram

import (
	"crypto/md5"
	"sort"

	"github.com/Schaudge/cram/blockcodec"
	"github.com/Schaudge/cram/varint"
)

// CompressionHeader is the per-container block holding the preservation
// map, substitution matrix, tag dictionary, and the per-series/per-tag
// encoding descriptors.
type CompressionHeader struct {
	PreserveNames     bool
	DeltaPositions    bool
	ReferenceRequired bool
	SubMatrix         [5]byte
	TagDict           [][]byte

	recEncodings [][2]byte // series key bytes, aligned with recEncoded
	recEncoded   [][]byte
	tagEncodings []tagID
	tagEncoded   [][]byte
}

// Container is an aggregation of slices sharing one compression header.
type Container struct {
	RefID       int32 // -2 if multi-ref
	RefSeqStart int64
	RefSeqSpan  int64
	Header      CompressionHeader
	Slices      []*Slice
	Landmarks   []int64
	RecordCount int64
	TagsUsed    map[tagID]bool
	PosSorted   bool
	MultiSeq    bool
}

// buildContainer finalizes each pending slice, computes the container's
// reference span as the union of slice spans, stamps each mapped slice
// with the MD5 of its reference region, attaches the container-scoped aux
// tag blocks to the first slice, and computes the landmark offsets.
func (w *Writer) buildContainer(slices []*sliceAssembler) (*Container, error) {
	c := &Container{
		RefID:     -1,
		TagsUsed:  make(map[tagID]bool),
		PosSorted: true,
	}

	var finished []*Slice
	var minStart, maxEnd int64 = -1, -1

	for _, sa := range slices {
		sl, err := sa.finalize()
		if err != nil {
			return nil, err
		}
		finished = append(finished, sl)
		c.RecordCount += int64(sl.NumRecords)
		if !sa.posSorted {
			c.PosSorted = false
		}
		if sa.multiRef {
			c.MultiSeq = true
		}
		if c.RefID == -1 {
			c.RefID = sa.sliceRefID()
		} else if c.RefID != sa.sliceRefID() {
			c.RefID = -2
			c.MultiSeq = true
		}

		if sl.RefSeqSpan > 0 {
			if minStart == -1 || sl.RefSeqStart < minStart {
				minStart = sl.RefSeqStart
			}
			if end := sl.RefSeqStart + sl.RefSeqSpan - 1; end > maxEnd {
				maxEnd = end
			}
		}
	}

	if minStart >= 0 {
		c.RefSeqStart = minStart
		c.RefSeqSpan = maxEnd - minStart + 1
	}

	// Every slice of a container shares one aux encoder, so the per-tag
	// blocks span the container; they ride along with the first slice.
	if len(slices) > 0 {
		aux := slices[0].auxEnc
		var ids []tagID
		for id, tc := range aux.tagsUsed {
			c.TagsUsed[id] = true
			if len(tc.block.data) > 0 {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		sl0 := finished[0]
		for _, id := range ids {
			_, out := blockcodec.Compress(aux.tagsUsed[id].block.data, externalMask(w.opts), w.opts.Level)
			sl0.Blocks[int32(id)] = out
			sl0.ContentIDs = append(sl0.ContentIDs, int32(id))
		}
	}

	// Each mapped slice's MD5 covers its own reference region; with
	// embed_ref, that same region also travels as its own block. The
	// container pins the reference for the whole computation.
	if c.RefID >= 0 && !w.opts.NoRef {
		w.refs.Incr(int(c.RefID))
		if ref, ok := w.refs.Get(int(c.RefID)); ok {
			for _, sl := range finished {
				if sl.RefSeqSpan == 0 {
					continue
				}
				lo, hi := int(sl.RefSeqStart)-1, int(sl.RefSeqStart-1+sl.RefSeqSpan)
				if lo < 0 || hi > len(ref) || lo > hi {
					continue
				}
				sl.MD5 = md5.Sum(ref[lo:hi])
				if w.opts.EmbedRef {
					_, out := blockcodec.Compress(ref[lo:hi], externalMask(w.opts), w.opts.Level)
					sl.Blocks[contentIDEmbedRef] = out
					sl.ContentIDs = append(sl.ContentIDs, contentIDEmbedRef)
				}
			}
		}
		w.refs.Decr(int(c.RefID))
	}

	// landmark[i] is the byte offset of slice i from the start of slice
	// 0, counting each slice's header block and data blocks.
	var offset int64
	for _, sl := range finished {
		sort.Slice(sl.ContentIDs, func(i, j int) bool { return sl.ContentIDs[i] < sl.ContentIDs[j] })
		c.Landmarks = append(c.Landmarks, offset)
		offset += sliceByteSize(sl)
	}

	c.Slices = finished
	c.Header = w.buildCompressionHeader(c, slices)
	return c, nil
}

func sliceByteSize(sl *Slice) int64 {
	n := int64(len(sl.MarshalSliceHeader()))
	n += int64(len(sl.CoreBlock))
	for _, b := range sl.Blocks {
		n += int64(len(b))
	}
	return n
}

// buildCompressionHeader assembles the preservation map, substitution
// matrix, per-series encoding map and per-tag encoding map. All slices
// in a container share one compression header, so the first slice's
// codec choice per series stands for the container as a whole.
func (w *Writer) buildCompressionHeader(c *Container, slices []*sliceAssembler) CompressionHeader {
	h := CompressionHeader{
		PreserveNames:     !w.opts.LossyReadNames,
		DeltaPositions:    c.PosSorted,
		ReferenceRequired: !w.opts.NoRef && !w.opts.EmbedRef,
	}
	if len(slices) == 0 {
		return h
	}
	h.SubMatrix = slices[0].subMatrix.encode()

	if slices[0].lastCodecs != nil {
		for _, sc := range slices[0].lastCodecs.seriesCodecs() {
			if sc.Codec == nil {
				continue
			}
			h.recEncodings = append(h.recEncodings, [2]byte{sc.Series[0], sc.Series[1]})
			h.recEncoded = append(h.recEncoded, sc.Codec.Store(nil))
		}
	}

	aux := slices[0].auxEnc
	var ids []tagID
	for id := range aux.tagsUsed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		h.tagEncodings = append(h.tagEncodings, id)
		h.tagEncoded = append(h.tagEncoded, aux.tagsUsed[id].codec.Store(nil))
	}
	h.TagDict = aux.td.entries
	return h
}

// Marshal serializes the compression header block: a preservation map,
// the per-series encoding map, and the per-tag encoding map, the whole
// prefixed with its byte size.
func (h *CompressionHeader) Marshal() []byte {
	var buf []byte

	var pmap []byte
	entries := 0
	pmap = append(pmap, 'R', 'N', boolByte(h.PreserveNames))
	entries++
	pmap = append(pmap, 'A', 'P', boolByte(h.DeltaPositions))
	entries++
	pmap = append(pmap, 'R', 'R', boolByte(h.ReferenceRequired))
	entries++
	pmap = append(pmap, 'S', 'M')
	pmap = append(pmap, h.SubMatrix[:]...)
	entries++
	if len(h.TagDict) > 0 {
		var td []byte
		for _, entry := range h.TagDict {
			td = append(td, entry...)
		}
		pmap = append(pmap, 'T', 'D')
		pmap = varint.PutITF8(pmap, int32(len(td)))
		pmap = append(pmap, td...)
		entries++
	}

	buf = varint.PutITF8(buf, int32(entries))
	buf = append(buf, pmap...)

	buf = varint.PutITF8(buf, int32(len(h.recEncodings)))
	for i, key := range h.recEncodings {
		buf = append(buf, key[0], key[1])
		buf = append(buf, h.recEncoded[i]...)
	}

	buf = varint.PutITF8(buf, int32(len(h.tagEncodings)))
	for i, id := range h.tagEncodings {
		buf = varint.PutITF8(buf, int32(id))
		buf = append(buf, h.tagEncoded[i]...)
	}

	sized := varint.PutITF8(nil, int32(len(buf)))
	return append(sized, buf...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// MarshalContainerHeader serializes the container's own header: the
// total byte length of the container's payload (compression header plus
// all slices), the reference span, record accounting, and the landmark
// offsets into the payload.
func (c *Container) MarshalContainerHeader() []byte {
	payload := int64(len(c.Header.Marshal()))
	for _, sl := range c.Slices {
		payload += sliceByteSize(sl)
	}

	var buf []byte
	buf = varint.PutITF8(buf, int32(payload))
	buf = varint.PutITF8(buf, c.RefID)
	buf = varint.PutLTF8(buf, c.RefSeqStart)
	buf = varint.PutLTF8(buf, c.RefSeqSpan)
	buf = varint.PutLTF8(buf, c.RecordCount)
	blocks := 1 // the compression header block
	for _, sl := range c.Slices {
		blocks += 1 + 1 + len(sl.ContentIDs) // slice header, core, externals
	}
	buf = varint.PutITF8(buf, int32(blocks))
	buf = varint.PutITF8(buf, int32(len(c.Landmarks)))
	for _, lm := range c.Landmarks {
		buf = varint.PutITF8(buf, int32(lm))
	}
	return buf
}

// MarshalSliceHeader serializes sl's header block.
func (sl *Slice) MarshalSliceHeader() []byte {
	var buf []byte
	buf = varint.PutITF8(buf, sl.RefID)
	buf = varint.PutLTF8(buf, sl.RefSeqStart)
	buf = varint.PutLTF8(buf, sl.RefSeqSpan)
	buf = varint.PutITF8(buf, sl.NumRecords)
	buf = varint.PutLTF8(buf, sl.RecordCounter)
	buf = varint.PutITF8(buf, int32(1+len(sl.ContentIDs))) // core + externals
	buf = varint.PutITF8(buf, int32(len(sl.ContentIDs)))
	for _, id := range sl.ContentIDs {
		buf = varint.PutITF8(buf, id)
	}
	if sl.RefID >= 0 {
		buf = varint.PutITF8(buf, sl.RefID)
	}
	buf = append(buf, sl.MD5[:]...)
	if sl.HasBD {
		buf = append(buf, 'B', 'D', 'B', 'c', 4, 0, 0, 0)
		buf = append(buf, le32(sl.BDCrc)...)
	}
	if sl.HasSD {
		buf = append(buf, 'S', 'D', 'B', 'c', 4, 0, 0, 0)
		buf = append(buf, le32(sl.SDCrc)...)
	}
	return buf
}
