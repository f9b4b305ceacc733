package cram

import (
	"hash"
	"sort"

	"github.com/Schaudge/cram/blockcodec"
	"github.com/Schaudge/cram/refcache"
	"github.com/Schaudge/cram/sam"
)

// Slice is the assembled output of a sliceAssembler: the header fields
// and compressed blocks that make up one slice on the wire.
type Slice struct {
	RefID         int32
	RefSeqStart   int64
	RefSeqSpan    int64
	NumRecords    int32
	RecordCounter int64
	MD5           [16]byte
	BDCrc         uint32
	SDCrc         uint32
	HasBD         bool
	HasSD         bool

	ContentIDs []int32
	Blocks     map[int32][]byte // compressed block bytes by content id
	CoreBlock  []byte
}

// sliceAssembler walks records, drives each series' codec in the fixed
// field order, builds blocks, and compresses them.
type sliceAssembler struct {
	opts   Options
	header *sam.Header
	refs   *refcache.Cache

	subMatrix *substitutionMatrix
	auxEnc    *auxEncoder

	features *featureBuffer
	stats    map[Series]*seriesStats

	bases   []byte
	quality []byte
	names   []byte

	bdCRC hash.Hash32
	sdCRC hash.Hash32

	pairTable map[pairKey]*Record
	records   []*Record

	refID      int32
	multiRef   bool
	posSorted  bool
	lastPos    int32
	maxAPos    int32
	recCounter int64

	// driveLastAP is the previous record's position during the encode
	// walk, so AP can be emitted as a delta while the slice is
	// position-sorted.
	driveLastAP int32

	// lastCodecs holds the codecSet built by the most recent finalize
	// call, kept so the container assembler can read one representative
	// Codec per series for the compression header's rec_encoding_map.
	lastCodecs *codecSet
}

// newSliceAssembler returns an assembler sharing auxEnc with the other
// slices of its container: the tag dictionary and per-tag codecs are
// container-scoped, so TL indices stay consistent across slice
// boundaries.
func newSliceAssembler(opts Options, header *sam.Header, refs *refcache.Cache, auxEnc *auxEncoder, recCounterStart int64) *sliceAssembler {
	return &sliceAssembler{
		opts:       opts,
		header:     header,
		refs:       refs,
		subMatrix:  newSubstitutionMatrix(nil),
		auxEnc:     auxEnc,
		features:   newFeatureBuffer(),
		stats:      newSeriesStatsMap(),
		bdCRC:      newCRC32(),
		sdCRC:      newCRC32(),
		pairTable:  make(map[pairKey]*Record),
		refID:      -1,
		posSorted:  true,
		recCounter: recCounterStart,
	}
}

func newSeriesStatsMap() map[Series]*seriesStats {
	m := make(map[Series]*seriesStats)
	for _, s := range []Series{
		SeriesBF, SeriesCF, SeriesRL, SeriesAP, SeriesRG, SeriesMF, SeriesNS, SeriesNP,
		SeriesTS, SeriesNF, SeriesTL, SeriesFN, SeriesFC, SeriesFP, SeriesBS, SeriesMQ,
		SeriesRI,
	} {
		m[s] = newSeriesStats()
	}
	return m
}

// AddRecord processes one input record into the slice and maintains the
// position-sorted invariant: once any record is position-unsorted within
// the slice, AP falls back to absolute encoding.
func (s *sliceAssembler) AddRecord(rec *sam.Record) error {
	var ref []byte
	if rec.Ref != nil && !s.opts.NoRef {
		if b, ok := s.refs.Get(rec.Ref.ID()); ok {
			ref = b
		}
	}

	if len(s.records) == 0 {
		s.refID = -1
		if rec.Ref != nil {
			s.refID = int32(rec.Ref.ID())
		}
	} else if rec.Ref == nil || int32(rec.Ref.ID()) != s.refID {
		s.multiRef = true
	}

	cr, err := s.processRecord(rec, ref)
	if err != nil {
		return err
	}
	if cr.APos < s.lastPos {
		s.posSorted = false
	}
	s.lastPos = cr.APos

	s.records = append(s.records, cr)
	s.recCounter++
	return nil
}

// finalize runs the name eliminator and then the mate resolver -- in
// that order, so linkability can see final DISCARD_NAME status -- then
// drives every record through the series codecs in the fixed field
// order and compresses the resulting blocks. Empty external blocks are
// collapsed away rather than emitted.
func (s *sliceAssembler) finalize() (*Slice, error) {
	s.eliminateNames()
	s.resolveMates()

	core := newBlock(0)
	codecs := s.buildCodecs()
	s.lastCodecs = codecs

	s.driveLastAP = 0
	if len(s.records) > 0 {
		s.driveLastAP = s.records[0].APos
	}
	for _, cr := range s.records {
		if err := s.driveRecord(core, codecs, cr); err != nil {
			return nil, err
		}
	}

	sl := &Slice{
		RefID:         s.sliceRefID(),
		NumRecords:    int32(len(s.records)),
		RecordCounter: s.recCounter,
		Blocks:        make(map[int32][]byte),
	}
	s.setRefSpan(sl)
	if !s.opts.IgnoreChecksum {
		sl.BDCrc = s.bdCRC.Sum32()
		sl.SDCrc = s.sdCRC.Sum32()
		sl.HasBD, sl.HasSD = true, true
	}

	_, compressedCore := blockcodec.Compress(core.data, coreMask(s.opts), s.opts.Level)
	sl.CoreBlock = compressedCore

	for _, blk := range codecs.ext {
		if len(blk.data) == 0 {
			continue
		}
		_, out := blockcodec.Compress(blk.data, externalMask(s.opts), s.opts.Level)
		sl.Blocks[blk.contentID] = out
		sl.ContentIDs = append(sl.ContentIDs, blk.contentID)
	}
	sort.Slice(sl.ContentIDs, func(i, j int) bool { return sl.ContentIDs[i] < sl.ContentIDs[j] })

	return sl, nil
}

// setRefSpan records the slice's mapped reference interval: the minimum
// record start and the maximum record end across mapped records.
func (s *sliceAssembler) setRefSpan(sl *Slice) {
	var minStart, maxEnd int64 = -1, -1
	for _, cr := range s.records {
		if cr.APos <= 0 {
			continue
		}
		if minStart == -1 || int64(cr.APos) < minStart {
			minStart = int64(cr.APos)
		}
		if int64(cr.AEnd) > maxEnd {
			maxEnd = int64(cr.AEnd)
		}
	}
	if minStart >= 0 {
		sl.RefSeqStart = minStart
		sl.RefSeqSpan = maxEnd - minStart + 1
	}
}

func (s *sliceAssembler) sliceRefID() int32 {
	if s.multiRef {
		return -2
	}
	return s.refID
}

// coreMask picks the CORE block's candidate method set: gzip joins the
// RAW candidate only when compression is enabled at all.
func coreMask(opts Options) blockcodec.Mask {
	mask := blockcodec.Mask(1 << blockcodec.MethodRaw)
	if opts.Level > 0 {
		mask |= 1 << blockcodec.MethodGzip
	}
	return mask
}

// externalMask picks the candidate method set for external blocks from
// the configured codec toggles.
func externalMask(opts Options) blockcodec.Mask {
	mask := blockcodec.Mask(1 << blockcodec.MethodRaw)
	if opts.Level > 0 {
		mask |= 1 << blockcodec.MethodGzip
	}
	if opts.UseBZ2 {
		mask |= 1 << blockcodec.MethodBzip2
	}
	return mask
}

// codecSet holds the per-series Codec chosen for this slice, plus the
// external blocks those codecs write to.
type codecSet struct {
	bf, cf, ri, rl, ap, rg, mf, ns, np, ts, nf, tl, fn, fc, fp, bs, mq Codec
	name, qual, seq, softclip, ba, bb                                  Codec

	ext []*block
}

// newExt allocates an external block and registers it for collection at
// finalize time.
func (cs *codecSet) newExt(id int32) *block {
	b := newBlock(id)
	cs.ext = append(cs.ext, b)
	return b
}

// Content ids just past the per-series ordinals, so they can never
// collide with them: the BB series' length stream and the embedded
// reference block.
const (
	contentIDBBLen    = 33
	contentIDEmbedRef = 34
)

func (s *sliceAssembler) buildCodecs() *codecSet {
	v := int(s.opts.Version.Major)
	cs := &codecSet{}

	nameBlk := cs.newExt(int32(SeriesOrdinal(SeriesRN)))
	qualBlk := cs.newExt(int32(SeriesOrdinal(SeriesQS)))
	seqBlk := cs.newExt(int32(SeriesOrdinal(SeriesIN)))
	softclipBlk := cs.newExt(int32(SeriesOrdinal(SeriesSC)))
	baBlk := cs.newExt(int32(SeriesOrdinal(SeriesBA)))

	cs.bf = newCodecFor(s.stats[SeriesBF].chooseEncoding(), s.stats[SeriesBF], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesBF))), v)
	cs.cf = newCodecFor(s.stats[SeriesCF].chooseEncoding(), s.stats[SeriesCF], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesCF))), v)
	cs.ri = newCodecFor(s.stats[SeriesRI].chooseEncoding(), s.stats[SeriesRI], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesRI))), v)
	cs.rl = newCodecFor(s.stats[SeriesRL].chooseEncoding(), s.stats[SeriesRL], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesRL))), v)

	// AP: delta-encoded while the slice is position-sorted, absolute
	// fixed-width Beta over [0, max position] otherwise.
	if s.posSorted {
		cs.ap = newCodecFor(s.stats[SeriesAP].chooseEncoding(), s.stats[SeriesAP], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesAP))), v)
	} else {
		cs.ap = newBetaCodec(0, s.maxAPos)
	}

	cs.rg = newCodecFor(s.stats[SeriesRG].chooseEncoding(), s.stats[SeriesRG], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesRG))), v)
	cs.mf = newCodecFor(s.stats[SeriesMF].chooseEncoding(), s.stats[SeriesMF], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesMF))), v)
	cs.ns = newCodecFor(s.stats[SeriesNS].chooseEncoding(), s.stats[SeriesNS], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesNS))), v)
	cs.np = newCodecFor(s.stats[SeriesNP].chooseEncoding(), s.stats[SeriesNP], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesNP))), v)
	cs.ts = newCodecFor(s.stats[SeriesTS].chooseEncoding(), s.stats[SeriesTS], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesTS))), v)
	cs.nf = newCodecFor(s.stats[SeriesNF].chooseEncoding(), s.stats[SeriesNF], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesNF))), v)
	cs.tl = newCodecFor(s.stats[SeriesTL].chooseEncoding(), s.stats[SeriesTL], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesTL))), v)
	cs.fn = newCodecFor(s.stats[SeriesFN].chooseEncoding(), s.stats[SeriesFN], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesFN))), v)
	cs.fc = newCodecFor(s.stats[SeriesFC].chooseEncoding(), s.stats[SeriesFC], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesFC))), v)
	cs.fp = newCodecFor(s.stats[SeriesFP].chooseEncoding(), s.stats[SeriesFP], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesFP))), v)
	cs.bs = newCodecFor(s.stats[SeriesBS].chooseEncoding(), s.stats[SeriesBS], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesBS))), v)
	cs.mq = newCodecFor(s.stats[SeriesMQ].chooseEncoding(), s.stats[SeriesMQ], KindInt, cs.newExt(int32(SeriesOrdinal(SeriesMQ))), v)

	// SC, IN, RN carry terminated byte runs; QS is a raw external byte
	// stream; BA holds the verbatim sequence of records encoded without
	// features.
	cs.softclip = newByteArrayStopCodec(0, softclipBlk)
	cs.seq = newByteArrayStopCodec(0, seqBlk)
	cs.name = newByteArrayStopCodec(0, nameBlk)
	cs.qual = newExternalCodec(qualBlk)
	cs.ba = newByteArrayStopCodec(0, baBlk)

	// BB pairs an external length stream with an external value stream;
	// it only exists on format 3 and later.
	if s.opts.Version.atLeast(3) {
		bbLenBlk := cs.newExt(contentIDBBLen)
		bbBlk := cs.newExt(int32(SeriesOrdinal(SeriesBB)))
		cs.bb = newByteArrayLenCodec(newExternalCodec(bbLenBlk), bbBlk)
	}

	return cs
}

// driveRecord feeds one record's fields to the codecs in the fixed field
// order: BF, CF, [RI], RL, AP, RG, the CF-dependent mate fields, TL, the
// (optional) name, then either the feature list and MQ or the verbatim
// sequence, then qualities.
func (s *sliceAssembler) driveRecord(core *block, cs *codecSet, cr *Record) error {
	cs.bf.Encode(core, []int32{int32(cramFlagSwap(cr.Flags))})
	cs.cf.Encode(core, []int32{cr.CF.wire()})
	if s.multiRef {
		cs.ri.Encode(core, []int32{cr.RefID})
	}
	cs.rl.Encode(core, []int32{cr.Len})
	if s.posSorted {
		cs.ap.Encode(core, []int32{cr.APos - s.driveLastAP})
		s.driveLastAP = cr.APos
	} else {
		cs.ap.Encode(core, []int32{cr.APos})
	}
	cs.rg.Encode(core, []int32{cr.RG})

	switch {
	case cr.CF.has(flagDetached):
		cs.mf.Encode(core, []int32{int32(cr.MateFlags)})
		cs.ns.Encode(core, []int32{cr.MateRefID})
		cs.np.Encode(core, []int32{cr.MatePos})
		cs.ts.Encode(core, []int32{cr.TLen})
	case cr.CF.has(flagMateDownstream):
		cs.nf.Encode(core, []int32{cr.MateLine})
	}

	cs.tl.Encode(core, []int32{cr.TL})

	if !cr.CF.has(flagDiscardName) {
		if _, err := cs.name.EncodeBytes(core, s.names[cr.NameOffset:cr.NameOffset+cr.NameLen]); err != nil {
			return err
		}
	}

	if !cr.CF.has(flagNoSeq) {
		cs.fn.Encode(core, []int32{int32(cr.NFeature)})
		var prevPos int32
		for _, f := range s.features.slice(cr.FeatureStart, cr.NFeature) {
			cs.fc.Encode(core, []int32{int32(f.Code)})
			cs.fp.Encode(core, []int32{f.Pos - prevPos})
			prevPos = f.Pos
			if err := s.driveFeaturePayload(core, cs, f); err != nil {
				return err
			}
		}
		cs.mq.Encode(core, []int32{int32(cr.MapQual)})
	} else if int(cr.Len) <= len(s.bases)-cr.SeqOffset {
		if _, err := cs.ba.EncodeBytes(core, s.bases[cr.SeqOffset:cr.SeqOffset+int(cr.Len)]); err != nil {
			return err
		}
	}

	if cr.CF.has(flagPreserveQual) {
		if _, err := cs.qual.EncodeBytes(core, s.quality[cr.QualOffset:cr.QualOffset+cr.QualLen]); err != nil {
			return err
		}
	}
	return nil
}

func (s *sliceAssembler) driveFeaturePayload(core *block, cs *codecSet, f Feature) error {
	switch f.Code {
	case FeatureSubstitution:
		cs.bs.Encode(core, []int32{int32(f.Base)})
	case FeatureInsertBase:
		core.write([]byte{f.Base})
	case FeatureInsertion:
		_, err := cs.seq.EncodeBytes(core, f.Data)
		return err
	case FeatureSoftClip:
		_, err := cs.softclip.EncodeBytes(core, f.Data)
		return err
	case FeatureDeletion, FeatureHardClip, FeatureRefSkip, FeaturePadding:
		core.writeITF8(f.Len)
	case FeatureBaseQual:
		core.write([]byte{f.Base, f.Qual})
	case FeatureBaseRun:
		if cs.bb != nil {
			_, err := cs.bb.EncodeBytes(core, f.Data)
			return err
		}
		core.writeITF8(f.Len)
		core.write(f.Data)
	case FeatureQualOnly:
		core.write([]byte{f.Qual})
	}
	return nil
}

// seriesCodecs lists the (Series, Codec) pairs driveRecord actually uses,
// in the fixed field order, for the container assembler's
// rec_encoding_map.
func (cs *codecSet) seriesCodecs() []struct {
	Series Series
	Codec  Codec
} {
	pairs := []struct {
		Series Series
		Codec  Codec
	}{
		{SeriesBF, cs.bf}, {SeriesCF, cs.cf}, {SeriesRI, cs.ri}, {SeriesRL, cs.rl},
		{SeriesAP, cs.ap}, {SeriesRG, cs.rg}, {SeriesMF, cs.mf}, {SeriesNS, cs.ns},
		{SeriesNP, cs.np}, {SeriesTS, cs.ts}, {SeriesNF, cs.nf}, {SeriesTL, cs.tl},
		{SeriesFN, cs.fn}, {SeriesFC, cs.fc}, {SeriesFP, cs.fp}, {SeriesBS, cs.bs},
		{SeriesMQ, cs.mq}, {SeriesRN, cs.name}, {SeriesQS, cs.qual}, {SeriesIN, cs.seq},
		{SeriesSC, cs.softclip}, {SeriesBA, cs.ba},
	}
	if cs.bb != nil {
		pairs = append(pairs, struct {
			Series Series
			Codec  Codec
		}{SeriesBB, cs.bb})
	}
	return pairs
}

// SeriesOrdinal assigns a stable small integer content id to each
// well-known series, used when a series' codec routes to an external
// block (the aux tag blocks use the 24-bit tag id scheme instead; see
// aux.go).
func SeriesOrdinal(s Series) int {
	order := []Series{
		SeriesBF, SeriesCF, SeriesRI, SeriesRL, SeriesAP, SeriesRG, SeriesMF, SeriesNS,
		SeriesNP, SeriesTS, SeriesNF, SeriesTC, SeriesTN, SeriesTL, SeriesFN, SeriesFC,
		SeriesFP, SeriesBS, SeriesIN, SeriesDL, SeriesBA, SeriesBB, SeriesMQ, SeriesRN,
		SeriesQS, SeriesQQ, SeriesRS, SeriesPD, SeriesHC, SeriesTM, SeriesTV, SeriesSC,
	}
	for i, v := range order {
		if v == s {
			return i + 1
		}
	}
	return -1
}
