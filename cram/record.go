package cram

import (
	"fmt"

	"github.com/Schaudge/cram/sam"
)

// Record is one read reduced to the fields the encoding pipeline needs,
// plus the internal bookkeeping the mate resolver and name eliminator
// mutate in place.
type Record struct {
	APos  int32 // 1-based alignment position
	AEnd  int32
	Len   int32
	Flags uint16
	CF    cramFlags

	MateFlags uint16
	MatePos   int32
	MateRefID int32
	MateLine  int32 // relative index of mate within the slice, once resolved
	TLen      int32

	MapQual byte
	RG      int32 // read-group index, -1 if absent

	FeatureStart int
	NFeature     int

	SeqOffset  int
	QualOffset int
	QualLen    int
	NameOffset int
	NameLen    int

	TL int32 // tag-dictionary index

	RefID int32

	name     string
	expected int32 // expected template count, for the name eliminator
	index    int   // index within the owning slice, assigned at append time
}

// processRecord converts one sam.Record into a populated cram Record,
// appending features, verbatim bytes, and statistics into the owning
// slice. The stats added here mirror, value for value, what driveRecord
// later feeds each series' codec.
func (s *sliceAssembler) processRecord(rec *sam.Record, ref []byte) (*Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("cram: nil input record")
	}
	cr := &Record{
		Flags:   uint16(rec.Flags),
		MapQual: rec.MapQ,
		RefID:   -1,
		RG:      -1,
		index:   len(s.records),
	}
	if rec.Ref != nil {
		cr.RefID = int32(rec.Ref.ID())
	}
	if rec.MateRef != nil {
		cr.MateRefID = int32(rec.MateRef.ID())
	} else {
		cr.MateRefID = -1
	}
	// MatePos stays 0-based (the raw SAM convention); APos is 1-based.
	// The mate resolver's position checks add 1 on the MatePos side.
	cr.MatePos = int32(rec.MatePos)
	cr.TLen = int32(rec.TempLen)
	cr.name = rec.Name
	cr.expected = expectedTemplateCount(rec)

	// mate_flags mirrors the mate-unmapped/mate-reverse bits of the BAM
	// flags word onto the Unmapped/Reverse bit positions, so the mate
	// resolver can compare "my mate's status" against "the candidate's own
	// status" using the same bit masks.
	if rec.Flags&sam.MateUnmapped != 0 {
		cr.MateFlags |= uint16(sam.Unmapped)
	}
	if rec.Flags&sam.MateReverse != 0 {
		cr.MateFlags |= uint16(sam.Reverse)
	}

	// The aux-tag encoder runs first so RG/MD/NM can be stripped or
	// retained before the remaining fields are copied.
	rgName, err := s.auxEnc.encodeRecord(cr, rec.AuxFields, s.opts.PreserveAuxOrder, s.opts.PreserveAuxSize)
	if err != nil {
		return nil, err
	}
	if rgName != "" {
		if rgObj := s.header.RGByName(rgName); rgObj != nil {
			cr.RG = int32(rgObj.ID())
		}
	}

	// Expand the packed nibble sequence into the slice base block.
	bases := rec.Seq.Expand()
	cr.SeqOffset = len(s.bases)
	s.bases = append(s.bases, bases...)
	if !s.opts.IgnoreChecksum {
		s.bdCRC.Write(bases)
	}

	unmapped := rec.Flags&sam.Unmapped != 0 || rec.Ref == nil || rec.Cigar == nil
	cr.FeatureStart = len(s.features.items)
	var spos int32

	switch {
	case unmapped:
		cr.APos = 0
		cr.AEnd = cr.APos
		spos = int32(len(bases))
		cr.CF |= flagNoSeq

	case len(bases) == 0:
		// Mapped record with sequence "*": nothing to diff, but the
		// CIGAR walk still yields the alignment end and the query length
		// the late length fix-up relies on.
		cr.APos = int32(rec.Pos) + 1
		cr.AEnd = cr.APos + int32(rec.Cigar.RefLen()) - 1
		for _, op := range rec.Cigar {
			spos += int32(op.Len() * op.Type().Consumes().Query)
		}

	case ref == nil:
		// Mapped but no reference available (no-ref mode): bases go
		// through per-base features rather than reference diffs.
		cr.APos = int32(rec.Pos) + 1
		cr.AEnd = cr.APos + int32(rec.Cigar.RefLen()) - 1
		if s.opts.Version.atLeast(3) {
			data := append([]byte(nil), bases...)
			s.addFeature(cr, Feature{Code: FeatureBaseRun, Pos: 1, Len: int32(len(data)), Data: data})
		} else {
			for i, b := range bases {
				q := byte(0xff)
				if i < len(rec.Qual) {
					q = rec.Qual[i]
				}
				s.addFeature(cr, Feature{Code: FeatureBaseQual, Pos: int32(i) + 1, Base: b, Qual: q})
			}
		}
		spos = int32(len(bases))

	default:
		cr.APos = int32(rec.Pos) + 1 // 1-based
		apos := cr.APos
		rpos := int32(0) // 0-based offset into ref, relative to rec.Pos
		var aend int32 = cr.APos - 1

		for _, op := range rec.Cigar {
			n := int32(op.Len())
			switch op.Type() {
			case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
				if int(spos+n) > len(bases) {
					return nil, fmt.Errorf("cram: CIGAR consumes %d query bases, sequence has %d", spos+n, len(bases))
				}
				for i := int32(0); i < n; i++ {
					sb := bases[spos+i]
					var rb byte
					if ri := int(rec.Pos) + int(rpos+i); ri >= 0 && ri < len(ref) {
						rb = ref[ri]
					}
					if rb != 0 && sb != rb {
						idx := s.subMatrix.rowIndex(rb, sb)
						s.addFeature(cr, Feature{Code: FeatureSubstitution, Pos: spos + i + 1, Base: idx})
					}
				}
				spos += n
				rpos += n
				aend = apos + rpos - 1
			case sam.CigarInsertion:
				if int(spos+n) > len(bases) {
					return nil, fmt.Errorf("cram: CIGAR consumes %d query bases, sequence has %d", spos+n, len(bases))
				}
				data := append([]byte(nil), bases[spos:spos+n]...)
				if n == 1 {
					s.addFeature(cr, Feature{Code: FeatureInsertBase, Pos: spos + 1, Base: data[0]})
				} else {
					s.addFeature(cr, Feature{Code: FeatureInsertion, Pos: spos + 1, Len: n, Data: data})
				}
				spos += n
			case sam.CigarDeletion:
				s.addFeature(cr, Feature{Code: FeatureDeletion, Pos: spos + 1, Len: n})
				rpos += n
				aend = apos + rpos - 1
			case sam.CigarSoftClipped:
				if int(spos+n) > len(bases) {
					return nil, fmt.Errorf("cram: CIGAR consumes %d query bases, sequence has %d", spos+n, len(bases))
				}
				data := append([]byte(nil), bases[spos:spos+n]...)
				s.addFeature(cr, Feature{Code: FeatureSoftClip, Pos: spos + 1, Len: n, Data: data})
				spos += n
			case sam.CigarHardClipped:
				s.addFeature(cr, Feature{Code: FeatureHardClip, Pos: spos + 1, Len: n})
			case sam.CigarPadded:
				s.addFeature(cr, Feature{Code: FeaturePadding, Pos: spos + 1, Len: n})
			case sam.CigarSkip:
				s.addFeature(cr, Feature{Code: FeatureRefSkip, Pos: spos + 1, Len: n})
				rpos += n
				aend = apos + rpos - 1
			default:
				return nil, fmt.Errorf("cram: unsupported cigar op %v", op.Type())
			}
		}
		cr.AEnd = aend
	}
	cr.NFeature = len(s.features.items) - cr.FeatureStart

	// The read length is fixed up only after the CIGAR walk: a record may
	// arrive with no sequence bytes ("*") yet a query-consuming CIGAR, in
	// which case the walk-observed consumption stands in for the length.
	// RL stats are added after this fix-up; no earlier stats add keys off
	// the length.
	cr.Len = int32(len(bases))
	if cr.Len == 0 && spos > 0 {
		cr.Len = spos
	}

	// Quality preservation.
	if len(rec.Qual) > 0 {
		cr.CF |= flagPreserveQual
		q := applyBinning(rec.Qual, s.opts.Binning)
		if !unmapped && s.opts.Version.atLeast(4) && rec.Flags&sam.Reverse != 0 {
			q = reverseQual(q)
		}
		cr.QualOffset = len(s.quality)
		cr.QualLen = len(q)
		s.quality = append(s.quality, q...)
		if !s.opts.IgnoreChecksum {
			s.sdCRC.Write(q)
		}
	}

	cr.NameOffset = len(s.names)
	cr.NameLen = len(rec.Name)
	s.names = append(s.names, rec.Name...)

	s.stats[SeriesRL].add(cr.Len)
	s.stats[SeriesBF].add(int32(cramFlagSwap(cr.Flags)))
	s.stats[SeriesRG].add(cr.RG)
	s.stats[SeriesRI].add(cr.RefID)
	s.stats[SeriesAP].add(s.apStatValue(cr))
	if cr.APos > s.maxAPos {
		s.maxAPos = cr.APos
	}
	if !cr.CF.has(flagNoSeq) {
		s.stats[SeriesFN].add(int32(cr.NFeature))
		s.stats[SeriesMQ].add(int32(cr.MapQual))
	}
	s.stats[SeriesTL].add(cr.TL)

	// Mate resolution (and with it the CF and mate-field stats) waits
	// for finalize: linkability depends on DISCARD_NAME, which the name
	// eliminator can only decide once the whole slice is present.

	return cr, nil
}

// apStatValue returns the value the AP series records for cr: the delta
// from the previous record's position while the slice remains
// position-sorted, the absolute position otherwise. The first record of a
// slice always contributes delta 0 (the slice's reference start is the
// implied predecessor).
func (s *sliceAssembler) apStatValue(cr *Record) int32 {
	if !s.posSorted {
		return cr.APos
	}
	if len(s.records) == 0 {
		return 0
	}
	return cr.APos - s.lastPos
}

func (s *sliceAssembler) addFeature(cr *Record, f Feature) {
	idx := s.features.add(f)
	if len(s.features.items)-cr.FeatureStart == 1 {
		s.stats[SeriesFP].add(f.Pos)
	} else {
		prev := s.features.items[idx-1]
		s.stats[SeriesFP].add(f.Pos - prev.Pos)
	}
	s.stats[SeriesFC].add(int32(f.Code))
	if f.Code == FeatureSubstitution {
		s.stats[SeriesBS].add(int32(f.Base))
	}
}
