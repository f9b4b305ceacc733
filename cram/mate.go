package cram

import (
	"github.com/Schaudge/cram/sam"
)

// pairKey identifies a record's mate-table slot: read name plus the
// secondary-alignment bit, so a secondary alignment never captures the
// primary's mate slot.
type pairKey struct {
	name      string
	secondary bool
}

// resolveMates walks the slice's records in order and resolves mate
// linkage for each. It runs after the name eliminator, so linkability
// can see each record's final DISCARD_NAME status, and it accounts the
// mate-field and CF statistics as it goes. Records left DETACHED at the
// end keep their names regardless of what the eliminator decided: a
// detached record has no resolvable mate to recover the name from.
func (s *sliceAssembler) resolveMates() {
	for _, cr := range s.records {
		s.prelinkMate(cr)
	}
	for _, cr := range s.records {
		if cr.CF.has(flagDetached) {
			cr.CF &^= flagDiscardName
		}
	}
}

// prelinkMate resolves one record's mate linkage. Unpaired records, and
// paired records whose mate has not yet been seen, are marked DETACHED
// and their mate fields histogrammed. When the mate is already present
// and the pair passes the linkable check, the earlier record is demoted
// from DETACHED to MATE_DOWNSTREAM: its mate stats are retracted, and
// its NF value (the number of records strictly between the two)
// recorded instead.
func (s *sliceAssembler) prelinkMate(cr *Record) {
	if cr.Flags&uint16(sam.Paired) == 0 || cr.Flags&uint16(sam.Supplementary) != 0 {
		cr.CF |= flagDetached
		s.addMateStats(cr)
		cr.CF |= flagStatsAdded
		s.stats[SeriesCF].add(cr.CF.wire())
		return
	}

	key := pairKey{name: cr.name, secondary: cr.Flags&uint16(sam.Secondary) != 0}
	prior, ok := s.pairTable[key]
	if !ok {
		cr.CF |= flagDetached
		s.addMateStats(cr)
		cr.CF |= flagStatsAdded
		s.stats[SeriesCF].add(cr.CF.wire())
		s.pairTable[key] = cr
		return
	}

	if s.linkable(prior, cr) {
		s.delMateStats(prior)
		s.stats[SeriesCF].del(prior.CF.wire())
		prior.CF &^= flagDetached
		prior.CF |= flagMateDownstream
		prior.MateLine = int32(cr.index - prior.index - 1)
		s.stats[SeriesNF].add(prior.MateLine)
		s.stats[SeriesCF].add(prior.CF.wire())
		// The target record carries no mate bookkeeping of its own; a
		// decoder reaches it through the first record's NF pointer.
		s.stats[SeriesCF].add(cr.CF.wire())
		delete(s.pairTable, key)
		return
	}

	// Not linkable: this record becomes its own detached entry too.
	cr.CF |= flagDetached
	s.addMateStats(cr)
	cr.CF |= flagStatsAdded
	s.stats[SeriesCF].add(cr.CF.wire())
}

func (s *sliceAssembler) addMateStats(cr *Record) {
	s.stats[SeriesNP].add(cr.MatePos)
	s.stats[SeriesMF].add(int32(cr.MateFlags))
	s.stats[SeriesTS].add(cr.TLen)
	s.stats[SeriesNS].add(cr.MateRefID)
}

func (s *sliceAssembler) delMateStats(cr *Record) {
	s.stats[SeriesNP].del(cr.MatePos)
	s.stats[SeriesMF].del(int32(cr.MateFlags))
	s.stats[SeriesTS].del(cr.TLen)
	s.stats[SeriesNS].del(cr.MateRefID)
}

// linkable reports whether the prior record p and the current record c
// form a resolvable pair: same reference, mutually consistent positions
// and template length, each record's mate-status bits matching the
// counterpart's own flags, neither supplementary, and -- in lossy-name
// mode -- both already name-discardable. MatePos is held zero-based
// while APos is one-based, hence the +1 on both sides.
func (s *sliceAssembler) linkable(p, c *Record) bool {
	if p.RefID != c.RefID {
		return false
	}
	if c.MatePos+1 != p.APos || p.MatePos+1 != c.APos {
		return false
	}

	var sign int32 = -1
	if c.APos < p.APos {
		sign = 1
	} else if c.APos == p.APos {
		if c.Flags&uint16(sam.Read1) != 0 {
			sign = 1
		} else {
			sign = -1
		}
	}
	hi, lo := c.AEnd, p.APos
	if p.AEnd > hi {
		hi = p.AEnd
	}
	if c.APos < lo {
		lo = c.APos
	}
	wantTLen := sign * (hi - lo + 1)
	if c.TLen != wantTLen || p.TLen != -c.TLen {
		return false
	}

	cMateUnmapped := c.MateFlags&uint16(sam.Unmapped) != 0
	pUnmapped := p.Flags&uint16(sam.Unmapped) != 0
	if cMateUnmapped != pUnmapped {
		return false
	}
	cMateReverse := c.MateFlags&uint16(sam.Reverse) != 0
	pReverse := p.Flags&uint16(sam.Reverse) != 0
	if cMateReverse != pReverse {
		return false
	}
	pMateUnmapped := p.MateFlags&uint16(sam.Unmapped) != 0
	cUnmapped := c.Flags&uint16(sam.Unmapped) != 0
	if pMateUnmapped != cUnmapped {
		return false
	}
	pMateReverse := p.MateFlags&uint16(sam.Reverse) != 0
	cReverse := c.Flags&uint16(sam.Reverse) != 0
	if pMateReverse != cReverse {
		return false
	}

	if c.Flags&uint16(sam.Supplementary) != 0 || p.Flags&uint16(sam.Supplementary) != 0 {
		return false
	}

	// Lossy-name mode: a linked pair's shared name is regenerated from
	// the mate linkage at decode time, so linking is only safe when the
	// name eliminator has already marked both records discardable. An
	// incomplete template (wrong occurrence count, non-uniform
	// expectation, SA tag) keeps its names and stays detached.
	if s.opts.LossyReadNames && (!p.CF.has(flagDiscardName) || !c.CF.has(flagDiscardName)) {
		return false
	}

	return true
}
