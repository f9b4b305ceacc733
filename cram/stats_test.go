package cram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseEncodingHuffmanSmallAlphabet(t *testing.T) {
	s := newSeriesStats()
	for i := 0; i < 100; i++ {
		s.add(0)
	}
	s.add(1)
	assert.Equal(t, EncodingHuffman, s.chooseEncoding())
}

func TestChooseEncodingBetaDenseRange(t *testing.T) {
	s := newSeriesStats()
	for v := int32(0); v < 200; v++ {
		s.add(v)
	}
	assert.Equal(t, EncodingBeta, s.chooseEncoding())
}

func TestChooseEncodingGammaSkewedWideRange(t *testing.T) {
	s := newSeriesStats()
	// Mass hugs the minimum of a range too wide for Beta.
	for v := int32(0); v < 30; v++ {
		s.hist[v] = 10000
		s.n += 10000
	}
	s.hist[1<<21] = 1
	s.n++
	assert.Equal(t, EncodingGamma, s.chooseEncoding())
}

func TestChooseEncodingSubexpMildSkew(t *testing.T) {
	s := newSeriesStats()
	// Wide non-negative range, mean well above the minimum, but far
	// fewer distinct values than the span could hold.
	for i := int32(0); i < 21; i++ {
		s.hist[i*100000] = 50
		s.n += 50
	}
	assert.Equal(t, EncodingSubexp, s.chooseEncoding())
}

func TestChooseEncodingExternalSignedWideRange(t *testing.T) {
	s := newSeriesStats()
	for i := int32(0); i < 21; i++ {
		s.hist[(i-10)*200000] = 50
		s.n += 50
	}
	assert.Equal(t, EncodingExternal, s.chooseEncoding())
}

func TestStatsAddDel(t *testing.T) {
	s := newSeriesStats()
	s.add(5)
	s.add(5)
	s.add(7)
	assert.Equal(t, 2, s.nvals())
	assert.Equal(t, 2, s.freq(5))

	s.del(5)
	s.del(7)
	assert.Equal(t, 1, s.nvals())
	assert.Equal(t, 0, s.freq(7))
}
