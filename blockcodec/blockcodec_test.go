package blockcodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(s string, n int) []byte {
	return bytes.Repeat([]byte(s), n)
}

func TestCompressRoundTripGzip(t *testing.T) {
	data := repeat("ACGTACGTACGT", 200)
	method, out := Compress(data, 1<<MethodGzip|1<<MethodRaw, 6)
	assert.Equal(t, MethodGzip, method)
	assert.Less(t, len(out), len(data))

	got, err := Decompress(method, out)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCompressRoundTripBzip2(t *testing.T) {
	data := repeat("QQQQIIIIJJJJ", 400)
	method, out := Compress(data, 1<<MethodBzip2|1<<MethodRaw, 6)
	if method == MethodBzip2 {
		got, err := Decompress(method, out)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestCompressFallsBackToRawForIncompressible(t *testing.T) {
	data := []byte{1, 2, 3}
	method, out := Compress(data, MaskAll, 6)
	assert.Equal(t, MethodRaw, method)
	assert.Equal(t, data, out)
}

func TestCompressUnmaskedMethodIgnored(t *testing.T) {
	data := repeat("AAAA", 100)
	method, _ := Compress(data, 1<<MethodRaw, 6)
	assert.Equal(t, MethodRaw, method)
}

func TestDecompressUnsupportedMethod(t *testing.T) {
	_, err := Decompress(MethodLZMA, []byte{1, 2, 3})
	assert.Error(t, err)
}
