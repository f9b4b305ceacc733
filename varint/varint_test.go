package varint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestITF8RoundTrip(t *testing.T) {
	vals := []int32{0, 1, 63, 127, 128, 8191, 16383, 16384,
		1<<21 - 1, 1 << 21, 1<<28 - 1, 1 << 28, -1, -128, 1<<31 - 1, -(1 << 31)}
	for _, v := range vals {
		buf := PutITF8(nil, v)
		assert.Equal(t, SizeITF8(v), len(buf))
		got, n, err := GetITF8(buf)
		assert.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestITF8Truncated(t *testing.T) {
	buf := PutITF8(nil, 1<<20)
	_, _, err := GetITF8(buf[:1])
	assert.Error(t, err)
}

func TestITF8Empty(t *testing.T) {
	_, _, err := GetITF8(nil)
	assert.Error(t, err)
}

func TestLTF8Sizes(t *testing.T) {
	cases := []struct {
		v    int64
		size int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{1 << 20, 3},
		{1 << 27, 4},
		{1 << 34, 5},
		{1 << 41, 6},
		{1 << 48, 7},
		{1 << 55, 8},
		{1 << 60, 9},
		{-1, 9},
	}
	for _, c := range cases {
		buf := PutLTF8(nil, c.v)
		assert.Equal(t, c.size, len(buf), "v=%d", c.v)
	}
}
