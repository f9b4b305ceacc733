// Package blockcodec implements per-block external compression: given a
// method mask and a compression level, it picks the best available codec
// for a block's raw bytes and returns the chosen method id alongside the
// compressed bytes.
//
// Only the GZIP and BZIP2 method families are implemented here. rANS,
// LZMA, BSC, FQZComp and the name tokenizer are not: a block requesting
// one of those methods falls back to RAW, which an encoder may always
// legally emit.
package blockcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Method identifies a CRAM external block compression method.
type Method byte

const (
	MethodRaw Method = iota
	MethodGzip
	MethodBzip2
	MethodLZMA
	MethodRans4x8
	MethodRansNx16
	MethodArith
	MethodFQZComp
	MethodTok3
)

// Mask is a bitmask of permitted Methods, indexed by Method value.
type Mask uint16

// MaskAll permits every method this package knows how to produce
// (Raw, Gzip, Bzip2); requests for other bits are accepted but ignored
// since this package cannot satisfy them.
const MaskAll Mask = 1<<MethodRaw | 1<<MethodGzip | 1<<MethodBzip2

func (m Mask) allows(meth Method) bool { return m&(1<<meth) != 0 }

// Compress chooses the smallest encoding of data permitted by mask,
// trying each allowed method this package supports and keeping the
// shortest result. It always considers MethodRaw so encoding never fails.
func Compress(data []byte, mask Mask, level int) (Method, []byte) {
	bestMethod := MethodRaw
	best := data

	if mask.allows(MethodGzip) {
		if out, err := gzipCompress(data, level); err == nil && len(out) < len(best) {
			bestMethod, best = MethodGzip, out
		}
	}
	if mask.allows(MethodBzip2) {
		if out, err := bzip2Compress(data, level); err == nil && len(out) < len(best) {
			bestMethod, best = MethodBzip2, out
		}
	}
	return bestMethod, best
}

// Decompress reverses Compress for the methods this package supports.
func Decompress(method Method, data []byte) ([]byte, error) {
	switch method {
	case MethodRaw:
		return data, nil
	case MethodGzip:
		return gzipDecompress(data)
	case MethodBzip2:
		return bzip2Decompress(data)
	default:
		return nil, fmt.Errorf("blockcodec: method %d not supported", method)
	}
}

func gzipCompress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func bzip2Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	if level <= 0 || level > 9 {
		level = 6
	}
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bzip2Decompress(data []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
