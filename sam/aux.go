// Copyright ©2012-2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AuxChar wraps a single printable character for use as an 'A'-typed aux
// value, distinguishing it from a plain uint8 ('C'-typed) value.
type AuxChar byte

// Tag is the two-character key of a SAM/BAM auxiliary field.
type Tag [2]byte

func (t Tag) String() string { return string(t[:]) }

// Aux represents a SAM/BAM auxiliary tag field: a tag, a one-byte type
// code, and the type's value encoding. Layout mirrors the wire format:
// byte 0-1 tag, byte 2 type, remaining bytes value.
type Aux []byte

// NewAux builds an Aux field from a tag and a Go value. Supported value
// types are int8/uint8/int16/uint16/int32/uint32/int/float32/string/[]byte
// and []int32 (type 'B','i').
func NewAux(t Tag, v interface{}) (Aux, error) {
	a := Aux{t[0], t[1], 0}
	switch val := v.(type) {
	case AuxChar:
		a[2] = 'A'
		a = append(a, byte(val))
	case int8:
		a[2] = 'c'
		a = append(a, byte(val))
	case uint8:
		a[2] = 'C'
		a = append(a, val)
	case int16:
		a[2] = 's'
		a = appendUint16(a, uint16(val))
	case uint16:
		a[2] = 'S'
		a = appendUint16(a, val)
	case int32:
		a[2] = 'i'
		a = appendUint32(a, uint32(val))
	case uint32:
		a[2] = 'I'
		a = appendUint32(a, val)
	case int:
		a[2] = 'i'
		a = appendUint32(a, uint32(int32(val)))
	case float32:
		a[2] = 'f'
		a = appendUint32(a, math.Float32bits(val))
	case string:
		a[2] = 'Z'
		a = append(a, val...)
	case []byte:
		a[2] = 'H'
		a = append(a, val...)
	case []int32:
		a[2] = 'B'
		a = append(a, 'i')
		a = appendUint32(a, uint32(len(val)))
		for _, x := range val {
			a = appendUint32(a, uint32(x))
		}
	default:
		return nil, fmt.Errorf("sam: unsupported aux value type %T", v)
	}
	return a, nil
}

func appendUint16(a Aux, v uint16) Aux {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(a, b[:]...)
}

func appendUint32(a Aux, v uint32) Aux {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(a, b[:]...)
}

// Tag returns the tag of the aux field.
func (a Aux) Tag() Tag { return Tag{a[0], a[1]} }

// Type returns the SAM type character of the aux field ('A','c','C','s',
// 'S','i','I','f','Z','H','B').
func (a Aux) Type() byte { return a[2] }

func (a Aux) matches(tag []byte) bool {
	return a[0] == tag[0] && a[1] == tag[1]
}

// Value returns the aux field's value as a Go value.
func (a Aux) Value() interface{} {
	switch a.Type() {
	case 'A':
		return a[3]
	case 'c':
		return int8(a[3])
	case 'C':
		return a[3]
	case 's':
		return int16(binary.LittleEndian.Uint16(a[3:5]))
	case 'S':
		return binary.LittleEndian.Uint16(a[3:5])
	case 'i':
		return int32(binary.LittleEndian.Uint32(a[3:7]))
	case 'I':
		return binary.LittleEndian.Uint32(a[3:7])
	case 'f':
		return math.Float32frombits(binary.LittleEndian.Uint32(a[3:7]))
	case 'Z':
		return string(a[3:])
	case 'H':
		return []byte(a[3:])
	case 'B':
		return []byte(a[3:])
	default:
		return nil
	}
}

func (a Aux) String() string {
	return fmt.Sprintf("%s:%c:%v", a.Tag(), a.Type(), a.Value())
}

func samAux(a Aux) string { return a.String() }

// AuxFields is a collection of auxiliary tag fields attached to a Record.
type AuxFields []Aux

// GetUnique returns the single Aux field matching tag. It returns
// (nil, nil) if the tag is absent and an error if the tag occurs more
// than once.
func (af AuxFields) GetUnique(tag Tag) (Aux, error) {
	var found Aux
	for _, a := range af {
		if a.matches(tag[:]) {
			if found != nil {
				return nil, fmt.Errorf("sam: tag %s present more than once", tag)
			}
			found = a
		}
	}
	return found, nil
}

// ParseAux parses a single SAM text-format aux field, such as "NM:i:3".
func ParseAux(b []byte) (Aux, error) {
	if len(b) < 5 || b[2] != ':' || b[4] != ':' {
		return nil, fmt.Errorf("sam: invalid aux field %q", b)
	}
	t := Tag{b[0], b[1]}
	typ := b[3]
	val := b[5:]
	switch typ {
	case 'A':
		if len(val) != 1 {
			return nil, fmt.Errorf("sam: invalid A aux value %q", val)
		}
		return NewAux(t, AuxChar(val[0]))
	case 'i':
		var n int64
		var neg bool
		i := 0
		if len(val) > 0 && val[0] == '-' {
			neg = true
			i = 1
		}
		for ; i < len(val); i++ {
			if val[i] < '0' || val[i] > '9' {
				return nil, fmt.Errorf("sam: invalid integer aux value %q", val)
			}
			n = n*10 + int64(val[i]-'0')
		}
		if neg {
			n = -n
		}
		return NewAux(t, int32(n))
	case 'f':
		var f float64
		_, err := fmt.Sscanf(string(val), "%g", &f)
		if err != nil {
			return nil, err
		}
		return NewAux(t, float32(f))
	case 'Z':
		return NewAux(t, string(val))
	case 'H':
		return NewAux(t, []byte(val))
	default:
		return nil, fmt.Errorf("sam: unsupported aux type %q", typ)
	}
}
