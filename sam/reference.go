// Copyright ©2012-2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

// Reference represents an entry in a SAM/BAM header's sequence
// dictionary (@SQ lines).
type Reference struct {
	id     int
	name   string
	length int
	md5    string
}

// NewReference returns a Reference with the given name, length and MD5
// digest (md5 may be empty if unknown).
func NewReference(name, md5 string, length int) *Reference {
	return &Reference{id: -1, name: name, length: length, md5: md5}
}

// ID returns the zero-based index of the reference in its Header, or -1
// if the Reference is not attached to a Header.
func (r *Reference) ID() int {
	if r == nil {
		return -1
	}
	return r.id
}

// Name returns the reference name, or "*" if r is nil.
func (r *Reference) Name() string {
	if r == nil {
		return "*"
	}
	return r.name
}

// Len returns the reference length.
func (r *Reference) Len() int {
	if r == nil {
		return 0
	}
	return r.length
}

// MD5 returns the reference's MD5 digest string, if known.
func (r *Reference) MD5() string {
	if r == nil {
		return ""
	}
	return r.md5
}
