package ast

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// hashLeafStructural fingerprints a leaf by kind alone, so whitespace and
// the text of a leaf never affect structural identity. Comment nodes are
// hashed like any other child, so adding or removing a comment changes
// the structural hash of its ancestors.
func hashLeafStructural(kind string) Hash {
	h := blake3.New(32, nil)
	h.Write([]byte("leaf:"))
	h.Write([]byte(kind))
	return toHash(h.Sum(nil))
}

// hashLeafContent fingerprints a leaf by kind and bytes, so two leaves hash
// equally only when byte-identical (content hash, spec §4.2).
func hashLeafContent(kind string, content []byte) Hash {
	h := blake3.New(32, nil)
	h.Write([]byte("leaf:"))
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(content)
	return toHash(h.Sum(nil))
}

// hashCombine folds a node kind and the hashes of its children into one
// fingerprint, recursively deriving subtree identity from the bottom up.
func hashCombine(kind string, children []Hash) Hash {
	h := blake3.New(32, nil)
	h.Write([]byte(kind))
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(children)))
	h.Write(lenBuf[:])
	for _, c := range children {
		h.Write(c[:])
	}
	return toHash(h.Sum(nil))
}

func toHash(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}
