// Package fingerprint combines a child's termination status with digested,
// filter-normalized stdout/stderr into an opaque, value-comparable output
// key.
//
// Grounded on original_source/proc.c's use of GChecksum/G_CHECKSUM_MD5 to
// digest each stream independently before joining them with the exit
// status into the final comparison string.
package fingerprint

import (
	"crypto/md5"

	"limitfuzz/spawn"
)

// OutputKey is a fixed-size, comparable byte tuple: the termination kind
// and code, followed by the two stream digests. Implemented as a struct
// of fixed-size fields rather than a hex string (the spec explicitly
// permits this) to keep comparison and set-membership allocation-free.
type OutputKey struct {
	TermKind  byte
	TermCode  int32
	OutDigest [16]byte
	ErrDigest [16]byte
}

// Digest computes the MD5 digest of b. MD5 is used because it is exactly
// what the original implementation uses (GChecksum/G_CHECKSUM_MD5); any
// cryptographic 128-bit digest satisfies the collision requirement.
func Digest(b []byte) [16]byte {
	return md5.Sum(b)
}

// Key builds the OutputKey for a termination descriptor and the two
// stream digests computed over filtered output.
func Key(term spawn.TerminationInfo, outDigest, errDigest [16]byte) OutputKey {
	return OutputKey{
		TermKind:  byte(term.Kind),
		TermCode:  int32(term.Code),
		OutDigest: outDigest,
		ErrDigest: errDigest,
	}
}
