// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dwarfidea

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempDB(t *testing.T, buf []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dwarfidea")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestOpenRejectsBadSignature(t *testing.T) {
	buf := append([]byte("Dwarfidea"), make([]byte, 32)...)
	path := writeTempDB(t, buf)
	_, err := Open(path, 16, 16)
	require.ErrorIs(t, err, ErrFileFormat)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.dwarfidea"), 16, 16)
	require.Error(t, err)
}

func TestOpenExposesMaxDistError(t *testing.T) {
	buf := buildMinimalFile(4, 0)
	path := writeTempDB(t, buf)

	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	defer db.Close()

	require.Equal(t, float32(50.0), db.MaxDistError())
}

func TestLookupMissOnEmptyIndex(t *testing.T) {
	buf := buildMinimalFile(4, 0)
	path := writeTempDB(t, buf)

	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	defer db.Close()

	// The all-zero key equals buildMinimalFile's all-zero last_key, so the
	// lookup gets past the last_key filter and misses in the empty index.
	res, err := db.Lookup([]byte{0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestLookupMissAboveLastKey(t *testing.T) {
	// last_key defaults to all-zero bytes in buildMinimalFile, so any
	// nonzero key exceeds it and short-circuits before the index search.
	buf := buildMinimalFile(4, 0)
	path := writeTempDB(t, buf)

	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	defer db.Close()

	res, err := db.Lookup([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestLookupIsNegativelyCached(t *testing.T) {
	buf := buildMinimalFile(4, 0)
	path := writeTempDB(t, buf)

	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	defer db.Close()

	key := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	first, err := db.Lookup(key)
	require.NoError(t, err)
	require.Nil(t, first)

	cached, found := db.resultCache.Get(string(key))
	require.True(t, found)
	require.Nil(t, cached)

	second, err := db.Lookup(key)
	require.NoError(t, err)
	require.Nil(t, second)
}

func TestLookupRejectsUnmappableKey(t *testing.T) {
	// key_map present (key_size=6), but the raw key's prefix isn't in it.
	var buf []byte
	buf = append(buf, signature...)
	buf = appendU16(buf, fileFormatVersion)
	buf = appendU16(buf, 6)
	buf = appendU16(buf, 0)
	buf = appendU32(buf, 0)
	buf = appendU32(buf, 0)
	buf = appendU16(buf, 1)
	buf = appendU16(buf, 8)
	buf = appendU16(buf, 8)
	buf = appendF32(buf, 50.0)
	buf = appendU16(buf, 1)
	buf = appendU32(buf, 0x00F10001)
	buf = append(buf, make([]byte, 4)...) // last_key, effective size 4
	buf = appendU32(buf, uint32(len(identityRLETable)))
	buf = append(buf, identityRLETable...)
	buf = appendU32(buf, uint32(len(identityRLETable)))
	buf = append(buf, identityRLETable...)

	path := writeTempDB(t, buf)
	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	defer db.Close()

	res, err := db.Lookup([]byte{0x00, 0xF9, 0x00, 0x09, 0xAA, 0xBB})
	require.NoError(t, err)
	require.Nil(t, res)
}

// TestLookupDecodesRealBlockExactAndWalk builds a genuine one-block file
// by hand -- a non-empty block index plus real keys/coords segments run
// through blockdecode.Decompress's full transform pipeline (InverseSBRT,
// InverseBWTS) -- and exercises both ways Lookup can resolve a key: an
// exact index hit (blockKeyIndex 0, no key walk needed) and a block-walk
// hit (blockKeyIndex 1, resolved via the block's delta-coded keys
// segment). The segments themselves set IgnoreFSE so the raw bytes below
// are the segment payload directly; internal/fse/decode_test.go covers
// Decompress's FSE path in isolation.
//
// The block holds two entries. Their coords segment, once inverse-SBRT'd
// and inverse-BWTS'd from the raw payload below, packs a bounding box
// covering the whole globe (boundingBoxBits=1) with entry 0 at its
// northwest corner and entry 1 at its southeast corner -- chosen because
// a single-bit-per-axis box is the smallest one whose two corners land on
// values easy to verify by hand.
func TestLookupDecodesRealBlockExactAndWalk(t *testing.T) {
	var buf []byte
	buf = append(buf, signature...)
	buf = appendU16(buf, fileFormatVersion)
	buf = appendU16(buf, 4) // key_size
	buf = appendU16(buf, 0) // extra_data_size
	buf = appendU32(buf, 2) // num_entries
	buf = appendU32(buf, 1) // index_size
	buf = appendU16(buf, 2) // min_entries_per_block
	buf = appendU16(buf, 2) // max_entries_per_block
	buf = appendU16(buf, 1) // bounding_box_bits
	buf = appendF32(buf, 50.0)
	buf = appendU16(buf, 0)                              // key_map_size
	buf = append(buf, []byte{0x00, 0x00, 0x00, 0x17}...) // last_key
	buf = appendU32(buf, uint32(len(identityRLETable)))
	buf = append(buf, identityRLETable...)
	buf = appendU32(buf, uint32(len(identityRLETable)))
	buf = append(buf, identityRLETable...)

	// Block index: one entry, index_key=0x10, pointing at the block below.
	buf = append(buf, []byte{0x00, 0x00, 0x00, 0x10}...)

	// keys segment: header varint 0x07 (RawLen=1, IgnoreZRLT, IgnoreFSE),
	// raw payload [0x07] -- a single byte is an identity transform under
	// both InverseSBRT and InverseBWTS, so the decoded keys buffer is
	// [0x07] too: one varint-coded delta of 7 from the block's index_key
	// (0x10), landing the walk's second entry on 0x17.
	//
	// coords segment: header varint 0x0F (RawLen=3, IgnoreZRLT,
	// IgnoreFSE), raw payload [0x80, 0x85, 0x32]. Run by hand through
	// InverseSBRT then InverseBWTS this decodes to [0x30, 0x85, 0x80],
	// which DecodeCoords reads as: lat_min_idx=0, lon_min_idx=0,
	// lat_max_idx=1, lon_max_idx=1, lat_bits=1, lon_bits=1, then two
	// packed (lat_idx, lon_idx) entries -- (1,0) for entry 0 and (0,1)
	// for entry 1 -- which resolve against the boundingBoxBits=1 grid
	// (steps of 180 degrees latitude, 360 longitude) to (90, -180) and
	// (-90, 180) respectively.
	block := []byte{0x07, 0x07, 0x0F, 0x80, 0x85, 0x32}
	blockOffset := uint32(len(buf) + 4) // the block starts right after this u32 field
	buf = appendU32(buf, blockOffset)
	buf = append(buf, block...)

	path := writeTempDB(t, buf)
	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	defer db.Close()

	exact, err := db.Lookup([]byte{0x00, 0x00, 0x00, 0x10})
	require.NoError(t, err)
	require.NotNil(t, exact)
	require.Equal(t, Coords{Lat: 90, Lon: -180}, exact.Coords)

	walked, err := db.Lookup([]byte{0x00, 0x00, 0x00, 0x17})
	require.NoError(t, err)
	require.NotNil(t, walked)
	require.Equal(t, Coords{Lat: -90, Lon: 180}, walked.Coords)
}

func TestCloseIsIdempotent(t *testing.T) {
	buf := buildMinimalFile(4, 0)
	path := writeTempDB(t, buf)

	db, err := Open(path, 16, 16)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
}
