// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package blockindex implements binary search over the sorted, fixed-
// stride block index, and the per-block delta-coded key walk used to
// locate an entry's position within its block.
package blockindex

import (
	"github.com/dwarfidea/dwarfidea/internal/varint"
)

// Result describes where a mapped key falls in the block index.
type Result struct {
	BlockIndex     int
	BlockOffsetPos int64
	IndexKey       uint64
	ExactMatch     bool
}

// Search finds the largest index entry whose key is <= mappedKey, using
// unsigned big-endian key comparison. buf[indexOffset:] holds indexSize
// entries of (keySize bytes, u32 block offset), sorted ascending. It
// reports found=false if every index key is greater than mappedKey.
func Search(buf []byte, indexOffset int64, indexSize, keySize int, mappedKey uint64, keyAt func(buf []byte, pos int64, keySize int) uint64) (Result, bool) {
	if indexSize == 0 {
		return Result{}, false
	}
	stride := int64(keySize + 4)
	low, high := 0, indexSize-1
	carry := 0

	for low < high {
		mid := (low + high + carry) / 2
		cur := keyAt(buf, indexOffset+int64(mid)*stride, keySize)
		switch {
		case cur > mappedKey:
			high = mid - 1
		case cur < mappedKey:
			low = mid
			if low+1 == high {
				carry = 1
			}
		default:
			low, high = mid, mid
		}
	}

	if high < 0 || low >= indexSize {
		return Result{}, false
	}

	pos := indexOffset + int64(low)*stride
	key := keyAt(buf, pos, keySize)
	if key > mappedKey {
		return Result{}, false
	}
	return Result{
		BlockIndex:     low,
		BlockOffsetPos: pos + int64(keySize),
		IndexKey:       key,
		ExactMatch:     key == mappedKey,
	}, true
}

// WalkKeys decodes delta-coded keys out of a block's decoded keys buffer,
// starting from indexKey (the block's intra-block index 0), and returns
// the intra-block index of mappedKey, or -1 if the block doesn't contain
// it (a decoded key exceeds mappedKey, or the buffer runs out first).
func WalkKeys(encodedKeys []byte, indexKey, mappedKey uint64) int {
	prev := indexKey
	offset := 0
	for curIndex := 1; offset < len(encodedKeys); curIndex++ {
		delta, next, err := varint.ReadFrom(encodedKeys, offset)
		if err != nil {
			return -1
		}
		offset = next
		cur := prev + delta
		switch {
		case cur == mappedKey:
			return curIndex
		case cur > mappedKey:
			return -1
		}
		prev = cur
	}
	return -1
}
