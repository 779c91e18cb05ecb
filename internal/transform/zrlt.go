// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package transform implements the reversible byte-reordering stages of
// the block decode pipeline: zero-run-length expansion, rank (move-to-
// front) decoding, and bijective-BWT inversion. Each file exposes only
// the inverse direction a reader needs, plus a forward pass kept in its
// test file to exercise the round trip.
package transform

import (
	"fmt"

	"github.com/dwarfidea/dwarfidea/internal/varint"
)

// InverseZRLT expands a zero-run-length-encoded buffer. Runs of zero
// bytes are coded as a single 0x00 escape followed by a varint run
// length; any other byte is a literal, copied through unchanged. The
// expanded length isn't known ahead of decoding, so maxLen just bounds
// runaway growth from a corrupt stream.
func InverseZRLT(src []byte, maxLen int) ([]byte, error) {
	dst := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		b := src[i]
		if b != 0 {
			dst = append(dst, b)
			i++
			continue
		}
		i++
		runLen, next, err := varint.ReadFrom(src, i)
		if err != nil {
			return nil, fmt.Errorf("transform: zrlt run length: %w", err)
		}
		i = next
		if runLen == 0 {
			return nil, fmt.Errorf("transform: zrlt zero-length run @%d", i)
		}
		if len(dst)+int(runLen) > maxLen {
			return nil, fmt.Errorf("transform: zrlt run overruns %d-byte scratch", maxLen)
		}
		for n := uint64(0); n < runLen; n++ {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
