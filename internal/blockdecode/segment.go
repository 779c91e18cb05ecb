// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package blockdecode composes the FSE decoder and the inverse transform
// pipeline to materialize a block's keys, coords, and extra-data segments,
// and decodes per-entry coordinates out of a block's bit-packed bounding
// box.
package blockdecode

import (
	"fmt"

	"github.com/dwarfidea/dwarfidea/internal/fse"
	"github.com/dwarfidea/dwarfidea/internal/transform"
	"github.com/dwarfidea/dwarfidea/internal/varint"
)

// Header is a decoded segment size header: the low two bits of the
// varint are flags, the rest is the raw (pre-transform) byte length.
type Header struct {
	RawLen     int
	IgnoreZRLT bool
	IgnoreFSE  bool
}

// ReadHeader decodes a segment header varint at buf[offset] and returns
// it along with the offset of the first byte of the segment's payload.
func ReadHeader(buf []byte, offset int) (Header, int, error) {
	v, next, err := varint.ReadFrom(buf, offset)
	if err != nil {
		return Header{}, 0, fmt.Errorf("blockdecode: segment header: %w", err)
	}
	return Header{
		RawLen:     int(v >> 2),
		IgnoreZRLT: v&1 != 0,
		IgnoreFSE:  v&2 != 0,
	}, next, nil
}

// scratchSize bounds the intermediate buffers used while reversing a
// segment's transform pipeline. 32x the largest block is generous enough
// in practice for the compression ratios this format's segments see.
const scratchSize = 32

// Decompress reverses a segment's transform pipeline: optional FSE
// decompress, optional inverse ZRLT, inverse SBRT(rank), inverse BWTS.
// dec is nil when the stream has no FSE table for this kind (impossible
// for keys/coords, only relevant if extra_data_size is ever 0, in which
// case this is never called).
func Decompress(buf []byte, payloadOffset int, hdr Header, dec *fse.Decoder, maxEntriesPerBlock int) ([]byte, error) {
	scratch := make([]byte, scratchSize*maxEntriesPerBlock)

	var afterFSE []byte
	if hdr.IgnoreFSE {
		if hdr.RawLen > len(buf)-payloadOffset {
			return nil, fmt.Errorf("blockdecode: raw segment runs past buffer end")
		}
		afterFSE = buf[payloadOffset : payloadOffset+hdr.RawLen]
	} else {
		n, err := dec.Decompress(buf, payloadOffset, hdr.RawLen, scratch)
		if err != nil {
			return nil, fmt.Errorf("blockdecode: fse decompress: %w", err)
		}
		afterFSE = scratch[:n]
	}

	var afterZRLT []byte
	if hdr.IgnoreZRLT {
		afterZRLT = afterFSE
	} else {
		out, err := transform.InverseZRLT(afterFSE, len(scratch))
		if err != nil {
			return nil, fmt.Errorf("blockdecode: inverse zrlt: %w", err)
		}
		afterZRLT = out
	}

	afterSBRT := transform.InverseSBRT(afterZRLT)
	result := transform.InverseBWTS(afterSBRT)
	return result, nil
}
