// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dwarfidea

import (
	"encoding/binary"
	"math"

	"github.com/dwarfidea/dwarfidea/internal/fse"
)

const signature = "DwarfIdea"
const fileFormatVersion = 1

// header holds the parsed, immutable file preamble: last_key, the FSE
// decoders built from its two or three tables, and the byte offset of the
// block index that follows it. Cursor arithmetic is done once, here, at Open time; the
// lookup path only ever does fixed-offset reads against the mapped file.
type header struct {
	keySize             int // before mapping adjustment
	effectiveKeySize    int // after mapping adjustment, if any
	extraDataSize       int
	numEntries          uint32
	indexSize           uint32
	minEntriesPerBlock  uint16
	maxEntriesPerBlock  uint16
	boundingBoxBits     int
	maxDistError        float32
	keyMap              *keyMap
	lastKey             []byte
	keysDecoder         *fse.Decoder
	coordsDecoder       *fse.Decoder
	extraDataDecoder    *fse.Decoder
	indexOffset         int64
}

// parseHeader reads the file preamble out of data (the full mapped file)
// and returns the parsed header; its indexOffset field records where the
// block index starts.
func parseHeader(data []byte) (*header, error) {
	if len(data) < len(signature)+2 {
		return nil, formatErrorf(0, "file too short for signature")
	}
	if string(data[:len(signature)]) != signature {
		return nil, formatErrorf(0, "bad signature %q", data[:len(signature)])
	}
	off := int64(len(signature))

	version := binary.LittleEndian.Uint16(data[off:])
	off += 2
	if version != fileFormatVersion {
		return nil, formatErrorf(off-2, "unsupported version %d", version)
	}

	h := &header{}
	h.keySize = int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	h.extraDataSize = int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	h.numEntries = binary.LittleEndian.Uint32(data[off:])
	off += 4
	h.indexSize = binary.LittleEndian.Uint32(data[off:])
	off += 4
	h.minEntriesPerBlock = binary.LittleEndian.Uint16(data[off:])
	off += 2
	h.maxEntriesPerBlock = binary.LittleEndian.Uint16(data[off:])
	off += 2
	h.boundingBoxBits = int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	h.maxDistError = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	off += 4

	keyMapSize := int(binary.LittleEndian.Uint16(data[off:]))
	off += 2

	h.effectiveKeySize = h.keySize
	if keyMapSize > 0 {
		rawKeys := make([]uint32, keyMapSize)
		for i := range rawKeys {
			rawKeys[i] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
		h.keyMap = newKeyMap(rawKeys)
		h.effectiveKeySize = h.keySize - 2
	}
	if h.effectiveKeySize <= 0 || h.effectiveKeySize > maxKeySize {
		return nil, formatErrorf(off, "invalid effective key size %d", h.effectiveKeySize)
	}

	if off+int64(h.effectiveKeySize) > int64(len(data)) {
		return nil, formatErrorf(off, "truncated last_key")
	}
	h.lastKey = data[off : off+int64(h.effectiveKeySize)]
	off += int64(h.effectiveKeySize)

	var err error
	h.keysDecoder, off, err = readFSETable(data, off)
	if err != nil {
		return nil, err
	}
	h.coordsDecoder, off, err = readFSETable(data, off)
	if err != nil {
		return nil, err
	}
	if h.extraDataSize > 0 {
		h.extraDataDecoder, off, err = readFSETable(data, off)
		if err != nil {
			return nil, err
		}
	}

	h.indexOffset = off
	stride := int64(h.effectiveKeySize + 4)
	indexEnd := h.indexOffset + stride*int64(h.indexSize)
	if h.indexSize > 0 && indexEnd > int64(len(data)) {
		return nil, formatErrorf(off, "block index runs past end of file")
	}

	return h, nil
}

// readFSETable reads a `u32 size` followed by `size` bytes of FSE table at
// off, returning a Decoder built from it and the offset just past it.
func readFSETable(data []byte, off int64) (*fse.Decoder, int64, error) {
	if off+4 > int64(len(data)) {
		return nil, 0, formatErrorf(off, "truncated FSE table size")
	}
	size := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if off+int64(size) > int64(len(data)) {
		return nil, 0, formatErrorf(off, "truncated FSE table")
	}
	dec, err := fse.NewDecoder(data, int(off), size)
	if err != nil {
		return nil, 0, formatErrorf(off, "%s", err)
	}
	return dec, off + int64(size), nil
}
