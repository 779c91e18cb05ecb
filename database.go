// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dwarfidea

import (
	"encoding/binary"
	"fmt"

	"github.com/dwarfidea/dwarfidea/internal/blockdecode"
	"github.com/dwarfidea/dwarfidea/internal/blockindex"
	"github.com/dwarfidea/dwarfidea/internal/cache"
	"github.com/dwarfidea/dwarfidea/internal/fse"
	"github.com/dwarfidea/dwarfidea/internal/mmap"
)

// Coords is an approximate geographic position.
type Coords struct {
	Lat float32
	Lon float32
}

// Result is what Lookup returns for a present key: its coordinates, plus
// its extra payload when the database carries one.
type Result struct {
	Coords Coords
	Data   []byte
}

// Database is an opened, memory-mapped DwarfIdea file. It is not safe for
// concurrent use: every Lookup mutates its caches.
type Database struct {
	mm   *mmap.ReaderAt
	data []byte
	h    *header

	boundingBoxSteps blockdecode.BoundingBoxSteps

	resultCache *cache.Cache[string, *Result]
	keysCache   *cache.Cache[int, []byte]
	coordsCache *cache.Cache[int, []byte]
	extraCache  *cache.Cache[int, []byte]

	closed bool
}

// Open memory-maps path read-only and parses its header. resultsCacheCap
// and blockCacheCap bound the four caches Lookup fills as it goes: one
// result cache at resultsCacheCap entries, and one keys/coords/extra-data
// block cache each at blockCacheCap entries.
func Open(path string, resultsCacheCap, blockCacheCap int) (*Database, error) {
	mm, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dwarfidea: %w", err)
	}

	data := mm.Data()
	h, err := parseHeader(data)
	if err != nil {
		_ = mm.Close()
		return nil, err
	}

	resultCache, err := cache.New[string, *Result](resultsCacheCap)
	if err != nil {
		_ = mm.Close()
		return nil, fmt.Errorf("dwarfidea: %w", err)
	}
	keysCache, err := cache.New[int, []byte](blockCacheCap)
	if err != nil {
		_ = mm.Close()
		return nil, fmt.Errorf("dwarfidea: %w", err)
	}
	coordsCache, err := cache.New[int, []byte](blockCacheCap)
	if err != nil {
		_ = mm.Close()
		return nil, fmt.Errorf("dwarfidea: %w", err)
	}
	extraCache, err := cache.New[int, []byte](blockCacheCap)
	if err != nil {
		_ = mm.Close()
		return nil, fmt.Errorf("dwarfidea: %w", err)
	}

	return &Database{
		mm:               mm,
		data:             data,
		h:                h,
		boundingBoxSteps: blockdecode.NewBoundingBoxSteps(h.boundingBoxBits),
		resultCache:      resultCache,
		keysCache:        keysCache,
		coordsCache:      coordsCache,
		extraCache:       extraCache,
	}, nil
}

// MaxDistError returns the header's stated worst-case great-circle error,
// in meters, for any coordinate this database returns.
func (db *Database) MaxDistError() float32 {
	return db.h.maxDistError
}

// Close unmaps the file. Not reentrant. After Close, Lookup returns an
// error; MaxDistError still returns the header's value.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true
	return db.mm.Close()
}

// expectedRawKeyLen is the length Lookup requires of its input: the
// effective key size, plus the 4-byte (primary, secondary) prefix this
// database's key map expects in its place, if it has one.
func (db *Database) expectedRawKeyLen() int {
	if db.h.keyMap == nil {
		return db.h.effectiveKeySize
	}
	return db.h.effectiveKeySize + 2
}

// Lookup resolves a raw key to its result, or nil if the key isn't
// present. A wrong-length key is an argument error and surfaces as
// ErrInvalidKey; a corrupt block instead degrades the lookup to a miss,
// see ErrFileFormat's doc comment.
func (db *Database) Lookup(rawKey []byte) (*Result, error) {
	if db.closed {
		return nil, fmt.Errorf("dwarfidea: lookup on closed database")
	}
	if len(rawKey) != db.expectedRawKeyLen() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(rawKey), db.expectedRawKeyLen())
	}

	cacheKey := string(rawKey)
	if cached, found := db.resultCache.Get(cacheKey); found {
		return cached, nil
	}

	result := db.lookupUncached(rawKey)
	db.resultCache.Put(cacheKey, result)
	return result, nil
}

func (db *Database) lookupUncached(rawKey []byte) *Result {
	mappedKey, ok := mapKey(db.h.keyMap, rawKey, db.h.effectiveKeySize)
	if !ok {
		return nil
	}

	mappedKeyVal := keyToUint64(mappedKey)
	if mappedKeyVal > keyToUint64(db.h.lastKey) {
		return nil
	}

	res, found := blockindex.Search(db.data, db.h.indexOffset, int(db.h.indexSize), db.h.effectiveKeySize, mappedKeyVal, readIndexKey)
	if !found {
		return nil
	}

	blockOffset := int64(binary.LittleEndian.Uint32(db.data[res.BlockOffsetPos:]))

	maxEntries := int(db.h.maxEntriesPerBlock)

	keysHdr, keysPayloadOff, err := blockdecode.ReadHeader(db.data, int(blockOffset))
	if err != nil {
		return nil
	}

	var blockKeyIndex int
	if res.ExactMatch {
		blockKeyIndex = 0
	} else {
		keysBuf, err := db.blockBuffer(db.keysCache, res.BlockIndex, db.data, keysPayloadOff, keysHdr, db.h.keysDecoder, maxEntries)
		if err != nil {
			return nil
		}
		blockKeyIndex = blockindex.WalkKeys(keysBuf, res.IndexKey, mappedKeyVal)
		if blockKeyIndex == -1 {
			return nil
		}
	}

	coordsOffset := keysPayloadOff + keysHdr.RawLen
	coordsHdr, coordsPayloadOff, err := blockdecode.ReadHeader(db.data, coordsOffset)
	if err != nil {
		return nil
	}
	coordsBuf, err := db.blockBuffer(db.coordsCache, res.BlockIndex, db.data, coordsPayloadOff, coordsHdr, db.h.coordsDecoder, maxEntries)
	if err != nil {
		return nil
	}
	lat, lon, err := blockdecode.DecodeCoords(coordsBuf, db.h.boundingBoxBits, db.boundingBoxSteps, blockKeyIndex)
	if err != nil {
		return nil
	}

	result := &Result{Coords: Coords{Lat: lat, Lon: lon}}

	if db.h.extraDataSize > 0 {
		extraOffset := coordsPayloadOff + coordsHdr.RawLen
		extraHdr, extraPayloadOff, err := blockdecode.ReadHeader(db.data, extraOffset)
		if err != nil {
			return nil
		}
		extraBuf, err := db.blockBuffer(db.extraCache, res.BlockIndex, db.data, extraPayloadOff, extraHdr, db.h.extraDataDecoder, maxEntries)
		if err != nil {
			return nil
		}
		start := blockKeyIndex * db.h.extraDataSize
		end := start + db.h.extraDataSize
		if end > len(extraBuf) {
			return nil
		}
		result.Data = append([]byte(nil), extraBuf[start:end]...)
	}

	return result
}

// blockBuffer returns a block segment's decoded bytes, computing and
// caching them on a miss.
func (db *Database) blockBuffer(c *cache.Cache[int, []byte], blockIndex int, data []byte, payloadOffset int, hdr blockdecode.Header, dec *fse.Decoder, maxEntries int) ([]byte, error) {
	if buf, found := c.Get(blockIndex); found {
		return buf, nil
	}
	buf, err := blockdecode.Decompress(data, payloadOffset, hdr, dec, maxEntries)
	if err != nil {
		return nil, err
	}
	c.Put(blockIndex, buf)
	return buf, nil
}

func readIndexKey(buf []byte, pos int64, keySize int) uint64 {
	return keyToUint64(buf[pos : pos+int64(keySize)])
}
