// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package fse implements a Finite State Entropy (tabled ANS) decoder, the
// entropy-coding stage of the block transform pipeline. The table format
// and decompression loop follow ZSTD's FSE convention.
package fse

import (
	"fmt"
	"math/bits"
)

// MaxSymbolValue bounds the alphabet a DwarfIdea FSE stream can encode:
// raw bytes, so the full byte range.
const MaxSymbolValue = 255

// MaxTableLog is the largest log2Size an FSE table in this format may
// declare: one table per stream kind, log2Size <= 12.
const MaxTableLog = 12

// Table holds the three parallel decode arrays: for a
// state (slot index into a 1<<Log2Size array), Symbol[state] is the byte
// to emit, NumberOfBits[state] is how many more bits to pull to form the
// next state's low bits, and NewState[state] is the base those bits are
// added to.
type Table struct {
	Log2Size     int
	Symbol       []byte
	NumberOfBits []byte
	NewState     []uint32
}

// forwardBits is a small LSB-first, forward-scanning bit reader used only
// for the normalized-count header -- a different direction and layout than
// bitio.Reader's right-to-left decompression stream, matching how ZSTD
// separates "read the header forward" from "decode the payload backward".
type forwardBits struct {
	buf  []byte
	pos  int // byte offset of the next unread byte
	bits uint64
	n    int // number of valid low bits currently held in `bits`
}

func newForwardBits(buf []byte) *forwardBits {
	return &forwardBits{buf: buf}
}

func (f *forwardBits) refill() {
	for f.n <= 56 && f.pos < len(f.buf) {
		f.bits |= uint64(f.buf[f.pos]) << f.n
		f.pos++
		f.n += 8
	}
}

func (f *forwardBits) read(nbits int) (uint64, error) {
	if nbits == 0 {
		return 0, nil
	}
	f.refill()
	if f.n < nbits {
		return 0, fmt.Errorf("fse: header ran out of bits (have %d, want %d)", f.n, nbits)
	}
	mask := uint64(1)<<nbits - 1
	v := f.bits & mask
	f.bits >>= nbits
	f.n -= nbits
	return v, nil
}

func (f *forwardBits) peek16() uint64 {
	f.refill()
	return f.bits & 0xffff
}

// ReadTable reads a ZSTD-style normalized-count header from buf[start:end)
// and builds the corresponding decode Table.
//
// The caller already knows the table's on-disk size from the u32 size
// field that precedes it, so ReadTable doesn't need to report how many
// bytes it consumed -- the caller just seeks by the stored size regardless.
func ReadTable(buf []byte, start, end, maxSymbolValue, maxTableLog int) (*Table, error) {
	fb := newForwardBits(buf[start:end])

	rawLog, err := fb.read(4)
	if err != nil {
		return nil, fmt.Errorf("fse: reading table log: %w", err)
	}
	tableLog := int(rawLog) + 5
	if tableLog > maxTableLog {
		return nil, fmt.Errorf("fse: table log %d exceeds max %d", tableLog, maxTableLog)
	}
	if tableLog < 5 {
		return nil, fmt.Errorf("fse: table log %d below minimum 5", tableLog)
	}

	counts := make([]int32, maxSymbolValue+1)

	remaining := int32(1<<tableLog) + 1
	threshold := int32(1) << tableLog
	bitCount := tableLog + 1
	symbol := 0
	previousWasZero := false

	for remaining > 1 && symbol <= maxSymbolValue {
		if previousWasZero {
			n0 := symbol
			for fb.peek16()&0xffff == 0xffff {
				if _, err := fb.read(16); err != nil {
					return nil, err
				}
				n0 += 24
			}
			for fb.peek16()&3 == 3 {
				if _, err := fb.read(2); err != nil {
					return nil, err
				}
				n0 += 3
			}
			extra, err := fb.read(2)
			if err != nil {
				return nil, err
			}
			n0 += int(extra)
			if n0 > maxSymbolValue+1 {
				return nil, fmt.Errorf("fse: zero run overruns symbol table (%d)", n0)
			}
			for symbol < n0 {
				counts[symbol] = 0
				symbol++
			}
			previousWasZero = false
			continue
		}

		max := 2*threshold - 1 - remaining
		peeked, err := fb.read(bitCount - 1)
		if err != nil {
			return nil, err
		}
		var count int32
		if int32(peeked) < max {
			count = int32(peeked)
		} else {
			extraBit, err := fb.read(1)
			if err != nil {
				return nil, err
			}
			count = int32(peeked) | int32(extraBit)<<(bitCount-1)
			if count >= threshold {
				count -= max
			}
		}
		count--
		if count < 0 {
			remaining += count
		} else {
			remaining -= count
		}
		if symbol > maxSymbolValue {
			return nil, fmt.Errorf("fse: too many symbols in normalized-count header")
		}
		counts[symbol] = count
		symbol++
		previousWasZero = count == 0

		for remaining < threshold {
			bitCount--
			threshold >>= 1
		}
	}

	tbl, err := build(counts, tableLog)
	if err != nil {
		return nil, err
	}

	return tbl, nil
}

// build distributes symbols across 1<<tableLog slots using FSE's standard
// striding formula, then precomputes (symbol, numberOfBits, newState) for
// each slot.
func build(counts []int32, tableLog int) (*Table, error) {
	tableSize := uint32(1) << tableLog
	highThreshold := tableSize - 1

	symbolForSlot := make([]byte, tableSize)

	// Low-probability symbols (normalized count == -1, meaning "count 1"
	// but flagged to sit at the high end of the table) are placed first,
	// from the top down.
	for symbol, count := range counts {
		if count == -1 {
			symbolForSlot[highThreshold] = byte(symbol)
			highThreshold--
		}
	}

	tableMask := tableSize - 1
	step := (tableSize >> 1) + (tableSize >> 3) + 3
	position := uint32(0)
	for symbol, count := range counts {
		if count <= 0 {
			continue
		}
		for i := int32(0); i < count; i++ {
			symbolForSlot[position] = byte(symbol)
			position = (position + step) & tableMask
			for position > highThreshold {
				position = (position + step) & tableMask
			}
		}
	}
	if position != 0 {
		return nil, fmt.Errorf("fse: table build didn't fill every slot (landed on %d)", position)
	}

	nextState := make([]uint32, len(counts))
	for symbol, count := range counts {
		if count == -1 {
			nextState[symbol] = 1
		} else if count > 0 {
			nextState[symbol] = uint32(count)
		}
	}

	tbl := &Table{
		Log2Size:     tableLog,
		Symbol:       make([]byte, tableSize),
		NumberOfBits: make([]byte, tableSize),
		NewState:     make([]uint32, tableSize),
	}
	for slot := uint32(0); slot < tableSize; slot++ {
		symbol := symbolForSlot[slot]
		next := nextState[symbol]
		nextState[symbol]++
		numberOfBits := byte(tableLog - highBit32(next))
		newState := (next << numberOfBits) - tableSize

		tbl.Symbol[slot] = symbol
		tbl.NumberOfBits[slot] = numberOfBits
		tbl.NewState[slot] = newState
	}

	return tbl, nil
}

func highBit32(v uint32) int {
	return bits.Len32(v) - 1
}
