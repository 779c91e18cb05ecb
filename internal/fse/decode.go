// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package fse

import (
	"fmt"

	"github.com/dwarfidea/dwarfidea/internal/bitio"
)

// Decoder wraps a Table with the interleaved two-state decompression loop.
// One Decoder is built per stream kind (keys, coords, extra-data) at Open
// time and reused for every block.
type Decoder struct {
	table *Table
}

// NewDecoder reads a frequency table from buf[start:start+size) and
// returns a Decoder ready to decompress blocks encoded against it.
func NewDecoder(buf []byte, start, size int) (*Decoder, error) {
	tbl, err := ReadTable(buf, start, start+size, MaxSymbolValue, MaxTableLog)
	if err != nil {
		return nil, err
	}
	return &Decoder{table: tbl}, nil
}

// Decompress decodes buf[start:start+size) into out and returns the number
// of bytes written, which can be less than len(out): decoding ends when the
// bit stream is used up. It fails if the stream has no end-mark, or if the
// decoded output does not fit in out.
func (d *Decoder) Decompress(buf []byte, start, size int, out []byte) (int, error) {
	input := start
	inputLimit := input + size

	br, err := bitio.New(buf, input, inputLimit)
	if err != nil {
		return 0, fmt.Errorf("fse: %w", err)
	}

	log2Size := d.table.Log2Size
	symbols := d.table.Symbol
	numberOfBits := d.table.NumberOfBits
	newState := d.table.NewState

	state1 := uint32(br.Peek(log2Size))
	br.Advance(log2Size)
	br.Load()

	state2 := uint32(br.Peek(log2Size))
	br.Advance(log2Size)
	br.Load()

	output := 0
	outputLimit := len(out)

	for output <= outputLimit-2 {
		out[output] = symbols[state1]
		nb := int(numberOfBits[state1])
		state1 = newState[state1] + uint32(bitio.PeekBitsFast(br.Consumed(), br.Bits(), nb))
		br.Advance(nb)

		out[output+1] = symbols[state2]
		nb = int(numberOfBits[state2])
		state2 = newState[state2] + uint32(bitio.PeekBitsFast(br.Consumed(), br.Bits(), nb))
		br.Advance(nb)

		output += 2

		if br.Load() {
			break
		}
	}

	for {
		if output > outputLimit-2 {
			return 0, fmt.Errorf("fse: output buffer too small (>%d bytes)", outputLimit)
		}
		out[output] = symbols[state1]
		output++
		nb := int(numberOfBits[state1])
		state1 = newState[state1] + uint32(bitio.PeekBitsFast(br.Consumed(), br.Bits(), nb))
		br.Advance(nb)
		br.Load()
		if br.Overflow() {
			out[output] = symbols[state2]
			output++
			break
		}

		if output > outputLimit-2 {
			return 0, fmt.Errorf("fse: output buffer too small (>%d bytes)", outputLimit)
		}
		out[output] = symbols[state2]
		output++
		nb = int(numberOfBits[state2])
		state2 = newState[state2] + uint32(bitio.PeekBitsFast(br.Consumed(), br.Bits(), nb))
		br.Advance(nb)
		br.Load()
		if br.Overflow() {
			out[output] = symbols[state1]
			output++
			break
		}
	}

	return output, nil
}
