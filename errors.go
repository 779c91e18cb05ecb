// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dwarfidea

import (
	"errors"
	"fmt"
)

// ErrFileFormat is returned (wrapped) whenever the on-disk layout doesn't
// match what this package expects: bad signature, unsupported version, a
// malformed FSE table, a missing bit-stream end-mark, a varint that runs
// past its buffer, or an inverse transform that can't invert.
//
// Open surfaces ErrFileFormat to its caller. Lookup never does -- a format
// error while decoding a block degrades to a miss (nil result, nil error),
// so that corruption in one block doesn't make the rest of the file
// unusable.
var ErrFileFormat = errors.New("dwarfidea: bad file format")

// ErrInvalidKey is returned when a key passed to Lookup has the wrong
// length for this database's key_size (after accounting for the key-map
// prefix, if the database has one).
var ErrInvalidKey = errors.New("dwarfidea: invalid key length")

// formatErrorf wraps ErrFileFormat with an offset and a reason, the same
// shape a malformed-input error takes throughout this package.
func formatErrorf(offset int64, format string, args ...any) error {
	return fmt.Errorf("%w: @%d: %s", ErrFileFormat, offset, fmt.Sprintf(format, args...))
}
