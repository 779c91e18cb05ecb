// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dwarfidea

import "encoding/binary"

// keyMap implements the "hardcoded cells case" prefix remap: a 4-byte
// (primary, secondary) prefix -- e.g. an MCC/MNC pair -- collapses to a
// 2-byte code drawn from the table stored in the header, in file order.
type keyMap struct {
	codes map[uint32]uint16
}

// newKeyMap builds a keyMap from the header's key table, entry i mapping
// to the implicit code i.
func newKeyMap(rawKeys []uint32) *keyMap {
	if len(rawKeys) == 0 {
		return nil
	}
	m := &keyMap{codes: make(map[uint32]uint16, len(rawKeys))}
	for i, k := range rawKeys {
		m.codes[k] = uint16(i)
	}
	return m
}

// mapKey resolves a raw key into its effective, post-mapping form. When km
// is nil the raw key is returned unchanged. Otherwise raw must be exactly
// effectiveKeySize+2 bytes: a 4-byte (primary, secondary) prefix followed
// by effectiveKeySize-2 trailing bytes carried through untouched.
func mapKey(km *keyMap, raw []byte, effectiveKeySize int) ([]byte, bool) {
	if km == nil {
		return raw, true
	}
	if len(raw) != effectiveKeySize+2 {
		return nil, false
	}
	primary := binary.BigEndian.Uint16(raw[0:2])
	secondary := binary.BigEndian.Uint16(raw[2:4])
	keyValue := uint32(primary)<<16 | uint32(secondary)

	code, ok := km.codes[keyValue]
	if !ok {
		return nil, false
	}

	out := make([]byte, effectiveKeySize)
	binary.BigEndian.PutUint16(out[0:2], code)
	copy(out[2:], raw[4:])
	return out, true
}
