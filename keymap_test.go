// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dwarfidea

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapKeyIdentityWhenAbsent(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	out, ok := mapKey(nil, raw, 5)
	require.True(t, ok)
	require.Equal(t, raw, out)
}

func TestMapKeyResolvesPrefix(t *testing.T) {
	// key_value 0x00F10001 (mcc=241, mnc=1) is entry 0 in the table.
	km := newKeyMap([]uint32{0x00F10001, 0x00F10002})

	raw := []byte{0x00, 0xF1, 0x00, 0x01, 0xAA, 0xBB}
	out, ok := mapKey(km, raw, 4)
	require.True(t, ok)
	require.Equal(t, []byte{0x00, 0x00, 0xAA, 0xBB}, out)

	raw2 := []byte{0x00, 0xF1, 0x00, 0x02, 0xAA, 0xBB}
	out2, ok := mapKey(km, raw2, 4)
	require.True(t, ok)
	require.Equal(t, []byte{0x00, 0x01, 0xAA, 0xBB}, out2)
}

func TestMapKeyFailsOnUnknownPrefix(t *testing.T) {
	km := newKeyMap([]uint32{0x00F10001})
	raw := []byte{0x00, 0xF9, 0x00, 0x09, 0xAA, 0xBB}
	_, ok := mapKey(km, raw, 4)
	require.False(t, ok)
}

func TestMapKeyFailsOnWrongLength(t *testing.T) {
	km := newKeyMap([]uint32{0x00F10001})
	_, ok := mapKey(km, []byte{0x00, 0xF1, 0x00, 0x01}, 4)
	require.False(t, ok)
}

func TestNewKeyMapEmptyIsNil(t *testing.T) {
	require.Nil(t, newKeyMap(nil))
}
