// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package dwarfidea reads DwarfIdea database files: a compact,
// offline-built mapping of short binary keys (cellular identifiers,
// Wi-Fi BSSIDs, ...) to approximate geographic coordinates with an
// optional per-entry payload.
//
// A database file looks like:
//
//	┌────────────────────┐
//	│ header             │
//	│  signature/version  │
//	│  key_size, sizes... │
//	│  key_map (opt.)     │
//	│  last_key           │
//	│  FSE tables x2/3    │
//	├────────────────────┤
//	│ sorted block index  │
//	├────────────────────┤
//	│ blocks              │
//	│  keys segment       │
//	│  coords segment     │
//	│  extra-data segment │
//	└────────────────────┘
//
// Opening a file maps it read-only and parses the header; Lookup resolves
// a raw key through the optional key map, binary-searches the block index,
// and decodes the matching block through an FSE + ZRLT + SBRT + BWTS
// inverse transform pipeline to recover coordinates and extra data.
//
// The package only implements the read path. Building a DwarfIdea file is
// the job of a separate offline tool and is out of scope here.
package dwarfidea
