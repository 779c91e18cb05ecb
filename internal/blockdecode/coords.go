// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blockdecode

import (
	"fmt"

	"github.com/dwarfidea/dwarfidea/internal/bitio"
)

// coordSpecBits is the width of the per-block lat_bits/lon_bits fields.
const coordSpecBits = 5

const (
	minLat = -90.0
	maxLat = 90.0
	minLon = -180.0
	maxLon = 180.0
)

// BoundingBoxSteps precomputes the global lat/lon grid steps implied by
// boundingBoxBits, shared across every block in a database.
type BoundingBoxSteps struct {
	Lat float64
	Lon float64
}

// NewBoundingBoxSteps derives the grid step sizes a boundingBoxBits-wide
// index can address across the full lat/lon range.
func NewBoundingBoxSteps(boundingBoxBits int) BoundingBoxSteps {
	maxIndex := float64((int64(1) << boundingBoxBits) - 1)
	return BoundingBoxSteps{
		Lat: (maxLat - minLat) / maxIndex,
		Lon: (maxLon - minLon) / maxIndex,
	}
}

// DecodeCoords reads blockKeyIndex's coordinates out of a block's decoded
// coords buffer: a bounding box header followed by one coords_bits-wide
// packed (lat_idx, lon_idx) pair per entry.
func DecodeCoords(buf []byte, boundingBoxBits int, steps BoundingBoxSteps, blockKeyIndex int) (lat, lon float32, err error) {
	r := bitio.NewMSBReader(buf)

	latMinIdx, err := r.ReadBits(boundingBoxBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords header: %w", err)
	}
	lonMinIdx, err := r.ReadBits(boundingBoxBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords header: %w", err)
	}
	latMaxIdx, err := r.ReadBits(boundingBoxBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords header: %w", err)
	}
	lonMaxIdx, err := r.ReadBits(boundingBoxBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords header: %w", err)
	}
	latBits, err := r.ReadBits(coordSpecBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords header: %w", err)
	}
	lonBits, err := r.ReadBits(coordSpecBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords header: %w", err)
	}
	coordsBits := int(latBits) + int(lonBits)

	r.Skip(blockKeyIndex * coordsBits)
	combined, err := r.ReadBits(coordsBits)
	if err != nil {
		return 0, 0, fmt.Errorf("blockdecode: coords entry %d: %w", blockKeyIndex, err)
	}

	latIdxMask := uint64(1)<<latBits - 1
	lonIdxMask := uint64(1)<<lonBits - 1
	latIdx := combined & latIdxMask
	lonIdx := (combined >> latBits) & lonIdxMask

	minCornerLat := steps.Lat*float64(latMinIdx) + minLat
	minCornerLon := steps.Lon*float64(lonMinIdx) + minLon
	maxCornerLat := steps.Lat*float64(latMaxIdx) + minLat
	maxCornerLon := steps.Lon*float64(lonMaxIdx) + minLon

	latFrac := float64(latIdx) / float64(latIdxMask)
	lonFrac := float64(lonIdx) / float64(lonIdxMask)

	lat = float32(minCornerLat + (maxCornerLat-minCornerLat)*latFrac)
	lon = float32(minCornerLon + (maxCornerLon-minCornerLon)*lonFrac)
	return lat, lon, nil
}
