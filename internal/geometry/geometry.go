// Package geometry maps logical block numbers onto the physical
// cylinder/track/sector layout of a rotating drive.
package geometry

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/go-diskdrv/internal/constants"
)

// ErrInvalidGeometry is returned by Validate for a geometry that cannot
// address any block.
var ErrInvalidGeometry = errors.New("invalid drive geometry")

// Geometry holds the fixed, drive-specific layout constants.
type Geometry struct {
	CylindersPerDisk  int
	TracksPerCylinder int
	SectorsPerTrack   int
	BytesPerSector    int
	SectorsPerBlock   int
}

// Address is a physical location on the drive.
type Address struct {
	Cylinder int
	Track    int
	Sector   int
}

func (a Address) String() string {
	return fmt.Sprintf("C%d/T%d/S%d", a.Cylinder, a.Track, a.Sector)
}

// Default returns the geometry of the reference drive.
func Default() Geometry {
	return Geometry{
		CylindersPerDisk:  constants.DefaultCylindersPerDisk,
		TracksPerCylinder: constants.DefaultTracksPerCylinder,
		SectorsPerTrack:   constants.DefaultSectorsPerTrack,
		BytesPerSector:    constants.DefaultBytesPerSector,
		SectorsPerBlock:   constants.DefaultSectorsPerBlock,
	}
}

// Validate checks that every dimension is positive.
func (g Geometry) Validate() error {
	switch {
	case g.CylindersPerDisk <= 0:
		return fmt.Errorf("%w: cylinders per disk %d", ErrInvalidGeometry, g.CylindersPerDisk)
	case g.TracksPerCylinder <= 0:
		return fmt.Errorf("%w: tracks per cylinder %d", ErrInvalidGeometry, g.TracksPerCylinder)
	case g.SectorsPerTrack <= 0:
		return fmt.Errorf("%w: sectors per track %d", ErrInvalidGeometry, g.SectorsPerTrack)
	case g.BytesPerSector <= 0:
		return fmt.Errorf("%w: bytes per sector %d", ErrInvalidGeometry, g.BytesPerSector)
	case g.SectorsPerBlock <= 0:
		return fmt.Errorf("%w: sectors per block %d", ErrInvalidGeometry, g.SectorsPerBlock)
	}
	return nil
}

// Capacity returns the highest legal block number. Legal blocks are
// 1..Capacity inclusive.
func (g Geometry) Capacity() int {
	return g.CylindersPerDisk * g.SectorsPerTrack
}

// CylinderBytes returns the byte capacity of one cylinder, the upper
// bound on a request's block size.
func (g Geometry) CylinderBytes() int {
	return g.BytesPerSector * g.SectorsPerTrack * g.TracksPerCylinder
}

// BlockBytes returns the number of bytes moved by one block transfer.
func (g Geometry) BlockBytes() int {
	return g.BytesPerSector * g.SectorsPerBlock
}

// InRange reports whether block is addressable.
func (g Geometry) InRange(block int) bool {
	return block >= 1 && block <= g.Capacity()
}

// Translate maps a 1-based block number to its physical address. Only two
// tracks per cylinder are modeled: the low half of a track's sector range
// (inclusive of the midpoint) is track 0, the rest track 1.
//
// The result is only meaningful for blocks where InRange is true; callers
// validate before issuing hardware commands.
func (g Geometry) Translate(block int) Address {
	offset := (block - 1) % g.SectorsPerTrack

	track := 1
	if offset <= g.SectorsPerTrack/g.TracksPerCylinder {
		track = 0
	}

	sector := offset * g.SectorsPerBlock
	if sector >= g.SectorsPerTrack {
		sector %= g.SectorsPerTrack
	}

	return Address{
		Cylinder: (block - 1) / g.SectorsPerTrack,
		Track:    track,
		Sector:   sector,
	}
}

// Cylinder returns only the cylinder component of Translate(block).
func (g Geometry) Cylinder(block int) int {
	return (block - 1) / g.SectorsPerTrack
}

// ByteOffset returns the byte offset of a physical address on a linear
// image of the drive.
func (g Geometry) ByteOffset(a Address) int64 {
	lba := (a.Cylinder*g.TracksPerCylinder+a.Track)*g.SectorsPerTrack + a.Sector
	return int64(lba) * int64(g.BytesPerSector)
}

// ImageBytes returns the size of a linear image holding every sector.
func (g Geometry) ImageBytes() int64 {
	return int64(g.CylindersPerDisk) * int64(g.CylinderBytes())
}
