package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGeometry(t *testing.T) {
	g := Default()
	require.NoError(t, g.Validate())
	assert.Equal(t, 360, g.Capacity())
	assert.Equal(t, 9216, g.CylinderBytes())
	assert.Equal(t, 1024, g.BlockBytes())
	assert.Equal(t, int64(40*9216), g.ImageBytes())
}

func TestTranslateKnownBlocks(t *testing.T) {
	g := Default()
	tests := []struct {
		block int
		want  Address
	}{
		{1, Address{Cylinder: 0, Track: 0, Sector: 0}},
		{5, Address{Cylinder: 0, Track: 0, Sector: 8}},
		{6, Address{Cylinder: 0, Track: 1, Sector: 1}},
		{9, Address{Cylinder: 0, Track: 1, Sector: 7}},
		{10, Address{Cylinder: 1, Track: 0, Sector: 0}},
		{30, Address{Cylinder: 3, Track: 0, Sector: 4}},
		{50, Address{Cylinder: 5, Track: 0, Sector: 8}},
		{360, Address{Cylinder: 39, Track: 1, Sector: 7}},
	}

	for _, tt := range tests {
		got := g.Translate(tt.block)
		assert.Equal(t, tt.want, got, "block %d", tt.block)
		assert.Equal(t, tt.want.Cylinder, g.Cylinder(tt.block), "block %d", tt.block)
	}
}

func TestTranslateStaysInBounds(t *testing.T) {
	geometries := []Geometry{
		Default(),
		{CylindersPerDisk: 80, TracksPerCylinder: 2, SectorsPerTrack: 18, BytesPerSector: 512, SectorsPerBlock: 2},
		{CylindersPerDisk: 3, TracksPerCylinder: 2, SectorsPerTrack: 4, BytesPerSector: 256, SectorsPerBlock: 3},
	}

	for _, g := range geometries {
		for b := 1; b <= g.Capacity(); b++ {
			a := g.Translate(b)
			require.GreaterOrEqual(t, a.Cylinder, 0, "block %d", b)
			require.Less(t, a.Cylinder, g.CylindersPerDisk, "block %d", b)
			require.Contains(t, []int{0, 1}, a.Track, "block %d", b)
			require.GreaterOrEqual(t, a.Sector, 0, "block %d", b)
			require.Less(t, a.Sector, g.SectorsPerTrack, "block %d", b)
		}
	}
}

func TestInRange(t *testing.T) {
	g := Default()
	assert.False(t, g.InRange(0))
	assert.True(t, g.InRange(1))
	assert.True(t, g.InRange(360))
	assert.False(t, g.InRange(361))
	assert.False(t, g.InRange(-4))
}

func TestValidate(t *testing.T) {
	g := Default()
	g.SectorsPerTrack = 0
	assert.ErrorIs(t, g.Validate(), ErrInvalidGeometry)

	g = Default()
	g.BytesPerSector = -1
	assert.ErrorIs(t, g.Validate(), ErrInvalidGeometry)
}

func TestByteOffset(t *testing.T) {
	g := Default()
	assert.Equal(t, int64(0), g.ByteOffset(Address{}))
	assert.Equal(t, int64(9*512), g.ByteOffset(Address{Track: 1}))
	assert.Equal(t, int64((1*2*9+4)*512), g.ByteOffset(Address{Cylinder: 1, Sector: 4}))
}
