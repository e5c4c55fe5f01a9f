package simdrive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diskdrv "github.com/ehrlich-b/go-diskdrv"
	"github.com/ehrlich-b/go-diskdrv/backend"
	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
)

func newDrive(t *testing.T, config Config) *Drive {
	t.Helper()
	d, err := New(config)
	require.NoError(t, err)
	return d
}

func none() interfaces.Operands { return interfaces.Operands{} }

func TestNewDefaults(t *testing.T) {
	d := newDrive(t, Config{})
	assert.Equal(t, geometry.Default().ImageBytes(), d.Storage().Size())
	assert.False(t, d.MotorOn())
	assert.Equal(t, 0, d.Head())
}

func TestNewRejectsSmallStorage(t *testing.T) {
	_, err := New(Config{Storage: backend.NewMemory(1024)})
	assert.Error(t, err)

	_, err = New(Config{Geometry: geometry.Geometry{CylindersPerDisk: 1}})
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}

func TestSpinUp(t *testing.T) {
	d := newDrive(t, Config{SpinUpPolls: 3, StartCylinder: 12})

	assert.Equal(t, 1, d.Execute(interfaces.CmdMotorStatus, none()), "not ready before start")
	d.Execute(interfaces.CmdStartMotor, none())

	busy := 0
	for d.Execute(interfaces.CmdMotorStatus, none()) != 0 {
		busy++
	}
	assert.Equal(t, 3, busy)
	assert.Equal(t, 12, d.Execute(interfaces.CmdSenseCylinder, none()))

	d.Execute(interfaces.CmdStopMotor, none())
	assert.False(t, d.MotorOn())
}

func TestSeek(t *testing.T) {
	d := newDrive(t, Config{})

	assert.Equal(t, 17, d.Execute(interfaces.CmdSeek, interfaces.Operands{Cylinder: 17}))
	assert.Equal(t, 17, d.Head())

	d.FailSeeks(2)
	assert.Equal(t, 6, d.Execute(interfaces.CmdSeek, interfaces.Operands{Cylinder: 5}))
	assert.Equal(t, 38, d.Execute(interfaces.CmdSeek, interfaces.Operands{Cylinder: 39}))
	assert.Equal(t, 5, d.Execute(interfaces.CmdSeek, interfaces.Operands{Cylinder: 5}))
}

func TestRecalibrate(t *testing.T) {
	d := newDrive(t, Config{RecalibratePolls: 2, StartCylinder: 30})

	assert.Equal(t, 1, d.Execute(interfaces.CmdRecalibrate, none()))
	assert.Equal(t, 1, d.Execute(interfaces.CmdRecalibrate, none()))
	assert.Equal(t, 30, d.Head(), "heads move only once recalibration completes")
	assert.Equal(t, 0, d.Execute(interfaces.CmdRecalibrate, none()))
	assert.Equal(t, 0, d.Head())
}

func TestTransferFaults(t *testing.T) {
	d := newDrive(t, Config{})

	d.Execute(interfaces.CmdRead, none())
	d.Execute(interfaces.CmdStartMotor, none())
	d.Execute(interfaces.CmdRead, none())
	d.Execute(interfaces.CmdDMASetup, interfaces.Operands{Size: 1024, Buffer: 99})
	d.Execute(interfaces.CmdWrite, none())
	assert.Equal(t, -1, d.Execute(interfaces.Command(42), none()))

	faults := d.Faults()
	require.Len(t, faults, 4)
	assert.ErrorIs(t, faults[0], ErrMotorOff)
	assert.ErrorIs(t, faults[1], ErrNotPrimed)
	assert.ErrorIs(t, faults[2], ErrUnknownBuffer)
}

func TestTransferPolls(t *testing.T) {
	d := newDrive(t, Config{TransferPolls: 2})
	buf := make([]byte, 1024)
	h := d.RegisterBuffer(buf)

	d.Execute(interfaces.CmdStartMotor, none())
	d.Execute(interfaces.CmdDMASetup, interfaces.Operands{Size: 1024, Buffer: h})
	polls := 1
	for d.Execute(interfaces.CmdRead, none()) != 0 {
		polls++
	}
	assert.Equal(t, 3, polls)
	assert.Empty(t, d.Faults())
}

func TestBufferRegistry(t *testing.T) {
	d := newDrive(t, Config{})
	a := d.RegisterBuffer(make([]byte, 4))
	b := d.RegisterBuffer(make([]byte, 8))
	assert.NotEqual(t, a, b)
	assert.True(t, a.Valid())

	buf, ok := d.Buffer(b)
	require.True(t, ok)
	assert.Len(t, buf, 8)

	d.ReleaseBuffer(b)
	_, ok = d.Buffer(b)
	assert.False(t, ok)
}

func TestRoundTripThroughDriver(t *testing.T) {
	g := geometry.Default()
	store := backend.NewMemory(g.ImageBytes())
	d := newDrive(t, Config{Storage: store, SpinUpPolls: 2, TransferPolls: 1})
	d.FailSeeks(1)

	drv, err := diskdrv.New(d, diskdrv.DefaultParams(), &diskdrv.Options{Logger: logging.Nop()})
	require.NoError(t, err)

	out := bytes.Repeat([]byte("elevator"), 128)
	in := make([]byte, len(out))
	wh, rh := d.RegisterBuffer(out), d.RegisterBuffer(in)

	require.NoError(t, drv.Submit(diskdrv.Request{Op: diskdrv.OpWrite, ID: 1, Block: 30, Size: 1024, Buffer: wh}))
	msg, err := drv.Step()
	require.NoError(t, err)
	require.False(t, msg.Failed())

	require.NoError(t, drv.Submit(diskdrv.Request{Op: diskdrv.OpRead, ID: 2, Block: 30, Size: 1024, Buffer: rh}))
	msg, err = drv.Step()
	require.NoError(t, err)
	require.False(t, msg.Failed())

	assert.Equal(t, out, in)
	assert.Empty(t, d.Faults())

	raw := make([]byte, 1024)
	_, err = store.ReadAt(raw, g.ByteOffset(g.Translate(30)))
	require.NoError(t, err)
	assert.Equal(t, out, raw)

	assert.Equal(t, uint64(1), drv.MetricsSnapshot().Recalibrations)
}

func TestBlocksDoNotOverlap(t *testing.T) {
	g := geometry.Default()
	d := newDrive(t, Config{})
	drv, err := diskdrv.New(d, diskdrv.DefaultParams(), &diskdrv.Options{Logger: logging.Nop()})
	require.NoError(t, err)

	// Write each block of the first two cylinders with its own number.
	for block := 1; block <= 2*g.SectorsPerTrack; block++ {
		buf := bytes.Repeat([]byte{byte(block)}, g.BlockBytes())
		h := d.RegisterBuffer(buf)
		require.NoError(t, drv.Submit(diskdrv.Request{Op: diskdrv.OpWrite, ID: block, Block: block, Size: g.BlockBytes(), Buffer: h}))
		_, err := drv.Step()
		require.NoError(t, err)
	}

	for block := 1; block <= 2*g.SectorsPerTrack; block++ {
		raw := make([]byte, g.BlockBytes())
		_, err := d.Storage().ReadAt(raw, g.ByteOffset(g.Translate(block)))
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte(block)}, g.BlockBytes()), raw, "block %d", block)
	}
}

func TestUnknownCommandString(t *testing.T) {
	d := newDrive(t, Config{})
	d.Execute(interfaces.Command(77), none())
	require.Len(t, d.Faults(), 1)
	assert.Contains(t, d.Faults()[0].Error(), "CMD_77")
	assert.False(t, errors.Is(d.Faults()[0], ErrMotorOff))
}

func TestCommandLogIsBounded(t *testing.T) {
	off := newDrive(t, Config{})
	for i := 0; i < 100; i++ {
		off.Execute(interfaces.CmdMotorStatus, none())
	}
	assert.Empty(t, off.Commands())

	d := newDrive(t, Config{CommandLog: 3})
	d.Execute(interfaces.CmdStartMotor, none())
	d.Execute(interfaces.CmdSenseCylinder, none())
	assert.Equal(t, []interfaces.Command{interfaces.CmdStartMotor, interfaces.CmdSenseCylinder}, d.Commands())

	for i := 0; i < 1000; i++ {
		d.Execute(interfaces.CmdMotorStatus, none())
	}
	d.Execute(interfaces.CmdSeek, interfaces.Operands{Cylinder: 4})
	d.Execute(interfaces.CmdSenseCylinder, none())
	assert.Equal(t, []interfaces.Command{
		interfaces.CmdMotorStatus, interfaces.CmdSeek, interfaces.CmdSenseCylinder,
	}, d.Commands())
	assert.Equal(t, 3, cap(d.commands))
}
