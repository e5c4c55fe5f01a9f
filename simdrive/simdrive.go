// Package simdrive simulates a rotating disk behind the drive command
// interface. Motor spin-up, recalibration and transfers take a configurable
// number of status polls, seeks can be made to mis-land, and transfers move
// bytes between registered buffers and a backing store.
package simdrive

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ehrlich-b/go-diskdrv/backend"
	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
)

var (
	// ErrUnknownBuffer is recorded when a transfer names an unregistered handle
	ErrUnknownBuffer = errors.New("unknown buffer handle")

	// ErrMotorOff is recorded when a transfer is attempted with the motor off
	ErrMotorOff = errors.New("motor is off")

	// ErrNotPrimed is recorded when a transfer is issued without DMA setup
	ErrNotPrimed = errors.New("transfer without DMA setup")
)

// Config configures a simulated drive
type Config struct {
	Geometry geometry.Geometry
	Storage  interfaces.Storage

	// Busy polls before each operation reports completion
	SpinUpPolls      int
	RecalibratePolls int
	TransferPolls    int

	// StartCylinder is where the heads rest at power-on
	StartCylinder int

	// CommandLog is how many of the most recent commands Commands keeps.
	// 0 disables recording.
	CommandLog int

	Logger *logging.Logger
}

type dmaState struct {
	sector int
	track  int
	size   int
	buffer interfaces.Handle
	primed bool
}

// Drive implements interfaces.Hardware. Execute is driven by a single
// control loop; buffer registration and inspection are safe from any
// goroutine.
type Drive struct {
	geom    geometry.Geometry
	storage interfaces.Storage
	config  Config
	logger  *logging.Logger

	mu sync.Mutex

	motorOn   bool
	spinLeft  int
	head      int
	recalLeft int
	busy      interfaces.Command // command with a countdown in progress
	xferLeft  int
	dma       dmaState
	failSeeks int

	buffers    map[interfaces.Handle][]byte
	nextHandle interfaces.Handle

	commands []interfaces.Command // ring of the last CommandLog commands
	issued   int
	faults   []error
}

// New creates a drive with its motor off. A nil Storage gets a zeroed
// in-memory image sized to the geometry.
func New(config Config) (*Drive, error) {
	if config.Geometry == (geometry.Geometry{}) {
		config.Geometry = geometry.Default()
	}
	if err := config.Geometry.Validate(); err != nil {
		return nil, err
	}
	if config.Storage == nil {
		config.Storage = backend.NewMemory(config.Geometry.ImageBytes())
	}
	if config.Storage.Size() < config.Geometry.ImageBytes() {
		return nil, fmt.Errorf("simdrive: storage holds %d bytes, geometry needs %d",
			config.Storage.Size(), config.Geometry.ImageBytes())
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}

	return &Drive{
		geom:       config.Geometry,
		storage:    config.Storage,
		config:     config,
		logger:     config.Logger,
		head:       config.StartCylinder,
		buffers:    make(map[interfaces.Handle][]byte),
		nextHandle: 1,
		commands:   make([]interfaces.Command, 0, max(config.CommandLog, 0)),
	}, nil
}

// Execute implements interfaces.Hardware
func (d *Drive) Execute(cmd interfaces.Command, ops interfaces.Operands) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.record(cmd)

	switch cmd {
	case interfaces.CmdSenseCylinder:
		return d.head

	case interfaces.CmdSeek:
		return d.seek(ops.Cylinder)

	case interfaces.CmdDMASetup:
		d.dma = dmaState{
			sector: ops.Sector,
			track:  ops.Track,
			size:   ops.Size,
			buffer: ops.Buffer,
			primed: true,
		}
		return 0

	case interfaces.CmdStartMotor:
		if !d.motorOn {
			d.motorOn = true
			d.spinLeft = d.config.SpinUpPolls
		}
		return 0

	case interfaces.CmdMotorStatus:
		if !d.motorOn {
			return 1
		}
		if d.spinLeft > 0 {
			d.spinLeft--
			return 1
		}
		return 0

	case interfaces.CmdRead, interfaces.CmdWrite:
		return d.transfer(cmd)

	case interfaces.CmdStopMotor:
		d.motorOn = false
		d.spinLeft = 0
		return 0

	case interfaces.CmdRecalibrate:
		if d.busy != cmd {
			d.busy = cmd
			d.recalLeft = d.config.RecalibratePolls
		}
		if d.recalLeft > 0 {
			d.recalLeft--
			return 1
		}
		d.busy = 0
		d.head = 0
		return 0

	default:
		d.fault(fmt.Errorf("unknown command %s", cmd))
		return -1
	}
}

func (d *Drive) record(cmd interfaces.Command) {
	limit := cap(d.commands)
	if limit == 0 {
		return
	}
	if len(d.commands) < limit {
		d.commands = append(d.commands, cmd)
	} else {
		d.commands[d.issued%limit] = cmd
	}
	d.issued++
}

func (d *Drive) seek(target int) int {
	landed := target
	if landed < 0 {
		landed = 0
	}
	if last := d.geom.CylindersPerDisk - 1; landed > last {
		landed = last
	}

	if d.failSeeks > 0 {
		d.failSeeks--
		if landed < d.geom.CylindersPerDisk-1 {
			landed++
		} else {
			landed--
		}
		d.logger.Debug("seek mis-landed", "target", target, "landed", landed)
	}

	d.head = landed
	return landed
}

func (d *Drive) transfer(cmd interfaces.Command) int {
	if d.busy != cmd {
		d.busy = cmd
		d.xferLeft = d.config.TransferPolls
	}
	if d.xferLeft > 0 {
		d.xferLeft--
		return 1
	}
	d.busy = 0

	dma := d.dma
	d.dma = dmaState{}

	switch {
	case !d.motorOn:
		d.fault(ErrMotorOff)
		return 0
	case !dma.primed:
		d.fault(ErrNotPrimed)
		return 0
	}

	buf, ok := d.buffers[dma.buffer]
	if !ok {
		d.fault(fmt.Errorf("%w: %d", ErrUnknownBuffer, dma.buffer))
		return 0
	}
	if len(buf) > dma.size {
		buf = buf[:dma.size]
	}

	off := d.geom.ByteOffset(geometry.Address{Cylinder: d.head, Track: dma.track, Sector: dma.sector})
	var err error
	if cmd == interfaces.CmdWrite {
		_, err = d.storage.WriteAt(buf, off)
	} else {
		_, err = d.storage.ReadAt(buf, off)
	}
	if err != nil {
		d.fault(fmt.Errorf("%s at offset %d: %w", cmd, off, err))
	}
	return 0
}

// fault records a transfer problem. The command interface has no error
// channel; faults are only visible through Faults.
func (d *Drive) fault(err error) {
	d.faults = append(d.faults, err)
	d.logger.WithError(err).Warn("drive fault")
}

// FailSeeks makes the next n seeks land on a neighbouring cylinder
func (d *Drive) FailSeeks(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSeeks = n
}

// RegisterBuffer makes buf addressable by transfers and returns its handle.
// The drive reads from and writes into buf directly.
func (d *Drive) RegisterBuffer(buf []byte) interfaces.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.nextHandle
	d.nextHandle++
	d.buffers[h] = buf
	return h
}

// ReleaseBuffer forgets a registered buffer
func (d *Drive) ReleaseBuffer(h interfaces.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, h)
}

// Buffer returns the buffer registered under h
func (d *Drive) Buffer(h interfaces.Handle) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[h]
	return buf, ok
}

// Commands returns the most recent commands, oldest first. At most
// Config.CommandLog are kept.
func (d *Drive) Commands() []interfaces.Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]interfaces.Command, 0, len(d.commands))
	if len(d.commands) < cap(d.commands) {
		return append(out, d.commands...)
	}
	start := d.issued % len(d.commands)
	out = append(out, d.commands[start:]...)
	return append(out, d.commands[:start]...)
}

// Faults returns every recorded transfer fault
func (d *Drive) Faults() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]error, len(d.faults))
	copy(out, d.faults)
	return out
}

// MotorOn reports whether the spindle is powered
func (d *Drive) MotorOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.motorOn
}

// Head returns the cylinder the heads are on
func (d *Drive) Head() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.head
}

// Storage returns the backing store
func (d *Drive) Storage() interfaces.Storage {
	return d.storage
}

var _ interfaces.Hardware = (*Drive)(nil)
