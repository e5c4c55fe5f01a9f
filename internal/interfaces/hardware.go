package interfaces

import "fmt"

// Command is a drive op-code accepted by Hardware.Execute.
type Command int

const (
	CmdSenseCylinder Command = 1 // returns the cylinder under the heads
	CmdSeek          Command = 2 // returns the cylinder the heads landed on
	CmdDMASetup      Command = 3 // returns 0 when the transfer is primed
	CmdStartMotor    Command = 4
	CmdMotorStatus   Command = 5 // returns 0 once the spindle is up to speed
	CmdRead          Command = 6 // returns 0 when the transfer is done
	CmdWrite         Command = 7 // returns 0 when the transfer is done
	CmdStopMotor     Command = 8
	CmdRecalibrate   Command = 9 // returns 0 once the heads rest on cylinder 0
)

func (c Command) String() string {
	switch c {
	case CmdSenseCylinder:
		return "SENSE_CYLINDER"
	case CmdSeek:
		return "SEEK"
	case CmdDMASetup:
		return "DMA_SETUP"
	case CmdStartMotor:
		return "START_MOTOR"
	case CmdMotorStatus:
		return "MOTOR_STATUS"
	case CmdRead:
		return "READ"
	case CmdWrite:
		return "WRITE"
	case CmdStopMotor:
		return "STOP_MOTOR"
	case CmdRecalibrate:
		return "RECALIBRATE"
	default:
		return fmt.Sprintf("CMD_%d", int(c))
	}
}

// Handle is an opaque reference to a caller-owned data buffer. The driver
// never dereferences it; it only passes it through to the hardware.
type Handle int64

// NilHandle is the null buffer handle carried by idle messages.
const NilHandle Handle = 0

// Valid reports whether h can be handed to the DMA engine.
func (h Handle) Valid() bool {
	return h > NilHandle
}

// Operands are the positional arguments of a drive command. Commands
// ignore the operands they do not use.
type Operands struct {
	Cylinder int
	Sector   int
	Track    int
	Size     int
	Buffer   Handle
}

// Hardware is the drive command executor. Execute issues exactly one
// command and returns its integer status or result. Implementations are
// driven by a single control loop and need not be safe for concurrent use.
type Hardware interface {
	Execute(cmd Command, ops Operands) int
}

// HardwareFunc adapts a plain function to the Hardware interface.
type HardwareFunc func(cmd Command, ops Operands) int

// Execute calls f(cmd, ops).
func (f HardwareFunc) Execute(cmd Command, ops Operands) int {
	return f(cmd, ops)
}

// Storage is the byte store behind a simulated drive. This interface is
// intentionally similar to io.ReaderAt and io.WriterAt.
type Storage interface {
	// ReadAt reads len(p) bytes into p starting at offset off.
	// Implementations must not retain p.
	ReadAt(p []byte, off int64) (n int, err error)

	// WriteAt writes len(p) bytes from p at offset off.
	// Implementations must not retain p.
	WriteAt(p []byte, off int64) (n int, err error)

	// Size returns the size of the store in bytes.
	Size() int64

	// Close releases any resources. No other method may be called after it.
	Close() error

	// Flush flushes cached writes to stable storage.
	Flush() error
}

// StatStorage is an optional interface for stores that report statistics.
type StatStorage interface {
	Storage

	// Stats returns store-specific statistics keyed by name.
	Stats() map[string]interface{}
}
