package diskdrv

import (
	"github.com/ehrlich-b/go-diskdrv/internal/dispatch"
	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
	"github.com/ehrlich-b/go-diskdrv/internal/request"
)

// Hardware is the drive command executor
type Hardware = interfaces.Hardware

// HardwareFunc adapts a plain function to Hardware
type HardwareFunc = interfaces.HardwareFunc

// Command is a drive op-code
type Command = interfaces.Command

const (
	CmdSenseCylinder = interfaces.CmdSenseCylinder
	CmdSeek          = interfaces.CmdSeek
	CmdDMASetup      = interfaces.CmdDMASetup
	CmdStartMotor    = interfaces.CmdStartMotor
	CmdMotorStatus   = interfaces.CmdMotorStatus
	CmdRead          = interfaces.CmdRead
	CmdWrite         = interfaces.CmdWrite
	CmdStopMotor     = interfaces.CmdStopMotor
	CmdRecalibrate   = interfaces.CmdRecalibrate
)

// Operands are the arguments of a drive command
type Operands = interfaces.Operands

// Handle is an opaque buffer reference passed through to the hardware
type Handle = interfaces.Handle

// NilHandle is the null buffer handle
const NilHandle = interfaces.NilHandle

// Storage is the byte store behind a simulated drive
type Storage = interfaces.Storage

// Geometry describes the drive layout
type Geometry = geometry.Geometry

// Address is a physical cylinder/track/sector location
type Address = geometry.Address

// Operation is a request kind
type Operation = request.Operation

const (
	OpRead  = request.OpRead
	OpWrite = request.OpWrite
)

// Request is one I/O operation submitted to the driver
type Request = request.Request

// Message is the per-cycle completion record
type Message = request.Message

// Violation is a single validation rule
type Violation = request.Violation

// Violations is a set of broken validation rules
type Violations = request.Violations

const (
	ViolationOperation  = request.ViolationOperation
	ViolationRequestID  = request.ViolationRequestID
	ViolationBlockRange = request.ViolationBlockRange
	ViolationBlockSize  = request.ViolationBlockSize
	ViolationBuffer     = request.ViolationBuffer
)

// DecodeCode returns the rules encoded in a negative message code
func DecodeCode(code int) Violations {
	return request.DecodeCode(code)
}

// ValidateRequest checks req against the rules applied before servicing
func ValidateRequest(req Request, g Geometry) Violations {
	return request.Validate(req, g)
}

// Status is a point-in-time view of the control loop
type Status = dispatch.Status

// Logger is the structured logger used by the driver
type Logger = logging.Logger
