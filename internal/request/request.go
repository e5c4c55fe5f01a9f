// Package request defines the pending I/O request, the completion message
// returned to the file system, and the validation rules a request must
// pass before it may touch the hardware.
package request

import (
	"fmt"
	"strings"

	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
)

// Operation is the file-system operation code carried by a request.
type Operation int

const (
	OpNone  Operation = 0
	OpRead  Operation = 1
	OpWrite Operation = 2
)

func (o Operation) String() string {
	switch o {
	case OpNone:
		return "NONE"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	default:
		return fmt.Sprintf("OP_%d", int(o))
	}
}

// Request is one pending I/O operation as posted by the file system.
type Request struct {
	Op     Operation
	ID     int
	Block  int
	Size   int
	Buffer interfaces.Handle
}

// Message is the record posted to the outbound mailbox once per cycle. Op
// is 0 for a successful transfer or an idle cycle, and the negative
// composite error code for a rejected request.
type Message struct {
	Op     int
	ID     int
	Buffer interfaces.Handle
	Block  int
	Size   int
}

// IdleMessage returns the all-zero record posted when nothing was serviced.
func IdleMessage() Message {
	return Message{}
}

// Completed echoes req in a success message.
func Completed(req Request) Message {
	return Message{ID: req.ID, Buffer: req.Buffer, Block: req.Block, Size: req.Size}
}

// Rejected echoes req in a failure message carrying the composite code.
func Rejected(req Request, v Violations) Message {
	m := Completed(req)
	m.Op = v.Code()
	return m
}

// Idle reports whether m is the idle record.
func (m Message) Idle() bool {
	return m == Message{}
}

// Failed reports whether m carries an error code.
func (m Message) Failed() bool {
	return m.Op < 0
}

// Violations decodes the composite error code of m.
func (m Message) Violations() Violations {
	return DecodeCode(m.Op)
}

// Violation is a single validation rule. Its value is the magnitude of
// the rule's penalty in the composite error code.
type Violation uint8

const (
	ViolationOperation  Violation = 1 << iota // neither read nor write
	ViolationRequestID                        // id below 1
	ViolationBlockRange                       // block outside 1..capacity
	ViolationBlockSize                        // odd, negative, or larger than a cylinder
	ViolationBuffer                           // null or negative buffer handle
)

var violationNames = []struct {
	v    Violation
	name string
}{
	{ViolationOperation, "operation"},
	{ViolationRequestID, "request id"},
	{ViolationBlockRange, "block range"},
	{ViolationBlockSize, "block size"},
	{ViolationBuffer, "buffer"},
}

// Violations is the set of rules a request broke. The zero value means the
// request is valid.
type Violations uint8

// Has reports whether v contains rule.
func (v Violations) Has(rule Violation) bool {
	return v&Violations(rule) != 0
}

// Add returns v with rule included.
func (v Violations) Add(rule Violation) Violations {
	return v | Violations(rule)
}

// Valid reports whether no rule was broken.
func (v Violations) Valid() bool {
	return v == 0
}

// Code returns the additive negative error code: the sum of the penalties
// of every violated rule, 0 when valid.
func (v Violations) Code() int {
	code := 0
	for _, vn := range violationNames {
		if v.Has(vn.v) {
			code -= int(vn.v)
		}
	}
	return code
}

// Rules lists the violated rules in penalty order.
func (v Violations) Rules() []Violation {
	var rules []Violation
	for _, vn := range violationNames {
		if v.Has(vn.v) {
			rules = append(rules, vn.v)
		}
	}
	return rules
}

func (v Violation) String() string {
	for _, vn := range violationNames {
		if vn.v == v {
			return vn.name
		}
	}
	return fmt.Sprintf("violation(%d)", uint8(v))
}

func (v Violations) String() string {
	if v.Valid() {
		return "valid"
	}
	names := make([]string, 0, len(violationNames))
	for _, rule := range v.Rules() {
		names = append(names, rule.String())
	}
	return strings.Join(names, ",")
}

// DecodeCode recovers the violation set from a composite error code.
// Non-negative codes decode to the empty set.
func DecodeCode(code int) Violations {
	if code >= 0 {
		return 0
	}
	return Violations(-code) & allViolations
}

const allViolations = Violations(ViolationOperation | ViolationRequestID |
	ViolationBlockRange | ViolationBlockSize | ViolationBuffer)

// Validate applies every rule to req and returns the set it violates. It
// is pure and must run before any hardware command is issued for req.
func Validate(req Request, g geometry.Geometry) Violations {
	var v Violations

	if req.Op != OpRead && req.Op != OpWrite {
		v = v.Add(ViolationOperation)
	}

	if req.ID < 1 {
		v = v.Add(ViolationRequestID)
	}

	if !g.InRange(req.Block) {
		v = v.Add(ViolationBlockRange)
	}

	if req.Size%2 != 0 || req.Size < 0 || req.Size > g.CylinderBytes() {
		v = v.Add(ViolationBlockSize)
	}

	if !req.Buffer.Valid() {
		v = v.Add(ViolationBuffer)
	}

	return v
}
