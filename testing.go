package diskdrv

import "sync"

// MockHardware provides a mock implementation of Hardware for testing.
// Seeks land where asked unless misses are queued, status-type commands
// report ready after a configurable number of busy polls, and every call
// is recorded for verification.
type MockHardware struct {
	mu sync.Mutex

	head       int
	busyPolls  int
	missSeeks  int
	calls      []MockCall
	callCounts map[Command]int
}

// MockCall is one recorded Execute call
type MockCall struct {
	Cmd Command
	Ops Operands
}

// NewMockHardware creates a mock drive with its heads on cylinder head.
// Motor status, recalibrate and transfers report busy busyPolls times
// before completing.
func NewMockHardware(head, busyPolls int) *MockHardware {
	return &MockHardware{
		head:       head,
		busyPolls:  busyPolls,
		callCounts: make(map[Command]int),
	}
}

// Execute implements the Hardware interface
func (m *MockHardware) Execute(cmd Command, ops Operands) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Cmd: cmd, Ops: ops})
	m.callCounts[cmd]++

	switch cmd {
	case CmdSenseCylinder:
		return m.head
	case CmdSeek:
		m.head = ops.Cylinder
		if m.missSeeks > 0 {
			m.missSeeks--
			m.head = ops.Cylinder + 1
		}
		return m.head
	case CmdRecalibrate:
		m.head = 0
		return m.busy(cmd)
	case CmdMotorStatus, CmdDMASetup, CmdRead, CmdWrite:
		return m.busy(cmd)
	default:
		return 0
	}
}

// busy reports 1 until the command has been polled busyPolls+1 times in a row
func (m *MockHardware) busy(cmd Command) int {
	n := len(m.calls)
	streak := 0
	for i := n - 1; i >= 0 && m.calls[i].Cmd == cmd; i-- {
		streak++
	}
	if streak <= m.busyPolls {
		return 1
	}
	return 0
}

// Testing utility methods

// MissNextSeeks makes the next n seeks land one cylinder past the target
func (m *MockHardware) MissNextSeeks(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missSeeks = n
}

// Head returns the cylinder the mock heads are on
func (m *MockHardware) Head() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head
}

// Calls returns every recorded call in order
func (m *MockHardware) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Commands returns the recorded command sequence
func (m *MockHardware) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Cmd
	}
	return out
}

// CallCounts returns the number of times each command has been issued
func (m *MockHardware) CallCounts() map[Command]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Command]int, len(m.callCounts))
	for k, v := range m.callCounts {
		counts[k] = v
	}
	return counts
}

// Reset clears the call history
func (m *MockHardware) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCounts = make(map[Command]int)
}

// Compile-time interface check
var _ Hardware = (*MockHardware)(nil)
