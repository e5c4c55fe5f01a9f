// Package motor drives the spindle motor and head positioning of the drive:
// spin-up and spin-down around idle periods, and seeks with recalibration
// when the heads land on the wrong cylinder.
package motor

import (
	"time"

	"github.com/ehrlich-b/go-diskdrv/internal/constants"
	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
)

// State is the spindle motor state.
type State int

const (
	StateOff State = iota
	StateSpinningUp
	StateOn
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateSpinningUp:
		return "spinning-up"
	case StateOn:
		return "on"
	default:
		return "unknown"
	}
}

// Config configures a Controller.
type Config struct {
	Hardware     interfaces.Hardware
	IdleLimit    int           // idle cycles in a row before the motor stops
	PollInterval time.Duration // delay between status polls, 0 spins
	Logger       *logging.Logger
	Observer     interfaces.Observer
}

// Controller tracks motor power, the idle streak and the head position.
// Every method issues its hardware commands synchronously; status polls
// block until the drive reports ready and never time out.
type Controller struct {
	hw           interfaces.Hardware
	idleLimit    int
	pollInterval time.Duration
	logger       *logging.Logger
	observer     interfaces.Observer

	state      State
	idleStreak int
	head       int
}

// New creates a controller for a drive whose motor is off.
func New(config Config) *Controller {
	if config.IdleLimit <= 0 {
		config.IdleLimit = constants.DefaultIdleCyclesBeforeStop
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}
	if config.Observer == nil {
		config.Observer = interfaces.NoOpObserver{}
	}

	return &Controller{
		hw:           config.Hardware,
		idleLimit:    config.IdleLimit,
		pollInterval: config.PollInterval,
		logger:       config.Logger,
		observer:     config.Observer,
		state:        StateOff,
	}
}

// State returns the motor state.
func (c *Controller) State() State {
	return c.state
}

// IdleStreak returns the number of consecutive idle cycles observed.
func (c *Controller) IdleStreak() int {
	return c.idleStreak
}

// Head returns the cylinder the heads were last known to be on. It is only
// meaningful while the motor is on.
func (c *Controller) Head() int {
	return c.head
}

func (c *Controller) transition(to State) {
	c.logger.MotorTransition(c.state.String(), to.String())
	c.state = to
}

// EnsureOn spins the motor up if it is off: start, wait for the drive to
// report ready, then sense the head position. It reports whether a
// spin-up happened.
func (c *Controller) EnsureOn() bool {
	if c.state == StateOn {
		return false
	}

	c.transition(StateSpinningUp)
	c.hw.Execute(interfaces.CmdStartMotor, interfaces.Operands{})
	polls := c.poll(interfaces.CmdMotorStatus)

	c.head = c.hw.Execute(interfaces.CmdSenseCylinder, interfaces.Operands{})
	c.transition(StateOn)
	c.observer.ObserveMotor(true)
	c.logger.Debug("motor ready", "polls", polls, "head", c.head)
	return true
}

// Serviced records that a request was handled this cycle.
func (c *Controller) Serviced() {
	c.idleStreak = 0
}

// Idle records a cycle with an empty queue and stops the motor once the
// idle streak reaches the limit. It reports whether the motor was stopped.
func (c *Controller) Idle() bool {
	c.idleStreak++
	if c.idleStreak < c.idleLimit || c.state != StateOn {
		return false
	}

	c.hw.Execute(interfaces.CmdStopMotor, interfaces.Operands{})
	c.transition(StateOff)
	c.observer.ObserveMotor(false)
	return true
}

// SeekTo moves the heads to target. A seek that lands on the wrong
// cylinder is recovered by recalibrating to cylinder 0 and seeking again
// until the heads land correctly. It returns the number of seek commands
// issued.
func (c *Controller) SeekTo(target int) int {
	if c.head == target {
		return 0
	}
	logger := c.logger.WithCylinder(target)

	seeks := 1
	landed := c.seek(logger, target)
	for landed != target {
		c.poll(interfaces.CmdRecalibrate)
		c.observer.ObserveRecalibrate()
		c.head = 0
		landed = 0
		logger.Debug("recalibrated", "missed", seeks)

		if target != 0 {
			seeks++
			landed = c.seek(logger, target)
		}
	}

	c.head = landed
	return seeks
}

func (c *Controller) seek(logger *logging.Logger, target int) int {
	landed := c.hw.Execute(interfaces.CmdSeek, interfaces.Operands{Cylinder: target})
	c.observer.ObserveSeek(distance(c.head, target), landed != target)
	logger.SeekResult(target, landed)
	return landed
}

func (c *Controller) poll(cmd interfaces.Command) int {
	return c.Poll(cmd, interfaces.Operands{})
}

// Poll repeats cmd with ops until the drive reports 0 and returns the
// number of attempts. Status, recalibrate, DMA setup and transfers all
// complete this way.
func (c *Controller) Poll(cmd interfaces.Command, ops interfaces.Operands) int {
	polls := 1
	for c.hw.Execute(cmd, ops) != 0 {
		polls++
		if c.pollInterval > 0 {
			time.Sleep(c.pollInterval)
		}
	}
	return polls
}

func distance(from, to int) uint32 {
	if from > to {
		return uint32(from - to)
	}
	return uint32(to - from)
}
