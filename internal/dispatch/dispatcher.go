// Package dispatch runs the driver's control loop: each cycle it drains
// the inbox into the pending queue, picks a request with the elevator,
// validates it, drives the motor, seek and transfer, and posts exactly one
// message to the outbox.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ehrlich-b/go-diskdrv/internal/constants"
	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
	"github.com/ehrlich-b/go-diskdrv/internal/mailbox"
	"github.com/ehrlich-b/go-diskdrv/internal/motor"
	"github.com/ehrlich-b/go-diskdrv/internal/queue"
	"github.com/ehrlich-b/go-diskdrv/internal/request"
	"github.com/ehrlich-b/go-diskdrv/internal/sched"
)

// ErrNotConfigured is returned by New when a required collaborator is missing.
var ErrNotConfigured = errors.New("dispatcher not configured")

// Config wires a Dispatcher to its collaborators.
type Config struct {
	DriveID      int
	Geometry     geometry.Geometry
	Hardware     interfaces.Hardware
	Inbox        *mailbox.Inbox
	Outbox       chan<- request.Message // written once per cycle by Run
	MaxPending   int                    // 0 for an unbounded queue
	MaxRequestID int
	IdleLimit    int
	PollInterval time.Duration
	Logger       *logging.Logger
	Observer     interfaces.Observer
}

// Status is a point-in-time view of the control loop.
type Status struct {
	Motor         motor.State
	Head          int
	IdleStreak    int
	Direction     sched.Direction
	Pending       int
	Cycles        uint64
	LastRequestID int
}

// Dispatcher owns the pending queue, the elevator and the motor controller.
// Cycle and Run must be called from a single goroutine; Status and Pending
// may be called from any goroutine and never wait on the hardware.
type Dispatcher struct {
	geom     geometry.Geometry
	hw       interfaces.Hardware
	inbox    *mailbox.Inbox
	outbox   chan<- request.Message
	logger   *logging.Logger
	observer interfaces.Observer

	// owned by the cycle goroutine
	queue    *queue.Pending
	elevator *sched.Elevator
	motor    *motor.Controller

	maxRequestID  int
	lastRequestID int
	cycles        uint64

	// snapshot published at cycle boundaries
	mu      sync.Mutex
	status  Status
	pending []request.Request
}

// New creates a dispatcher with an empty pending queue and the motor off.
func New(config Config) (*Dispatcher, error) {
	if config.Hardware == nil {
		return nil, fmt.Errorf("%w: no hardware", ErrNotConfigured)
	}
	if config.Inbox == nil {
		return nil, fmt.Errorf("%w: no inbox", ErrNotConfigured)
	}
	if err := config.Geometry.Validate(); err != nil {
		return nil, err
	}
	if config.MaxRequestID <= 0 {
		config.MaxRequestID = constants.DefaultMaxRequestID
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}
	if config.Observer == nil {
		config.Observer = interfaces.NoOpObserver{}
	}

	logger := config.Logger.WithDrive(config.DriveID)
	logger.Debug("creating dispatcher",
		"capacity", config.Geometry.Capacity(),
		"inbox", config.Inbox.Capacity(),
		"max_pending", config.MaxPending)

	d := &Dispatcher{
		geom:     config.Geometry,
		hw:       config.Hardware,
		inbox:    config.Inbox,
		outbox:   config.Outbox,
		logger:   logger,
		observer: config.Observer,
		queue:    queue.New(config.MaxPending),
		elevator: sched.NewElevator(config.Geometry),
		motor: motor.New(motor.Config{
			Hardware:     config.Hardware,
			IdleLimit:    config.IdleLimit,
			PollInterval: config.PollInterval,
			Logger:       logger,
			Observer:     config.Observer,
		}),
		maxRequestID: config.MaxRequestID,
	}
	d.publish()
	return d, nil
}

// Run executes cycles until ctx is cancelled or a fatal error occurs,
// posting each cycle's message to the outbox. A cycle that has started
// always runs to completion; cancellation is only observed between cycles
// and while waiting for the outbox to accept a message.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.outbox == nil {
		return fmt.Errorf("%w: no outbox", ErrNotConfigured)
	}

	d.logger.DebugContext(ctx, "control loop starting")
	for {
		select {
		case <-ctx.Done():
			d.logger.DebugContext(ctx, "control loop stopping", "cycles", d.cycles)
			return ctx.Err()
		default:
		}

		msg, err := d.Cycle()
		if err != nil {
			d.logger.WithError(err).ErrorContext(ctx, "control loop aborted", "cycles", d.cycles)
			return err
		}

		select {
		case d.outbox <- msg:
		case <-ctx.Done():
			d.logger.WarnContext(ctx, "control loop stopping with undelivered message", "request_id", msg.ID)
			return ctx.Err()
		}
	}
}

// Cycle runs one scheduling cycle and returns the message it produced. The
// only error is a fatal allocation failure of the pending queue.
func (d *Dispatcher) Cycle() (request.Message, error) {
	defer d.publish()

	d.cycles++
	if err := d.ingest(); err != nil {
		return request.Message{}, err
	}
	d.observer.ObserveQueueDepth(uint32(d.queue.Len()))
	d.publish()

	if d.queue.Empty() {
		return d.idle(), nil
	}
	return d.service()
}

// ingest moves every posted request into the pending queue. Request ids are
// informational: out-of-sequence and unnumbered requests are still queued.
func (d *Dispatcher) ingest() error {
	for _, req := range d.inbox.Drain() {
		d.trackSequence(req)

		if _, err := d.queue.Insert(req); err != nil {
			return fmt.Errorf("ingest request %d: %w", req.ID, err)
		}
	}
	return nil
}

func (d *Dispatcher) trackSequence(req request.Request) {
	if d.lastRequestID >= d.maxRequestID {
		d.lastRequestID = 0
	}

	switch {
	case req.ID <= 0:
		// unnumbered
	case req.ID > d.lastRequestID:
		d.lastRequestID = req.ID
	default:
		d.observer.ObserveOutOfSequence()
		d.logger.Warn("request id out of sequence", "request_id", req.ID, "last", d.lastRequestID)
	}
}

func (d *Dispatcher) idle() request.Message {
	if d.motor.Idle() {
		d.logger.Info("motor stopped after idle cycles", "idle_streak", d.motor.IdleStreak())
	}
	d.observer.ObserveIdle()
	return request.IdleMessage()
}

func (d *Dispatcher) service() (request.Message, error) {
	if d.motor.EnsureOn() {
		d.logger.Info("motor started", "head", d.motor.Head())
	}

	sel, err := d.elevator.SelectNext(d.queue, d.motor.Head())
	if err != nil {
		return request.Message{}, err
	}
	d.motor.Serviced()

	req := sel.Request
	logger := d.logger.WithRequest(req.ID, req.Op.String())

	var msg request.Message
	if v := request.Validate(req, d.geom); !v.Valid() {
		logger.Rejection(v.Code(), v.String())
		d.observer.ObserveReject(v.Code())
		msg = request.Rejected(req, v)
	} else {
		start := time.Now()
		d.transfer(req, sel.Address)
		latency := time.Since(start)

		logger.Completion(req.Block, req.Size, latency.Microseconds())
		d.observer.ObserveTransfer(req.Op == request.OpWrite, uint64(d.geom.BlockBytes()), uint64(latency.Nanoseconds()))
		msg = request.Completed(req)
	}

	if _, err := d.queue.Remove(sel.Ref); err != nil {
		return request.Message{}, err
	}
	return msg, nil
}

// transfer positions the heads and moves one block between the drive and
// the request's buffer.
func (d *Dispatcher) transfer(req request.Request, addr geometry.Address) {
	d.motor.SeekTo(addr.Cylinder)

	d.motor.Poll(interfaces.CmdDMASetup, interfaces.Operands{
		Sector: addr.Sector,
		Track:  addr.Track,
		Size:   d.geom.BlockBytes(),
		Buffer: req.Buffer,
	})

	cmd := interfaces.CmdRead
	if req.Op == request.OpWrite {
		cmd = interfaces.CmdWrite
	}
	d.motor.Poll(cmd, interfaces.Operands{})
}

// publish records the observable loop state for Status and Pending.
func (d *Dispatcher) publish() {
	status := Status{
		Motor:         d.motor.State(),
		Head:          d.motor.Head(),
		IdleStreak:    d.motor.IdleStreak(),
		Direction:     d.elevator.State().Direction,
		Pending:       d.queue.Len(),
		Cycles:        d.cycles,
		LastRequestID: d.lastRequestID,
	}
	pending := d.queue.Requests()

	d.mu.Lock()
	d.status, d.pending = status, pending
	d.mu.Unlock()
}

// Status returns the loop state as of the last ingest or completed cycle.
// It does not block while a cycle is polling the hardware.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Pending returns the queued requests in block order, as of the last
// ingest or completed cycle.
func (d *Dispatcher) Pending() []request.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]request.Request, len(d.pending))
	copy(out, d.pending)
	return out
}
