// Package diskdrv drives a single rotating disk: requests are queued in
// block order, picked by an elevator sweep, validated, and serviced one at
// a time through a synchronous hardware command interface.
package diskdrv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ehrlich-b/go-diskdrv/internal/constants"
	"github.com/ehrlich-b/go-diskdrv/internal/dispatch"
	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
	"github.com/ehrlich-b/go-diskdrv/internal/mailbox"
)

// DriverParams contains parameters for creating a driver
type DriverParams struct {
	// Geometry of the drive (default: 40 cylinders, 2 tracks, 9 sectors
	// of 512 bytes, 2 sectors per block)
	Geometry Geometry

	// Mailboxes
	InboxCapacity  int // Request slots shared with the producer (default: 20)
	OutboxCapacity int // Completion channel buffer (default: 1)

	// Scheduling
	MaxRequestID         int // Request id at which sequencing wraps (default: 32767)
	IdleCyclesBeforeStop int // Idle streak that stops the motor (default: 2)
	MaxPending           int // Pending queue limit, 0 for unbounded

	// PollInterval is the delay between hardware status polls. 0 spins.
	PollInterval time.Duration

	// DriveID labels logs and errors
	DriveID int
}

// DefaultParams returns default driver parameters
func DefaultParams() DriverParams {
	return DriverParams{
		Geometry:             geometry.Default(),
		InboxCapacity:        constants.DefaultInboxCapacity,
		OutboxCapacity:       constants.DefaultOutboxCapacity,
		MaxRequestID:         constants.DefaultMaxRequestID,
		IdleCyclesBeforeStop: constants.DefaultIdleCyclesBeforeStop,
		MaxPending:           constants.UnboundedPending,
		PollInterval:         constants.DefaultPollInterval,
	}
}

// Validate reports the first out-of-range parameter
func (p DriverParams) Validate() error {
	invalid := func(msg string) *Error {
		return NewDriveError("VALIDATE", p.DriveID, ErrCodeInvalidParameters, msg)
	}

	if err := p.Geometry.Validate(); err != nil {
		e := invalid(err.Error())
		e.Inner = err
		return e
	}
	switch {
	case p.InboxCapacity <= 0:
		return invalid("inbox capacity must be positive")
	case p.OutboxCapacity < 0:
		return invalid("outbox capacity must not be negative")
	case p.MaxRequestID <= 0:
		return invalid("max request id must be positive")
	case p.IdleCyclesBeforeStop <= 0:
		return invalid("idle cycles before stop must be positive")
	case p.MaxPending < 0:
		return invalid("max pending must not be negative")
	case p.PollInterval < 0:
		return invalid("poll interval must not be negative")
	}
	return nil
}

// Options contains additional options for driver creation
type Options struct {
	// Logger for driver events (if nil, logging.Default() is used)
	Logger *Logger

	// Observer receives driver events in addition to the built-in metrics
	Observer Observer
}

// DriverState represents the lifecycle state of a driver
type DriverState string

const (
	// DriverStateCreated indicates the driver has been built but its loop not started
	DriverStateCreated DriverState = "created"
	// DriverStateRunning indicates the control loop is running
	DriverStateRunning DriverState = "running"
	// DriverStateStopped indicates the control loop has exited
	DriverStateStopped DriverState = "stopped"
)

// Driver owns a drive's mailboxes and control loop
type Driver struct {
	// ID labels logs and errors
	ID int

	// Geometry of the driven disk
	Geometry Geometry

	params     DriverParams
	inbox      *mailbox.Inbox
	outbox     chan Message
	dispatcher *dispatch.Dispatcher
	logger     *Logger

	metrics *Metrics

	mu       sync.Mutex
	state    DriverState
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	stopOnce sync.Once
}

// New creates a driver without starting its control loop. Cycles can be
// run one at a time with Step, or the loop started with Start.
func New(hw Hardware, params DriverParams, options *Options) (*Driver, error) {
	if hw == nil {
		return nil, NewError("NEW", ErrCodeInvalidParameters, "hardware is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if options == nil {
		options = &Options{}
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Default()
	}

	metrics := NewMetrics()
	var observer Observer = NewMetricsObserver(metrics)
	if options.Observer != nil {
		observer = multiObserver{observer, options.Observer}
	}

	d := &Driver{
		ID:       params.DriveID,
		Geometry: params.Geometry,
		params:   params,
		inbox:    mailbox.NewInbox(params.InboxCapacity),
		outbox:   make(chan Message, params.OutboxCapacity),
		logger:   logger.WithDrive(params.DriveID),
		metrics:  metrics,
		state:    DriverStateCreated,
		done:     make(chan struct{}),
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		DriveID:      params.DriveID,
		Geometry:     params.Geometry,
		Hardware:     hw,
		Inbox:        d.inbox,
		Outbox:       d.outbox,
		MaxPending:   params.MaxPending,
		MaxRequestID: params.MaxRequestID,
		IdleLimit:    params.IdleCyclesBeforeStop,
		PollInterval: params.PollInterval,
		Logger:       logger,
		Observer:     observer,
	})
	if err != nil {
		return nil, WrapError("NEW", err)
	}
	d.dispatcher = dispatcher

	return d, nil
}

// Serve creates a driver and starts its control loop. The loop runs until
// ctx is cancelled, Stop is called, or the pending queue is exhausted.
//
// Example:
//
//	drive, _ := simdrive.New(simdrive.Config{Storage: backend.NewMemory(size)})
//	d, err := diskdrv.Serve(ctx, drive, diskdrv.DefaultParams(), nil)
//	d.Submit(diskdrv.Request{Op: diskdrv.OpRead, ID: 1, Block: 10, Size: 1024, Buffer: h})
//	msg := <-d.Completions()
func Serve(ctx context.Context, hw Hardware, params DriverParams, options *Options) (*Driver, error) {
	d, err := New(hw, params, options)
	if err != nil {
		return nil, err
	}
	if err := d.Start(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Start launches the control loop in its own goroutine
func (d *Driver) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DriverStateCreated {
		return NewDriveError("START", d.ID, ErrCodeDriverStopped, fmt.Sprintf("driver is %s", d.state))
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.state = DriverStateRunning
	go d.run(ctx)

	d.logger.InfoContext(ctx, "driver started",
		"blocks", d.Geometry.Capacity(),
		"inbox", d.params.InboxCapacity,
		"idle_limit", d.params.IdleCyclesBeforeStop)
	return nil
}

func (d *Driver) run(ctx context.Context) {
	err := d.dispatcher.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	d.mu.Lock()
	if err != nil {
		e := WrapError("RUN", err)
		e.Drive = d.ID
		d.err = e
		d.logger.WithError(err).Error("driver stopped on fatal error")
	}
	d.state = DriverStateStopped
	d.mu.Unlock()

	d.metrics.Stop()
	close(d.outbox)
	close(d.done)
}

// Step runs a single cycle on a driver whose loop has not been started and
// returns its message directly instead of posting it.
func (d *Driver) Step() (Message, error) {
	d.mu.Lock()
	state := d.state
	d.mu.Unlock()
	if state != DriverStateCreated {
		return Message{}, NewDriveError("STEP", d.ID, ErrCodeDriverStopped, fmt.Sprintf("driver is %s", state))
	}

	msg, err := d.dispatcher.Cycle()
	if err != nil {
		return Message{}, WrapError("STEP", err)
	}
	return msg, nil
}

// Submit posts req to the inbox. It fails with ErrInboxFull when every
// slot holds an unconsumed request.
func (d *Driver) Submit(req Request) error {
	if d.State() == DriverStateStopped {
		return NewRequestError("SUBMIT", d.ID, req.ID, ErrCodeDriverStopped, "driver stopped")
	}
	if err := d.inbox.Post(req); err != nil {
		e := WrapError("SUBMIT", err)
		e.Drive, e.Request = d.ID, req.ID
		return e
	}
	return nil
}

// Completions returns the outbound mailbox. Exactly one message is posted
// per cycle; idle cycles post the all-zero message. The channel is closed
// when the control loop exits.
func (d *Driver) Completions() <-chan Message {
	return d.outbox
}

// Done is closed when the control loop has exited
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// State returns the lifecycle state of the driver
func (d *Driver) State() DriverState {
	if d == nil {
		return DriverStateStopped
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsRunning returns true if the control loop is running
func (d *Driver) IsRunning() bool {
	return d.State() == DriverStateRunning
}

// Status returns a snapshot of motor, head and queue state taken at the
// last cycle boundary. It does not wait for a cycle in progress.
func (d *Driver) Status() Status {
	return d.dispatcher.Status()
}

// Pending returns the queued requests in block order
func (d *Driver) Pending() []Request {
	return d.dispatcher.Pending()
}

// Err returns the fatal error that stopped the loop, if any
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Metrics returns the live metrics of the driver
func (d *Driver) Metrics() *Metrics {
	if d == nil {
		return nil
	}
	return d.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of driver metrics
func (d *Driver) MetricsSnapshot() MetricsSnapshot {
	if d == nil || d.metrics == nil {
		return MetricsSnapshot{}
	}
	return d.metrics.Snapshot()
}

// Stop cancels the control loop and waits for it to exit. A cycle already
// in progress runs to completion. If ctx is nil a one second grace period
// applies. Stopping a driver that was never started only marks it stopped.
func (d *Driver) Stop(ctx context.Context) error {
	if d == nil {
		return ErrInvalidParameters
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), constants.ShutdownGrace)
		defer cancel()
	}

	d.stopOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.state == DriverStateCreated {
			d.state = DriverStateStopped
			d.metrics.Stop()
			close(d.outbox)
			close(d.done)
			return
		}
		d.cancel()
	})

	select {
	case <-d.done:
		d.logger.Info("driver stopped")
		return nil
	case <-ctx.Done():
		return NewDriveError("STOP", d.ID, ErrCodeDriverStopped, "timed out waiting for control loop")
	}
}
