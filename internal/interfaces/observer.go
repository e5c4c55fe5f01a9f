package interfaces

// Observer receives driver events for metrics collection. Methods are
// called from the control loop and must not block.
type Observer interface {
	// ObserveTransfer is called for each completed read or write
	ObserveTransfer(write bool, bytes uint64, latencyNs uint64)

	// ObserveReject is called for each request refused by validation
	ObserveReject(code int)

	// ObserveSeek is called for each seek command with the distance asked
	// for and whether the heads landed elsewhere
	ObserveSeek(distance uint32, missed bool)

	// ObserveRecalibrate is called for each completed recalibration
	ObserveRecalibrate()

	// ObserveMotor is called when the motor is started or stopped
	ObserveMotor(on bool)

	// ObserveIdle is called for each cycle with an empty queue
	ObserveIdle()

	// ObserveQueueDepth is called once per cycle with the pending count
	ObserveQueueDepth(depth uint32)

	// ObserveOutOfSequence is called for each ingested request whose id
	// does not advance the sequence
	ObserveOutOfSequence()
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveTransfer(bool, uint64, uint64) {}
func (NoOpObserver) ObserveReject(int)                    {}
func (NoOpObserver) ObserveSeek(uint32, bool)             {}
func (NoOpObserver) ObserveRecalibrate()                  {}
func (NoOpObserver) ObserveMotor(bool)                    {}
func (NoOpObserver) ObserveIdle()                         {}
func (NoOpObserver) ObserveQueueDepth(uint32)             {}
func (NoOpObserver) ObserveOutOfSequence()                {}

var _ Observer = NoOpObserver{}
