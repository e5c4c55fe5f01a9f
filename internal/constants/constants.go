package constants

import "time"

// Drive geometry defaults
const (
	// DefaultCylindersPerDisk is the number of cylinders on the drive
	DefaultCylindersPerDisk = 40

	// DefaultTracksPerCylinder is the number of tracks (heads) per cylinder
	DefaultTracksPerCylinder = 2

	// DefaultSectorsPerTrack is the number of sectors on one track
	DefaultSectorsPerTrack = 9

	// DefaultBytesPerSector is the sector size in bytes
	DefaultBytesPerSector = 512

	// DefaultSectorsPerBlock is the number of sectors in one logical block
	DefaultSectorsPerBlock = 2
)

// Driver configuration constants
const (
	// DefaultInboxCapacity is the number of request slots in the inbound mailbox
	DefaultInboxCapacity = 20

	// DefaultOutboxCapacity is the buffer size of the completion channel
	DefaultOutboxCapacity = 1

	// DefaultMaxRequestID is the request id at which sequencing wraps to 0
	DefaultMaxRequestID = 32767

	// DefaultIdleCyclesBeforeStop is the idle streak that powers the motor down
	DefaultIdleCyclesBeforeStop = 2

	// UnboundedPending disables the pending queue capacity limit
	UnboundedPending = 0
)

// Exit codes for fatal allocation failures, one per allocation site.
// ExitFailure covers every other error and stays clear of them.
const (
	ExitHeaderAlloc  = 1
	ExitTrailerAlloc = 2
	ExitRequestAlloc = 3
	ExitFailure      = 4
)

// Timing constants for the control loop
const (
	// DefaultPollInterval is the delay between hardware status polls (0 spins)
	DefaultPollInterval = 0 * time.Millisecond

	// ShutdownGrace is how long Stop waits for the control loop to exit
	ShutdownGrace = 1 * time.Second
)
