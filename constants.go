package diskdrv

import "github.com/ehrlich-b/go-diskdrv/internal/constants"

// Re-export constants for public API
const (
	DefaultCylindersPerDisk     = constants.DefaultCylindersPerDisk
	DefaultTracksPerCylinder    = constants.DefaultTracksPerCylinder
	DefaultSectorsPerTrack      = constants.DefaultSectorsPerTrack
	DefaultBytesPerSector       = constants.DefaultBytesPerSector
	DefaultSectorsPerBlock      = constants.DefaultSectorsPerBlock
	DefaultInboxCapacity        = constants.DefaultInboxCapacity
	DefaultOutboxCapacity       = constants.DefaultOutboxCapacity
	DefaultMaxRequestID         = constants.DefaultMaxRequestID
	DefaultIdleCyclesBeforeStop = constants.DefaultIdleCyclesBeforeStop
	UnboundedPending            = constants.UnboundedPending
	ExitRequestAlloc            = constants.ExitRequestAlloc
	ExitFailure                 = constants.ExitFailure
)
