package main

import (
	"github.com/spf13/cobra"

	diskdrv "github.com/ehrlich-b/go-diskdrv"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
)

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	geometry  diskdrv.Geometry
	verbose   bool
	logFormat string

	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{geometry: diskdrv.DefaultParams().Geometry}

	cmd := &cobra.Command{
		Use:           "drivesim",
		Short:         "Drive an elevator-scheduled disk simulator",
		Long:          `drivesim feeds read and write requests to the disk driver and services them on a simulated rotating drive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := logging.DefaultConfig()
			config.Output = cmd.ErrOrStderr()
			config.Format = opts.logFormat
			config.Sync = true
			if opts.verbose {
				config.Level = logging.LevelDebug
			}
			opts.logger = logging.NewLogger(config)
			logging.SetDefault(opts.logger)
			return opts.geometry.Validate()
		},
	}

	flags := cmd.PersistentFlags()
	flags.IntVar(&opts.geometry.CylindersPerDisk, "cylinders", opts.geometry.CylindersPerDisk, "cylinders per disk")
	flags.IntVar(&opts.geometry.TracksPerCylinder, "tracks", opts.geometry.TracksPerCylinder, "tracks per cylinder")
	flags.IntVar(&opts.geometry.SectorsPerTrack, "sectors", opts.geometry.SectorsPerTrack, "sectors per track")
	flags.IntVar(&opts.geometry.BytesPerSector, "sector-bytes", opts.geometry.BytesPerSector, "bytes per sector")
	flags.IntVar(&opts.geometry.SectorsPerBlock, "sectors-per-block", opts.geometry.SectorsPerBlock, "sectors per logical block")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format (text or json)")

	cmd.AddCommand(newRunCmd(opts), newTranslateCmd(opts))
	return cmd
}
