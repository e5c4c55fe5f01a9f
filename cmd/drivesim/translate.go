package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTranslateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translate BLOCK...",
		Short: "Print the physical address of logical blocks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := opts.geometry
			for _, arg := range args {
				block, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("block %q: %w", arg, err)
				}
				if !g.InRange(block) {
					return fmt.Errorf("block %d out of range 1..%d", block, g.Capacity())
				}
				addr := g.Translate(block)
				fmt.Fprintf(cmd.OutOrStdout(), "block %d: cylinder %d track %d sector %d offset %d\n",
					block, addr.Cylinder, addr.Track, addr.Sector, g.ByteOffset(addr))
			}
			return nil
		},
	}
}
