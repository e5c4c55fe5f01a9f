package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	diskdrv "github.com/ehrlich-b/go-diskdrv"
	"github.com/ehrlich-b/go-diskdrv/backend"
	"github.com/ehrlich-b/go-diskdrv/internal/logging"
	"github.com/ehrlich-b/go-diskdrv/simdrive"
)

type runOptions struct {
	requests    requestList
	file        string
	image       string
	idle        int
	dump        bool
	maxPending  int
	idleLimit   int
	spinPolls   int
	xferPolls   int
	recalPolls  int
	seekMisses  int
	startCyl    int
	pollDelay   time.Duration
	waitTimeout time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Service a batch of requests on a simulated drive",
		Long: `Submits every request, prints one line per completion, and stops once all
requests have completed and the drive has been idle for --idle cycles.

Requests are op:id:block:size where op is read, write, r, w or a raw
operation number. Write buffers are filled with the low byte of the request id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := []requestSpec(opts.requests)
			if opts.file != "" {
				fromFile, err := loadRequests(opts.file)
				if err != nil {
					return err
				}
				specs = append(specs, fromFile...)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cmd.OutOrStdout(), root, opts, specs)
		},
	}

	flags := cmd.Flags()
	flags.VarP(&opts.requests, "req", "r", "request op:id:block:size (repeatable)")
	flags.StringVarP(&opts.file, "file", "f", "", "read requests from a file, one per line")
	flags.StringVar(&opts.image, "image", "", "back the drive with this image file instead of memory")
	flags.IntVar(&opts.idle, "idle", 2, "idle cycles to run after the last completion")
	flags.BoolVar(&opts.dump, "dump", false, "dump final driver status and metrics")
	flags.IntVar(&opts.maxPending, "max-pending", diskdrv.UnboundedPending, "pending queue limit (0 for unbounded)")
	flags.IntVar(&opts.idleLimit, "idle-limit", diskdrv.DefaultIdleCyclesBeforeStop, "idle cycles before the motor stops")
	flags.IntVar(&opts.spinPolls, "spin-polls", 3, "busy status polls during motor spin-up")
	flags.IntVar(&opts.xferPolls, "transfer-polls", 1, "busy polls per read or write")
	flags.IntVar(&opts.recalPolls, "recal-polls", 2, "busy polls per recalibration")
	flags.IntVar(&opts.seekMisses, "seek-misses", 0, "number of seeks that land on the wrong cylinder")
	flags.IntVar(&opts.startCyl, "start-cylinder", 0, "cylinder the heads rest on at power-on")
	flags.DurationVar(&opts.pollDelay, "poll-interval", 0, "delay between status polls")
	flags.DurationVar(&opts.waitTimeout, "timeout", 30*time.Second, "give up if the batch has not finished")

	return cmd
}

func loadRequests(path string) ([]requestSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRequests(f)
}

// runBatch serves specs on a fresh simulated drive and prints each
// completion to out.
func runBatch(ctx context.Context, out io.Writer, root *rootOptions, opts *runOptions, specs []requestSpec) error {
	if len(specs) == 0 {
		return errors.New("no requests given; use --req or --file")
	}
	g := root.geometry

	var storage diskdrv.Storage
	if opts.image != "" {
		f, err := backend.OpenFile(opts.image, g.ImageBytes())
		if err != nil {
			return err
		}
		storage = f
	} else {
		storage = backend.NewMemory(g.ImageBytes())
	}
	defer storage.Close()

	drive, err := simdrive.New(simdrive.Config{
		Geometry:         g,
		Storage:          storage,
		SpinUpPolls:      opts.spinPolls,
		RecalibratePolls: opts.recalPolls,
		TransferPolls:    opts.xferPolls,
		StartCylinder:    opts.startCyl,
		Logger:           root.logger,
	})
	if err != nil {
		return err
	}
	drive.FailSeeks(opts.seekMisses)

	params := diskdrv.DefaultParams()
	params.Geometry = g
	params.MaxPending = opts.maxPending
	params.IdleCyclesBeforeStop = opts.idleLimit
	params.PollInterval = opts.pollDelay

	driver, err := diskdrv.New(drive, params, &diskdrv.Options{Logger: root.logger})
	if err != nil {
		return err
	}

	requests := make([]diskdrv.Request, len(specs))
	for i, s := range specs {
		buf := make([]byte, g.BlockBytes())
		if s.Op == diskdrv.OpWrite {
			for j := range buf {
				buf[j] = byte(s.ID)
			}
		}
		requests[i] = diskdrv.Request{Op: s.Op, ID: s.ID, Block: s.Block, Size: s.Size, Buffer: drive.RegisterBuffer(buf)}
	}

	// Fill the inbox before starting so the first cycle sees a full batch.
	next := submitAvailable(driver, requests)
	if err := driver.Start(ctx); err != nil {
		return err
	}
	defer driver.Stop(context.Background())

	timeout := time.After(opts.waitTimeout)
	completed, idle := 0, 0
	for completed < len(requests) || idle < opts.idle {
		select {
		case msg, ok := <-driver.Completions():
			if !ok {
				if err := driver.Err(); err != nil {
					return err
				}
				return ctx.Err()
			}
			if msg.Idle() {
				if completed == len(requests) {
					idle++
				}
			} else {
				completed++
				idle = 0
				printCompletion(out, drive, msg)
			}
			next += submitAvailable(driver, requests[next:])
		case <-timeout:
			logging.WarnCtx(ctx, "batch timed out", "completed", completed, "requests", len(requests))
			return fmt.Errorf("timed out with %d of %d requests completed", completed, len(requests))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := driver.Stop(context.Background()); err != nil {
		return err
	}
	logging.InfoCtx(ctx, "batch complete", "requests", len(requests), "cycles", driver.Status().Cycles)
	if opts.dump {
		dump(out, driver, drive)
	}
	return driver.Err()
}

// submitAvailable posts requests until the inbox fills and returns how many
// were accepted.
func submitAvailable(driver *diskdrv.Driver, requests []diskdrv.Request) int {
	for i, req := range requests {
		if err := driver.Submit(req); err != nil {
			return i
		}
	}
	return len(requests)
}

func printCompletion(out io.Writer, drive *simdrive.Drive, msg diskdrv.Message) {
	if msg.Failed() {
		fmt.Fprintf(out, "request %d block %d: rejected code=%d (%s)\n",
			msg.ID, msg.Block, msg.Op, msg.Violations())
		return
	}

	var head []byte
	if buf, ok := drive.Buffer(msg.Buffer); ok && len(buf) > 0 {
		head = buf[:min(8, len(buf))]
	}
	fmt.Fprintf(out, "request %d block %d: ok size=%d data=% x\n", msg.ID, msg.Block, msg.Size, head)
}

func dump(out io.Writer, driver *diskdrv.Driver, drive *simdrive.Drive) {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	fmt.Fprintln(out, "status:")
	cfg.Fdump(out, driver.Status())
	fmt.Fprintln(out, "metrics:")
	cfg.Fdump(out, driver.MetricsSnapshot())
	if faults := drive.Faults(); len(faults) > 0 {
		fmt.Fprintln(out, "faults:")
		cfg.Fdump(out, faults)
	}
}
