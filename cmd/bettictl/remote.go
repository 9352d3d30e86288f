package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/betti/internal/adapters/codec"
	"github.com/okian/betti/internal/client"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/internal/domain/types"
	"github.com/okian/betti/pkg/logger"
)

const defaultServer = "http://localhost:9080"

type remoteFlags struct {
	server  string
	timeout time.Duration
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	server := os.Getenv("BETTI_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.Flags().StringVar(&f.server, "server", server, "service base URL (env BETTI_SERVER)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "per-request timeout")
}

func (f *remoteFlags) client() *client.Client {
	return client.New(f.server, client.WithTimeout(f.timeout))
}

func newSubmitCmd() *cobra.Command {
	var (
		in   diagramFlags
		gf   gridFlags
		outf outputFlags
		rf   remoteFlags
		wait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a diagram on a running service",
		Long: `submit posts a diagram to a running betti service and prints the job
acknowledgement as json. With --wait it polls until the job finishes and
writes the curve table instead.`,
		Example: `  bettictl submit -d rips.pers --points 200
  bettictl submit -d rips.pers --wait 1m -o tsv --out curves.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Get().Named("submit")

			d, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			req, err := client.NewRequest(d)
			if err != nil {
				return err
			}
			spec := gf.spec(cmd)
			req.Start, req.Stop, req.Points, req.Dimensions = spec.Start, spec.Stop, spec.Points, gf.dims

			c := rf.client()
			ack, err := c.Submit(ctx, req)
			if err != nil {
				return err
			}
			log.Info(ctx, "job submitted", logger.String("job_id", ack.ID), logger.Bool("duplicate", ack.Duplicate))

			if wait <= 0 {
				return printJSON(cmd, ack)
			}

			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			res, err := c.Wait(waitCtx, ack.ID, 100*time.Millisecond)
			if err != nil {
				return err
			}
			return writeRemoteResult(cmd, &outf, res)
		},
	}

	in.register(cmd)
	gf.register(cmd)
	outf.register(cmd)
	rf.register(cmd)
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll until the job finishes, up to this long")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		outf outputFlags
		rf   remoteFlags
	)

	cmd := &cobra.Command{
		Use:     "fetch ID",
		Short:   "Fetch a job's curves from a running service",
		Example: `  bettictl fetch 6f1c0c8e-0d7e-4b7e-9d8a-3c0f1f0b6a11 -o csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rf.client().Result(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRemoteResult(cmd, &outf, res)
		},
	}

	outf.register(cmd)
	rf.register(cmd)
	return cmd
}

// writeRemoteResult writes finished curves as a table; other states are
// printed as json and failures become errors.
func writeRemoteResult(cmd *cobra.Command, outf *outputFlags, res types.CurveResponse) error { //nolint:gocritic // hugeParam: response is read-only
	switch model.Status(res.Status) {
	case model.StatusDone:
		return outf.write(cmd.OutOrStdout(), model.Result{
			ID:        res.ID,
			Status:    model.StatusDone,
			Grid:      res.Grid,
			Curves:    res.Curves,
			Intervals: res.Intervals,
		})
	case model.StatusFailed:
		return fmt.Errorf("job %s failed: %s", res.ID, res.Error)
	default:
		return printJSON(cmd, res)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil && !codec.IsBrokenPipe(err) {
		return err
	}
	return nil
}
