package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/betti/internal/adapters/codec"
	app "github.com/okian/betti/internal/app"
	"github.com/okian/betti/internal/config"
	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/internal/domain/persistence"
	"github.com/okian/betti/pkg/logger"
)

// gridFlags are shared by curve and submit.
type gridFlags struct {
	start  float64
	stop   float64
	points int
	dims   []int
}

func (f *gridFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.start, "start", 0, "first grid value (default 0)")
	cmd.Flags().Float64Var(&f.stop, "stop", 0, "last grid value (default: largest finite value in the diagram)")
	cmd.Flags().IntVar(&f.points, "points", 0, "grid size (default from config, 100)")
	cmd.Flags().IntSliceVar(&f.dims, "dims", nil, "homology dimensions (default from config plus those in the diagram)")
}

// spec returns the grid spec, leaving unset flags to the service defaults.
func (f *gridFlags) spec(cmd *cobra.Command) model.GridSpec {
	var spec model.GridSpec
	if cmd.Flags().Changed("start") {
		v := f.start
		spec.Start = &v
	}
	if cmd.Flags().Changed("stop") {
		v := f.stop
		spec.Stop = &v
	}
	spec.Points = f.points
	return spec
}

type diagramFlags struct {
	path   string
	format string
}

func (f *diagramFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "diagram", "d", "", "persistence diagram file, - for stdin")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "diagram format: text, json, yaml (default: from extension, text for stdin)")
	_ = cmd.MarkFlagRequired("diagram")
}

func (f *diagramFlags) read(stdin io.Reader) (persistence.Diagram, error) {
	format, err := f.resolveFormat()
	if err != nil {
		return nil, err
	}
	r := stdin
	if f.path != "-" {
		file, err := os.Open(f.path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		r = file
	}
	d, err := codec.ReadDiagram(r, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return d, nil
}

func (f *diagramFlags) resolveFormat() (codec.Format, error) {
	switch {
	case f.format != "":
		return codec.ParseFormat(f.format)
	case f.path == "-":
		return codec.FormatText, nil
	default:
		return codec.FormatFromPath(f.path)
	}
}

type outputFlags struct {
	format string
	path   string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "output", "o", string(codec.FormatCSV), "curve table format: csv, tsv, json")
	cmd.Flags().StringVar(&f.path, "out", "", "write the table to this file instead of stdout")
}

// write renders the curves, tolerating a reader that stops early.
func (f *outputFlags) write(stdout io.Writer, res model.Result) (err error) { //nolint:gocritic // hugeParam: result is read-only
	format, err := codec.ParseFormat(f.format)
	if err != nil {
		return err
	}
	g, err := grid.New(res.Grid)
	if err != nil {
		return err
	}

	w := stdout
	if f.path != "" {
		file, createErr := os.Create(f.path)
		if createErr != nil {
			return createErr
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
		w = file
	}

	if err := codec.WriteCurves(w, g, betti.Curves(res.Curves), format); err != nil && !codec.IsBrokenPipe(err) {
		return err
	}
	return nil
}

func newCurveCmd() *cobra.Command {
	var (
		in   diagramFlags
		gf   gridFlags
		outf outputFlags
	)

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Compute Betti curves for a diagram file",
		Example: `  bettictl curve -d rips.pers --points 100 --dims 0,1,2 > curves.csv
  bettictl curve -d diagram.json --start 0 --stop 2.5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Get().Named("curve")

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			d, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}

			svc := app.New(append(app.OptionsFromConfig(cfg), app.WithLogger(log))...)
			res, err := svc.Compute(ctx, model.Request{
				Diagram:    d,
				Grid:       gf.spec(cmd),
				Dimensions: gf.dims,
			})
			if err != nil {
				return err
			}
			log.Info(ctx, "curves computed",
				logger.Int("intervals", res.Intervals),
				logger.Int("gridPoints", len(res.Grid)),
			)
			return outf.write(cmd.OutOrStdout(), res)
		},
	}

	in.register(cmd)
	gf.register(cmd)
	outf.register(cmd)
	return cmd
}
