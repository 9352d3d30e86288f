package codec

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/persistence"
)

// CurveTable is the json layout of a curve set.
type CurveTable struct {
	Grid   []float64     `json:"grid"`
	Curves map[int][]int `json:"curves"`
}

// WriteCurves writes one row per grid point with a column per dimension,
// dimensions ascending.
func WriteCurves(w io.Writer, g *grid.Grid, c betti.Curves, format Format) error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", grid.ErrInvalidGrid)
	}
	dims := c.Dimensions()
	for _, dim := range dims {
		if len(c[dim]) != g.Len() {
			return fmt.Errorf("%w: dimension %d has %d samples for a %d-point grid", ErrMalformed, dim, len(c[dim]), g.Len())
		}
	}

	switch format {
	case FormatCSV, FormatTSV:
		cw := csv.NewWriter(w)
		if format == FormatTSV {
			cw.Comma = '\t'
		}
		header := make([]string, 0, len(dims)+1)
		header = append(header, "scale")
		for _, dim := range dims {
			header = append(header, "betti_"+strconv.Itoa(dim))
		}
		if err := cw.Write(header); err != nil {
			return err
		}
		row := make([]string, len(header))
		for i := 0; i < g.Len(); i++ {
			row[0] = strconv.FormatFloat(g.At(i), 'g', -1, 64)
			for j, dim := range dims {
				row[j+1] = strconv.Itoa(c[dim][i])
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		curves := make(map[int][]int, len(c))
		for dim, curve := range c {
			curves[dim] = curve
		}
		enc := json.NewEncoder(w)
		return enc.Encode(CurveTable{Grid: g.Values(), Curves: curves})
	default:
		return fmt.Errorf("%w: %q is not a curve format", ErrUnknownFormat, format)
	}
}

// WriteDiagram serializes a diagram in a format ReadDiagram accepts.
// Infinite endpoints are written as "inf" / "-inf".
func WriteDiagram(w io.Writer, d persistence.Diagram, format Format) error {
	switch format {
	case FormatText:
		bw := bufio.NewWriter(w)
		for _, dim := range d.Dimensions() {
			for _, iv := range d.Sorted(dim) {
				if _, err := fmt.Fprintf(bw, "%d %s %s\n", dim, formatEndpoint(iv.Birth), formatEndpoint(iv.Death)); err != nil {
					return err
				}
			}
		}
		return bw.Flush()
	case FormatJSON:
		return json.NewEncoder(w).Encode(toLoose(d))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(toLoose(d)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q is not a diagram format", ErrUnknownFormat, format)
	}
}

func toLoose(d persistence.Diagram) map[string][][2]any {
	out := make(map[string][][2]any, len(d))
	for _, dim := range d.Dimensions() {
		ivs := d.Sorted(dim)
		pairs := make([][2]any, len(ivs))
		for i, iv := range ivs {
			pairs[i] = [2]any{looseEndpoint(iv.Birth), looseEndpoint(iv.Death)}
		}
		out[strconv.Itoa(dim)] = pairs
	}
	return out
}

func formatEndpoint(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// looseEndpoint keeps finite values numeric; json has no infinity literal.
func looseEndpoint(v float64) any {
	if math.IsInf(v, 0) {
		return formatEndpoint(v)
	}
	return v
}
