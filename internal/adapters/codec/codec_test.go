package codec_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okian/betti/internal/adapters/codec"
	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/persistence"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want codec.Format
	}{
		{"text", codec.FormatText},
		{"PERS", codec.FormatText},
		{"json", codec.FormatJSON},
		{"yml", codec.FormatYAML},
		{" csv ", codec.FormatCSV},
		{"tsv", codec.FormatTSV},
	}
	for _, tc := range cases {
		got, err := codec.ParseFormat(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}

	_, err := codec.ParseFormat("xml")
	require.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestFormatFromPath(t *testing.T) {
	f, err := codec.FormatFromPath("/data/torus.pers")
	require.NoError(t, err)
	require.Equal(t, codec.FormatText, f)

	f, err = codec.FormatFromPath("out/curves.TSV")
	require.NoError(t, err)
	require.Equal(t, codec.FormatTSV, f)

	_, err = codec.FormatFromPath("diagram")
	require.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestReadDiagramText(t *testing.T) {
	in := `# gudhi persistence
2 0 0.0 inf
2 0 0.1 0.7

1 0.3 0.9
0 0.2 +inf
0.5 0.6
`
	d, err := codec.ReadDiagram(strings.NewReader(in), codec.FormatText)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, d.Dimensions())
	require.Len(t, d[0], 4)
	require.True(t, math.IsInf(d[0][0].Death, 1))
	require.Equal(t, persistence.Interval{Birth: 0.1, Death: 0.7}, d[0][1])
	require.True(t, math.IsInf(d[0][2].Death, 1))
	require.Equal(t, persistence.Interval{Birth: 0.5, Death: 0.6}, d[0][3])
	require.Equal(t, []persistence.Interval{{Birth: 0.3, Death: 0.9}}, d[1])
}

func TestReadDiagramTextErrors(t *testing.T) {
	cases := map[string]string{
		"too many fields": "1 2 3 4 5\n",
		"bad dimension":   "x 0 1\n",
		"bad birth":       "0 b 1\n",
		"bad death":       "0 0 d\n",
	}
	for name, in := range cases {
		_, err := codec.ReadDiagram(strings.NewReader(in), codec.FormatText)
		require.ErrorIs(t, err, codec.ErrMalformed, name)
	}

	_, err := codec.ReadDiagram(strings.NewReader("0 2 1\n"), codec.FormatText)
	require.ErrorIs(t, err, persistence.ErrInvalidInterval)

	_, err = codec.ReadDiagram(strings.NewReader("-1 0 1\n"), codec.FormatText)
	require.ErrorIs(t, err, persistence.ErrInvalidDimension)
}

func TestReadDiagramJSON(t *testing.T) {
	in := `{"0": [[0, 2], [1, "inf"], ["0.5", null]], "1": [[1.5, 3.25]]}`
	d, err := codec.ReadDiagram(strings.NewReader(in), codec.FormatJSON)
	require.NoError(t, err)
	require.Equal(t, persistence.Interval{Birth: 0, Death: 2}, d[0][0])
	require.True(t, math.IsInf(d[0][1].Death, 1))
	require.Equal(t, 0.5, d[0][2].Birth)
	require.True(t, d[0][2].Unbounded())
	require.Equal(t, []persistence.Interval{{Birth: 1.5, Death: 3.25}}, d[1])

	bad := map[string]string{
		"not an object":  `[1, 2]`,
		"bad key":        `{"zero": [[0, 1]]}`,
		"short pair":     `{"0": [[0]]}`,
		"not a pair":     `{"0": [5]}`,
		"bad birth":      `{"0": [["soon", 1]]}`,
		"null birth":     `{"0": [[null, 2]]}`,
		"empty birth":    `{"0": [["", 2]]}`,
		"empty death":    `{"0": [[0, ""]]}`,
		"truncated json": `{"0": [[0, 1]`,
	}
	for name, in := range bad {
		_, err := codec.ReadDiagram(strings.NewReader(in), codec.FormatJSON)
		require.ErrorIs(t, err, codec.ErrMalformed, name)
	}
}

func TestReadDiagramYAML(t *testing.T) {
	in := `
0:
  - [0, 2]
  - [1, inf]
1:
  - [0.5, .inf]
  - [1, 3]
`
	d, err := codec.ReadDiagram(strings.NewReader(in), codec.FormatYAML)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, d.Dimensions())
	require.True(t, d[0][1].Unbounded())
	require.True(t, d[1][0].Unbounded())
	require.Equal(t, persistence.Interval{Birth: 1, Death: 3}, d[1][1])

	empty, err := codec.ReadDiagram(strings.NewReader(""), codec.FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())
}

func TestReadDiagramUnknownFormat(t *testing.T) {
	_, err := codec.ReadDiagram(strings.NewReader(""), codec.FormatCSV)
	require.ErrorIs(t, err, codec.ErrUnknownFormat)
}

func TestDiagramRoundTrip(t *testing.T) {
	d := persistence.Diagram{
		0: {{Birth: 0, Death: math.Inf(1)}, {Birth: 0, Death: 0.25}},
		1: {{Birth: math.Inf(-1), Death: 1.5}, {Birth: 0.125, Death: 0.75}},
		2: {},
	}
	for _, f := range []codec.Format{codec.FormatText, codec.FormatJSON, codec.FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, codec.WriteDiagram(&buf, d, f), f)

		got, err := codec.ReadDiagram(&buf, f)
		require.NoError(t, err, f)
		require.Equal(t, d.Fingerprint(), got.Fingerprint(), f)
	}
}

func TestWriteCurves(t *testing.T) {
	g, err := grid.Linspace(0, 2, 3)
	require.NoError(t, err)
	c := betti.Curves{1: {0, 1, 0}, 0: {2, 1, 1}}

	var buf bytes.Buffer
	require.NoError(t, codec.WriteCurves(&buf, g, c, codec.FormatCSV))
	require.Equal(t, "scale,betti_0,betti_1\n0,2,0\n1,1,1\n2,1,0\n", buf.String())

	buf.Reset()
	require.NoError(t, codec.WriteCurves(&buf, g, c, codec.FormatTSV))
	require.Equal(t, "scale\tbetti_0\tbetti_1\n0\t2\t0\n1\t1\t1\n2\t1\t0\n", buf.String())

	buf.Reset()
	require.NoError(t, codec.WriteCurves(&buf, g, c, codec.FormatJSON))
	require.JSONEq(t, `{"grid":[0,1,2],"curves":{"0":[2,1,1],"1":[0,1,0]}}`, buf.String())
}

func TestWriteCurvesErrors(t *testing.T) {
	g, err := grid.Linspace(0, 1, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = codec.WriteCurves(&buf, g, betti.Curves{0: {1, 1, 1}}, codec.FormatCSV)
	require.ErrorIs(t, err, codec.ErrMalformed)

	err = codec.WriteCurves(&buf, g, betti.Curves{0: {1, 1}}, codec.FormatYAML)
	require.ErrorIs(t, err, codec.ErrUnknownFormat)

	err = codec.WriteCurves(&buf, nil, betti.Curves{}, codec.FormatCSV)
	require.ErrorIs(t, err, grid.ErrInvalidGrid)
}

func TestIsBrokenPipe(t *testing.T) {
	require.True(t, codec.IsBrokenPipe(syscall.EPIPE))
	require.False(t, codec.IsBrokenPipe(nil))
	require.False(t, codec.IsBrokenPipe(errors.New("disk full")))
}
