package codec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/okian/betti/internal/domain/persistence"
)

// ReadDiagram decodes a diagram in the given format and validates it.
func ReadDiagram(r io.Reader, format Format) (persistence.Diagram, error) {
	var (
		d   persistence.Diagram
		err error
	)
	switch format {
	case FormatText:
		d, err = readText(r)
	case FormatJSON:
		var raw map[string][]any
		if err = json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrMalformed, err)
		}
		d, err = fromLoose(raw)
	case FormatYAML:
		var raw map[string][]any
		if err = yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: yaml: %w", ErrMalformed, err)
		}
		d, err = fromLoose(raw)
	default:
		return nil, fmt.Errorf("%w: %q is not a diagram format", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func readText(r io.Reader) (persistence.Diagram, error) {
	d := persistence.Diagram{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)

		var dimField string
		var pair []string
		switch len(fields) {
		case 2:
			dimField, pair = "0", fields
		case 3:
			dimField, pair = fields[0], fields[1:]
		case 4:
			dimField, pair = fields[1], fields[2:]
		default:
			return nil, fmt.Errorf("%w: line %d: want 2 to 4 fields, got %d", ErrMalformed, line, len(fields))
		}

		dim, err := strconv.Atoi(dimField)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: dimension %q", ErrMalformed, line, dimField)
		}
		birth, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: birth %q", ErrMalformed, line, pair[0])
		}
		death, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: death %q", ErrMalformed, line, pair[1])
		}
		d[dim] = append(d[dim], persistence.Interval{Birth: birth, Death: death})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return d, nil
}

// fromLoose converts the decoded json/yaml shape, coercing numbers that
// arrive as strings.
func fromLoose(raw map[string][]any) (persistence.Diagram, error) {
	d := make(persistence.Diagram, len(raw))
	for key, items := range raw {
		dim, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("%w: dimension key %q", ErrMalformed, key)
		}
		ivs := make([]persistence.Interval, 0, len(items))
		for i, item := range items {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("%w: dimension %d interval %d: want [birth, death]", ErrMalformed, dim, i)
			}
			birth, err := looseBirth(pair[0])
			if err != nil {
				return nil, fmt.Errorf("%w: dimension %d interval %d: birth: %w", ErrMalformed, dim, i, err)
			}
			death, err := looseDeath(pair[1])
			if err != nil {
				return nil, fmt.Errorf("%w: dimension %d interval %d: death: %w", ErrMalformed, dim, i, err)
			}
			ivs = append(ivs, persistence.Interval{Birth: birth, Death: death})
		}
		d[dim] = ivs
	}
	return d, nil
}

func looseBirth(v any) (float64, error) {
	if v == nil {
		return 0, errors.New("missing value")
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0, errors.New("empty value")
	}
	return cast.ToFloat64E(v)
}

func looseDeath(v any) (float64, error) {
	if v == nil {
		return math.Inf(1), nil
	}
	if s, ok := v.(string); ok {
		// cast treats "" as 0, which would silently kill the feature.
		if strings.TrimSpace(s) == "" {
			return 0, errors.New("empty value")
		}
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return cast.ToFloat64E(v)
}
