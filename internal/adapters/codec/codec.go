// Package codec reads persistence diagrams and writes Betti curve tables.
//
// Diagram formats:
//   - text: gudhi's write_persistence_diagram layout, one interval per line as
//     "dim birth death" or "p dim birth death" (p is the field characteristic).
//     A bare "birth death" line belongs to dimension 0. Blank lines and lines
//     starting with '#' are skipped. Deaths may be "inf".
//   - json: {"0": [[birth, death], ...], "1": [...]}; a death may also be
//     "inf" or null.
//   - yaml: the same shape as json.
//
// Curve formats: csv, tsv (header "scale,betti_0,...", one row per grid
// point) and json ({"grid": [...], "curves": {"0": [...]}}).
package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a serialization.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// Sentinel errors.
var (
	ErrUnknownFormat = errors.New("codec: unknown format")
	ErrMalformed     = errors.New("codec: malformed input")
)

// ParseFormat maps a user-supplied name (case-insensitive, common aliases
// accepted) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "pers", "dgm", "gudhi":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "tsv", "tab":
		return FormatTSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: no extension in %q", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}
