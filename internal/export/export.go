// Package export writes generated series as CSV, JSON or NDJSON tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/synthdata/internal/dataset"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/foundation/normalization"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

// Format is an output table format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

var formatNormalizer = normalization.NewNormalizer("format", map[string]Format{
	"csv":    FormatCSV,
	"json":   FormatJSON,
	"ndjson": FormatNDJSON,
	"jsonl":  FormatNDJSON,
}, FormatCSV)

// ParseFormat resolves a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	f, err := formatNormalizer.Parse(s)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "unsupported output format").
			WithContext("format", s).
			UserAction().
			Build()
	}
	return f, nil
}

// NormalizeFormat is ParseFormat without the error: unknown names become CSV.
func NormalizeFormat(s string) Format { return formatNormalizer.Normalize(s) }

// Formats lists the accepted format names.
func Formats() []string { return formatNormalizer.ValidKeys() }

// FileExtension returns the extension, with dot, for f.
func FileExtension(f Format) string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatNDJSON:
		return ".ndjson"
	default:
		return ".csv"
	}
}

// ContentType returns the media type for f.
func ContentType(f Format) string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatNDJSON:
		return "application/x-ndjson"
	default:
		return "text/csv"
	}
}

// table is the common row model all writers go through.
type table struct {
	header []string
	rows   [][]any
}

// WriteFrame writes a single stage as time,<column>.
func WriteFrame(w io.Writer, f timeseries.Frame, format Format) error {
	return WriteFrames(w, []timeseries.Frame{f}, format)
}

// WriteFrames writes several stages of the same generator side by side, one
// column per frame in the given order. All frames must share the time column.
func WriteFrames(w io.Writer, frames []timeseries.Frame, format Format) error {
	if len(frames) == 0 {
		return errors.ExportError("no frames to write").Build()
	}
	n := frames[0].Len()
	header := []string{"time"}
	for _, f := range frames {
		if f.Len() != n || len(f.Time) != n {
			return errors.ExportError("frames differ in length").
				WithContext("column", f.Column).
				WithContext("expected", n).
				WithContext("actual", f.Len()).
				Build()
		}
		header = append(header, f.Column)
	}

	t := table{header: header, rows: make([][]any, n)}
	for i := range n {
		row := make([]any, 0, len(header))
		row = append(row, frames[0].Time[i].Format(timeseries.TimeLayout))
		for _, f := range frames {
			row = append(row, f.Values[i])
		}
		t.rows[i] = row
	}
	return write(w, t, format)
}

// WriteSeries writes an index,<name> table, as used for pattern series.
func WriteSeries(w io.Writer, name string, values []float64, format Format) error {
	if name == "" {
		name = "value"
	}
	t := table{header: []string{"index", name}, rows: make([][]any, len(values))}
	for i, v := range values {
		t.rows[i] = []any{i, v}
	}
	return write(w, t, format)
}

// WriteCollection writes id,anomalous,ts rows. In CSV the series is a
// ';'-separated list.
func WriteCollection(w io.Writer, c *dataset.Collection, format Format) error {
	if c == nil {
		return errors.ExportError("no collection to write").Build()
	}
	t := table{header: []string{"id", "anomalous", "ts"}, rows: make([][]any, len(c.Samples))}
	for i, s := range c.Samples {
		var ts any = s.Values
		if format == FormatCSV {
			ts = joinFloats(s.Values, ";")
		}
		t.rows[i] = []any{s.ID, s.Label, ts}
	}
	return write(w, t, format)
}

func write(w io.Writer, t table, format Format) error {
	var err error
	switch format {
	case FormatCSV, "":
		err = writeCSV(w, t)
	case FormatJSON:
		err = json.NewEncoder(w).Encode(objects(t))
	case FormatNDJSON:
		enc := json.NewEncoder(w)
		for _, o := range objects(t) {
			if err = enc.Encode(o); err != nil {
				break
			}
		}
	default:
		return errors.ValidationError("unsupported output format").WithContext("format", string(format)).Build()
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryExport, "failed to write table").
			WithContext("format", string(format)).
			Build()
	}
	return nil
}

func writeCSV(w io.Writer, t table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	rec := make([]string, len(t.header))
	for _, row := range t.rows {
		for i, cell := range row {
			rec[i] = cellString(cell)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func objects(t table) []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, row := range t.rows {
		o := make(map[string]any, len(t.header))
		for j, h := range t.header {
			o[h] = row[j]
		}
		out[i] = o
	}
	return out
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func joinFloats(v []float64, sep string) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = formatFloat(x)
	}
	return strings.Join(parts, sep)
}
