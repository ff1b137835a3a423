package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/dataset"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

func testFrame(stage timeseries.Stage, values ...float64) timeseries.Frame {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(values))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 10 * time.Minute)
	}
	return timeseries.Frame{Stage: stage, Column: stage.Column(), Time: times, Values: values}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, f)

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	assert.Equal(t, FormatCSV, NormalizeFormat("xlsx"))
	assert.Equal(t, ".ndjson", FileExtension(FormatNDJSON))
}

func TestWriteFrameCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, testFrame(timeseries.StageNormal, 1.5, -2), FormatCSV))

	assert.Equal(t, "time,normal_data\n"+
		"2021-01-01 00:00:00,1.5\n"+
		"2021-01-01 00:10:00,-2\n", buf.String())
}

func TestWriteFramesMergesColumns(t *testing.T) {
	var buf bytes.Buffer
	frames := []timeseries.Frame{
		testFrame(timeseries.StageNormal, 1, 2),
		testFrame(timeseries.StageAnomaly, 1, 9),
		testFrame(timeseries.StageDrifted, 1.2, 10.8),
	}
	require.NoError(t, WriteFrames(&buf, frames, FormatCSV))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"time", "normal_data", "anomaly_data", "drifted_data"}, recs[0])
	assert.Equal(t, []string{"2021-01-01 00:10:00", "2", "9", "10.8"}, recs[2])
}

func TestWriteFramesLengthMismatch(t *testing.T) {
	err := WriteFrames(&bytes.Buffer{}, []timeseries.Frame{
		testFrame(timeseries.StageNormal, 1, 2),
		testFrame(timeseries.StageAnomaly, 1),
	}, FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryExport))
}

func TestWriteFrameJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, testFrame(timeseries.StageDrifted, 3), FormatJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2021-01-01 00:00:00", rows[0]["time"])
	assert.InDelta(t, 3.0, rows[0]["drifted_data"], 0)
}

func TestWriteSeriesNDJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeries(&buf, "pattern", []float64{0.5, 1, 2}, FormatNDJSON))

	sc := bufio.NewScanner(&buf)
	lines := 0
	for sc.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		assert.Contains(t, row, "index")
		assert.Contains(t, row, "pattern")
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestWriteCollection(t *testing.T) {
	c := &dataset.Collection{Samples: []dataset.Sample{
		{ID: "0", Values: []float64{1, 2.5}, Label: 0},
		{ID: "1", Values: []float64{-1, 40}, Label: 1},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCollection(&buf, c, FormatCSV))
	assert.Equal(t, "id,anomalous,ts\n0,0,1;2.5\n1,1,-1;40\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCollection(&buf, c, FormatJSON))
	var rows []struct {
		ID        string    `json:"id"`
		Anomalous int       `json:"anomalous"`
		TS        []float64 `json:"ts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[1].Anomalous)
	assert.Equal(t, []float64{-1, 40}, rows[1].TS)
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	err := WriteSeries(&strings.Builder{}, "x", []float64{1}, Format("xml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}
