package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/eventstore"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	var buf bytes.Buffer
	cli.out = &buf
	parser, err := kong.New(cli,
		kong.Name("synthdata"),
		Vars("test"),
		kong.Bind(&Global{}),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run(cli)
	return buf.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "synthdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeriesToStdout(t *testing.T) {
	out, err := runCLI(t, "series", "--seed", "9", "-a", "0.05")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 145)
	assert.Equal(t, "time,normal_data,anomaly_data", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2021-01-01 00:00:00,"))
}

func TestSeriesIsDeterministicForSeed(t *testing.T) {
	a, err := runCLI(t, "series", "-s", "3", "--drift-mean", "25", "-f", "json")
	require.NoError(t, err)
	b, err := runCLI(t, "series", "-s", "3", "--drift-mean", "25", "-f", "json")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(a), &rows))
	assert.Contains(t, rows[0], "drifted_data")
}

func TestSeriesRejectsBadFraction(t *testing.T) {
	_, err := runCLI(t, "series", "-a", "1.5")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestPatternToFileWithPlot(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "shapes.ndjson")
	img := filepath.Join(dir, "shapes.svg")

	out, err := runCLI(t, "pattern", "-n", "300", "--shapes", "bell", "--shapes", "cylinder", "-s", "4", "-o", table, "--plot", img)
	require.NoError(t, err)
	assert.Contains(t, out, "300 points")

	data, err := os.ReadFile(table)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 300)

	svg, err := os.ReadFile(img)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestDatasetRejectsPlot(t *testing.T) {
	_, err := runCLI(t, "dataset", "--plot", "x.png")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestDatasetCSV(t *testing.T) {
	out, err := runCLI(t, "dataset", "-n", "5", "--size", "20", "-s", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "id,anomalous,ts", lines[0])
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthdata.yaml")
	out, err := runCLI(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, path)

	_, err = runCLI(t, "-c", path, "init")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = runCLI(t, "-c", path, "init", "--force")
	require.NoError(t, err)
}

const runConfig = `
version: "1.0"
output:
  format: csv
  plot: svg
storage:
  event_store: "%s"
recipes:
  - name: plain
    kind: series
    seed: 1
  - name: shapes
    kind: pattern
    seed: 2
    pattern:
      length: 200
  - name: labelled
    kind: dataset
    seed: 3
    dataset:
      n: 4
      size: 50
`

func TestRunWritesEveryRecipe(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, strings.Replace(runConfig, "%s", filepath.Join(dir, "events.db"), 1))
	outDir := filepath.Join(dir, "out")

	out, err := runCLI(t, "-c", cfg, "run", "-o", outDir, "-p", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "RECIPE")
	assert.Contains(t, out, "labelled")

	for _, name := range []string{"plain.csv", "plain.svg", "shapes.csv", "shapes.svg", "labelled.csv"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	assert.NoFileExists(t, filepath.Join(outDir, "labelled.svg"))
}

func TestRunNamedRecipe(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, strings.Replace(runConfig, "%s", filepath.Join(dir, "events.db"), 1))
	outDir := filepath.Join(dir, "out")

	_, err := runCLI(t, "-c", cfg, "run", "shapes", "-o", outDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "shapes.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "plain.csv"))

	_, err = runCLI(t, "-c", cfg, "run", "missing", "-o", outDir)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestCatalogMarkdownAndHTML(t *testing.T) {
	md, err := runCLI(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, md, "## series")

	html, err := runCLI(t, "catalog", "--html")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestEventsListsRecordedRuns(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "events.db")
	cfg := writeConfig(t, dir, strings.Replace(runConfig, "%s", dbPath, 1))

	store, err := eventstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	ctx := t.Context()
	started, err := eventstore.NewRunStarted("run-1", eventstore.RunStartedMeta{Recipe: "plain", Kind: "series", Seed: 1})
	require.NoError(t, err)
	require.NoError(t, eventstore.Record(ctx, store, started))
	done, err := eventstore.NewRunCompleted("run-1", time.Second, 144, 7, map[string]string{"series": "abc"})
	require.NoError(t, err)
	require.NoError(t, eventstore.Record(ctx, store, done))
	require.NoError(t, store.Close())

	out, err := runCLI(t, "-c", cfg, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, eventstore.RunStatusCompleted)

	out, err = runCLI(t, "-c", cfg, "events", "run-1", "--json")
	require.NoError(t, err)
	var runs []eventstore.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 144, runs[0].Points)

	_, err = runCLI(t, "-c", cfg, "events", "nope")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	assert.Equal(t, "DEBUG", parseLogLevel(true, "error").String())
	assert.Equal(t, "WARN", parseLogLevel(false, "warn").String())
	assert.Equal(t, "INFO", parseLogLevel(false, "").String())

	t.Setenv(LogLevelEnv, "ERROR")
	assert.Equal(t, "ERROR", parseLogLevel(false, "debug").String())
}
