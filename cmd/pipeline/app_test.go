package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const aaaCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-02,10,10,10,10,10,100
2024-01-03,11,11,11,11,11,100
2024-01-04,12,12,12,12,12,100
`

var lastExitCode int

func TestMain(m *testing.M) {
	cli.OsExiter = func(code int) { lastExitCode = code }
	os.Exit(m.Run())
}

// setupEnv points the csv source at a temp data dir holding AAA and returns a db path.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "AAA.csv"), []byte(aaaCSV), 0o644))
	t.Setenv("SOURCE", "csv")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "error")
	lastExitCode = 0
	return filepath.Join(dir, "pipeline.db")
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"pipeline"}, args...))
	return out.String(), err
}

func TestRunCommand_JSON(t *testing.T) {
	db := setupEnv(t)

	out, err := runApp(t, "run", "--tickers", "aaa", "--start", "2024-01-01", "--end", "2024-01-31", "--db", db, "--json")

	require.NoError(t, err)
	var resp struct {
		Summary []struct {
			Ticker   string  `json:"ticker"`
			Date     string  `json:"date"`
			AdjClose float64 `json:"adj_close"`
		} `json:"summary"`
		Loaded []struct {
			Ticker string `json:"ticker"`
			Rows   int    `json:"rows"`
		} `json:"loaded"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Summary, 1)
	assert.Equal(t, "AAA", resp.Summary[0].Ticker)
	assert.Equal(t, "2024-01-04", resp.Summary[0].Date)
	assert.Equal(t, 12.0, resp.Summary[0].AdjClose)
	assert.Equal(t, 3, resp.Loaded[0].Rows)
}

func TestRunCommand_Table(t *testing.T) {
	db := setupEnv(t)

	out, err := runApp(t, "run", "--tickers", "AAA", "--start", "2024-01-01", "--end", "2024-01-31", "--db", db)

	require.NoError(t, err)
	assert.Contains(t, out, "TICKER")
	assert.Contains(t, out, "12.0000")
	assert.Contains(t, out, "loaded AAA: 3 rows")
}

func TestRunCommand_RefreshWithoutCache(t *testing.T) {
	db := setupEnv(t)

	out, err := runApp(t, "run", "--tickers", "AAA", "--start", "2024-01-01", "--end", "2024-01-31", "--db", db, "--refresh")

	require.NoError(t, err)
	assert.Contains(t, out, "loaded AAA: 3 rows")
}

func TestRunCommand_Failures(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"bad start date", []string{"--tickers", "AAA", "--start", "yesterday", "--end", "2024-01-31"}, 2},
		{"start after end", []string{"--tickers", "AAA", "--start", "2024-02-01", "--end", "2024-01-31"}, 2},
		{"missing ticker data", []string{"--tickers", "NOPE", "--start", "2024-01-01", "--end", "2024-01-31"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupEnv(t)

			_, err := runApp(t, append([]string{"run", "--db", db}, tt.args...)...)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, lastExitCode)
		})
	}
}

func TestSeriesAndExportCommands(t *testing.T) {
	db := setupEnv(t)
	_, err := runApp(t, "run", "--tickers", "AAA", "--start", "2024-01-01", "--end", "2024-01-31", "--db", db)
	require.NoError(t, err)

	out, err := runApp(t, "series", "--ticker", "AAA", "--db", db)
	require.NoError(t, err)
	var points []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-02", points[0]["date"])

	csvPath := filepath.Join(t.TempDir(), "aaa.csv")
	out, err = runApp(t, "export", "--ticker", "AAA", "--format", "csv", "--out", csvPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 rows")
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "ticker,date,open")
}
