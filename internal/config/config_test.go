package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArgs() []string {
	return []string{
		"/data/in", "/data/out", "/data/nwm", "NWM_RRv2", "nrcs_sites.csv",
		"2015", "01", "SNEQV", "Site_Info.csv", "SNEQV_2015_01",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(testArgs())
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, "/data/nwm", cfg.DataDir)
	assert.Equal(t, "NWM_RRv2", cfg.Dataset)
	assert.Equal(t, "nrcs_sites.csv", cfg.StationRefFile)
	assert.Equal(t, 2015, cfg.Year)
	assert.Equal(t, 1, cfg.Month)
	assert.Equal(t, "SNEQV", cfg.Variable)
	assert.Equal(t, "Site_Info.csv", cfg.StationIndexFile)
	assert.Equal(t, "SNEQV_2015_01", cfg.OutputName)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 1, cfg.ChunkSteps)
	assert.Equal(t, "time", cfg.TimeDim)
	assert.Equal(t, "time", cfg.TimeVar)
	assert.Equal(t, "x", cfg.XDim)
	assert.Equal(t, "y", cfg.YDim)
	assert.Equal(t, "Station_ID", cfg.StationIDColumn)
	assert.Equal(t, "Xindex", cfg.XIndexColumn)
	assert.Equal(t, "Yindex", cfg.YIndexColumn)
	assert.Empty(t, cfg.MetricsTextfile)

	assert.Equal(t, filepath.Join("/data/out", "Site_Info.csv"), cfg.StationIndexPath())
	assert.Equal(t, filepath.Join("/data/out", "SNEQV_2015_01.zip"), cfg.ArchivePath())
	assert.Equal(t, "SNEQV_2015_01.csv", cfg.ArchiveEntry())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CHUNK_STEPS", "24")
	t.Setenv("TIME_DIM", "Time")
	t.Setenv("TIME_VAR", "Times")
	t.Setenv("X_DIM", "west_east")
	t.Setenv("Y_DIM", "south_north")
	t.Setenv("STATION_ID_COLUMN", "gage")
	t.Setenv("X_INDEX_COLUMN", "col")
	t.Setenv("Y_INDEX_COLUMN", "row")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/nwm.prom")

	cfg, err := Load(testArgs())
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 24, cfg.ChunkSteps)
	assert.Equal(t, "Time", cfg.TimeDim)
	assert.Equal(t, "Times", cfg.TimeVar)
	assert.Equal(t, "west_east", cfg.XDim)
	assert.Equal(t, "south_north", cfg.YDim)
	assert.Equal(t, "gage", cfg.StationIDColumn)
	assert.Equal(t, "col", cfg.XIndexColumn)
	assert.Equal(t, "row", cfg.YIndexColumn)
	assert.Equal(t, "/var/lib/node_exporter/nwm.prom", cfg.MetricsTextfile)
}

func TestLoad_WrongArgCount(t *testing.T) {
	_, err := Load(testArgs()[:9])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 10")
}

func TestLoad_InvalidArgs(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		value   string
		wantErr string
	}{
		{"year not a number", 5, "twenty", "year"},
		{"year too short", 5, "15", "year"},
		{"month zero", 6, "0", "month"},
		{"month thirteen", 6, "13", "month"},
		{"empty variable", 7, " ", "variable"},
		{"empty data dir", 2, "", "data directory"},
		{"empty output dir", 1, "", "output directory"},
		{"empty index file", 8, "", "station index"},
		{"output name with separator", 9, "a/b", "output name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := testArgs()
			args[tt.index] = tt.value
			_, err := Load(args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidChunkSteps(t *testing.T) {
	for _, v := range []string{"0", "-3", "lots", "20000"} {
		t.Setenv("CHUNK_STEPS", v)
		_, err := Load(testArgs())
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "CHUNK_STEPS")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := Load(testArgs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestLoad_SingleDigitMonth(t *testing.T) {
	args := testArgs()
	args[6] = "7"
	cfg, err := Load(args)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Month)
}
