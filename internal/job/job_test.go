package job

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/nwmpoint/internal/config"
	"github.com/rtm0/nwmpoint/internal/nwm"
	"github.com/rtm0/nwmpoint/internal/nwm/nwmtest"
)

// 2015-01-01 00:00 UTC in minutes since the epoch.
const jan2015 = 23667840

var frozen = time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setup lays out a data directory with two January files of 24 hourly steps
// and a three-station index table.
func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "nwm")
	outDir := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	for i, name := range []string{"201501010000.LDASOUT_DOMAIN1", "201501020000.LDASOUT_DOMAIN1"} {
		nwmtest.Write(t, filepath.Join(dataDir, "2015", name), nwmtest.File{
			Variable: "SNEQV",
			Values: nwmtest.Grid(24, 3, 4, func(step, y, x int) float32 {
				if i == 1 && step == 0 && y == 2 {
					return -9999
				}
				return float32(y*4+x) + 0.5
			}),
			Attrs: map[string]any{"units": "kg m-2", "_FillValue": float32(-9999)},
			Times: nwmtest.Minutes(jan2015+int32(i)*24*60, 60, 24),
		})
	}
	// Another month in the same year must be ignored.
	nwmtest.Write(t, filepath.Join(dataDir, "2015", "201502010000.LDASOUT_DOMAIN1"), nwmtest.File{
		Variable: "SNEQV",
		Values:   nwmtest.Grid(1, 3, 4, func(int, int, int) float32 { return 1 }),
		Attrs:    map[string]any{"units": "kg m-2"},
	})

	index := "Station_ID,Lat,Lon,Xindex,Yindex\n" +
		"A,45.1,-117.2,0,0\n" +
		"B,44.9,-117.0,3,1\n" +
		"C,44.7,-116.8,1,2\n"
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "Site_Info.csv"), []byte(index), 0o644))

	cfg, err := config.Load([]string{
		filepath.Join(root, "in"), outDir, dataDir, "NWM_RRv2", "nrcs.csv",
		"2015", "1", "SNEQV", "Site_Info.csv", "SNEQV_2015_01",
	})
	require.NoError(t, err)
	return cfg
}

func readArchive(t *testing.T, path string) (string, []string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return zr.File[0].Name, strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestRun(t *testing.T) {
	cfg := setup(t)
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "nwm.prom")

	res, err := Run(context.Background(), cfg, testLogger(), clockwork.NewFakeClockAt(frozen))
	require.NoError(t, err)

	assert.Equal(t, cfg.ArchivePath(), res.Output)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 48, res.Steps)
	assert.Equal(t, 3, res.Stations)
	assert.Equal(t, 143, res.Rows)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, time.Duration(0), res.Elapsed)

	name, lines := readArchive(t, res.Output)
	assert.Equal(t, "SNEQV_2015_01.csv", name)
	require.Len(t, lines, 144)
	assert.Equal(t, `"index","time","Station_ID","SNEQV_kg m-2"`, lines[0])
	assert.Equal(t, `"0","2015-01-01 00:00:00","A","0.5"`, lines[1])
	assert.Equal(t, `"1","2015-01-01 00:00:00","B","7.5"`, lines[2])
	assert.Equal(t, `"2","2015-01-01 00:00:00","C","9.5"`, lines[3])
	// Station C is undefined at step 24, so index 74 is missing.
	assert.Equal(t, `"72","2015-01-02 00:00:00","A","0.5"`, lines[73])
	assert.Equal(t, `"73","2015-01-02 00:00:00","B","7.5"`, lines[74])
	assert.Equal(t, `"75","2015-01-02 01:00:00","A","0.5"`, lines[75])
	assert.Equal(t, `"143","2015-01-02 23:00:00","C","9.5"`, lines[143])

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `nwm_point_rows_written_total{variable="SNEQV"} 143`)
	assert.Contains(t, string(prom), `nwm_point_last_success_timestamp_seconds{variable="SNEQV"} 1.7141436e+09`)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := setup(t)
	clock := clockwork.NewFakeClockAt(frozen)

	_, err := Run(context.Background(), cfg, testLogger(), clock)
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.ArchivePath())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	cfg.ChunkSteps = 5
	_, err = Run(context.Background(), cfg, testLogger(), clock)
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.ArchivePath())
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "archives differ between runs")
}

func TestRun_NoFiles(t *testing.T) {
	cfg := setup(t)
	cfg.Month = 3

	_, err := Run(context.Background(), cfg, testLogger(), clockwork.NewFakeClockAt(frozen))
	require.Error(t, err)
	assert.True(t, errors.Is(err, nwm.ErrNotFound))

	_, statErr := os.Stat(cfg.ArchivePath())
	assert.True(t, os.IsNotExist(statErr), "archive written despite failure")
}

func TestRun_MissingStationTable(t *testing.T) {
	cfg := setup(t)
	cfg.StationIndexFile = "absent.csv"

	_, err := Run(context.Background(), cfg, testLogger(), clockwork.NewFakeClockAt(frozen))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRun_UnknownVariable(t *testing.T) {
	cfg := setup(t)
	cfg.Variable = "FSNO"

	_, err := Run(context.Background(), cfg, testLogger(), clockwork.NewFakeClockAt(frozen))
	require.Error(t, err)
	assert.True(t, errors.Is(err, nwm.ErrSchemaMismatch))
}
