package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumArgs is the number of positional arguments accepted by Load.
const NumArgs = 10

// Config holds the settings of one extraction job. The first ten fields come
// from positional arguments, the rest from environment variables.
type Config struct {
	InputDir         string
	OutputDir        string
	DataDir          string
	Dataset          string
	StationRefFile   string
	Year             int
	Month            int
	Variable         string
	StationIndexFile string
	OutputName       string

	LogLevel  string
	LogFormat string

	// Layout of the gridded files.
	ChunkSteps int
	TimeDim    string
	TimeVar    string
	XDim       string
	YDim       string

	// Column names of the station index table.
	StationIDColumn string
	XIndexColumn    string
	YIndexColumn    string

	// MetricsTextfile is where job metrics are written; empty disables them.
	MetricsTextfile string
}

// Load builds a Config from positional arguments and environment variables,
// applying defaults where unset.
func Load(args []string) (*Config, error) {
	if len(args) != NumArgs {
		return nil, errors.Errorf("got %d arguments, want %d: %s", len(args), NumArgs, Usage)
	}

	year, err := strconv.Atoi(args[5])
	if err != nil || year < 1000 || year > 9999 {
		return nil, errors.Errorf("invalid year %q", args[5])
	}
	month, err := strconv.Atoi(args[6])
	if err != nil || month < 1 || month > 12 {
		return nil, errors.Errorf("invalid month %q", args[6])
	}
	chunkSteps, err := parseChunkSteps()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputDir:         args[0],
		OutputDir:        args[1],
		DataDir:          args[2],
		Dataset:          args[3],
		StationRefFile:   args[4],
		Year:             year,
		Month:            month,
		Variable:         strings.TrimSpace(args[7]),
		StationIndexFile: args[8],
		OutputName:       strings.TrimSpace(args[9]),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),

		ChunkSteps: chunkSteps,
		TimeDim:    envOrDefault("TIME_DIM", "time"),
		TimeVar:    envOrDefault("TIME_VAR", "time"),
		XDim:       envOrDefault("X_DIM", "x"),
		YDim:       envOrDefault("Y_DIM", "y"),

		StationIDColumn: envOrDefault("STATION_ID_COLUMN", "Station_ID"),
		XIndexColumn:    envOrDefault("X_INDEX_COLUMN", "Xindex"),
		YIndexColumn:    envOrDefault("Y_INDEX_COLUMN", "Yindex"),

		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Variable == "" {
		return nil, errors.New("variable is required")
	}
	if cfg.StationIndexFile == "" {
		return nil, errors.New("station index file name is required")
	}
	if cfg.OutputName == "" || strings.ContainsRune(cfg.OutputName, filepath.Separator) {
		return nil, errors.Errorf("invalid output name %q", cfg.OutputName)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, errors.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}

// Usage lists the positional arguments in order.
const Usage = "input_dir output_dir data_dir dataset station_ref_file year month variable station_index_file output_name"

// StationIndexPath returns the location of the station index table.
func (c *Config) StationIndexPath() string {
	return filepath.Join(c.OutputDir, c.StationIndexFile)
}

// ArchivePath returns the location of the output archive.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.OutputDir, c.OutputName+".zip")
}

// ArchiveEntry returns the name of the CSV entry inside the archive.
func (c *Config) ArchiveEntry() string {
	return c.OutputName + ".csv"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseChunkSteps() (int, error) {
	s := os.Getenv("CHUNK_STEPS")
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 10000 {
		return 0, errors.Errorf("invalid CHUNK_STEPS %q: must be between 1 and 10000", s)
	}
	return n, nil
}
