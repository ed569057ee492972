package nwm

import (
	"slices"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/pkg/errors"
)

// Options locate the variable's axes inside each file and size the chunks
// read from disk.
type Options struct {
	TimeDim string
	TimeVar string
	XDim    string
	YDim    string
	// ChunkSteps is the number of time steps read per slice.
	ChunkSteps int
}

// DefaultOptions returns the axis names used by NWM LDASOUT files.
func DefaultOptions() Options {
	return Options{
		TimeDim:    "time",
		TimeVar:    "time",
		XDim:       "x",
		YDim:       "y",
		ChunkSteps: 1,
	}
}

type fileInfo struct {
	path  string
	steps int
	// times is nil when the file has no decodable time coordinate.
	times []time.Time
	pk    packing
}

// Series is one variable concatenated along time across an ordered list of
// files. Only metadata is read by Open; values are read by a Scanner.
type Series struct {
	variable string
	opts     Options
	files    []fileInfo
	dims     []string
	units    string
	hasUnits bool
	steps    int
	// rowAxis is 1 when the grid is stored (time, y, x) and 2 for (time, x, y).
	rowAxis int
}

// Open inspects every file in paths and returns the concatenated series of
// variable. Files are opened one at a time and closed before Open returns.
func Open(paths []string, variable string, opts Options) (*Series, error) {
	if len(paths) == 0 {
		return nil, errors.Wrap(ErrNotFound, "open series")
	}
	if opts.ChunkSteps <= 0 {
		opts.ChunkSteps = 1
	}
	s := &Series{variable: variable, opts: opts}
	for i, p := range paths {
		fi, err := s.inspect(p, i == 0)
		if err != nil {
			return nil, err
		}
		s.files = append(s.files, fi)
		s.steps += fi.steps
	}
	return s, nil
}

func (s *Series) inspect(path string, first bool) (fileInfo, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return fileInfo{}, errors.Wrapf(err, "open %s", path)
	}
	defer nc.Close()

	vg, err := nc.GetVarGetter(s.variable)
	if err != nil {
		return fileInfo{}, errors.Wrapf(ErrSchemaMismatch, "%s: variable %q: %v", path, s.variable, err)
	}
	dims := vg.Dimensions()
	units, hasUnits := attrString(vg.Attributes(), "units")
	if first {
		rowAxis, err := s.gridLayout(dims)
		if err != nil {
			return fileInfo{}, errors.Wrapf(err, "%s", path)
		}
		s.dims, s.rowAxis = dims, rowAxis
		s.units, s.hasUnits = units, hasUnits
	} else {
		if !slices.Equal(dims, s.dims) {
			return fileInfo{}, errors.Wrapf(ErrSchemaMismatch, "%s: dimensions %v, want %v", path, dims, s.dims)
		}
		if hasUnits != s.hasUnits || units != s.units {
			return fileInfo{}, errors.Wrapf(ErrSchemaMismatch, "%s: units %q, want %q", path, units, s.units)
		}
	}

	fi := fileInfo{
		path:  path,
		steps: int(vg.Len()),
		pk:    newPacking(vg.Attributes()),
	}
	fi.times, err = s.readTimes(nc, fi.steps)
	if err != nil {
		return fileInfo{}, errors.Wrapf(err, "%s", path)
	}
	return fi, nil
}

func (s *Series) gridLayout(dims []string) (int, error) {
	if len(dims) != 3 || dims[0] != s.opts.TimeDim {
		return 0, errors.Wrapf(ErrSchemaMismatch, "variable %q has dimensions %v, want (%s, %s, %s)",
			s.variable, dims, s.opts.TimeDim, s.opts.YDim, s.opts.XDim)
	}
	switch {
	case dims[1] == s.opts.YDim && dims[2] == s.opts.XDim:
		return 1, nil
	case dims[1] == s.opts.XDim && dims[2] == s.opts.YDim:
		return 2, nil
	}
	return 0, errors.Wrapf(ErrSchemaMismatch, "variable %q has dimensions %v, want grid axes %s and %s",
		s.variable, dims, s.opts.YDim, s.opts.XDim)
}

// readTimes decodes the time coordinate of nc. It returns nil when the file
// has no coordinate with CF "<unit> since <reference>" units.
func (s *Series) readTimes(nc api.Group, steps int) ([]time.Time, error) {
	if s.opts.TimeVar == "" {
		return nil, nil
	}
	vg, err := nc.GetVarGetter(s.opts.TimeVar)
	if err != nil {
		return nil, nil
	}
	units, ok := attrString(vg.Attributes(), "units")
	if !ok || !strings.Contains(units, " since ") {
		return nil, nil
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, errors.Wrapf(err, "read time coordinate %q", s.opts.TimeVar)
	}
	offsets, ok := toFloats(raw)
	if !ok {
		return nil, errors.Errorf("time coordinate %q has unsupported type %T", s.opts.TimeVar, raw)
	}
	if len(offsets) != steps {
		return nil, errors.Wrapf(ErrSchemaMismatch, "time coordinate %q has %d steps, variable %q has %d",
			s.opts.TimeVar, len(offsets), s.variable, steps)
	}
	return decodeTimes(units, offsets)
}

// Variable returns the name of the series variable.
func (s *Series) Variable() string { return s.variable }

// Steps returns the length of the concatenated time dimension.
func (s *Series) Steps() int { return s.steps }

// Files returns the backing files in concatenation order.
func (s *Series) Files() []string {
	paths := make([]string, len(s.files))
	for i, fi := range s.files {
		paths[i] = fi.path
	}
	return paths
}

// Units returns the units attribute of the variable.
func (s *Series) Units() (string, error) {
	if !s.hasUnits {
		return "", errors.Wrapf(ErrMissingUnits, "variable %q", s.variable)
	}
	return s.units, nil
}

// Times returns the timestamps of every step of the series.
func (s *Series) Times() []Timestamp {
	ts := make([]Timestamp, 0, s.steps)
	for _, fi := range s.files {
		ts = fi.timestamps(ts, len(ts), 0, fi.steps)
	}
	return ts
}

// Summary returns the summary information about the series suitable for
// logging.
func (s *Series) Summary() []any {
	return []any{
		"variable", s.variable,
		"dims", s.dims,
		"units", s.units,
		"files", len(s.files),
		"steps", s.steps,
		"chunkSteps", s.opts.ChunkSteps,
	}
}

// timestamps appends the timestamps of file steps [begin, limit) to dst.
// global is the series position of step begin.
func (fi fileInfo) timestamps(dst []Timestamp, global, begin, limit int) []Timestamp {
	for i := begin; i < limit; i++ {
		ts := Timestamp{Step: global + i - begin}
		if fi.times != nil {
			ts.Time, ts.HasTime = fi.times[i], true
		}
		dst = append(dst, ts)
	}
	return dst
}
