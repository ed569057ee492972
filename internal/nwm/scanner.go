package nwm

import (
	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/pkg/errors"
)

// Chunk holds the values gathered at the selected cells from consecutive
// time steps of a series.
type Chunk struct {
	// Start is the series position of the first step.
	Start int
	Times []Timestamp
	// Values is indexed [step][cell]. Masked values are NaN.
	Values [][]float64
	// Bits is the precision of the stored values: 32 or 64.
	Bits int
}

// Scanner retrieves the selected cells from a series one chunk of time steps
// at a time. At most one file is open while scanning.
type Scanner struct {
	s      *Series
	rows   []int
	cols   []int
	file   int
	nc     api.Group
	vg     api.VarGetter
	pos    int
	global int
	// nRows and nCols are the grid extents, set by the first chunk read.
	nRows, nCols int
	chunk        Chunk
	err          error
}

// Select returns a scanner over the cells (rows[i], cols[i]) of every time
// step of the series. The two index vectors must have equal length.
func (s *Series) Select(rows, cols []int) (*Scanner, error) {
	if len(rows) != len(cols) {
		return nil, errors.Errorf("select: %d row indices but %d column indices", len(rows), len(cols))
	}
	for i := range rows {
		if rows[i] < 0 || cols[i] < 0 {
			return nil, errors.WithStack(&BoundsError{Position: i, Row: rows[i], Col: cols[i], Rows: -1, Cols: -1})
		}
	}
	return &Scanner{s: s, rows: rows, cols: cols, nRows: -1, nCols: -1}, nil
}

// Close releases the open file, if any.
func (sc *Scanner) Close() {
	if sc.nc != nil {
		sc.nc.Close()
		sc.nc, sc.vg = nil, nil
	}
}

// Err returns the error that stopped the scan.
func (sc *Scanner) Err() error {
	return sc.err
}

// Chunk returns the values read by the last Scan() operation.
func (sc *Scanner) Chunk() Chunk {
	return sc.chunk
}

// Scan reads the next chunk of time steps.
func (sc *Scanner) Scan() bool {
	if sc.err != nil {
		return false
	}
	for sc.nc == nil || sc.pos >= sc.s.files[sc.file].steps {
		if sc.nc != nil {
			sc.Close()
			sc.file++
		}
		if sc.file >= len(sc.s.files) {
			return false
		}
		if err := sc.open(); err != nil {
			sc.err = err
			return false
		}
	}

	fi := sc.s.files[sc.file]
	begin := sc.pos
	limit := min(begin+sc.s.opts.ChunkSteps, fi.steps)
	v, err := sc.vg.GetSlice(int64(begin), int64(limit))
	if err != nil {
		sc.err = errors.Wrapf(err, "%s: read steps [%d, %d)", fi.path, begin, limit)
		return false
	}
	values, bits, err := sc.gather(v, fi.pk)
	if err != nil {
		sc.err = errors.Wrapf(err, "%s", fi.path)
		return false
	}
	if len(values) != limit-begin {
		sc.err = errors.Errorf("%s: read %d steps, want %d", fi.path, len(values), limit-begin)
		return false
	}

	sc.chunk = Chunk{
		Start:  sc.global,
		Times:  fi.timestamps(nil, sc.global, begin, limit),
		Values: values,
		Bits:   bits,
	}
	sc.pos = limit
	sc.global += limit - begin
	return true
}

func (sc *Scanner) open() error {
	fi := sc.s.files[sc.file]
	nc, err := netcdf.Open(fi.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", fi.path)
	}
	vg, err := nc.GetVarGetter(sc.s.variable)
	if err != nil {
		nc.Close()
		return errors.Wrapf(ErrSchemaMismatch, "%s: variable %q: %v", fi.path, sc.s.variable, err)
	}
	sc.nc, sc.vg, sc.pos = nc, vg, 0
	return nil
}

func (sc *Scanner) gather(v any, pk packing) ([][]float64, int, error) {
	switch block := v.(type) {
	case [][][]float32:
		values, err := gatherCells(sc, block, pk)
		return values, 32, err
	case [][][]float64:
		values, err := gatherCells(sc, block, pk)
		return values, 64, err
	case [][][]int8:
		return gatherPacked(sc, block, pk)
	case [][][]uint8:
		return gatherPacked(sc, block, pk)
	case [][][]int16:
		return gatherPacked(sc, block, pk)
	case [][][]uint16:
		return gatherPacked(sc, block, pk)
	case [][][]int32:
		return gatherPacked(sc, block, pk)
	case [][][]uint32:
		return gatherPacked(sc, block, pk)
	case [][][]int64:
		return gatherPacked(sc, block, pk)
	case [][][]uint64:
		return gatherPacked(sc, block, pk)
	}
	return nil, 0, errors.Wrapf(ErrSchemaMismatch, "variable %q has unsupported element type %T", sc.s.variable, v)
}

func gatherPacked[T number](sc *Scanner, block [][][]T, pk packing) ([][]float64, int, error) {
	values, err := gatherCells(sc, block, pk)
	bits := pk.bits
	if bits == 0 {
		bits = 64
	}
	return values, bits, err
}

// gatherCells picks the selected cells out of every grid in block.
func gatherCells[T number](sc *Scanner, block [][][]T, pk packing) ([][]float64, error) {
	out := make([][]float64, len(block))
	for t, grid := range block {
		if err := checkShape(sc, grid); err != nil {
			return nil, err
		}
		vals := make([]float64, len(sc.rows))
		for i := range sc.rows {
			var raw T
			if sc.s.rowAxis == 1 {
				raw = grid[sc.rows[i]][sc.cols[i]]
			} else {
				raw = grid[sc.cols[i]][sc.rows[i]]
			}
			vals[i] = pk.decode(float64(raw))
		}
		out[t] = vals
	}
	return out, nil
}

// checkShape records the grid extents on the first call, validating the
// selection against them, and rejects grids of any other shape later on.
func checkShape[T number](sc *Scanner, grid [][]T) error {
	n1, n2 := len(grid), 0
	if n1 > 0 {
		n2 = len(grid[0])
	}
	for _, line := range grid {
		if len(line) != n2 {
			return errors.Wrapf(ErrSchemaMismatch, "ragged grid for variable %q", sc.s.variable)
		}
	}
	nRows, nCols := n1, n2
	if sc.s.rowAxis == 2 {
		nRows, nCols = n2, n1
	}
	if sc.nRows < 0 {
		sc.nRows, sc.nCols = nRows, nCols
		for i := range sc.rows {
			if sc.rows[i] >= nRows || sc.cols[i] >= nCols {
				return errors.WithStack(&BoundsError{Position: i, Row: sc.rows[i], Col: sc.cols[i], Rows: nRows, Cols: nCols})
			}
		}
		return nil
	}
	if nRows != sc.nRows || nCols != sc.nCols {
		return errors.Wrapf(ErrSchemaMismatch, "grid is %dx%d, want %dx%d", nRows, nCols, sc.nRows, sc.nCols)
	}
	return nil
}
