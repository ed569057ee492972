// Package station reads the station index table produced by the upstream
// index step: one row per station with its grid column (X) and row (Y).
package station

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidIndex is returned for grid indices that are not non-negative
// integers.
var ErrInvalidIndex = errors.New("invalid grid index")

// Station is a monitoring site with its grid cell.
type Station struct {
	ID string
	X  int // column
	Y  int // row
}

// Columns names the table columns holding the station fields.
type Columns struct {
	ID string
	X  string
	Y  string
}

// DefaultColumns returns the column names written by the index step.
func DefaultColumns() Columns {
	return Columns{ID: "Station_ID", X: "Xindex", Y: "Yindex"}
}

// ReadFile reads the station index table at path.
func ReadFile(path string, cols Columns) ([]Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open station index table")
	}
	defer f.Close()
	stations, err := Read(f, cols)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return stations, nil
}

// Read parses a station index table with a header row. Columns other than
// those named by cols are ignored.
func Read(r io.Reader, cols Columns) ([]Station, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("station index table is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idCol, err := column(header, cols.ID)
	if err != nil {
		return nil, err
	}
	xCol, err := column(header, cols.X)
	if err != nil {
		return nil, err
	}
	yCol, err := column(header, cols.Y)
	if err != nil {
		return nil, err
	}
	need := max(idCol, xCol, yCol) + 1

	var stations []Station
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if len(rec) < need {
			return nil, errors.Errorf("line %d: %d fields, want at least %d", line, len(rec), need)
		}
		x, err := parseIndex(rec[xCol])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", line, cols.X)
		}
		y, err := parseIndex(rec[yCol])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", line, cols.Y)
		}
		stations = append(stations, Station{ID: strings.TrimSpace(rec[idCol]), X: x, Y: y})
	}
	return stations, nil
}

// Indices returns the row and column index vectors of stations, in order.
func Indices(stations []Station) (rows, cols []int) {
	rows = make([]int, len(stations))
	cols = make([]int, len(stations))
	for i, s := range stations {
		rows[i], cols[i] = s.Y, s.X
	}
	return rows, cols
}

func column(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return 0, errors.Errorf("column %q not found in header %v", name, header)
}

// parseIndex accepts integers and integral floats ("12.0"), which tabular
// tools write for integer columns that once held missing values.
func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errors.Wrapf(ErrInvalidIndex, "%d is negative", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.Wrapf(ErrInvalidIndex, "%q", s)
	}
	if f < 0 {
		return 0, errors.Wrapf(ErrInvalidIndex, "%q is negative", s)
	}
	return int(f), nil
}
