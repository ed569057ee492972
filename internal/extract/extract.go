// Package extract samples a gridded series at station cells and reshapes the
// result into a tidy table.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/nwmpoint/internal/nwm"
	"github.com/rtm0/nwmpoint/internal/station"
)

// ErrNoStations is returned when the station table has no rows.
var ErrNoStations = errors.New("no stations to extract")

// Column names of the output table other than the value column.
const (
	IndexColumn   = "index"
	TimeColumn    = "time"
	StationColumn = "Station_ID"
)

// Row is one station sample.
type Row struct {
	// Index is the position of the sample among all (step, station) pairs
	// before undefined values were dropped.
	Index   int
	Time    nwm.Timestamp
	Station string
	Value   float64
}

// Table is the tidy extraction result, in time-major, station-minor order.
type Table struct {
	Variable string
	Units    string
	Rows     []Row
	// Steps is the number of time steps scanned.
	Steps int
	// Dropped counts samples omitted because the value was undefined.
	Dropped int
	bits    int
}

// ValueColumn returns the value column name embedding the variable's units.
func ValueColumn(variable, units string) string {
	return fmt.Sprintf("%s_%s", variable, units)
}

// Header returns the column names of the table.
func (t *Table) Header() []string {
	return []string{IndexColumn, TimeColumn, StationColumn, ValueColumn(t.Variable, t.Units)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// AppendRecord appends the fields of row i to dst.
func (t *Table) AppendRecord(dst []string, i int) []string {
	r := &t.Rows[i]
	bits := t.bits
	if bits != 32 {
		bits = 64
	}
	return append(dst,
		strconv.Itoa(r.Index),
		r.Time.String(),
		r.Station,
		FormatValue(r.Value, bits),
	)
}

// FormatValue renders v as the shortest decimal that round-trips at the given
// precision. Integral values keep a ".0" suffix, and magnitudes below 1e-4 or
// from 1e16 up use exponent notation, so 1 prints as "1.0" and 1e21 as "1e+21".
func FormatValue(v float64, bits int) string {
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, bits)
	}
	s := strconv.FormatFloat(v, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// progressParts is the number of progress lines logged over a full scan.
const progressParts = 10

// Extract reads the series value at every station cell for every time step.
// Samples with an undefined value are dropped. Progress is logged at info
// level about every tenth of the series.
func Extract(ctx context.Context, s *nwm.Series, stations []station.Station, logger *slog.Logger) (*Table, error) {
	if len(stations) == 0 {
		return nil, errors.WithStack(ErrNoStations)
	}
	units, err := s.Units()
	if err != nil {
		return nil, err
	}

	rows, cols := station.Indices(stations)
	sc, err := s.Select(rows, cols)
	if err != nil {
		return nil, annotate(err, stations)
	}
	defer sc.Close()

	t := &Table{
		Variable: s.Variable(),
		Units:    units,
		Rows:     make([]Row, 0, s.Steps()*len(stations)),
	}
	total := s.Steps()
	every := max(total/progressParts, 1)
	next := every
	start := time.Now()
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "extract")
		}
		ch := sc.Chunk()
		t.bits = ch.Bits
		for i, vals := range ch.Values {
			step := ch.Start + i
			for j, v := range vals {
				if math.IsNaN(v) {
					t.Dropped++
					continue
				}
				t.Rows = append(t.Rows, Row{
					Index:   step*len(stations) + j,
					Time:    ch.Times[i],
					Station: stations[j].ID,
					Value:   v,
				})
			}
		}
		t.Steps += len(ch.Values)
		if t.Steps >= next || t.Steps == total {
			percent := fmt.Sprintf("%.2f%%", 100*float64(t.Steps)/float64(total))
			logger.Info("progress", "extracted", percent, "rows", len(t.Rows), "in", time.Since(start).Round(time.Second))
			for next <= t.Steps {
				next += every
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, annotate(err, stations)
	}
	return t, nil
}

// annotate names the station behind a bounds error.
func annotate(err error, stations []station.Station) error {
	var be *nwm.BoundsError
	if errors.As(err, &be) && be.Position < len(stations) {
		return errors.Wrapf(err, "station %s", stations[be.Position].ID)
	}
	return err
}
