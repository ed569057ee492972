package nwm

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no gridded file matches the requested month.
	ErrNotFound = errors.New("no gridded files found")

	// ErrSchemaMismatch is returned when files disagree on the variable, its
	// dimensions, its units or the grid shape.
	ErrSchemaMismatch = errors.New("gridded files do not share a schema")

	// ErrMissingUnits is returned when the variable carries no units attribute.
	ErrMissingUnits = errors.New("variable has no units attribute")

	// ErrStationOutOfBounds is returned when a station cell lies outside the grid.
	ErrStationOutOfBounds = errors.New("station cell outside grid")
)

// BoundsError reports the first selected cell that lies outside the grid.
// Position is the index of the cell in the selection. Rows and Cols are the
// grid extents, unknown (-1) for negative indices.
type BoundsError struct {
	Position   int
	Row, Col   int
	Rows, Cols int
}

func (e *BoundsError) Error() string {
	if e.Row < 0 || e.Col < 0 {
		return fmt.Sprintf("cell %d has negative index (row %d, col %d)", e.Position, e.Row, e.Col)
	}
	return fmt.Sprintf("cell %d at (row %d, col %d) outside %dx%d grid", e.Position, e.Row, e.Col, e.Rows, e.Cols)
}

// Is makes errors.Is(err, ErrStationOutOfBounds) hold for bounds errors.
func (e *BoundsError) Is(target error) bool {
	return target == ErrStationOutOfBounds
}
