// Package nwmtest writes small LDASOUT-like NetCDF files for tests.
package nwmtest

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/require"
)

// TimeUnits are the units of the time coordinate written by Write.
const TimeUnits = "minutes since 1970-01-01 00:00:00 UTC"

// File describes one fixture file.
type File struct {
	Variable string
	// Values is a [][][]T indexed [time][y][x] unless Dims says otherwise.
	Values any
	// Dims defaults to (time, y, x).
	Dims  []string
	Attrs map[string]any
	// Times are offsets in TimeUnits; nil omits the time coordinate.
	Times []int32
	// Extra variables written alongside, keyed by name.
	Extra map[string]api.Variable
}

// Write creates the file at path, making parent directories as needed.
func Write(t testing.TB, path string, f File) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	if f.Times != nil {
		require.NoError(t, cw.AddVar("time", api.Variable{
			Values:     f.Times,
			Dimensions: []string{"time"},
			Attributes: Attrs(t, map[string]any{"units": TimeUnits, "long_name": "valid output time"}),
		}))
	}
	dims := f.Dims
	if dims == nil {
		dims = []string{"time", "y", "x"}
	}
	attrs := map[string]any{"long_name": f.Variable}
	for k, v := range f.Attrs {
		attrs[k] = v
	}
	require.NoError(t, cw.AddVar(f.Variable, api.Variable{
		Values:     f.Values,
		Dimensions: dims,
		Attributes: Attrs(t, attrs),
	}))
	names := make([]string, 0, len(f.Extra))
	for name := range f.Extra {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		require.NoError(t, cw.AddVar(name, f.Extra[name]))
	}
	require.NoError(t, cw.Close())
}

// Attrs builds an attribute map with keys in sorted order.
func Attrs(t testing.TB, m map[string]any) api.AttributeMap {
	t.Helper()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	om, err := util.NewOrderedMap(keys, m)
	require.NoError(t, err)
	return om
}

// Grid returns a steps x ny x nx grid filled by fn.
func Grid(steps, ny, nx int, fn func(t, y, x int) float32) [][][]float32 {
	g := make([][][]float32, steps)
	for t := range g {
		g[t] = make([][]float32, ny)
		for y := range g[t] {
			g[t][y] = make([]float32, nx)
			for x := range g[t][y] {
				g[t][y][x] = fn(t, y, x)
			}
		}
	}
	return g
}

// Minutes returns n offsets starting at start, spaced by step minutes.
func Minutes(start, step int32, n int) []int32 {
	ts := make([]int32, n)
	for i := range ts {
		ts[i] = start + int32(i)*step
	}
	return ts
}
