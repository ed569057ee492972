package nwm

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the rendering of decoded timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp identifies one time step of a series. Steps of files without a
// time coordinate carry only their position.
type Timestamp struct {
	Step    int
	Time    time.Time
	HasTime bool
}

func (ts Timestamp) String() string {
	if !ts.HasTime {
		return strconv.Itoa(ts.Step)
	}
	return ts.Time.UTC().Format(TimeLayout)
}

var timeUnits = map[string]time.Duration{
	"seconds": time.Second,
	"second":  time.Second,
	"secs":    time.Second,
	"sec":     time.Second,
	"s":       time.Second,
	"minutes": time.Minute,
	"minute":  time.Minute,
	"mins":    time.Minute,
	"min":     time.Minute,
	"hours":   time.Hour,
	"hour":    time.Hour,
	"hrs":     time.Hour,
	"hr":      time.Hour,
	"h":       time.Hour,
	"days":    24 * time.Hour,
	"day":     24 * time.Hour,
	"d":       24 * time.Hour,
}

var refLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-1-2 15:4:5",
	"2006-01-02",
	"2006-1-2",
}

// parseTimeUnits parses CF time units of the form "<unit> since <reference>".
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, errors.Errorf("time units %q: missing \"since\"", units)
	}
	step, ok := timeUnits[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, time.Time{}, errors.Errorf("time units %q: unknown unit %q", units, unit)
	}
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSpace(strings.TrimSuffix(ref, "UTC"))
	if strings.HasSuffix(ref, "Z") {
		ref = strings.TrimSuffix(ref, "Z") + "+00:00"
	}
	for _, layout := range refLayouts {
		t, err := time.ParseInLocation(layout, ref, time.UTC)
		if err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, errors.Errorf("time units %q: unparsable reference %q", units, ref)
}

// maxOffsetSeconds bounds decoded offsets to about 300 million years either
// side of the reference, well inside the range of time.Unix.
const maxOffsetSeconds = 1e16

// decodeTimes converts offsets expressed in CF units into UTC times. Offsets
// are applied in whole seconds plus a nanosecond remainder, so references
// centuries before the data decode correctly.
func decodeTimes(units string, offsets []float64) ([]time.Time, error) {
	step, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	ts := make([]time.Time, len(offsets))
	for i, v := range offsets {
		total := v * step.Seconds()
		if math.IsNaN(total) || math.IsInf(total, 0) || math.Abs(total) > maxOffsetSeconds {
			return nil, errors.Errorf("time units %q: offset %v at step %d is out of range", units, v, i)
		}
		secs := math.Floor(total)
		nsec := math.Round((total - secs) * 1e9)
		ts[i] = time.Unix(ref.Unix()+int64(secs), int64(nsec)+int64(ref.Nanosecond())).UTC()
	}
	return ts, nil
}
