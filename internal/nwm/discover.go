package nwm

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"
)

// Discover returns the files of dataDir/<year>/ whose names start with
// <year><month>, in lexical order.
func Discover(dataDir string, year, month int) ([]string, error) {
	pattern := filepath.Join(dataDir, fmt.Sprintf("%04d", year), fmt.Sprintf("%04d%02d*", year, month))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "glob %s", pattern)
	}
	slices.Sort(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, errors.Wrap(err, "stat gridded file")
		}
		if fi.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "pattern %s", pattern)
	}
	return files, nil
}
