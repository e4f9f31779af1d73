package core

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time, truncated to the precision kept by the database.
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FirstNonEmpty returns the first of `vals` that is not blank.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = CleanString(v); v != "" {
			return v
		}
	}
	return ""
}

// Round2 rounds `f` to 2 decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Getwd finds the project root: the closest parent directory containing go.mod.
// go-test changes the working directory to the test package being run,
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
// Outside of the source tree (deployed binary) the working directory is used.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
