package render

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	defaults "github.com/xtxerr/polarwarp/config"
)

// FormatRuntime renders d as h:mm:ss.ffffff.
func FormatRuntime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%d:%02d:%02d.%06d", h, m, s, d/time.Microsecond)
}

// Seconds renders a runtime given in seconds as h:mm:ss.ffffff.
func Seconds(s float64) string {
	return FormatRuntime(time.Duration(s * float64(time.Second)))
}

// Number renders v with thousands separators and precision decimals.
func Number(v float64, precision int) string {
	if precision <= 0 {
		return humanize.FormatFloat("#,###.", v)
	}
	return humanize.FormatFloat("#,###."+strings.Repeat("#", precision), v)
}

// Rate renders an optional rate, or the undefined marker when nil.
func Rate(v *float64, precision int) string {
	if v == nil {
		return defaults.UndefinedMarker
	}
	return Number(*v, precision)
}

// plain renders v without grouping, for machine-readable exports.
func plain(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func plainRate(v *float64, precision int) string {
	if v == nil {
		return defaults.UndefinedMarker
	}
	return plain(*v, precision)
}

// TerminalWidth returns the width of f when it is a terminal. Pipes and files
// report DefaultCompactWidth so that the full column set is rendered.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return defaults.DefaultCompactWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaults.DefaultCompactWidth
	}
	return w
}
