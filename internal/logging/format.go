package logging

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count with binary units, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatRate renders bytes per second over elapsed, e.g. "12 MiB/s".
func FormatRate(n int64, elapsed time.Duration) string {
	if elapsed <= 0 || n <= 0 {
		return "0 B/s"
	}
	perSecond := float64(n) / elapsed.Seconds()
	return humanize.IBytes(uint64(perSecond)) + "/s"
}
