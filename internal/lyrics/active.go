package lyrics

import "github.com/tejashwikalptaru/pixeltunes/internal/domain"

// ActiveIndex returns the index of the lyric line active at currentTime, or -1.
//
// The active line is the one before the first line whose time exceeds
// currentTime. When no line exceeds it the last line is active. Input that is
// not sorted by time is scanned as-is; the result is whatever the linear scan
// finds.
func ActiveIndex(lines []domain.LyricLine, currentTime float64) int {
	for i, line := range lines {
		if line.Time > currentTime {
			return i - 1
		}
	}
	return len(lines) - 1
}
