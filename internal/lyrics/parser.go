// Package lyrics parses time-tagged lyric text and locates the active line for a playback position.
package lyrics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// tagRe matches [MM:SS] and [MM:SS.ff] / [MM:SS.fff] timestamp tags.
var tagRe = regexp.MustCompile(`\[(\d{2}):(\d{2})(\.\d{2,3})?\]`)

// Parse converts raw LRC-style text into lyric lines.
//
// Every tag on a line yields one LyricLine sharing the line's text, so
// "[00:10.00][00:40.00]Chorus" produces two entries. Lines without a tag and
// lines whose text is empty once the tags are stripped are dropped. The output
// keeps input order; it is never sorted.
func Parse(raw string) []domain.LyricLine {
	lines := make([]domain.LyricLine, 0)
	if raw == "" {
		return lines
	}

	for _, rawLine := range strings.Split(raw, "\n") {
		matches := tagRe.FindAllStringSubmatch(rawLine, -1)
		if len(matches) == 0 {
			continue
		}

		text := strings.TrimSpace(tagRe.ReplaceAllString(rawLine, ""))
		if text == "" {
			continue
		}

		for _, m := range matches {
			t, ok := tagSeconds(m)
			if !ok {
				continue
			}
			lines = append(lines, domain.LyricLine{Time: t, Text: text})
		}
	}

	return lines
}

// tagSeconds computes minutes*60 + seconds + fraction for one tag match.
func tagSeconds(m []string) (float64, bool) {
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	var fraction float64
	if m[3] != "" {
		fraction, err = strconv.ParseFloat("0"+m[3], 64)
		if err != nil {
			return 0, false
		}
	}

	return float64(minutes*60+seconds) + fraction, true
}
