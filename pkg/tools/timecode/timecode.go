// Package timecode converts between SRT-style timestamps (HH:MM:SS,mmm)
// and seconds.
package timecode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrFormat is returned when a timestamp does not match HH:MM:SS,mmm.
// Callers parsing whole subtitle tracks should skip the entry and continue.
var ErrFormat = errors.New("timecode: invalid timestamp format")

var timecodeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)

// ToSeconds parses an SRT timestamp into total seconds.
func ToSeconds(formatted string) (float64, error) {
	m := timecodeRe.FindStringSubmatch(formatted)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrFormat, formatted)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(m[4])

	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// ToTimecode formats seconds as an SRT timestamp. Milliseconds are
// truncated, not rounded, so ToSeconds(ToTimecode(x)) stays within 1ms of x.
func ToTimecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	totalMillis := int64(seconds * 1000)
	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
