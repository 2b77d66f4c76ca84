package video

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// timecodeRegex matches HH:MM:SS with an optional fractional part
var timecodeRegex = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d{1,9})?$`)

// secondsRegex matches a plain, non-negative number of seconds
var secondsRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseTimecode parses "HH:MM:SS[.fff]" or a plain number of seconds
func ParseTimecode(s string) (time.Duration, error) {
	if secondsRegex.MatchString(s) {
		seconds, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timecode %q: %w", s, err)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}

	matches := timecodeRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid timecode format %q: expected HH:MM:SS[.fff] or seconds", s)
	}

	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])

	if minutes > 59 {
		return 0, fmt.Errorf("invalid timecode %q: minutes must be 0-59", s)
	}
	if seconds > 59 {
		return 0, fmt.Errorf("invalid timecode %q: seconds must be 0-59", s)
	}

	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if matches[4] != "" {
		frac, _ := strconv.ParseFloat("0"+matches[4], 64)
		d += time.Duration(math.Round(frac * float64(time.Second)))
	}
	return d, nil
}

// FormatTimecode renders d as HH:MM:SS.mmm
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Round(time.Millisecond).Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	seconds := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms%1000)
}

// FormatSeconds renders d as fractional seconds, the form ffmpeg's -ss/-to accept
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
