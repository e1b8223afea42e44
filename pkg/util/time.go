package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDuration converts time.Duration to ffmpeg timestamp format
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// FormatSeconds formats fractional seconds the same way as FormatDuration
func FormatSeconds(s float64) string {
	return FormatDuration(Seconds(s))
}

// Seconds converts fractional seconds to a time.Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1").
// Plain decimal values ("29.97") are accepted as well.
func ParseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || v < 0 {
			return 0
		}
		return v
	case 2:
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0
		}
		return num / den
	default:
		return 0
	}
}
