package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses the ISO-8601 durations YouTube reports
// (PT3M21S, PT1H2M, P1DT4M). Empty or malformed input yields 0.
func ParseISODuration(iso string) time.Duration {
	m := isoDurationRe.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil || iso == "P" || iso == "PT" {
		return 0
	}

	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		d += time.Duration(n) * unit
	}
	if m[4] != "" {
		s, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0
		}
		d += time.Duration(s * float64(time.Second))
	}
	return d
}

// FormatDuration renders d as M:SS, or H:MM:SS once it reaches an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseDisplayDuration is the inverse of FormatDuration.
func ParseDisplayDuration(display string) time.Duration {
	parts := strings.Split(strings.TrimSpace(display), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
