package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimezoneLocation supports IANA names ("Asia/Ho_Chi_Minh"), "UTC"/"GMT"
// and fixed offsets ("UTC+7", "+07:00", "-03:30").
func ParseTimezoneLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "UTC") || strings.EqualFold(tz, "GMT") || strings.EqualFold(tz, "Etc/UTC") {
		return time.UTC, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}

	offset, ok := parseOffsetSeconds(tz)
	if !ok {
		return nil, fmt.Errorf("unsupported timezone %q", tz)
	}
	return time.FixedZone(offsetName(offset), offset), nil
}

func parseOffsetSeconds(tz string) (int, bool) {
	s := tz
	if strings.HasPrefix(strings.ToUpper(s), "UTC") {
		s = strings.TrimSpace(s[3:])
		if s == "" {
			return 0, true
		}
	}
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	hh, mm, found := strings.Cut(s[1:], ":")
	if !found {
		mm = "0"
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	if h < 0 || h > 14 || m < 0 || m >= 60 {
		return 0, false
	}
	return sign * (h*3600 + m*60), true
}

func offsetName(offset int) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}
