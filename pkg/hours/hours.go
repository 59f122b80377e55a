// Package hours parses opening-hours strings and answers visitability and
// urgency questions for a single weekday. It is dependency-free and
// side-effect-free except for the injected logger used to report
// unparseable strings, so it can be unit-tested in isolation.
package hours

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"tourweave/pkg/model"
)

// MaxWaitMinutes bounds how long a visitor will wait for a POI to open
// before it is skipped entirely.
const MaxWaitMinutes = 30

// AlwaysOpen is the (open, close) pair used for missing/"24 hours" entries.
const (
	alwaysOpenMin  = 0
	alwaysCloseMin = 1440
)

var timeRangePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*[-–—]\s*(\d{1,2}):(\d{2})`)

// ParseOpeningHours returns (openMinute, closeMinute, closed) for one
// weekday. closed=true means the POI does not open at all that day; in that
// case the minute values are meaningless. Unparseable strings fall back to
// AlwaysOpen and are logged at warning level via logger, when it is non-nil.
func ParseOpeningHours(logger *slog.Logger, oh model.OpeningHours, day model.Weekday) (openMin, closeMin int, closed bool) {
	entry, ok := oh[day]
	if !ok || entry == nil {
		return alwaysOpenMin, alwaysCloseMin, false
	}

	normalized := strings.ToLower(strings.TrimSpace(*entry))
	if strings.Contains(normalized, "24 hours") || strings.Contains(normalized, "24 horas") {
		return alwaysOpenMin, alwaysCloseMin, false
	}
	if strings.Contains(normalized, "closed") || strings.Contains(normalized, "cerrado") {
		return 0, 0, true
	}

	if m := timeRangePattern.FindStringSubmatch(*entry); m != nil {
		openH, _ := strconv.Atoi(m[1])
		openM, _ := strconv.Atoi(m[2])
		closeH, _ := strconv.Atoi(m[3])
		closeM, _ := strconv.Atoi(m[4])
		open := openH*60 + openM
		close := closeH*60 + closeM
		if close < open {
			close += 1440
		}
		return open, close, false
	}

	if logger != nil {
		logger.Warn("could not parse opening hours, assuming always open", "value", *entry, "day", day)
	}
	return alwaysOpenMin, alwaysCloseMin, false
}

// IsVisitable reports whether a visit of visitDuration minutes starting no
// earlier than startMin can complete before closing, for the given day.
func IsVisitable(logger *slog.Logger, oh model.OpeningHours, day model.Weekday, startMin, visitDuration int) bool {
	openMin, closeMin, closed := ParseOpeningHours(logger, oh, day)
	_ = openMin
	if closed {
		return false
	}
	return startMin <= closeMin-visitDuration
}

// Urgency returns a value in [0, 2]: 0 means the POI can no longer be
// usefully visited, 1.0 means no time pressure, 2.0 means it closes very
// soon.
func Urgency(logger *slog.Logger, oh model.OpeningHours, day model.Weekday, nowMin, visitDuration int) float64 {
	openMin, closeMin, closed := ParseOpeningHours(logger, oh, day)
	_ = openMin
	if closed {
		return 0
	}
	if closeMin >= 1440 {
		return 1.0
	}

	remaining := closeMin - nowMin
	if remaining <= visitDuration {
		return 0
	}

	slack := float64(remaining - visitDuration)
	switch {
	case slack <= 30:
		return 2.0
	case slack >= 180:
		return 1.0
	default:
		urgency := 2.0 - (slack-30)/150
		if urgency < 1.0 {
			return 1.0
		}
		if urgency > 2.0 {
			return 2.0
		}
		return urgency
	}
}
