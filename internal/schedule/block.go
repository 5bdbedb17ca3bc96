// Package schedule turns technician availability strings into bookable
// one-hour blocks.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRange is returned when an availability range cannot be parsed.
	ErrMalformedRange = errors.New("schedule: malformed range")
	// ErrInvertedRange is returned when a range ends before it starts.
	ErrInvertedRange = errors.New("schedule: range ends before it starts")
	// ErrInvalidClock is returned for times outside 00:00-23:59.
	ErrInvalidClock = errors.New("schedule: invalid clock time")
)

// BlockMinutes is the length of every bookable block.
const BlockMinutes = 60

// Block is a half-open one-hour interval expressed in minutes after midnight.
type Block struct {
	Start int
	End   int
}

// String renders the block the way it is stored on appointments: "09:00 - 10:00".
func (b Block) String() string {
	return FormatClock(b.Start) + " - " + FormatClock(b.End)
}

// StartClock returns the "HH:MM" start of the block.
func (b Block) StartClock() string {
	return FormatClock(b.Start)
}

// ParseBlock parses the "HH:MM - HH:MM" form produced by String.
func ParseBlock(s string) (Block, error) {
	start, end, err := ParseRange(s)
	if err != nil {
		return Block{}, err
	}
	if end-start != BlockMinutes {
		return Block{}, fmt.Errorf("%w: %q is not a one-hour block", ErrMalformedRange, s)
	}
	return Block{Start: start, End: end}, nil
}

// ParseClock parses "HH:MM" or an hour-only "H" into minutes after midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidClock
	}
	hourPart, minutePart, found := strings.Cut(s, ":")
	if !found {
		minutePart = "00"
	}
	if len(hourPart) == 0 || len(hourPart) > 2 || len(minutePart) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour*60 + minute, nil
}

// NormalizeClock rewrites "9" or "9:00" as "09:00".
func NormalizeClock(s string) (string, error) {
	minutes, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(minutes), nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

var rangeReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u2013", "-",
	"\u2014", "-",
)

// NormalizeRange trims the range and folds non-breaking spaces and en/em
// dashes into plain spaces and hyphens.
func NormalizeRange(raw string) string {
	return strings.TrimSpace(rangeReplacer.Replace(raw))
}

// ParseRange parses "HH:MM-HH:MM" (hyphen, en dash, em dash or a lone
// non-breaking space as separator) into start and end minutes.
func ParseRange(raw string) (start, end int, err error) {
	normalized := NormalizeRange(raw)
	if normalized == "" {
		return 0, 0, fmt.Errorf("%w: empty", ErrMalformedRange)
	}

	var parts []string
	if strings.Contains(normalized, "-") {
		parts = strings.Split(normalized, "-")
	} else {
		parts = strings.Fields(normalized)
	}
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedRange, raw)
	}

	start, err = ParseClock(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedRange, err)
	}
	end, err = ParseClock(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedRange, err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvertedRange, raw)
	}
	return start, end, nil
}
