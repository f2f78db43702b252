package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FirePoint is a local wall-clock time at which a mode announcement goes out.
type FirePoint struct {
	Hour   int
	Minute int
}

func (p FirePoint) String() string {
	return fmt.Sprintf("%02d:%02d", p.Hour, p.Minute)
}

// ParseFirePoint reads an "HH:MM" value.
func ParseFirePoint(s string) (FirePoint, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return FirePoint{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return FirePoint{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return FirePoint{}, fmt.Errorf("invalid minute in %q", s)
	}
	return FirePoint{Hour: hour, Minute: minute}, nil
}

// Mode describes a recurring game-mode announcement.
type Mode struct {
	Name    string
	Display string
	Image   string
	Caption string
	Times   []FirePoint
}
