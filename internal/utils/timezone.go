package utils

import (
	"strings"
	"time"
	_ "time/tzdata"
)

const DefaultTimezone = "Australia/Sydney"

func LoadLocation(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func DateInTimezone(at time.Time, tz string) string {
	return at.In(LoadLocation(tz)).Format("2006-01-02")
}

func ClockInTimezone(at time.Time, tz string) string {
	return at.In(LoadLocation(tz)).Format("15:04")
}

func IsValidHHMM(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
