package models

import "time"

// DateLayout is the calendar date format used for attendance keys and events.
const DateLayout = "2006-01-02"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// ValidDate reports whether raw is a YYYY-MM-DD calendar date.
func ValidDate(raw string) bool {
	_, err := time.Parse(DateLayout, raw)
	return err == nil
}
