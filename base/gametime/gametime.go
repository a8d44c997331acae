// Package gametime maps the canonical simulated-minute counter to
// engine-local calendar fields. The calendar is 360 days per year,
// 30 days per month, 7 days per week; day, week, month, and year all
// start at 1.
package gametime

import (
	"errors"
	"fmt"
)

const (
	MinutesPerHour = 60
	MinutesPerDay  = 1440
	DaysPerWeek    = 7
	DaysPerMonth   = 30
	DaysPerYear    = 360
)

var (
	ErrInvalidDay    = errors.New("day must be at least 1")
	ErrInvalidHour   = errors.New("hour must be in range [0, 23]")
	ErrInvalidMinute = errors.New("minute must be in range [0, 59]")
)

func Day(total int64) int {
	return int(total/MinutesPerDay) + 1
}

func Hour(total int64) int {
	return int(total % MinutesPerDay / MinutesPerHour)
}

func Minute(total int64) int {
	return int(total % MinutesPerHour)
}

func Week(total int64) int {
	return (Day(total)-1)/DaysPerWeek + 1
}

func Month(total int64) int {
	return (Day(total)-1)/DaysPerMonth + 1
}

func Year(total int64) int {
	return (Day(total)-1)/DaysPerYear + 1
}

// DayOfWeek returns 1..7, 1 being the first day of the week.
func DayOfWeek(total int64) int {
	return (Day(total)-1)%DaysPerWeek + 1
}

// Snapshot holds every calendar field derived from one counter value.
type Snapshot struct {
	Total     int64
	Day       int
	Hour      int
	Minute    int
	Week      int
	Month     int
	Year      int
	DayOfWeek int
}

func At(total int64) Snapshot {
	return Snapshot{
		Total:     total,
		Day:       Day(total),
		Hour:      Hour(total),
		Minute:    Minute(total),
		Week:      Week(total),
		Month:     Month(total),
		Year:      Year(total),
		DayOfWeek: DayOfWeek(total),
	}
}

// Format renders a counter value as "<day>일차 HH:MM".
func Format(total int64) string {
	return fmt.Sprintf("%d일차 %02d:%02d", Day(total), Hour(total), Minute(total))
}

// Minutes is the inverse of the field projection: it validates a
// calendar position and converts it back to a counter value.
func Minutes(day, hour, minute int) (int64, error) {
	if day < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDay, day)
	}
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidHour, hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidMinute, minute)
	}
	return int64(day-1)*MinutesPerDay + int64(hour)*MinutesPerHour + int64(minute), nil
}
