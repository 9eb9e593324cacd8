// Package clock tracks in-game time: the Moment calendar value, the moon
// derived from it, and the Clock that keeps the real-to-game offset in sync
// with what the game reports.
package clock

import "fmt"

// Calendar constants. One in-game minute lasts one real second.
const (
	MinutesPerHour = 60
	HoursPerDay    = 24
	DaysPerMonth   = 30
	MonthsPerYear  = 12
	DaysPerWeek    = 7
	StartYear      = 2850

	MinutesPerDay   = HoursPerDay * MinutesPerHour
	MinutesPerMonth = DaysPerMonth * MinutesPerDay
	MinutesPerYear  = MonthsPerYear * MinutesPerMonth
	DaysPerYear     = MonthsPerYear * DaysPerMonth
)

var (
	dawnHour = [MonthsPerYear]int{8, 9, 8, 7, 7, 6, 5, 4, 5, 6, 7, 7}
	duskHour = [MonthsPerYear]int{18, 17, 18, 19, 20, 20, 21, 22, 21, 20, 20, 19}
)

// DawnHour returns the hour of dawn in month m (0-based).
func DawnHour(m int) int { return dawnHour[floorMod(m, MonthsPerYear)] }

// DuskHour returns the hour of dusk in month m (0-based).
func DuskHour(m int) int { return duskHour[floorMod(m, MonthsPerYear)] }

// TimeOfDay is the phase of the day.
type TimeOfDay uint8

const (
	TimeUnknown TimeOfDay = iota
	TimeDawn
	TimeDay
	TimeDusk
	TimeNight
)

func (t TimeOfDay) String() string {
	return [...]string{"unknown", "dawn", "day", "dusk", "night"}[t]
}

// Season groups three months.
type Season uint8

const (
	Winter Season = iota
	Spring
	Summer
	Autumn
)

func (s Season) String() string {
	return [...]string{"winter", "spring", "summer", "autumn"}[s]
}

// Moment is a point of in-game time. Month and Day are 0-based.
type Moment struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// MomentFromSeconds decomposes in-game seconds since the game epoch.
// Negative values fall into years before StartYear.
func MomentFromSeconds(secs int64) Moment {
	years := floorDiv64(secs, MinutesPerYear)
	rest := int(secs - years*MinutesPerYear)
	m := Moment{Year: StartYear + int(years)}
	m.Month, rest = rest/MinutesPerMonth, rest%MinutesPerMonth
	m.Day, rest = rest/MinutesPerDay, rest%MinutesPerDay
	m.Hour, m.Minute = rest/MinutesPerHour, rest%MinutesPerHour
	return m
}

// Seconds returns the in-game seconds since the game epoch.
func (m Moment) Seconds() int64 {
	return int64(m.Minute) +
		int64(m.Hour)*MinutesPerHour +
		int64(m.Day)*MinutesPerDay +
		int64(m.Month)*MinutesPerMonth +
		int64(m.Year-StartYear)*MinutesPerYear
}

// DayOfYear returns the 0-based day within the year.
func (m Moment) DayOfYear() int { return m.Month*DaysPerMonth + m.Day }

// WeekDay returns the 0-based day of the week; 0 is Sunday.
func (m Moment) WeekDay() int { return m.DayOfYear() % DaysPerWeek }

// Season returns the season of the moment's month.
func (m Moment) Season() Season { return Season(floorMod(m.Month, MonthsPerYear) / 3) }

// TimeOfDay classifies the hour against the month's dawn and dusk.
func (m Moment) TimeOfDay() TimeOfDay {
	dawn, dusk := DawnHour(m.Month), DuskHour(m.Month)
	switch {
	case m.Hour == dawn:
		return TimeDawn
	case m.Hour == dusk:
		return TimeDusk
	case m.Hour < dawn || m.Hour > dusk:
		return TimeNight
	default:
		return TimeDay
	}
}

// MinuteOfDay returns minutes elapsed since midnight.
func (m Moment) MinuteOfDay() int { return m.Hour*MinutesPerHour + m.Minute }

func (m Moment) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", m.Year, m.Month+1, m.Day+1, m.Hour, m.Minute)
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
