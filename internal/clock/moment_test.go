package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/MUME/MMapper-sub000/internal/clock"
)

func TestMomentFromSeconds(t *testing.T) {
	m := clock.MomentFromSeconds(0)
	assert.Equal(t, clock.Moment{Year: 2850}, m)

	m = clock.MomentFromSeconds(clock.MinutesPerYear + 2*clock.MinutesPerMonth + 3*clock.MinutesPerDay + 4*60 + 5)
	assert.Equal(t, clock.Moment{Year: 2851, Month: 2, Day: 3, Hour: 4, Minute: 5}, m)

	m = clock.MomentFromSeconds(-1)
	assert.Equal(t, clock.Moment{Year: 2849, Month: 11, Day: 29, Hour: 23, Minute: 59}, m)
}

func TestMoment_WeekDayAndSeason(t *testing.T) {
	m := clock.Moment{Year: 3030, Month: 8, Day: 17, Hour: 15}
	assert.Equal(t, 257, m.DayOfYear())
	assert.Equal(t, "Highday", clock.WestronWeekDay(m.WeekDay()))
	assert.Equal(t, "Orbelain", clock.SindarinWeekDay(m.WeekDay()))
	assert.Equal(t, clock.Summer, m.Season())
	assert.Equal(t, clock.Winter, clock.Moment{Month: 0}.Season())
	assert.Equal(t, clock.Spring, clock.Moment{Month: 5}.Season())
	assert.Equal(t, clock.Autumn, clock.Moment{Month: 11}.Season())
	assert.Equal(t, "Halimath", clock.WestronMonth(8))
	assert.Equal(t, "Ivanneth", clock.SindarinMonth(8))
}

func TestMoment_TimeOfDay(t *testing.T) {
	// Afteryule: dawn 8, dusk 18.
	cases := []struct {
		hour int
		want clock.TimeOfDay
	}{
		{0, clock.TimeNight},
		{7, clock.TimeNight},
		{8, clock.TimeDawn},
		{9, clock.TimeDay},
		{17, clock.TimeDay},
		{18, clock.TimeDusk},
		{19, clock.TimeNight},
		{23, clock.TimeNight},
	}
	for _, tc := range cases {
		m := clock.Moment{Year: 2850, Month: 0, Hour: tc.hour}
		assert.Equal(t, tc.want, m.TimeOfDay(), "hour %d", tc.hour)
	}
}

func TestProperty_MomentSecondsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(-100*clock.MinutesPerYear, 1000*clock.MinutesPerYear).Draw(t, "secs")
		m := clock.MomentFromSeconds(secs)
		if m.Seconds() != secs {
			t.Fatalf("%d -> %v -> %d", secs, m, m.Seconds())
		}
		if m.Month < 0 || m.Month >= 12 || m.Day < 0 || m.Day >= 30 ||
			m.Hour < 0 || m.Hour >= 24 || m.Minute < 0 || m.Minute >= 60 {
			t.Fatalf("field out of range: %+v", m)
		}
	})
}

func TestProperty_MomentMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, 1000*clock.MinutesPerYear).Draw(t, "a")
		d := rapid.Int64Range(0, clock.MinutesPerYear).Draw(t, "d")
		ma, mb := clock.MomentFromSeconds(a), clock.MomentFromSeconds(a+d)
		if mb.Seconds()-ma.Seconds() != d {
			t.Fatalf("moments %v and %v are not %d apart", ma, mb, d)
		}
	})
}

func TestMoon_AtEpoch(t *testing.T) {
	m := clock.MomentFromSeconds(0)
	assert.Equal(t, 12, m.MoonLevel())
	assert.Equal(t, clock.MoonFull, m.MoonPhase())
	assert.Equal(t, clock.MoonSouth, m.MoonPosition())
	assert.Equal(t, clock.MoonBright, m.MoonVisibility())
	assert.Equal(t, "6:00", m.MoonCountdown())
	assert.Equal(t, "The full moon is bright in the south and will set in 6:00.", m.MoonText())
}

func TestMoon_NewMoonHalfCycleLater(t *testing.T) {
	m := clock.MomentFromSeconds(12 * clock.MinutesPerDay)
	assert.Equal(t, 0, m.MoonLevel())
	assert.Equal(t, clock.MoonNew, m.MoonPhase())
	assert.Equal(t, clock.MoonInvisible, m.MoonVisibility())
}

func TestMoon_WaxingAndWaning(t *testing.T) {
	waning := clock.MomentFromSeconds(4 * clock.MinutesPerDay)
	assert.False(t, waning.MoonWaxing())
	assert.Equal(t, 8, waning.MoonLevel())
	assert.Equal(t, clock.MoonThirdQuarter, waning.MoonPhase())

	waxing := clock.MomentFromSeconds(20 * clock.MinutesPerDay)
	assert.True(t, waxing.MoonWaxing())
	assert.Equal(t, 8, waxing.MoonLevel())
	assert.Equal(t, clock.MoonFirstQuarter, waxing.MoonPhase())
}

func TestMoon_HiddenCountsToRise(t *testing.T) {
	// At epoch the moon culminates at midnight and sets shortly after 06:00.
	m := clock.MomentFromSeconds(12 * 60)
	assert.Equal(t, clock.MoonHidden, m.MoonPosition())
	assert.Equal(t, clock.MoonInvisible, m.MoonVisibility())
	assert.Contains(t, m.MoonText(), "below the horizon")
}

func TestProperty_MoonCycleRepeats(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(0, 100*clock.MinutesPerYear).Draw(t, "secs")
		a := clock.MomentFromSeconds(secs)
		b := clock.MomentFromSeconds(secs + 24*clock.MinutesPerDay)
		if a.MoonLevel() != b.MoonLevel() || a.MoonPosition() != b.MoonPosition() {
			t.Fatalf("moon differs across one cycle at %d", secs)
		}
		if lvl := a.MoonLevel(); lvl < 0 || lvl > 12 {
			t.Fatalf("level %d out of range", lvl)
		}
	})
}
