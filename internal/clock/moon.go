package clock

import "fmt"

// The moon completes its phase cycle every moonCycleDays in-game days. Its
// zenith drifts one hour later each day and it stays up for half a day.
const (
	moonCycleDays  = 24
	moonUpMinutes  = MinutesPerDay / 2
	moonRiseOffset = MinutesPerDay / 4
	moonMaxLevel   = 12
	moonBrightMin  = 4
)

// MoonPhase is the illuminated shape of the moon.
type MoonPhase uint8

const (
	MoonNew MoonPhase = iota
	MoonWaxingCrescent
	MoonFirstQuarter
	MoonWaxingGibbous
	MoonFull
	MoonWaningGibbous
	MoonThirdQuarter
	MoonWaningCrescent
)

func (p MoonPhase) String() string {
	return [...]string{
		"new moon", "waxing crescent", "first quarter", "waxing gibbous",
		"full moon", "waning gibbous", "third quarter", "waning crescent",
	}[p]
}

// MoonPosition is where in the sky the moon stands.
type MoonPosition uint8

const (
	MoonHidden MoonPosition = iota
	MoonEast
	MoonSoutheast
	MoonSouth
	MoonSouthwest
	MoonWest
)

func (p MoonPosition) String() string {
	return [...]string{"below the horizon", "east", "southeast", "south", "southwest", "west"}[p]
}

// MoonVisibility says whether the moon can be seen and how strongly it lights
// the land.
type MoonVisibility uint8

const (
	MoonInvisible MoonVisibility = iota
	MoonDim
	MoonBright
)

func (v MoonVisibility) String() string {
	return [...]string{"invisible", "dim", "bright"}[v]
}

var moonArc = [moonUpMinutes / 90]MoonPosition{
	MoonEast, MoonEast, MoonSoutheast, MoonSouth, MoonSouth, MoonSouthwest, MoonWest, MoonWest,
}

// moonZenith returns the minute of the day at which the moon culminates.
func (m Moment) moonZenith() int {
	return floorMod(int(floorDiv64(m.Seconds(), moonCycleDays)%MinutesPerDay), MinutesPerDay)
}

// MoonLevel returns the illumination from 0 (new) to 12 (full).
func (m Moment) MoonLevel() int {
	h := m.moonZenith() / MinutesPerHour
	if h <= moonMaxLevel {
		return moonMaxLevel - h
	}
	return h - moonMaxLevel
}

// MoonWaxing reports whether illumination is growing.
func (m Moment) MoonWaxing() bool {
	return m.moonZenith() > moonUpMinutes
}

// MoonPhase classifies the illumination level.
func (m Moment) MoonPhase() MoonPhase {
	step := MoonPhase(m.MoonLevel() / 3)
	switch {
	case step == 0:
		return MoonNew
	case step == 4:
		return MoonFull
	case m.MoonWaxing():
		return step
	default:
		return MoonFull + (4 - step)
	}
}

// moonElapsed returns minutes since the last moonrise.
func (m Moment) moonElapsed() int {
	rise := m.moonZenith() - moonRiseOffset
	return floorMod(m.MinuteOfDay()-rise, MinutesPerDay)
}

// MoonPosition returns the moon's place in the sky, or MoonHidden.
func (m Moment) MoonPosition() MoonPosition {
	elapsed := m.moonElapsed()
	if elapsed >= moonUpMinutes {
		return MoonHidden
	}
	return moonArc[elapsed/90]
}

// MoonVisibility rates the moon against the time of day.
func (m Moment) MoonVisibility() MoonVisibility {
	if m.MoonPosition() == MoonHidden || m.MoonLevel() == 0 {
		return MoonInvisible
	}
	switch tod := m.TimeOfDay(); {
	case m.MoonLevel() >= moonBrightMin && (tod == TimeDusk || tod == TimeNight):
		return MoonBright
	default:
		return MoonDim
	}
}

// MoonCountdown renders the real time until the moon sets, or until it
// rises when it is hidden, as "M:SS".
func (m Moment) MoonCountdown() string {
	elapsed := m.moonElapsed()
	left := moonUpMinutes - elapsed
	if elapsed >= moonUpMinutes {
		left = MinutesPerDay - elapsed
	}
	return fmt.Sprintf("%d:%02d", left/60, left%60)
}

// MoonText describes the moon in one sentence.
func (m Moment) MoonText() string {
	if m.MoonPosition() == MoonHidden {
		return fmt.Sprintf("The %s is below the horizon and will rise in %s.", m.MoonPhase(), m.MoonCountdown())
	}
	return fmt.Sprintf("The %s is %s in the %s and will set in %s.",
		m.MoonPhase(), m.MoonVisibility(), m.MoonPosition(), m.MoonCountdown())
}
