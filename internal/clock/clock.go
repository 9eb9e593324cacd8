package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/parser"
	"github.com/MUME/MMapper-sub000/internal/softassert"
)

// Precision is how much of the current in-game time the clock can vouch for.
type Precision int8

const (
	PrecisionUnset Precision = iota - 1
	PrecisionDay
	PrecisionHour
	PrecisionMinute
)

func (p Precision) String() string {
	switch p {
	case PrecisionDay:
		return "day"
	case PrecisionHour:
		return "hour"
	case PrecisionMinute:
		return "minute"
	}
	return "unset"
}

// precisionDecay is how long, in real seconds, a sync stays trusted beyond
// day precision.
const precisionDecay = 24 * 60 * 60

var (
	hourFormat  = regexp.MustCompile(`(\d+)(am|pm) on (\w+), the (\d+).{2} of (\w+), year (\d+) of the Third Age.`)
	dateFormat  = regexp.MustCompile(`(\w+), the (\d+).{2} of (\w+), year (\d+) of the Third Age.`)
	clockFormat = regexp.MustCompile(`The current time is (\d+):(\d+)(am|pm).`)
)

var weatherTimes = map[string]TimeOfDay{
	"The day has begun.":                                                                                  TimeDay,
	"The night has begun.":                                                                                TimeNight,
	"Light gradually filters in, proclaiming a new sunrise outside.":                                      TimeDawn,
	"It seems as if the day has begun.":                                                                   TimeDay,
	"The deepening gloom announces another sunset outside.":                                               TimeDusk,
	"It seems as if the night has begun.":                                                                 TimeNight,
	"The last ray of light fades, and all is swallowed up in darkness.":                                   TimeNight,
	"Arda seems to wither as an evil power begins to grow...":                                             TimeUnknown,
	"Shrouds of dark clouds roll in above you, blotting out the skies.":                                   TimeUnknown,
	"The evil power begins to regress...":                                                                 TimeUnknown,
	"The sun rises slowly above Bree Hill.":                                                               TimeDawn,
	"The sun sets on Bree-land.":                                                                          TimeDusk,
	"The sun rises over the city wall.":                                                                   TimeDawn,
	"The sun sinks slowly below the western horizon.":                                                     TimeDusk,
	"The sun rises in the east.":                                                                          TimeDawn,
	"The sun slowly rises over the rooftops in the east.":                                                 TimeDawn,
	"The sun slowly disappears in the west.":                                                              TimeDusk,
	"Rays of sunshine pierce the darkness as the sun begins its gradual ascent to the middle of the sky.": TimeDawn,
}

// WeatherTime looks up the time of day announced by a weather line.
func WeatherTime(line string) (TimeOfDay, bool) {
	t, ok := weatherTimes[strings.TrimSpace(line)]
	return t, ok
}

// Option customizes a Clock.
type Option func(*Clock)

// WithNow replaces the real-time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// Clock maps real time onto in-game time through a start epoch that is
// corrected whenever the game reports the time.
type Clock struct {
	mu         sync.Mutex
	logger     *zap.Logger
	checker    *softassert.Checker
	now        func() time.Time
	startEpoch int64
	precision  Precision
	lastSync   int64
	tolerance  int

	subMu       sync.Mutex
	subscribers map[chan<- TimeOfDay]struct{}
}

// New creates a Clock with unset precision.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil *Clock anchored at cfg.StartEpoch.
func New(cfg config.ClockConfig, logger *zap.Logger, opts ...Option) *Clock {
	logger = logger.Named("clock")
	c := &Clock{
		logger:      logger,
		checker:     softassert.New(logger),
		now:         time.Now,
		startEpoch:  cfg.StartEpoch,
		precision:   PrecisionUnset,
		tolerance:   cfg.ToleranceLimit,
		subscribers: make(map[chan<- TimeOfDay]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Clock) realNow() int64 { return c.now().Unix() }

// StartEpoch returns the real Unix second at which in-game time was zero.
func (c *Clock) StartEpoch() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startEpoch
}

// Moment returns the in-game moment at the real Unix second realSecs.
func (c *Clock) Moment(realSecs int64) Moment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return MomentFromSeconds(realSecs - c.startEpoch)
}

// Now returns the current in-game moment.
func (c *Clock) Now() Moment { return c.Moment(c.realNow()) }

// Precision returns the precision at realSecs. Anything finer than a day
// decays to day precision once the last sync is a real day old.
func (c *Clock) Precision(realSecs int64) Precision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.precisionLocked(realSecs)
}

// CurrentPrecision is Precision at the current real time.
func (c *Clock) CurrentPrecision() Precision { return c.Precision(c.realNow()) }

// SetPrecision overrides the precision and marks realSecs as the last sync.
func (c *Clock) SetPrecision(p Precision, realSecs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.precision = p
	c.lastSync = realSecs
}

func (c *Clock) precisionLocked(realSecs int64) Precision {
	if c.precision >= PrecisionHour && realSecs-c.lastSync > precisionDecay {
		c.precision = PrecisionDay
	}
	return c.precision
}

// ParseMumeTime synchronizes against the output of the "time" command, given
// either with an hour ("3pm on Highday, ...") or as a bare date.
//
// Postcondition: Returns false, leaving the clock untouched, when text matches neither form.
func (c *Clock) ParseMumeTime(text string, realSecs int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := MomentFromSeconds(realSecs - c.startEpoch)
	var weekDay, day, month, year string
	precision := c.precisionLocked(realSecs)

	if text != "" && text[0] >= '0' && text[0] <= '9' {
		match := hourFormat.FindStringSubmatch(text)
		if match == nil {
			c.logger.Debug("unrecognized time output", zap.String("text", text))
			return false
		}
		m.Hour = to24Hour(atoi(match[1]), match[2])
		weekDay, day, month, year = match[3], match[4], match[5], match[6]
		if precision <= PrecisionDay {
			precision = PrecisionHour
		}
	} else {
		match := dateFormat.FindStringSubmatch(text)
		if match == nil {
			c.logger.Debug("unrecognized time output", zap.String("text", text))
			return false
		}
		weekDay, day, month, year = match[1], match[2], match[3], match[4]
		if precision == PrecisionUnset {
			precision = PrecisionDay
		}
	}

	mon, ok := lookupMonth(month)
	if !ok {
		c.logger.Debug("unknown month", zap.String("month", month))
		return false
	}
	m.Month = mon
	m.Day = atoi(day) - 1
	m.Year = atoi(year)
	m = c.sanitize(m)

	if wd, ok := lookupWeekDay(weekDay); ok && wd != m.WeekDay() {
		c.logger.Warn("week day disagrees with date",
			zap.String("reported", weekDay),
			zap.String("computed", WestronWeekDay(m.WeekDay())))
	}

	newEpoch := realSecs - m.Seconds()
	if newEpoch != c.startEpoch {
		c.logger.Info("detected new start epoch",
			zap.Int64("epoch", newEpoch),
			zap.Int64("delta", newEpoch-c.startEpoch))
	} else {
		c.logger.Info("synchronized clock using time output")
	}
	c.startEpoch = newEpoch
	c.precision = precision
	c.lastSync = realSecs
	return true
}

// ParseClockTime synchronizes against a room clock ("The current time is
// 5:23pm.") to minute precision.
//
// Postcondition: Returns false, leaving the clock untouched, when text does not match.
func (c *Clock) ParseClockTime(text string, realSecs int64) bool {
	match := clockFormat.FindStringSubmatch(text)
	if match == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := MomentFromSeconds(realSecs - c.startEpoch)
	m.Hour = to24Hour(atoi(match[1]), match[3])
	m.Minute = atoi(match[2])
	m = c.sanitize(m)

	newEpoch := realSecs - m.Seconds()
	c.logger.Info("synchronized with clock in room", zap.Int64("delta", newEpoch-c.startEpoch))
	c.startEpoch = newEpoch
	c.precision = PrecisionMinute
	c.lastSync = realSecs
	return true
}

// ParseWeatherText synchronizes against a sunrise/sunset style weather line.
//
// Postcondition: Returns false for lines that do not announce a time of day.
func (c *Clock) ParseWeatherText(line string, realSecs int64) bool {
	t, ok := WeatherTime(line)
	if !ok {
		return false
	}
	c.ParseWeather(t, realSecs)
	return true
}

// ParseSunEvent synchronizes against a GMCP Event.Sun transition.
func (c *Clock) ParseSunEvent(ev parser.SunEvent, realSecs int64) bool {
	switch ev {
	case parser.SunRise:
		c.ParseWeather(TimeDawn, realSecs)
	case parser.SunLight:
		c.ParseWeather(TimeDay, realSecs)
	case parser.SunSet:
		c.ParseWeather(TimeDusk, realSecs)
	case parser.SunDark:
		c.ParseWeather(TimeNight, realSecs)
	default:
		return false
	}
	return true
}

// ParseWeather snaps the clock to the top of the hour that t implies for the
// current month. TimeUnknown marks a tick of unknown kind, which only
// corrects small drift.
func (c *Clock) ParseWeather(t TimeOfDay, realSecs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := MomentFromSeconds(realSecs - c.startEpoch)
	dawn, dusk := DawnHour(m.Month), DuskHour(m.Month)
	precision := PrecisionMinute
	switch t {
	case TimeDawn:
		m.Hour = dawn
	case TimeDay:
		m.Hour = dawn + 1
	case TimeDusk:
		m.Hour = dusk
	case TimeNight:
		m.Hour = dusk + 1
	default:
		precision = c.unknownTick(&m)
	}
	m.Minute = 0

	c.precision = precision
	c.startEpoch = realSecs - m.Seconds()
	c.lastSync = realSecs
	c.logger.Debug("synchronized tick using weather", zap.Stringer("time", t))
}

// unknownTick adjusts m for a tick that happened at some top of the hour.
func (c *Clock) unknownTick(m *Moment) Precision {
	switch {
	case c.precision == PrecisionHour:
		m.Hour++
		c.logger.Debug("synchronized tick and raised precision")
	case m.Minute == 0:
		c.logger.Debug("tick detected")
	case m.Minute <= c.tolerance:
		c.logger.Debug("synchronized tick but game is running slow", zap.Int("seconds", m.Minute))
	case m.Minute >= MinutesPerHour-c.tolerance:
		c.logger.Debug("synchronized tick but game is running fast", zap.Int("seconds", m.Minute))
		m.Hour++
	default:
		c.logger.Info("precision lowered because tick was off", zap.Int("seconds", m.Minute))
		return PrecisionDay
	}
	return PrecisionMinute
}

// sanitize clamps fields parsed from game text into their calendar ranges.
func (c *Clock) sanitize(m Moment) Moment {
	m.Year = c.checker.Clamp("moment.year", m.Year, 2100, 4099)
	m.Month = c.checker.Clamp("moment.month", m.Month, 0, MonthsPerYear-1)
	m.Day = c.checker.Clamp("moment.day", m.Day, 0, DaysPerMonth-1)
	m.Hour = c.checker.Clamp("moment.hour", m.Hour, 0, HoursPerDay-1)
	m.Minute = c.checker.Clamp("moment.minute", m.Minute, 0, MinutesPerHour-1)
	return m
}

// FormatMumeTime renders m at the clock's current precision.
func (c *Clock) FormatMumeTime(m Moment) string {
	return FormatMoment(m, c.CurrentPrecision())
}

// Countdown renders the time left until the next dawn or dusk at the clock's
// current precision.
func (c *Clock) Countdown(m Moment) string {
	return FormatCountdown(m, c.CurrentPrecision())
}

// FormatMoment renders m the way the game's "time" command does, including
// the hour only when p is at least PrecisionHour.
func FormatMoment(m Moment, p Precision) string {
	var b strings.Builder
	if p >= PrecisionHour {
		hour, suffix := to12Hour(m.Hour)
		if p == PrecisionHour {
			fmt.Fprintf(&b, "%d%s on ", hour, suffix)
		} else {
			fmt.Fprintf(&b, "%d:%02d%s on ", hour, m.Minute, suffix)
		}
	}
	fmt.Fprintf(&b, "%s, the %d%s of %s, year %d of the Third Age.",
		WestronWeekDay(m.WeekDay()), m.Day+1, ordinalSuffix(m.Day+1), WestronMonth(m.Month), m.Year)
	return b.String()
}

// FormatCountdown renders the real time until the next dawn or dusk. Below
// minute precision the value is an approximate number of minutes.
func FormatCountdown(m Moment, p Precision) string {
	dawn, dusk := DawnHour(m.Month), DuskHour(m.Month)
	secs := 0
	if p == PrecisionMinute {
		secs = MinutesPerHour - m.Minute
	}
	switch {
	case m.Hour <= dawn:
		secs += (dawn - m.Hour) * MinutesPerHour
	case m.Hour >= dusk:
		secs += (HoursPerDay - m.Hour + dawn) * MinutesPerHour
	default:
		secs += (dusk - 1 - m.Hour) * MinutesPerHour
	}
	if p <= PrecisionHour {
		return fmt.Sprintf("~%d", secs/60+1)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Subscribe registers ch to receive the time of day whenever it changes while
// the clock is started. Full channels miss the update.
//
// Precondition: ch must not be nil.
func (c *Clock) Subscribe(ch chan<- TimeOfDay) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (c *Clock) Unsubscribe(ch chan<- TimeOfDay) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subscribers, ch)
}

// Start polls the clock every interval and notifies subscribers of time of
// day transitions. Calling stop is idempotent.
//
// Precondition: interval > 0.
func (c *Clock) Start(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := c.Now().TimeOfDay()
		for {
			select {
			case <-ticker.C:
				tod := c.Now().TimeOfDay()
				if tod == last {
					continue
				}
				last = tod
				c.broadcast(tod)
			case <-done:
				return
			}
		}
	}()
	return func() {
		once.Do(func() { close(done) })
	}
}

func (c *Clock) broadcast(tod TimeOfDay) {
	c.subMu.Lock()
	subs := make([]chan<- TimeOfDay, 0, len(c.subscribers))
	for ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.subMu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- tod:
		default:
		}
	}
}

func to24Hour(hour int, ampm string) int {
	switch {
	case ampm == "pm" && hour != 12:
		return hour + 12
	case ampm == "am" && hour == 12:
		return 0
	}
	return hour
}

func to12Hour(hour int) (int, string) {
	switch {
	case hour == 0:
		return 12, "am"
	case hour == 12:
		return 12, "pm"
	case hour > 12:
		return hour - 12, "pm"
	}
	return hour, "am"
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
