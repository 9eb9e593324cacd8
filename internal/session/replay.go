package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/parseevent"
	"github.com/MUME/MMapper-sub000/internal/parser"
	"github.com/MUME/MMapper-sub000/internal/pathmachine"
)

// Machine consumes room observations.
type Machine interface {
	Event(ev *parseevent.ParseEvent)
	SetMode(mode pathmachine.Mode)
}

// Clock consumes time information from game output. Every method reports
// whether the text was understood.
type Clock interface {
	ParseMumeTime(text string, realSecs int64) bool
	ParseClockTime(text string, realSecs int64) bool
	ParseWeatherText(line string, realSecs int64) bool
	ParseSunEvent(ev parser.SunEvent, realSecs int64) bool
}

// Stats counts what a replay fed to its consumers.
type Stats struct {
	Events     int
	ClockSyncs int
	// Ignored counts steps that neither consumer understood.
	Ignored int
}

// Replayer feeds recordings to a path machine and a clock.
type Replayer struct {
	parser  *parser.Parser
	machine Machine
	clock   Clock
	logger  *zap.Logger
}

// NewReplayer wires a replayer.
//
// Precondition: p, machine, clock and logger must be non-nil.
func NewReplayer(p *parser.Parser, machine Machine, clock Clock, logger *zap.Logger) *Replayer {
	return &Replayer{parser: p, machine: machine, clock: clock, logger: logger.Named("session")}
}

// Replay runs every step of rec in order. Real time is simulated from
// rec.Start and the per-step delays; nothing sleeps.
//
// Precondition: rec must have passed Validate.
// Postcondition: Returns the context error if ctx is cancelled between steps.
func (r *Replayer) Replay(ctx context.Context, rec *Recording) (Stats, error) {
	var stats Stats
	now := rec.Start
	start := time.Now()
	for i, step := range rec.Steps {
		if err := ctx.Err(); err != nil {
			r.logger.Info("replay interrupted", zap.Int("step", i))
			return stats, err
		}
		now += int64(step.After / time.Second)
		switch step.kind() {
		case "room":
			r.machine.Event(r.roomEvent(step.Room))
			stats.Events++
			continue
		case "mode":
			mode, _ := pathmachine.ParseMode(step.Mode)
			r.machine.SetMode(mode)
			continue
		}
		if r.feedClock(step, now) {
			stats.ClockSyncs++
		} else {
			stats.Ignored++
			r.logger.Debug("step not understood", zap.Int("step", i), zap.String("kind", step.kind()))
		}
	}
	r.logger.Info("replay finished",
		zap.Int("events", stats.Events),
		zap.Int("clock_syncs", stats.ClockSyncs),
		zap.Int("ignored", stats.Ignored),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

func (r *Replayer) feedClock(step Step, now int64) bool {
	switch step.kind() {
	case "time":
		return r.clock.ParseMumeTime(step.Time, now)
	case "clock":
		return r.clock.ParseClockTime(step.Clock, now)
	case "weather":
		return r.clock.ParseWeatherText(step.Weather, now)
	case "gmcp":
		return r.clock.ParseSunEvent(parser.ParseSunEvent(step.GMCP), now)
	}
	return false
}

func (r *Replayer) roomEvent(out *RoomOutput) *parseevent.ParseEvent {
	move, _ := parseevent.ParseCommand(out.Move)
	var prompt parseevent.PromptFlags
	if out.Prompt != "" {
		prompt = parser.ParsePrompt(out.Prompt)
	}
	exits, connected := r.parser.ParseExits(out.Exits)
	return parseevent.New(move, out.Name, out.Dynamic, out.Desc, exits, prompt, connected)
}
