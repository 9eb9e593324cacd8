// Package softassert reports recoverable invariant violations without aborting.
//
// A violation is logged once per check name at warn level and the caller
// continues with a repaired value.
package softassert

import (
	"sync"

	"go.uber.org/zap"
)

// Checker deduplicates violation reports by name.
type Checker struct {
	logger *zap.Logger
	seen   sync.Map
}

// New creates a Checker that reports through logger.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *Checker {
	return &Checker{logger: logger}
}

// Fail reports a violation of the named check.
//
// Postcondition: Returns true if this call emitted the report.
func (c *Checker) Fail(name string, fields ...zap.Field) bool {
	if c == nil {
		return false
	}
	if _, loaded := c.seen.LoadOrStore(name, struct{}{}); loaded {
		return false
	}
	c.logger.Warn("soft assertion failed", append([]zap.Field{zap.String("check", name)}, fields...)...)
	return true
}

// Clamp returns v limited to [lo, hi], reporting under name when it was outside.
func (c *Checker) Clamp(name string, v, lo, hi int) int {
	switch {
	case v < lo:
		c.Fail(name, zap.Int("value", v), zap.Int("min", lo))
		return lo
	case v > hi:
		c.Fail(name, zap.Int("value", v), zap.Int("max", hi))
		return hi
	}
	return v
}

// Enum returns v when it is below cardinality, otherwise def, reporting under name.
func (c *Checker) Enum(name string, v uint8, cardinality int, def uint8) uint8 {
	if int(v) < cardinality {
		return v
	}
	c.Fail(name, zap.Uint8("value", v), zap.Int("cardinality", cardinality))
	return def
}
