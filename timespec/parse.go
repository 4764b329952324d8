// Package timespec parses the human-written duration strings accepted for
// cache entry lifespan and max-idle configuration ("10s", "5m", "inf",
// "def") into the wire TimeUnit/amount pair the protocol expects.
package timespec

import (
	"regexp"
	"strconv"

	"github.com/infinispan/go-hotrod/internal/errs"
	"github.com/infinispan/go-hotrod/internal/protocol"
)

// Spec is a parsed time specification ready for encoding onto one nibble of
// a request's tunits expiration byte.
type Spec struct {
	Amount uint64
	Unit   protocol.TimeUnit
}

var pattern = regexp.MustCompile(`^(\d+)(ns|us|ms|s|m|h|d)$`)

var units = map[string]protocol.TimeUnit{
	"ns": protocol.UnitNanoseconds,
	"us": protocol.UnitMicroseconds,
	"ms": protocol.UnitMilliseconds,
	"s":  protocol.UnitSeconds,
	"m":  protocol.UnitMinutes,
	"h":  protocol.UnitHours,
	"d":  protocol.UnitDays,
}

// Parse converts a time spec string to a Spec. "inf" means the entry never
// expires; "def" defers to the cache's configured default; both carry an
// Amount of 0. Any other string must match \d+(ns|us|ms|s|m|h|d).
func Parse(s string) (Spec, error) {
	switch s {
	case "inf":
		return Spec{Amount: 0, Unit: protocol.UnitInfinite}, nil
	case "def":
		return Spec{Amount: 0, Unit: protocol.UnitDefault}, nil
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Spec{}, errs.NewEncodeError("invalid time spec %q", s)
	}

	amount, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Spec{}, errs.NewEncodeError("invalid time spec %q: %v", s, err)
	}

	return Spec{Amount: amount, Unit: units[m[2]]}, nil
}

// String renders the Spec back to its canonical short form.
func (s Spec) String() string {
	switch s.Unit {
	case protocol.UnitInfinite:
		return "inf"
	case protocol.UnitDefault:
		return "def"
	}
	for suffix, u := range units {
		if u == s.Unit {
			return strconv.FormatUint(s.Amount, 10) + suffix
		}
	}
	return "def"
}
