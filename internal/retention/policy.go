// Package retention decides which packages a trigger keeps and removes the rest.
package retention

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Policy is either a count of most recent packages to keep or a cutoff time
// before which packages are discarded. The zero value keeps nothing.
type Policy struct {
	keep      int
	cutoff    time.Time
	hasCutoff bool
}

// KeepLast keeps the n most recent packages.
func KeepLast(n int) Policy {
	return Policy{keep: n}
}

// KeepSince keeps every package created at or after cutoff.
func KeepSince(cutoff time.Time) Policy {
	return Policy{cutoff: cutoff, hasCutoff: true}
}

// IsCutoff reports whether the policy is time based.
func (p Policy) IsCutoff() bool {
	return p.hasCutoff
}

// Keep returns the count for a count policy.
func (p Policy) Keep() int {
	return p.keep
}

// Cutoff returns the cutoff for a time policy.
func (p Policy) Cutoff() time.Time {
	return p.cutoff
}

// Validate rejects negative counts and zero cutoffs.
func (p Policy) Validate() error {
	if p.hasCutoff {
		if p.cutoff.IsZero() {
			return fmt.Errorf("retention cutoff must be a non-zero time")
		}
		return nil
	}
	if p.keep < 0 {
		return fmt.Errorf("keep count must be non-negative, got %d", p.keep)
	}
	return nil
}

// String renders the policy for logs and output.
func (p Policy) String() string {
	if p.hasCutoff {
		return "since " + p.cutoff.Format(time.RFC3339)
	}
	return "keep " + strconv.Itoa(p.keep)
}

// MarshalText lets the policy appear in JSON and YAML output.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// maxAgeDays bounds day and week ages to roughly a century.
const maxAgeDays = 100 * 366

// agePattern matches day and week ages such as 30d or 4w.
var agePattern = regexp.MustCompile(`^(\d+)([dw])$`)

// ParsePolicy converts a configured keep value into a Policy. Accepted values:
//   - integers (count)
//   - RFC 3339 timestamps, YYYY-MM-DD dates, time.Time and TOML local dates (cutoff)
//   - relative ages like "720h", "30d" or "4w" (cutoff = now - age)
func ParsePolicy(value any, now time.Time) (Policy, error) {
	var p Policy

	switch v := value.(type) {
	case nil:
		return Policy{}, fmt.Errorf("keep is required")
	case Policy:
		p = v
	case int:
		p = KeepLast(v)
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return Policy{}, fmt.Errorf("keep count %d out of range", v)
		}
		p = KeepLast(int(v))
	case uint64:
		if v > math.MaxInt32 {
			return Policy{}, fmt.Errorf("keep count %d out of range", v)
		}
		p = KeepLast(int(v))
	case float64:
		if v != math.Trunc(v) {
			return Policy{}, fmt.Errorf("keep count must be a whole number, got %v", v)
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return Policy{}, fmt.Errorf("keep count %v out of range", v)
		}
		p = KeepLast(int(v))
	case time.Time:
		p = KeepSince(v)
	case toml.LocalDate:
		p = KeepSince(v.AsTime(time.Local))
	case toml.LocalDateTime:
		p = KeepSince(v.AsTime(time.Local))
	case string:
		parsed, err := parsePolicyString(v, now)
		if err != nil {
			return Policy{}, err
		}
		p = parsed
	default:
		return Policy{}, fmt.Errorf("unsupported keep value %v (%T)", value, value)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func parsePolicyString(s string, now time.Time) (Policy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Policy{}, fmt.Errorf("keep is required")
	}

	if n, err := strconv.Atoi(s); err == nil {
		return KeepLast(n), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return KeepSince(t), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return KeepSince(t), nil
	}
	if m := agePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > maxAgeDays {
			return Policy{}, fmt.Errorf("keep age %q out of range (at most %d days)", s, maxAgeDays)
		}
		days := n
		if m[2] == "w" {
			if n > maxAgeDays/7 {
				return Policy{}, fmt.Errorf("keep age %q out of range (at most %d days)", s, maxAgeDays)
			}
			days = n * 7
		}
		return ageCutoff(s, now, now.AddDate(0, 0, -days))
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return Policy{}, fmt.Errorf("keep age must be positive, got %s", s)
		}
		return ageCutoff(s, now, now.Add(-d))
	}

	return Policy{}, fmt.Errorf("invalid keep value %q (want a count, a date, or an age like 30d)", s)
}

// ageCutoff rejects a cutoff derived from an age that lies after now.
func ageCutoff(s string, now, cutoff time.Time) (Policy, error) {
	if cutoff.After(now) {
		return Policy{}, fmt.Errorf("keep age %q yields a cutoff after now", s)
	}
	return KeepSince(cutoff), nil
}
