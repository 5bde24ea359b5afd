package classify

import (
	"fmt"
	"strings"
)

// Priority is a triage level, P1 being the most urgent.
type Priority int

const (
	P1 Priority = iota + 1 // resuscitation
	P2                     // emergent
	P3                     // urgent
	P4                     // less urgent
	P5                     // non-urgent
)

// String returns the short form, e.g. "P1".
func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return fmt.Sprintf("P%d", int(p))
}

// Label returns the clinical name of the level.
func (p Priority) Label() string {
	switch p {
	case P1:
		return "resuscitation"
	case P2:
		return "emergent"
	case P3:
		return "urgent"
	case P4:
		return "less urgent"
	case P5:
		return "non-urgent"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of P1..P5.
func (p Priority) Valid() bool {
	return p >= P1 && p <= P5
}

// MoreUrgentThan reports whether p should be seen before o.
func (p Priority) MoreUrgentThan(o Priority) bool {
	return p < o
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePriority accepts "P1".."P5" (case-insensitive) or a bare digit.
func ParsePriority(s string) (Priority, error) {
	d := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "P")
	if len(d) != 1 || d[0] < '1' || d[0] > '5' {
		return 0, fmt.Errorf("invalid priority %q (want P1..P5)", s)
	}
	return Priority(d[0] - '0'), nil
}
