// Package score defines the hard/soft score value and the ledger that
// accumulates weighted constraint impacts with exact, reversible undo.
package score

import (
	"fmt"
	"strconv"
	"strings"
)

// Score is a two-level score. Hard outranks soft: any hard difference
// decides a comparison before soft is looked at.
type Score struct {
	Hard int64 `json:"hard" yaml:"hard"`
	Soft int64 `json:"soft" yaml:"soft"`
}

// Zero is the zero score.
var Zero = Score{}

// Of creates a score from both levels.
func Of(hard, soft int64) Score {
	return Score{Hard: hard, Soft: soft}
}

// OfHard creates a score with only a hard level.
func OfHard(hard int64) Score {
	return Score{Hard: hard}
}

// OfSoft creates a score with only a soft level.
func OfSoft(soft int64) Score {
	return Score{Soft: soft}
}

// Add returns s + o.
func (s Score) Add(o Score) Score {
	return Score{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft}
}

// Subtract returns s - o.
func (s Score) Subtract(o Score) Score {
	return Score{Hard: s.Hard - o.Hard, Soft: s.Soft - o.Soft}
}

// Multiply returns s scaled by n.
func (s Score) Multiply(n int64) Score {
	return Score{Hard: s.Hard * n, Soft: s.Soft * n}
}

// Negate returns -s.
func (s Score) Negate() Score {
	return Score{Hard: -s.Hard, Soft: -s.Soft}
}

// IsZero reports whether both levels are zero.
func (s Score) IsZero() bool {
	return s.Hard == 0 && s.Soft == 0
}

// IsFeasible reports whether no hard constraint is broken.
func (s Score) IsFeasible() bool {
	return s.Hard >= 0
}

// Compare returns -1, 0 or +1 when s is worse than, equal to or better than o.
func (s Score) Compare(o Score) int {
	switch {
	case s.Hard < o.Hard:
		return -1
	case s.Hard > o.Hard:
		return 1
	case s.Soft < o.Soft:
		return -1
	case s.Soft > o.Soft:
		return 1
	default:
		return 0
	}
}

func (s Score) String() string {
	return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft)
}

// MarshalText implements encoding.TextMarshaler.
func (s Score) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Score) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse reads a score such as "-1hard/0soft", "-2hard", "5soft" or "7".
// A bare number is a soft score.
func Parse(text string) (Score, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Zero, fmt.Errorf("empty score")
	}
	var s Score
	for _, part := range strings.Split(text, "/") {
		part = strings.TrimSpace(part)
		var (
			digits string
			hard   bool
		)
		switch {
		case strings.HasSuffix(part, "hard"):
			digits, hard = strings.TrimSuffix(part, "hard"), true
		case strings.HasSuffix(part, "soft"):
			digits = strings.TrimSuffix(part, "soft")
		default:
			digits = part
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return Zero, fmt.Errorf("invalid score %q: %w", text, err)
		}
		if hard {
			s.Hard += n
		} else {
			s.Soft += n
		}
	}
	return s, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(text string) Score {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// ImpactType tells whether a constraint lowers or raises the score.
type ImpactType uint8

const (
	// Penalty subtracts the weighted impact from the score.
	Penalty ImpactType = iota
	// Reward adds the weighted impact to the score.
	Reward
)

func (t ImpactType) String() string {
	if t == Reward {
		return "reward"
	}
	return "penalty"
}

// Signed applies the impact direction to a constraint weight.
func (t ImpactType) Signed(weight Score) Score {
	if t == Penalty {
		return weight.Negate()
	}
	return weight
}
