package score

import (
	"fmt"
	"strings"
)

// Match is one live constraint match.
type Match struct {
	Constraint    string
	Score         Score
	Justification any
	Indicted      []any
}

// DefaultJustification justifies a match by the facts that produced it.
type DefaultJustification struct {
	Facts []any
}

func (j DefaultJustification) String() string {
	parts := make([]string, len(j.Facts))
	for i, f := range j.Facts {
		parts[i] = fmt.Sprintf("%v", f)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MatchTotal sums the matches of one constraint.
type MatchTotal struct {
	Constraint string
	Weight     Score
	Score      Score
	Matches    []*Match
}

// Count returns the number of matches.
func (t *MatchTotal) Count() int {
	return len(t.Matches)
}

// Indictment sums the matches blamed on one object.
type Indictment struct {
	Object  any
	Score   Score
	Matches []*Match
}

// MatchTotals returns one MatchTotal per active constraint, including
// constraints without matches. It returns nil when tracking is off.
func (l *Ledger) MatchTotals() map[string]*MatchTotal {
	if !l.trackMatches {
		return nil
	}
	if l.totals == nil {
		totals := make(map[string]*MatchTotal, len(l.constraints))
		for _, id := range l.sortedIDs() {
			c := l.byID[id]
			total := &MatchTotal{Constraint: id, Weight: c.weight}
			c.matches.ForEach(func(m *matchCarrier) {
				match := m.get(c)
				total.Score = total.Score.Add(match.Score)
				total.Matches = append(total.Matches, match)
			})
			totals[id] = total
		}
		l.totals = totals
	}
	return l.totals
}

// Indictments returns, for every indicted object, the matches blamed on it.
// Indicted objects must be comparable. It returns nil when tracking is off.
func (l *Ledger) Indictments() map[any]*Indictment {
	if !l.trackMatches {
		return nil
	}
	if l.indictments == nil {
		indictments := make(map[any]*Indictment)
		for _, id := range l.sortedIDs() {
			c := l.byID[id]
			c.matches.ForEach(func(m *matchCarrier) {
				match := m.get(c)
				seen := make(map[any]struct{}, len(match.Indicted))
				for _, obj := range match.Indicted {
					if _, dup := seen[obj]; dup {
						continue
					}
					seen[obj] = struct{}{}
					ind, ok := indictments[obj]
					if !ok {
						ind = &Indictment{Object: obj}
						indictments[obj] = ind
					}
					ind.Score = ind.Score.Add(match.Score)
					ind.Matches = append(ind.Matches, match)
				}
			})
		}
		l.indictments = indictments
	}
	return l.indictments
}
