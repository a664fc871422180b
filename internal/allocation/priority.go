package allocation

import (
	"fmt"
	"sort"
)

// Tier is one rung of the constraint priority ladder. Hard tiers are enforced
// as constraints and never carry a penalty; soft tiers are relaxed with slack
// variables whose normalized violation is multiplied by Penalty.
type Tier struct {
	Name    string
	Level   int
	Hard    bool
	Penalty float64
}

// Ladder is ordered from highest priority (Level 1) to lowest.
type Ladder []Tier

const (
	TierFeasibility     = "feasibility"
	TierHard            = "hard"
	TierTargets         = "targets"
	TierDiversification = "diversification"
	// TierObjective's Penalty is the largest weight the primary objective may
	// carry, so every soft tier above it dominates any weighting of premium
	// against coverage.
	TierObjective = "objective"

	// MinTierSeparation is the required ratio between consecutive soft tiers.
	MinTierSeparation = 10.0
)

func DefaultLadder() Ladder {
	return Ladder{
		{Name: TierFeasibility, Level: 1, Hard: true},
		{Name: TierHard, Level: 2, Hard: true},
		{Name: TierTargets, Level: 3, Penalty: 1e4},
		{Name: TierDiversification, Level: 4, Penalty: 1e2},
		{Name: TierObjective, Level: 5, Penalty: 10},
	}
}

// Validate checks the ordering invariants: levels are strictly increasing, hard
// tiers come before soft ones and carry no penalty, and each soft tier's penalty
// is at least MinTierSeparation times the next one down.
func (l Ladder) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("priority ladder is empty")
	}
	if !sort.SliceIsSorted(l, func(i, j int) bool { return l[i].Level < l[j].Level }) {
		return fmt.Errorf("priority ladder levels must be increasing")
	}
	seenSoft := false
	var prev *Tier
	names := map[string]bool{}
	for i := range l {
		t := &l[i]
		if names[t.Name] {
			return fmt.Errorf("tier %q listed twice", t.Name)
		}
		names[t.Name] = true
		if i > 0 && l[i-1].Level == t.Level {
			return fmt.Errorf("tiers %q and %q share level %d", l[i-1].Name, t.Name, t.Level)
		}
		if t.Hard {
			if seenSoft {
				return fmt.Errorf("hard tier %q ranked below a soft tier", t.Name)
			}
			if t.Penalty != 0 {
				return fmt.Errorf("hard tier %q must not carry a penalty", t.Name)
			}
			continue
		}
		seenSoft = true
		if t.Penalty <= 0 {
			return fmt.Errorf("soft tier %q needs a positive penalty", t.Name)
		}
		if prev != nil && prev.Penalty < MinTierSeparation*t.Penalty {
			return fmt.Errorf("tier %q penalty %g is not %gx above %q penalty %g",
				prev.Name, prev.Penalty, MinTierSeparation, t.Name, t.Penalty)
		}
		prev = t
	}
	soft := []string{TierTargets, TierDiversification, TierObjective}
	for i, name := range soft {
		if !names[name] {
			return fmt.Errorf("priority ladder is missing tier %q", name)
		}
		if i > 0 && l.Rank(soft[i-1]) >= l.Rank(name) {
			return fmt.Errorf("tier %q must rank above %q", soft[i-1], name)
		}
	}
	return nil
}

// Penalty returns the weight of a soft tier, or 0 for unknown or hard tiers.
func (l Ladder) Penalty(name string) float64 {
	for _, t := range l {
		if t.Name == name {
			return t.Penalty
		}
	}
	return 0
}

// Rank returns the level of the named tier, or -1 if it is not in the ladder.
func (l Ladder) Rank(name string) int {
	for _, t := range l {
		if t.Name == name {
			return t.Level
		}
	}
	return -1
}
