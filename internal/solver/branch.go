package solver

import (
	"context"
	"fmt"
	"math"
)

// BranchAndBound solves continuous models with a single simplex call and models
// with indicators by depth-first branch-and-bound on the LP relaxation.
type BranchAndBound struct {
	opts Options
}

type node struct {
	vars  []Variable
	bound float64 // parent relaxation objective, in minimization sign
	depth int
}

func (s *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Validate(); err != nil {
		return &Solution{Status: Error}, fmt.Errorf("solver: invalid model %q: %w", m.Name, err)
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return &Solution{Status: NotSolved}, nil
	}

	if !m.HasIndicators() {
		r, err := solveRelaxation(ctx, m, s.opts.Tolerance)
		if err != nil {
			if ctx.Err() != nil {
				return &Solution{Status: NotSolved, Nodes: 1}, nil
			}
			return &Solution{Status: Error, Nodes: 1}, err
		}
		return &Solution{Status: r.status, Values: r.values, Objective: r.objective, Nodes: 1}, nil
	}
	return s.branch(ctx, m)
}

func (s *BranchAndBound) branch(ctx context.Context, m *Model) (*Solution, error) {
	sign := 1.0
	if m.Direction == Maximize {
		sign = -1
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(1) // minimization sign
		nodes        int
		lastErr      error
	)
	work := m.Clone()

	accept := func(r relaxation) {
		if obj := sign * r.objective; obj < incumbentObj {
			incumbentObj = obj
			incumbent = r.values
		}
	}
	pruned := func(bound float64) bool {
		if incumbent == nil {
			return false
		}
		gap := 1e-9 + s.opts.RelativeGap*math.Abs(incumbentObj)
		return bound >= incumbentObj-gap
	}
	stopped := func() *Solution {
		if incumbent != nil {
			return &Solution{Status: Feasible, Values: incumbent, Objective: sign * incumbentObj, Nodes: nodes}
		}
		return &Solution{Status: NotSolved, Nodes: nodes}
	}

	stack := []node{{vars: append([]Variable(nil), m.Variables...), bound: math.Inf(-1)}}
	for len(stack) > 0 {
		if ctx.Err() != nil || nodes >= s.opts.MaxNodes {
			return stopped(), nil
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pruned(nd.bound) {
			continue
		}

		work.Variables = nd.vars
		r, err := solveRelaxation(ctx, work, s.opts.Tolerance)
		nodes++
		if err != nil {
			if ctx.Err() != nil {
				return stopped(), nil
			}
			lastErr = err
			continue
		}
		switch r.status {
		case Infeasible:
			continue
		case Unbounded:
			if nd.depth == 0 {
				return &Solution{Status: Unbounded, Nodes: nodes}, nil
			}
			continue
		}
		bound := sign * r.objective
		if pruned(bound) {
			continue
		}

		pick, pickFrac := -1, 0.0
		for i, v := range nd.vars {
			if v.Kind != Indicator || v.Fixed() {
				continue
			}
			x := r.values[i]
			frac := math.Min(x-math.Floor(x), math.Ceil(x)-x)
			if frac > s.opts.IntegralityTol && frac > pickFrac {
				pick, pickFrac = i, frac
			}
		}
		if pick < 0 {
			accept(snapIndicators(nd.vars, r))
			continue
		}

		if nd.depth == 0 {
			if h, ok := s.roundUp(ctx, work, nd.vars, r.values); ok {
				nodes++
				accept(h)
			}
		}

		down := append([]Variable(nil), nd.vars...)
		down[pick].Lower, down[pick].Upper = 0, 0
		up := append([]Variable(nil), nd.vars...)
		up[pick].Lower, up[pick].Upper = 1, 1
		// Up branch is explored first.
		stack = append(stack,
			node{vars: down, bound: bound, depth: nd.depth + 1},
			node{vars: up, bound: bound, depth: nd.depth + 1},
		)
	}

	if incumbent == nil {
		if lastErr != nil {
			return &Solution{Status: Error, Nodes: nodes}, lastErr
		}
		return &Solution{Status: Infeasible, Nodes: nodes}, nil
	}
	// A failed node leaves its subtree unexplored, so the incumbent is not
	// proven optimal.
	if lastErr != nil {
		return &Solution{Status: Feasible, Values: incumbent, Objective: sign * incumbentObj, Nodes: nodes}, nil
	}
	return &Solution{Status: Optimal, Values: incumbent, Objective: sign * incumbentObj, Nodes: nodes}, nil
}

// roundUp fixes every indicator that is strictly positive in the relaxation to 1
// and the rest to 0, then re-solves the remaining LP.
func (s *BranchAndBound) roundUp(ctx context.Context, work *Model, vars []Variable, values []float64) (relaxation, bool) {
	fixed := append([]Variable(nil), vars...)
	for i, v := range fixed {
		if v.Kind != Indicator || v.Fixed() {
			continue
		}
		if values[i] > s.opts.IntegralityTol {
			fixed[i].Lower, fixed[i].Upper = 1, 1
		} else {
			fixed[i].Lower, fixed[i].Upper = 0, 0
		}
	}
	saved := work.Variables
	work.Variables = fixed
	r, err := solveRelaxation(ctx, work, s.opts.Tolerance)
	work.Variables = saved
	if err != nil || r.status != Optimal {
		return relaxation{}, false
	}
	return snapIndicators(fixed, r), true
}

func snapIndicators(vars []Variable, r relaxation) relaxation {
	vals := append([]float64(nil), r.values...)
	for i, v := range vars {
		if v.Kind == Indicator {
			vals[i] = math.Round(vals[i])
		}
	}
	r.values = vals
	return r
}
