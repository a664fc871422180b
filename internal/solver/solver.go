// Package solver is the LP/MILP capability behind the allocation engine.
//
// The default backend relaxes the model to a continuous LP solved with a
// two-phase tableau simplex on gonum matrices, and runs a depth-first
// branch-and-bound over Indicator variables.
// Callers depend on the Solver interface only.
package solver

//go:generate mockgen -destination=mocks/mock_solver.go -package=mocks placement-optimizer/internal/solver Solver

import (
	"context"
	"time"
)

type Status int

const (
	Optimal Status = iota
	Feasible
	Infeasible
	Unbounded
	NotSolved
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Feasible:
		return "Feasible"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case NotSolved:
		return "NotSolved"
	default:
		return "Error"
	}
}

// Solution holds one value per model variable, in model order.
// Values is nil unless Status is Optimal or Feasible.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	// Nodes is the number of LP relaxations solved.
	Nodes int
}

func (s *Solution) Value(v VarID) float64 {
	if s == nil || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Solver solves a model. A returned error means the backend itself failed;
// infeasibility and timeouts are reported through Status with a nil error.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

type Options struct {
	// Timeout bounds a single Solve call; zero means no limit beyond ctx.
	Timeout time.Duration
	// MaxNodes bounds the branch-and-bound tree; zero means DefaultMaxNodes.
	MaxNodes int
	// Tolerance is the simplex reduced-cost tolerance, on costs scaled to a
	// max-norm of 1.
	Tolerance float64
	// IntegralityTol decides when an indicator counts as 0 or 1.
	IntegralityTol float64
	// RelativeGap stops exploring nodes that cannot improve the incumbent by more
	// than this fraction.
	RelativeGap float64
}

const (
	DefaultMaxNodes       = 5000
	DefaultTolerance      = 1e-9
	DefaultIntegralityTol = 1e-6
	DefaultRelativeGap    = 1e-6
)

func (o Options) withDefaults() Options {
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.IntegralityTol <= 0 {
		o.IntegralityTol = DefaultIntegralityTol
	}
	if o.RelativeGap <= 0 {
		o.RelativeGap = DefaultRelativeGap
	}
	return o
}

// New returns the default gonum-backed solver.
func New(opts Options) *BranchAndBound {
	return &BranchAndBound{opts: opts.withDefaults()}
}
