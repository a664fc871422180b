package solver

import (
	"fmt"
	"math"
)

// VarKind tags a decision variable. Indicators are binaries that the
// branch-and-bound search forces to 0 or 1.
type VarKind int

const (
	Continuous VarKind = iota
	Indicator
)

func (k VarKind) String() string {
	if k == Indicator {
		return "indicator"
	}
	return "continuous"
}

// VarID indexes Model.Variables.
type VarID int

type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	// Upper may be math.Inf(1).
	Upper float64
}

func (v Variable) Fixed() bool { return v.Lower == v.Upper }

type Term struct {
	Var  VarID
	Coef float64
}

// Expr is a sparse linear expression. Repeated variables are summed.
type Expr struct {
	Terms    []Term
	Constant float64
}

func (e *Expr) Add(v VarID, coef float64) {
	if coef == 0 {
		return
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// Eval evaluates the expression at values.
func (e Expr) Eval(values []float64) float64 {
	s := e.Constant
	for _, t := range e.Terms {
		s += t.Coef * values[t.Var]
	}
	return s
}

type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "=="
	}
}

type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// Model is a linear program with optional indicator variables.
type Model struct {
	Name        string
	Direction   Direction
	Variables   []Variable
	Objective   Expr
	Constraints []Constraint
}

func NewModel(name string, dir Direction) *Model {
	return &Model{Name: name, Direction: dir}
}

// AddVariable appends a variable and returns its id.
func (m *Model) AddVariable(name string, kind VarKind, lower, upper float64) VarID {
	if kind == Indicator {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	m.Variables = append(m.Variables, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return VarID(len(m.Variables) - 1)
}

func (m *Model) AddConstraint(name string, e Expr, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Expr: e, Sense: sense, RHS: rhs})
}

// Fix pins a variable to a single value.
func (m *Model) Fix(v VarID, value float64) {
	m.Variables[v].Lower = value
	m.Variables[v].Upper = value
}

// HasIndicators reports whether the model needs branch-and-bound.
func (m *Model) HasIndicators() bool {
	for _, v := range m.Variables {
		if v.Kind == Indicator {
			return true
		}
	}
	return false
}

// Clone copies the variable bounds; constraints and objective are shared
// because the search only ever tightens bounds.
func (m *Model) Clone() *Model {
	out := *m
	out.Variables = append([]Variable(nil), m.Variables...)
	return &out
}

// Validate catches malformed models before they reach the backend.
func (m *Model) Validate() error {
	n := VarID(len(m.Variables))
	for i, v := range m.Variables {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsInf(v.Lower, 0) {
			return fmt.Errorf("variable %q: bounds must be finite below", v.Name)
		}
		if v.Lower > v.Upper {
			return fmt.Errorf("variable %d %q: lower %g > upper %g", i, v.Name, v.Lower, v.Upper)
		}
	}
	check := func(where string, e Expr) error {
		for _, t := range e.Terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("%s: unknown variable %d", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%s: coefficient for %q is not finite", where, m.Variables[t.Var].Name)
			}
		}
		return nil
	}
	if err := check("objective", m.Objective); err != nil {
		return err
	}
	for _, c := range m.Constraints {
		if err := check("constraint "+c.Name, c.Expr); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %s: rhs is not finite", c.Name)
		}
	}
	return nil
}

// Violation returns the largest constraint or bound violation at values.
func (m *Model) Violation(values []float64) float64 {
	worst := 0.0
	for i, v := range m.Variables {
		worst = math.Max(worst, v.Lower-values[i])
		worst = math.Max(worst, values[i]-v.Upper)
	}
	for _, c := range m.Constraints {
		lhs := c.Expr.Eval(values)
		switch c.Sense {
		case LE:
			worst = math.Max(worst, lhs-c.RHS)
		case GE:
			worst = math.Max(worst, c.RHS-lhs)
		case EQ:
			worst = math.Max(worst, math.Abs(lhs-c.RHS))
		}
	}
	return worst
}
