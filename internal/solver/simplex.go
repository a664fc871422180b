package solver

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	zeroCoef      = 1e-15
	rowFeasTol    = 1e-9
	boundClampTol = 1e-7
	// pivotTol is the smallest tableau entry the ratio test will pivot on.
	pivotTol = 1e-9
	// phaseOneTol bounds the artificial mass, relative to the right-hand
	// side, that still counts as feasible.
	phaseOneTol   = 1e-7
	scalingPasses = 4
	ctxCheckEvery = 16
)

// ErrPivotLimit is returned when a relaxation exhausts its pivot budget.
var ErrPivotLimit = errors.New("solver: simplex pivot limit reached")

var errUnbounded = errors.New("solver: relaxation is unbounded")

// relaxation is the result of one LP solve with indicator integrality dropped.
type relaxation struct {
	status    Status
	values    []float64
	objective float64
}

// solveRelaxation presolves the model into min cᵀy s.t. Ay (<=,>=,==) b,
// y >= 0, where y are the free model variables shifted to their lower bounds,
// and runs a two-phase tableau simplex on it. Infeasible and unbounded outcomes
// are statuses, not errors. A done ctx is returned as its error.
func solveRelaxation(ctx context.Context, m *Model, tol float64) (relaxation, error) {
	n := len(m.Variables)
	dirSign := 1.0
	if m.Direction == Maximize {
		dirSign = -1
	}

	// Dense objective over model variables.
	obj := make([]float64, n)
	for _, t := range m.Objective.Terms {
		obj[t.Var] += dirSign * t.Coef
	}

	// Column index of every non-fixed variable, -1 for fixed ones.
	colOf := make([]int, n)
	var cols []VarID
	for i, v := range m.Variables {
		if v.Fixed() {
			colOf[i] = -1
			continue
		}
		colOf[i] = len(cols)
		cols = append(cols, VarID(i))
	}

	var rows []stdRow
	used := make([]bool, len(cols))

	// addRow reports false when a row without free variables is violated.
	addRow := func(e Expr, sense Sense, rhs float64) bool {
		coefs := make([]float64, len(cols))
		rhs -= e.Constant
		nonzero := false
		for _, t := range e.Terms {
			v := m.Variables[t.Var]
			rhs -= t.Coef * v.Lower
			if j := colOf[t.Var]; j >= 0 {
				coefs[j] += t.Coef
			}
		}
		for j, a := range coefs {
			if math.Abs(a) > zeroCoef {
				nonzero = true
				used[j] = true
			} else {
				coefs[j] = 0
			}
		}
		if !nonzero {
			tol := rowFeasTol * (1 + math.Abs(rhs))
			switch sense {
			case LE:
				return rhs >= -tol
			case GE:
				return rhs <= tol
			default:
				return math.Abs(rhs) <= tol
			}
		}
		rows = append(rows, stdRow{coefs: coefs, sense: sense, rhs: rhs})
		return true
	}

	for _, c := range m.Constraints {
		if !addRow(c.Expr, c.Sense, c.RHS) {
			return relaxation{status: Infeasible}, nil
		}
	}
	for j, id := range cols {
		v := m.Variables[id]
		if math.IsInf(v.Upper, 1) {
			continue
		}
		var e Expr
		e.Add(id, 1)
		if !addRow(e, LE, v.Upper) {
			return relaxation{status: Infeasible}, nil
		}
		used[j] = true
	}

	// Drop columns that no row touches: they sit at their lower bound unless the
	// objective pulls them to infinity.
	keep := make([]VarID, 0, len(cols))
	keepIdx := make([]int, 0, len(cols))
	for j, id := range cols {
		if used[j] {
			keep = append(keep, id)
			keepIdx = append(keepIdx, j)
			continue
		}
		if obj[id] < 0 {
			return relaxation{status: Unbounded}, nil
		}
	}

	values := make([]float64, n)
	for i, v := range m.Variables {
		values[i] = v.Lower
	}
	if len(rows) == 0 {
		return relaxation{status: Optimal, values: values, objective: m.Objective.Eval(values)}, nil
	}

	for r := range rows {
		dense := make([]float64, len(keep))
		for k, j := range keepIdx {
			dense[k] = rows[r].coefs[j]
		}
		rows[r].coefs = dense
	}
	c := make([]float64, len(keep))
	for k, id := range keep {
		c[k] = obj[id]
	}

	y, status, err := simplex(ctx, rows, c, tol)
	if err != nil {
		return relaxation{status: Error}, err
	}
	if status != Optimal {
		return relaxation{status: status}, nil
	}

	for k, id := range keep {
		v := m.Variables[id]
		x := v.Lower + y[k]
		// Clamp round-off back inside the bounds.
		if x < v.Lower && x > v.Lower-boundClampTol {
			x = v.Lower
		}
		if x > v.Upper && x < v.Upper+boundClampTol {
			x = v.Upper
		}
		values[id] = x
	}
	return relaxation{
		status:    Optimal,
		values:    values,
		objective: m.Objective.Eval(values),
	}, nil
}

type stdRow struct {
	coefs []float64
	sense Sense
	rhs   float64
}

// equilibrate flips rows to a non-negative right-hand side, then alternates
// row and column max-norm scaling. The returned factors map the scaled columns
// back: y_j = scale_j * y'_j. c is scaled in place.
func equilibrate(rows []stdRow, c []float64) []float64 {
	for r := range rows {
		if rows[r].rhs < 0 {
			floats.Scale(-1, rows[r].coefs)
			rows[r].rhs = -rows[r].rhs
			switch rows[r].sense {
			case LE:
				rows[r].sense = GE
			case GE:
				rows[r].sense = LE
			}
		}
	}
	scale := make([]float64, len(c))
	for j := range scale {
		scale[j] = 1
	}
	colMax := make([]float64, len(c))
	for pass := 0; pass < scalingPasses; pass++ {
		for r := range rows {
			if s := floats.Norm(rows[r].coefs, math.Inf(1)); s > 0 {
				floats.Scale(1/s, rows[r].coefs)
				rows[r].rhs /= s
			}
		}
		for j := range colMax {
			colMax[j] = 0
		}
		for _, row := range rows {
			for j, a := range row.coefs {
				colMax[j] = math.Max(colMax[j], math.Abs(a))
			}
		}
		for j, s := range colMax {
			if s == 0 || s == 1 {
				continue
			}
			for _, row := range rows {
				row.coefs[j] /= s
			}
			scale[j] /= s
			c[j] /= s
		}
	}
	return scale
}

// tableau is a dense simplex tableau: rows [0, m) are constraints, row m holds
// the reduced costs, and column n is the right-hand side.
type tableau struct {
	t     *mat.Dense
	m, n  int
	basis []int
	// Columns at or past artStart are phase-one artificials.
	artStart int
	budget   int
}

// simplex solves min cᵀy s.t. rows, y >= 0 and returns y in the caller's
// column order.
func simplex(ctx context.Context, rows []stdRow, c []float64, tol float64) ([]float64, Status, error) {
	scale := equilibrate(rows, c)
	if cMax := floats.Norm(c, math.Inf(1)); cMax > 0 {
		floats.Scale(1/cMax, c)
	}

	nStruct := len(c)
	nSlack := 0
	nArt := 0
	for _, r := range rows {
		if r.sense != EQ {
			nSlack++
		}
		if r.sense != LE {
			nArt++
		}
	}
	mRows := len(rows)
	width := nStruct + nSlack + nArt
	tb := &tableau{
		t:        mat.NewDense(mRows+1, width+1, nil),
		m:        mRows,
		n:        width,
		basis:    make([]int, mRows),
		artStart: nStruct + nSlack,
		budget:   50*(mRows+width) + 1000,
	}

	slack, art := nStruct, tb.artStart
	maxRHS := 0.0
	for i, r := range rows {
		row := tb.t.RawRowView(i)
		copy(row, r.coefs)
		row[width] = r.rhs
		maxRHS = math.Max(maxRHS, r.rhs)
		switch r.sense {
		case LE:
			row[slack] = 1
			tb.basis[i] = slack
			slack++
		case GE:
			row[slack] = -1
			slack++
			row[art] = 1
			tb.basis[i] = art
			art++
		case EQ:
			row[art] = 1
			tb.basis[i] = art
			art++
		}
	}

	// Phase one: minimize the sum of the artificials.
	if nArt > 0 {
		cost := tb.t.RawRowView(tb.m)
		for j := tb.artStart; j < width; j++ {
			cost[j] = 1
		}
		for i, b := range tb.basis {
			if b >= tb.artStart {
				floats.Sub(cost, tb.t.RawRowView(i))
			}
		}
		if err := tb.optimize(ctx, tol); err != nil {
			if errors.Is(err, errUnbounded) {
				return nil, Error, errors.New("solver: phase one reported unbounded")
			}
			return nil, Error, err
		}
		mass := 0.0
		for i, b := range tb.basis {
			if b >= tb.artStart {
				mass += math.Abs(tb.t.At(i, width))
			}
		}
		if mass > phaseOneTol*(1+maxRHS) {
			return nil, Infeasible, nil
		}
		tb.evictArtificials()
	}

	// Phase two on the original costs.
	cost := tb.t.RawRowView(tb.m)
	for j := range cost {
		cost[j] = 0
	}
	copy(cost, c)
	for i, b := range tb.basis {
		if b < nStruct && c[b] != 0 {
			floats.AddScaled(cost, -c[b], tb.t.RawRowView(i))
		}
	}
	if err := tb.optimize(ctx, tol); err != nil {
		if errors.Is(err, errUnbounded) {
			return nil, Unbounded, nil
		}
		return nil, Error, err
	}

	y := make([]float64, nStruct)
	for i, b := range tb.basis {
		if b < nStruct {
			y[b] = math.Max(tb.t.At(i, width), 0) * scale[b]
		}
	}
	return y, Optimal, nil
}

// optimize pivots until no non-artificial column has a negative reduced cost.
// Entering columns follow Dantzig's rule; after a degenerate pivot the next
// choice falls back to Bland's rule, which rules out cycling.
func (tb *tableau) optimize(ctx context.Context, tol float64) error {
	cost := tb.t.RawRowView(tb.m)
	bland := false
	for it := 0; ; it++ {
		if it%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		col, best := -1, -tol
		for j := 0; j < tb.artStart; j++ {
			if cost[j] < best {
				col, best = j, cost[j]
				if bland {
					break
				}
			}
		}
		if col < 0 {
			return nil
		}
		row := tb.ratio(col)
		if row < 0 {
			return errUnbounded
		}
		if tb.budget <= 0 {
			return ErrPivotLimit
		}
		tb.budget--
		bland = tb.t.At(row, tb.n) <= pivotTol
		tb.pivot(row, col)
	}
}

// ratio returns the leaving row for col, breaking ties on the smallest basic
// column, or -1 if col can grow without bound.
func (tb *tableau) ratio(col int) int {
	row, best := -1, math.Inf(1)
	for i := 0; i < tb.m; i++ {
		a := tb.t.At(i, col)
		if a <= pivotTol {
			continue
		}
		q := math.Max(tb.t.At(i, tb.n), 0) / a
		switch {
		case q < best-1e-12:
			row, best = i, q
		case q <= best+1e-12 && tb.basis[i] < tb.basis[row]:
			row = i
		}
	}
	return row
}

func (tb *tableau) pivot(r, c int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[c], pr)
	pr[c] = 1
	for i := 0; i <= tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[c]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[c] = 0
		}
	}
	tb.basis[r] = c
}

// evictArtificials pivots zero-valued artificials out of the basis. A row with
// no usable entry is redundant; its artificial stays basic at zero and never
// re-enters because optimize skips artificial columns.
func (tb *tableau) evictArtificials() {
	for i, b := range tb.basis {
		if b < tb.artStart {
			continue
		}
		row := tb.t.RawRowView(i)
		col, best := -1, pivotTol
		for j := 0; j < tb.artStart; j++ {
			if a := math.Abs(row[j]); a > best {
				col, best = j, a
			}
		}
		if col >= 0 {
			tb.pivot(i, col)
		}
	}
}
