// Package allocation turns allocation requests into solver models, solves them
// and compiles the results. Every entry point runs the same pipeline:
// validate, check feasibility, build, solve, compile.
package allocation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"placement-optimizer/internal/feasibility"
	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"
)

type Optimizer struct {
	catalog *model.Catalog
	solver  solver.Solver
	builder *Builder
	ladder  Ladder
	guard   bool
	log     *zap.SugaredLogger
}

type Option func(*Optimizer)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *Optimizer) { o.log = l }
}

func WithLadder(l Ladder) Option {
	return func(o *Optimizer) { o.ladder = l }
}

// WithDegeneracyGuard toggles the per-quote indicator family. It is on by default.
func WithDegeneracyGuard(enabled bool) Option {
	return func(o *Optimizer) { o.guard = enabled }
}

func New(catalog *model.Catalog, s solver.Solver, opts ...Option) (*Optimizer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if s == nil {
		return nil, fmt.Errorf("solver is nil")
	}
	o := &Optimizer{
		catalog: catalog,
		solver:  s,
		ladder:  DefaultLadder(),
		guard:   true,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.ladder.Validate(); err != nil {
		return nil, fmt.Errorf("priority ladder invalid: %w", err)
	}
	o.builder = NewBuilder(catalog, o.ladder)
	return o, nil
}

func (o *Optimizer) Catalog() *model.Catalog { return o.catalog }

func (o *Optimizer) Ladder() Ladder { return o.ladder }

// OptimizeContinuous enforces required carriers anywhere in the placement and
// diversification limits as hard constraints.
func (o *Optimizer) OptimizeContinuous(ctx context.Context, req model.AllocationRequest) (*model.AllocationResult, error) {
	res, _, err := o.run(ctx, "continuous", req, BuildConfig{
		Objective:       ObjectiveWeighted,
		Required:        RequiredAcrossLayers,
		Diversification: DiversifyHard,
		DegeneracyGuard: o.guard,
	})
	return res, err
}

// OptimizeHierarchical requires each required carrier in every layer it can
// supply, relaxes diversification limits with penalized slacks and adds the
// concentration penalty.
func (o *Optimizer) OptimizeHierarchical(ctx context.Context, req model.AllocationRequest) (*model.AllocationResult, error) {
	res, rep, err := o.run(ctx, "hierarchical", req, BuildConfig{
		Objective:       ObjectiveWeighted,
		Required:        RequiredPerFeasibleLayer,
		Diversification: DiversifySoft,
		Concentration:   true,
		DegeneracyGuard: o.guard,
	})
	if err != nil {
		return nil, err
	}
	for _, st := range res.RequiredCarriers {
		if len(rep.CarrierLayers[st.Carrier].Supplied) > 0 && len(st.IncludedLayers) == 0 {
			return nil, model.NewError(model.KindInfeasible, model.CodeRequiredCarrierUnused,
				fmt.Sprintf("required carrier '%s' received no capacity in any of its layers", st.Carrier)).
				WithDetail("carrier", st.Carrier)
		}
	}
	return res, nil
}

// OptimizeMaxCoverageUnderPremiumCeiling maximizes quality-weighted capacity
// with total premium capped at threshold.
func (o *Optimizer) OptimizeMaxCoverageUnderPremiumCeiling(ctx context.Context, threshold float64, req model.AllocationRequest) (*model.AllocationResult, *model.Metrics, error) {
	if threshold < 0 {
		return nil, nil, model.ValidationError("premium threshold must be >= 0")
	}
	res, _, err := o.run(ctx, "max_coverage", req, BuildConfig{
		Objective:       ObjectiveMaxCoverage,
		Required:        RequiredAcrossLayers,
		Diversification: DiversifyHard,
		DegeneracyGuard: o.guard,
		PremiumCeiling:  &threshold,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, MetricsFor(res, threshold), nil
}

// OptimizeTargets is the goal-programming variant: the premium target and the
// per-layer coverage floors are soft and their violation is reported as slack.
func (o *Optimizer) OptimizeTargets(ctx context.Context, req model.AllocationRequest, targets model.Targets) (*model.AllocationResult, error) {
	if err := targets.Validate(); err != nil {
		return nil, err
	}
	res, _, err := o.run(ctx, "targets", req, BuildConfig{
		Objective:       ObjectiveWeighted,
		Required:        RequiredAcrossLayers,
		Diversification: DiversifyHard,
		DegeneracyGuard: o.guard,
		Targets:         &targets,
	})
	return res, err
}

func (o *Optimizer) run(ctx context.Context, variant string, req model.AllocationRequest, cfg BuildConfig) (*model.AllocationResult, *feasibility.Report, error) {
	log := o.log.With("variant", variant)

	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if wp, wc := req.EffectiveWeights(); wp > o.ladder.Penalty(TierObjective) || wc > o.ladder.Penalty(TierObjective) {
		return nil, nil, model.ValidationError("weights must not exceed %g", o.ladder.Penalty(TierObjective))
	}

	rep, err := feasibility.Check(o.catalog, feasibility.Input{
		RequiredCarriers: req.RequiredCarriers,
		MinCredit:        req.MinCredit,
	})
	if err != nil {
		log.Infow("feasibility check failed", "error", err)
		return nil, nil, err
	}

	built, err := o.builder.Build(req, rep, cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, model.SolverError(model.CodeSolverTimeout, "solve not started").Wrap(err)
	}
	start := time.Now()
	sol, err := o.solver.Solve(ctx, built.Model)
	elapsed := time.Since(start)
	if err != nil {
		log.Errorw("solver failed", "error", err, "elapsed", elapsed)
		return nil, nil, model.SolverError(model.CodeSolverFailure, "solver failed").Wrap(err)
	}
	if sol == nil {
		return nil, nil, model.SolverError(model.CodeSolverFailure, "solver returned no solution")
	}
	log.Debugw("solve finished",
		"status", sol.Status.String(),
		"nodes", sol.Nodes,
		"variables", len(built.Model.Variables),
		"constraints", len(built.Model.Constraints),
		"elapsed", elapsed,
	)

	switch sol.Status {
	case solver.Optimal, solver.Feasible:
	case solver.Infeasible:
		msg := "no allocation satisfies the hard constraints"
		if cfg.Diversification == DiversifyHard && req.Diversify {
			msg += "; the hierarchical variant relaxes diversification limits"
		}
		return nil, nil, model.NewError(model.KindInfeasible, model.CodeNoFeasiblePoint, msg)
	case solver.Unbounded:
		return nil, nil, model.SolverError(model.CodeSolverUnbounded, "model is unbounded")
	case solver.NotSolved:
		e := model.SolverError(model.CodeSolverTimeout, "solver stopped before finding a solution")
		if ctx.Err() != nil {
			e.Wrap(ctx.Err())
		}
		return nil, nil, e
	default:
		return nil, nil, model.SolverError(model.CodeSolverFailure, "solver reported status %s", sol.Status)
	}

	res := Compile(o.catalog, built, sol, rep, req)
	log.Infow("allocation solved",
		"status", res.Status,
		"total_premium", res.Summary.TotalPremium,
		"average_coverage", res.Summary.AverageCoverage,
		"carriers_used", res.Summary.CarriersUsed,
	)
	return res, rep, nil
}
