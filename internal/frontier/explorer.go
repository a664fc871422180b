// Package frontier traces the premium/coverage trade-off by sweeping premium
// ceilings between the cheapest placement and the best-coverage placement.
//
// Each threshold is an independent max-coverage solve. Once indicator
// variables are active the curve is not guaranteed to be convex or even
// monotone; callers should expect occasional dips.
package frontier

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"placement-optimizer/internal/model"
)

// DefaultPoints is used when a sweep asks for zero or fewer points.
const DefaultPoints = 100

// ceilingSlack widens each threshold slightly so the cheapest threshold, which
// is exactly the minimum premium, stays feasible after floating-point error.
const ceilingSlack = 1e-7

// Optimizer is the subset of allocation.Optimizer a sweep needs.
type Optimizer interface {
	OptimizeContinuous(ctx context.Context, req model.AllocationRequest) (*model.AllocationResult, error)
	OptimizeMaxCoverageUnderPremiumCeiling(ctx context.Context, threshold float64, req model.AllocationRequest) (*model.AllocationResult, *model.Metrics, error)
}

type Explorer struct {
	Optimizer Optimizer
	// Workers bounds concurrent solves; <= 0 means runtime.NumCPU().
	Workers int
	Log     *zap.SugaredLogger
}

func (e *Explorer) logger() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop().Sugar()
}

func (e *Explorer) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

// SweepFrontier runs the min-premium and max-coverage anchor solves, then one
// max-coverage solve per evenly spaced premium ceiling between them.
//
// Errors from the anchor solves are returned as is. Thresholds whose solve
// fails are dropped and counted in Frontier.Skipped. If ctx is cancelled
// mid-sweep the points collected so far are returned with the context error.
func (e *Explorer) SweepFrontier(ctx context.Context, template model.AllocationRequest, numPoints int) (*model.Frontier, error) {
	if e.Optimizer == nil {
		return nil, errors.New("frontier: nil optimizer")
	}
	if numPoints <= 0 {
		numPoints = DefaultPoints
	}
	log := e.logger().With("points", numPoints)

	minReq := template
	minReq.PremiumWeight, minReq.CoverageWeight, minReq.WeightMode = 1, 0, model.WeightsRaw
	minRes, err := e.Optimizer.OptimizeContinuous(ctx, minReq)
	if err != nil {
		return nil, err
	}
	maxReq := template
	maxReq.PremiumWeight, maxReq.CoverageWeight, maxReq.WeightMode = 0, 1, model.WeightsRaw
	maxRes, err := e.Optimizer.OptimizeContinuous(ctx, maxReq)
	if err != nil {
		return nil, err
	}

	lo := minRes.Summary.UnroundedPremium
	hi := math.Max(lo, maxRes.Summary.UnroundedPremium)
	thresholds := Thresholds(lo, hi, numPoints)

	out := &model.Frontier{
		ID:                 uuid.New(),
		MinPremium:         lo,
		MaxCoveragePremium: hi,
		Requested:          numPoints,
		Skipped:            map[string]int{},
	}
	log.Infow("sweep started", "min_premium", lo, "max_premium", hi)

	slots := make([]*model.FrontierPoint, len(thresholds))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for i, th := range thresholds {
		if ctx.Err() != nil {
			break
		}
		i, th := i, th
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ceiling := th + ceilingSlack*math.Max(1, math.Abs(th))
			res, m, err := e.Optimizer.OptimizeMaxCoverageUnderPremiumCeiling(gctx, ceiling, template)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				out.Skipped[skipKey(err)]++
				mu.Unlock()
				log.Debugw("threshold skipped", "threshold", th, "error", err)
				return nil
			}
			slots[i] = &model.FrontierPoint{
				Threshold:                m.Threshold,
				Premium:                  m.AchievedPremium,
				AverageCoverage:          m.AchievedAverageCoverage,
				TotalCoverage:            m.AchievedCoverage,
				BangForBuck:              m.BangForBuck,
				Status:                   res.Status,
				RequiredCarriersIncluded: m.RequiredCarriersIncluded,
				Result:                   res,
			}
			return nil
		})
	}
	werr := g.Wait()
	if werr == nil {
		werr = ctx.Err()
	}

	for _, p := range slots {
		if p == nil {
			continue
		}
		p.OptionID = len(out.Points)
		out.Points = append(out.Points, *p)
	}
	if len(out.Skipped) == 0 {
		out.Skipped = nil
	}

	if werr != nil {
		log.Warnw("sweep cancelled", "collected", len(out.Points), "error", werr)
		return out, werr
	}
	log.Infow("sweep finished", "collected", len(out.Points), "skipped", out.Skipped)
	return out, nil
}

// Thresholds returns n evenly spaced ceilings from lo to hi inclusive. A single
// point sits at lo.
func Thresholds(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 || hi <= lo {
		out := make([]float64, n)
		for i := range out {
			out[i] = lo
		}
		return out
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func skipKey(err error) string {
	if e, ok := model.AsError(err); ok {
		return string(e.Kind)
	}
	return "UNKNOWN"
}
