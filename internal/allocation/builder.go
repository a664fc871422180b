package allocation

import (
	"fmt"
	"math"

	"placement-optimizer/internal/feasibility"
	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"
)

type ObjectiveKind int

const (
	// ObjectiveWeighted minimizes weighted normalized premium minus weighted
	// normalized coverage.
	ObjectiveWeighted ObjectiveKind = iota
	// ObjectiveMaxCoverage maximizes quality-weighted capacity.
	ObjectiveMaxCoverage
)

type RequiredMode int

const (
	RequiredOff RequiredMode = iota
	// RequiredAcrossLayers asks for a token allocation anywhere in the catalog.
	RequiredAcrossLayers
	// RequiredPerFeasibleLayer asks for a token allocation in every layer the
	// carrier holds an eligible quote in, and nowhere else.
	RequiredPerFeasibleLayer
)

type DiversificationMode int

const (
	DiversifyOff DiversificationMode = iota
	DiversifyHard
	DiversifySoft
)

// BuildConfig selects which constraint families the builder emits.
type BuildConfig struct {
	Objective       ObjectiveKind
	Required        RequiredMode
	Diversification DiversificationMode
	// Concentration adds the diversification-factor penalty to the objective.
	Concentration   bool
	DegeneracyGuard bool
	PremiumCeiling  *float64
	Targets         *model.Targets
}

const (
	// TokenCapacity is the minimal allocation, in capacity units, that counts as
	// "carrier included".
	TokenCapacity = 0.001
	// tokenFloor keeps the token above the result compiler's zero threshold for
	// quotes with very large capacity.
	tokenFloor = 2e-6

	defaultConcentrationFactor = 0.5
)

// Built is a model plus the handles the result compiler needs.
type Built struct {
	Model    *solver.Model
	X        []solver.VarID
	Baseline model.Baseline

	PremiumSlack          solver.VarID
	CoverageSlacks        map[string]solver.VarID
	DiversificationSlacks map[string]solver.VarID

	// RequiredLayers maps each required carrier to the layers it was forced into.
	RequiredLayers map[string][]string
}

type Builder struct {
	catalog *model.Catalog
	ladder  Ladder
}

func NewBuilder(catalog *model.Catalog, ladder Ladder) *Builder {
	return &Builder{catalog: catalog, ladder: ladder}
}

// Baseline returns the normalization reference for req: the caller's baseline
// if given, otherwise the catalog sums. A zero component is a DegenerateBaseline.
func (b *Builder) Baseline(req model.AllocationRequest) (model.Baseline, error) {
	base := model.Baseline{}
	base.Premium, base.Coverage = b.catalog.Totals()
	if req.Baseline != nil {
		base = *req.Baseline
	}
	if base.Premium <= 0 || base.Coverage <= 0 {
		return base, model.NewError(model.KindDegenerateBaseline, model.CodeZeroBaseline,
			fmt.Sprintf("normalization baseline must be positive (premium %g, coverage %g)", base.Premium, base.Coverage)).
			WithDetail("premium", base.Premium).
			WithDetail("coverage", base.Coverage)
	}
	return base, nil
}

func (b *Builder) Build(req model.AllocationRequest, rep *feasibility.Report, cfg BuildConfig) (*Built, error) {
	base, err := b.Baseline(req)
	if err != nil {
		return nil, err
	}
	cat := b.catalog
	m := solver.NewModel("placement", solver.Minimize)
	out := &Built{
		Model:                 m,
		X:                     make([]solver.VarID, cat.Len()),
		Baseline:              base,
		PremiumSlack:          -1,
		CoverageSlacks:        map[string]solver.VarID{},
		DiversificationSlacks: map[string]solver.VarID{},
		RequiredLayers:        map[string][]string{},
	}
	eligible := func(i int) bool { return cat.Quote(i).CreditRatingValue >= req.MinCredit }

	for i := 0; i < cat.Len(); i++ {
		out.X[i] = m.AddVariable(fmt.Sprintf("x_%d", i), solver.Continuous, 0, 1)
	}

	// Objective.
	switch cfg.Objective {
	case ObjectiveWeighted:
		wp, wc := req.EffectiveWeights()
		for i := 0; i < cat.Len(); i++ {
			q := cat.Quote(i)
			m.Objective.Add(out.X[i], wp*q.Premium/base.Premium-wc*q.CoverageValue()/base.Coverage)
		}
	case ObjectiveMaxCoverage:
		for i := 0; i < cat.Len(); i++ {
			m.Objective.Add(out.X[i], -cat.Quote(i).CoverageValue()/base.Coverage)
		}
	default:
		return nil, model.ValidationError("unknown objective kind %d", cfg.Objective)
	}

	// Hard: layer equality.
	for _, l := range cat.Layers() {
		var e solver.Expr
		for _, i := range cat.QuotesInLayer(l.Name) {
			e.Add(out.X[i], cat.Quote(i).Capacity)
		}
		m.AddConstraint("layer_"+l.Name, e, solver.EQ, l.RequiredCapacity)
	}

	// Hard: credit floor.
	for i := 0; i < cat.Len(); i++ {
		if eligible(i) {
			continue
		}
		m.Fix(out.X[i], 0)
		var e solver.Expr
		e.Add(out.X[i], 1)
		m.AddConstraint(fmt.Sprintf("credit_%d", i), e, solver.EQ, 0)
	}

	if cfg.PremiumCeiling != nil {
		var e solver.Expr
		for i := 0; i < cat.Len(); i++ {
			e.Add(out.X[i], cat.Quote(i).Premium)
		}
		m.AddConstraint("premium_ceiling", e, solver.LE, *cfg.PremiumCeiling)
	}

	b.addRequired(m, out, req, rep, cfg.Required, eligible)

	if req.Diversify && cfg.Diversification != DiversifyOff {
		b.addDiversification(m, out, req, cfg.Diversification, eligible)
	}
	if req.Diversify && cfg.Concentration {
		factor := defaultConcentrationFactor
		if req.DiversificationFactor != nil {
			factor = *req.DiversificationFactor
		}
		b.addConcentration(m, out, factor, eligible)
	}

	if cfg.Targets != nil {
		b.addTargets(m, out, *cfg.Targets)
	}

	if cfg.DegeneracyGuard {
		b.addDegeneracyGuard(m, out, eligible)
	}
	return out, nil
}

func token(maxCapacity float64) float64 {
	return math.Max(TokenCapacity, tokenFloor*maxCapacity)
}

func (b *Builder) addRequired(m *solver.Model, out *Built, req model.AllocationRequest, rep *feasibility.Report, mode RequiredMode, eligible func(int) bool) {
	cat := b.catalog
	for _, carrier := range req.RequiredCarriers {
		switch mode {
		case RequiredAcrossLayers:
			var e solver.Expr
			maxCap := 0.0
			layers := map[string]bool{}
			for _, i := range cat.QuotesForCarrier(carrier) {
				if !eligible(i) {
					continue
				}
				q := cat.Quote(i)
				e.Add(out.X[i], q.Capacity)
				maxCap = math.Max(maxCap, q.Capacity)
				layers[q.Layer] = true
			}
			m.AddConstraint("required_"+carrier, e, solver.GE, token(maxCap))
			for _, l := range cat.Layers() {
				if layers[l.Name] {
					out.RequiredLayers[carrier] = append(out.RequiredLayers[carrier], l.Name)
				}
			}
		case RequiredPerFeasibleLayer:
			var supplied []string
			if rep != nil {
				supplied = rep.CarrierLayers[carrier].Supplied
			}
			for _, layer := range supplied {
				used := m.AddVariable(fmt.Sprintf("used_%s_%s", carrier, layer), solver.Indicator, 0, 1)
				m.Fix(used, 1)
				var sum solver.Expr
				maxCap := 0.0
				for _, i := range cat.PairIndices(carrier, layer) {
					if !eligible(i) {
						continue
					}
					q := cat.Quote(i)
					var link solver.Expr
					link.Add(out.X[i], 1)
					link.Add(used, -1)
					m.AddConstraint(fmt.Sprintf("required_link_%s_%s_%d", carrier, layer, i), link, solver.LE, 0)
					sum.Add(out.X[i], q.Capacity)
					maxCap = math.Max(maxCap, q.Capacity)
				}
				sum.Add(used, -token(maxCap))
				m.AddConstraint(fmt.Sprintf("required_%s_%s", carrier, layer), sum, solver.GE, 0)
				out.RequiredLayers[carrier] = append(out.RequiredLayers[carrier], layer)
			}
		}
	}
}

// pairKey names a (carrier, layer) diversification slack.
func pairKey(bound, carrier, layer string) string {
	return bound + ":" + carrier + "|" + layer
}

func (b *Builder) addDiversification(m *solver.Model, out *Built, req model.AllocationRequest, mode DiversificationMode, eligible func(int) bool) {
	cat := b.catalog
	penalty := b.ladder.Penalty(TierDiversification)
	for _, l := range cat.Layers() {
		scale := l.RequiredCapacity
		if scale <= 0 {
			scale = 1
		}
		for _, carrier := range cat.Carriers() {
			var e solver.Expr
			available := 0.0
			for _, i := range cat.PairIndices(carrier, l.Name) {
				if !eligible(i) {
					continue
				}
				e.Add(out.X[i], cat.Quote(i).Capacity)
				available += cat.Quote(i).Capacity
			}
			if len(e.Terms) == 0 {
				continue
			}
			if mx := req.MaxCapacityPerPair; mx != nil {
				name := fmt.Sprintf("max_cap_%s_%s", carrier, l.Name)
				if mode == DiversifySoft {
					s := m.AddVariable("slack_"+name, solver.Continuous, 0, math.Inf(1))
					out.DiversificationSlacks[pairKey("max", carrier, l.Name)] = s
					m.Objective.Add(s, penalty/scale)
					soft := e
					soft.Terms = append(append([]solver.Term(nil), e.Terms...), solver.Term{Var: s, Coef: -1})
					m.AddConstraint(name, soft, solver.LE, *mx)
				} else {
					m.AddConstraint(name, e, solver.LE, *mx)
				}
			}
			if mn := req.MinCapacityPerPair; mn != nil && *mn > 0 && available >= *mn {
				name := fmt.Sprintf("min_cap_%s_%s", carrier, l.Name)
				if mode == DiversifySoft {
					s := m.AddVariable("slack_"+name, solver.Continuous, 0, math.Inf(1))
					out.DiversificationSlacks[pairKey("min", carrier, l.Name)] = s
					m.Objective.Add(s, penalty/scale)
					soft := e
					soft.Terms = append(append([]solver.Term(nil), e.Terms...), solver.Term{Var: s, Coef: 1})
					m.AddConstraint(name, soft, solver.GE, *mn)
				} else {
					m.AddConstraint(name, e, solver.GE, *mn)
				}
			}
		}
	}
}

// addConcentration charges factor/(maxAlloc_c * numCarriers) per unit of
// capacity given to carrier c, which spreads capacity across carriers.
func (b *Builder) addConcentration(m *solver.Model, out *Built, factor float64, eligible func(int) bool) {
	if factor <= 0 {
		return
	}
	cat := b.catalog
	carriers := cat.Carriers()
	for _, carrier := range carriers {
		maxAlloc := 0.0
		for _, i := range cat.QuotesForCarrier(carrier) {
			maxAlloc += cat.Quote(i).Capacity
		}
		if maxAlloc <= 0 {
			continue
		}
		rate := factor / (maxAlloc * float64(len(carriers)))
		for _, i := range cat.QuotesForCarrier(carrier) {
			if eligible(i) {
				m.Objective.Add(out.X[i], rate*cat.Quote(i).Capacity)
			}
		}
	}
}

// addTargets relaxes the premium target and the per-layer coverage floor with
// slacks charged at the targets tier penalty.
func (b *Builder) addTargets(m *solver.Model, out *Built, t model.Targets) {
	cat := b.catalog
	penalty := b.ladder.Penalty(TierTargets)

	out.PremiumSlack = m.AddVariable("p_slack", solver.Continuous, 0, math.Inf(1))
	m.Objective.Add(out.PremiumSlack, penalty/out.Baseline.Premium)
	var prem solver.Expr
	for i := 0; i < cat.Len(); i++ {
		prem.Add(out.X[i], cat.Quote(i).Premium)
	}
	prem.Add(out.PremiumSlack, -1)
	m.AddConstraint("premium_target", prem, solver.LE, t.MaxPremium)

	for _, l := range cat.Layers() {
		scale := l.RequiredCapacity
		if scale <= 0 {
			scale = 1
		}
		s := m.AddVariable("c_slack_"+l.Name, solver.Continuous, 0, math.Inf(1))
		out.CoverageSlacks[l.Name] = s
		m.Objective.Add(s, penalty/scale)
		var cov solver.Expr
		for _, i := range cat.QuotesInLayer(l.Name) {
			cov.Add(out.X[i], cat.Quote(i).CoverageValue())
		}
		cov.Add(s, 1)
		m.AddConstraint("coverage_target_"+l.Name, cov, solver.GE, t.MinCoverage*l.RequiredCapacity)
	}
}

// addDegeneracyGuard links an indicator to every eligible quote and asks for at
// least one active quote per layer. An active quote carries at least
// guardThreshold capacity. Some quote always clears that threshold once the
// layer is filled, so the guard never cuts off a feasible placement, and the
// implied M = capacity/threshold stays near the number of quotes in the layer.
func (b *Builder) addDegeneracyGuard(m *solver.Model, out *Built, eligible func(int) bool) {
	cat := b.catalog
	for _, l := range cat.Layers() {
		if l.RequiredCapacity <= 0 {
			continue
		}
		var quotes []int
		for _, i := range cat.QuotesInLayer(l.Name) {
			if eligible(i) {
				quotes = append(quotes, i)
			}
		}
		var active solver.Expr
		for _, i := range quotes {
			q := cat.Quote(i)
			has := m.AddVariable(fmt.Sprintf("has_%d", i), solver.Indicator, 0, 1)

			var upper solver.Expr
			upper.Add(out.X[i], 1)
			upper.Add(has, -1)
			m.AddConstraint(fmt.Sprintf("guard_upper_%d", i), upper, solver.LE, 0)

			// threshold*has <= capacity*x, in capacity units.
			var lower solver.Expr
			lower.Add(has, guardThreshold(q.Capacity, l.RequiredCapacity, len(quotes)))
			lower.Add(out.X[i], -q.Capacity)
			m.AddConstraint(fmt.Sprintf("guard_lower_%d", i), lower, solver.LE, 0)

			active.Add(has, 1)
		}
		if len(active.Terms) > 0 {
			m.AddConstraint("guard_layer_"+l.Name, active, solver.GE, 1)
		}
	}
}

// guardThreshold is the capacity an active quote must carry: its share of the
// smaller of its own capacity and the layer requirement, split evenly across
// the layer's eligible quotes, and never below the token.
func guardThreshold(capacity, required float64, quotes int) float64 {
	if quotes < 1 {
		quotes = 1
	}
	return math.Max(token(capacity), math.Min(capacity, required)/float64(quotes))
}
