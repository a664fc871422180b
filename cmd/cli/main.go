package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"placement-optimizer/internal/allocation"
	"placement-optimizer/internal/analysis"
	"placement-optimizer/internal/config"
	"placement-optimizer/internal/frontier"
	"placement-optimizer/internal/logger"
	"placement-optimizer/internal/model"
	"placement-optimizer/internal/report"
	"placement-optimizer/internal/solver"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "placement",
		Usage: "Allocate insurance capacity across carrier quotes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config (default: sample market, three $10M layers)",
				EnvVars: []string{"PLACEMENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "Path to a JSON quote file; overrides catalog_file from the config",
			},
		},
		Commands: []*cli.Command{
			optimizeCommand(),
			frontierCommand(),
			quotesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "premium-weight", Usage: "Premium importance (0-10)"},
		&cli.Float64Flag{Name: "coverage-weight", Usage: "Coverage importance (0-10)"},
		&cli.StringFlag{Name: "weight-mode", Usage: "raw or normalized"},
		&cli.IntFlag{Name: "min-credit", Usage: "Minimum credit rating value (B+=1 .. AAA=8)"},
		&cli.StringSliceFlag{Name: "require", Usage: "Required carrier (repeatable)"},
		&cli.BoolFlag{Name: "diversify", Usage: "Enforce per carrier/layer capacity limits"},
		&cli.Float64Flag{Name: "max-capacity", Usage: "Max capacity per carrier per layer"},
		&cli.Float64Flag{Name: "min-capacity", Usage: "Min capacity per carrier per layer"},
		&cli.Float64Flag{Name: "diversification-factor", Usage: "Concentration penalty in [0,1] (hierarchical only)"},
	}
}

func requestOverrides(c *cli.Context) config.RequestDefaults {
	o := config.RequestDefaults{
		PremiumWeight:    c.Float64("premium-weight"),
		CoverageWeight:   c.Float64("coverage-weight"),
		WeightMode:       c.String("weight-mode"),
		MinCredit:        c.Int("min-credit"),
		RequiredCarriers: c.StringSlice("require"),
		Diversify:        c.Bool("diversify"),
	}
	if c.IsSet("max-capacity") {
		o.MaxCapacityPerPair = model.Float(c.Float64("max-capacity"))
	}
	if c.IsSet("min-capacity") {
		o.MinCapacityPerPair = model.Float(c.Float64("min-capacity"))
	}
	if c.IsSet("diversification-factor") {
		o.DiversificationFactor = model.Float(c.Float64("diversification-factor"))
	}
	return o
}

type env struct {
	cfg       *config.Config
	catalog   *model.Catalog
	optimizer *allocation.Optimizer
	log       *zap.SugaredLogger
}

func setup(c *cli.Context) (*env, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if path := c.String("catalog"); path != "" {
		cfg.CatalogFile = path
	}
	cat, err := cfg.LoadCatalog()
	if err != nil {
		return nil, err
	}
	log := logger.New()
	opt, err := allocation.New(cat, solver.New(cfg.SolverOptions()),
		allocation.WithLogger(log),
		allocation.WithDegeneracyGuard(cfg.DegeneracyGuard()),
	)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, catalog: cat, optimizer: opt, log: log}, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Solve one allocation and print it",
		Flags: append(requestFlags(),
			&cli.StringFlag{Name: "mode", Value: "continuous", Usage: "continuous, hierarchical, max-coverage or targets"},
			&cli.Float64Flag{Name: "threshold", Usage: "Premium ceiling for --mode max-coverage"},
			&cli.Float64Flag{Name: "target-premium", Usage: "Premium target for --mode targets"},
			&cli.Float64Flag{Name: "target-coverage", Usage: "Per-layer coverage floor (0-1) for --mode targets"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write allocations to this CSV path"},
		),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			ctx, stop := signalContext(c)
			defer stop()

			req := config.MergeDefaults(e.cfg.Defaults, requestOverrides(c)).Request()
			var res *model.AllocationResult
			switch mode := c.String("mode"); mode {
			case "continuous":
				res, err = e.optimizer.OptimizeContinuous(ctx, req)
			case "hierarchical":
				res, err = e.optimizer.OptimizeHierarchical(ctx, req)
			case "max-coverage":
				var m *model.Metrics
				res, m, err = e.optimizer.OptimizeMaxCoverageUnderPremiumCeiling(ctx, c.Float64("threshold"), req)
				if err == nil {
					fmt.Printf("bang for buck: %.6g\n", m.BangForBuck)
				}
			case "targets":
				res, err = e.optimizer.OptimizeTargets(ctx, req, model.Targets{
					MaxPremium:  c.Float64("target-premium"),
					MinCoverage: c.Float64("target-coverage"),
				})
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			if err != nil {
				return err
			}

			printAllocation(res)
			if out := c.String("out"); out != "" {
				if err := ensureDir(out); err != nil {
					return err
				}
				if err := report.WriteAllocationCSV(out, res); err != nil {
					return err
				}
				fmt.Printf("wrote: %s\n", out)
			}
			return nil
		},
	}
}

func frontierCommand() *cli.Command {
	return &cli.Command{
		Name:  "frontier",
		Usage: "Sweep premium ceilings and print the price/coverage trade-off",
		Flags: append(requestFlags(),
			&cli.IntFlag{Name: "points", Aliases: []string{"n"}, Usage: "Number of thresholds (default from config)"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent solves (default from config, 0 = one per CPU)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write points to this CSV path"},
			&cli.BoolFlag{Name: "json", Usage: "Print the summary as JSON"},
		),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			ctx, stop := signalContext(c)
			defer stop()

			points := e.cfg.Frontier.Points
			if c.IsSet("points") {
				points = c.Int("points")
			}
			workers := e.cfg.Frontier.Workers
			if c.IsSet("workers") {
				workers = c.Int("workers")
			}
			x := &frontier.Explorer{Optimizer: e.optimizer, Workers: workers, Log: e.log}
			req := config.MergeDefaults(e.cfg.Defaults, requestOverrides(c)).Request()
			f, err := x.SweepFrontier(ctx, req, points)
			if err != nil {
				return err
			}
			summary, err := analysis.Summarize(f)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			} else {
				printFrontier(f, summary)
			}
			if out := c.String("out"); out != "" {
				if err := ensureDir(out); err != nil {
					return err
				}
				if err := report.WriteFrontierCSV(out, f); err != nil {
					return err
				}
				fmt.Printf("wrote: %s\n", out)
			}
			return nil
		},
	}
}

func quotesCommand() *cli.Command {
	return &cli.Command{
		Name:  "quotes",
		Usage: "List the quote market",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCARRIER\tLAYER\tPREMIUM\tCAPACITY\tCOVERAGE\tRATING")
			for _, q := range e.catalog.Quotes() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
					q.ID, q.Carrier, q.Layer, money(q.Premium), q.Capacity, q.CoverageScore, q.CreditRating)
			}
			return w.Flush()
		},
	}
}

func printAllocation(res *model.AllocationResult) {
	fmt.Println(res.Message)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CARRIER\tLAYER\tCAPACITY\tSHARE\tPREMIUM")
	for _, a := range res.Allocated() {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.1f%%\t%s\n", a.Carrier, a.Layer, a.SignedCapacity, a.AllocationPercentage, money(a.SignedPremium))
	}
	_ = w.Flush()
	fmt.Printf("total premium: %s  avg coverage: %.4f  carriers: %d\n",
		money(res.Summary.TotalPremium), res.Summary.AverageCoverage, res.Summary.CarriersUsed)
	if !res.Slack.Empty() {
		fmt.Printf("slack: %+v\n", res.Slack)
	}
}

func printFrontier(f *model.Frontier, s analysis.FrontierSummary) {
	fmt.Printf("frontier %s: %d of %d thresholds solved, premium %s .. %s\n",
		f.ID, len(f.Points), f.Requested, money(f.MinPremium), money(f.MaxCoveragePremium))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPTION\tTHRESHOLD\tPREMIUM\tAVG COVERAGE\tBANG/BUCK")
	for _, p := range f.Points {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.6g\n", p.OptionID, money(p.Threshold), money(p.Premium), p.AverageCoverage, p.BangForBuck)
	}
	_ = w.Flush()
	if s.Best != nil {
		fmt.Printf("best bang for buck: option %d (%.6g)\n", s.Best.OptionID, s.Best.BangForBuck)
	}
	if len(s.NonMonotonic) > 0 {
		fmt.Printf("coverage drops at options %v (expected with indicator constraints)\n", s.NonMonotonic)
	}
	if len(f.Skipped) > 0 {
		fmt.Printf("skipped: %v\n", f.Skipped)
	}
}

func money(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(2)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
