package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"cellsim/internal/config"
	"cellsim/internal/ingest"
	"cellsim/internal/results"
	"cellsim/internal/scenario"
	"cellsim/internal/simulator"
	"cellsim/internal/store"
)

type options struct {
	scenario string
	bc       string
	out      string
	db       string
	seed     uint64
	steps    int
	logLevel string
}

func main() {
	var o options
	flag.StringVar(&o.scenario, "scenario", "scenarios/village.yaml", "scenario YAML file")
	flag.StringVar(&o.bc, "bc", "input", "boundary condition CSV file or directory")
	flag.StringVar(&o.out, "out", "", "write per-step cell balances to this CSV file")
	flag.StringVar(&o.db, "db", "", "record the run in this SQLite database")
	flag.Uint64Var(&o.seed, "seed", 0, "override the scenario seed")
	flag.IntVar(&o.steps, "steps", 0, "override the number of steps")
	flag.StringVar(&o.logLevel, "log-level", "", "override the scenario log level")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := run(ctx, o)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("steps:            %d\n", sum.Steps)
	fmt.Printf("generation:       %.1f kWh electrical, %.1f kWh thermal\n", sum.GenEKWh, sum.GenTKWh)
	fmt.Printf("load:             %.1f kWh electrical, %.1f kWh thermal\n", sum.LoadEKWh, sum.LoadTKWh)
	fmt.Printf("fuel:             %.1f kWh\n", sum.FuelKWh)
	fmt.Printf("grid:             %.1f kWh import, %.1f kWh export\n", sum.GridImportKWh, sum.GridExportKWh)
	fmt.Printf("peaks:            %.0f W import, %.0f W export\n", sum.PeakImportW, sum.PeakExportW)
	fmt.Printf("self sufficiency: %.1f%%\n", sum.SelfSufficiency()*100)
}

func run(ctx context.Context, o options) (simulator.Summary, error) {
	var sum simulator.Summary

	cfg, err := config.Load(o.scenario)
	if err != nil {
		return sum, err
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	if o.steps != 0 {
		cfg.Steps = o.steps
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := config.SetupLogging(cfg.LogLevel); err != nil {
		return sum, err
	}

	conds, err := ingest.Load(o.bc)
	if err != nil {
		return sum, fmt.Errorf("loading boundary conditions: %w", err)
	}
	s := store.New()
	s.Add(conds)
	tr, _ := s.TimeRange()
	log.Infof("boundary conditions from %s to %s (%d steps)",
		tr.Start.Format("2006-01-02 15:04"), tr.End.Format("2006-01-02 15:04"), s.Len())
	for _, g := range s.Gaps() {
		log.Warnf("gap in boundary conditions from %s to %s", g.Start.Format("2006-01-02 15:04"), g.End.Format("2006-01-02 15:04"))
	}

	builder := scenario.New(cfg, s.AmbientTemperatures())
	cell, err := builder.Build()
	if err != nil {
		return sum, err
	}

	var cbs simulator.Callbacks
	var collector *results.Collector
	if o.out != "" {
		collector = &results.Collector{}
		cbs = append(cbs, collector)
	}
	var rec *results.Recorder
	if o.db != "" {
		repo, err := results.New(o.db)
		if err != nil {
			return sum, err
		}
		defer repo.Close()

		rec, err = results.NewRecorder(repo, &results.Run{
			Scenario: cfg.Name,
			Seed:     int64(builder.Seed()),
			Start:    tr.Start,
			End:      tr.End,
		})
		if err != nil {
			return sum, err
		}
		cbs = append(cbs, rec)
	}

	sum, err = simulator.Simulate(ctx, cell, s, cfg.Steps, cbs)
	if rec != nil {
		if cerr := rec.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("recording run: %w", cerr)
		}
	}
	if err != nil {
		return sum, err
	}

	if collector != nil {
		if err := results.ExportCSV(o.out, collector.Steps()); err != nil {
			return sum, err
		}
		log.Infof("wrote %d steps to %s", sum.Steps, o.out)
	}
	return sum, nil
}
