package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dthrottle/spy-leaps-monitor/cmd/common"
	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/orchestrator"
	"github.com/dthrottle/spy-leaps-monitor/pkg/reporting"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
)

const AppName = "LEAPS Backtest"

func main() {
	// The env file seeds flag defaults, so it is loaded before flag parsing
	if err := common.LoadEnvFile(common.EnvFileFromArgs(os.Args[1:])); err != nil {
		log.Printf("⚠️  %v", err)
	}

	flags := NewBacktestFlags()
	flag.Parse()

	if *flags.Common.Version {
		common.PrintVersion(AppName)
		return
	}
	if *flags.Common.Help {
		printUsageHelp()
		return
	}
	if err := ValidateBacktestFlags(flags); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	printHeader()

	lg, err := common.NewLogger("leaps-backtest", flags.Common)
	if err != nil {
		log.Fatalf("❌ Logger error: %v", err)
	}
	defer lg.Close()
	if path := lg.GetLogPath(); path != "" {
		fmt.Printf("📝 Logging to %s\n", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, lg); err != nil {
		lg.LogError("❌ Backtest failed", err)
		lg.Close()
		os.Exit(1)
	}
}

func printHeader() {
	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), common.ProjectVersion)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))
}

func printUsageHelp() {
	fmt.Printf("%s v%s - SPY LEAPS accumulation backtesting\n\n", AppName, common.ProjectVersion)
	fmt.Printf("USAGE:\n  %s [OPTIONS]\n\n", filepath.Base(os.Args[0]))
	PrintUsageExamples()
	fmt.Printf("\nOPTIONS:\n")
	flag.PrintDefaults()
}

func run(ctx context.Context, flags *BacktestFlags, lg *logger.Logger) error {
	store, err := openStore(flags, lg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	if *flags.List {
		runs, err := store.ListRuns(ctx, *flags.ListLimit)
		if err != nil {
			return err
		}
		reporting.NewDefaultConsoleReporter(os.Stdout).OutputRuns(runs)
		return nil
	}

	manager := config.NewStrategyConfigManager()
	cfg, err := manager.LoadConfigWithOverrides(*flags.Common.ConfigFile, flags.Overrides())
	if err != nil {
		return err
	}
	if *flags.SaveConfig != "" {
		if err := manager.SaveConfig(cfg, *flags.SaveConfig); err != nil {
			return err
		}
		lg.Info("💾 Config saved to %s", *flags.SaveConfig)
	}

	rcfg := reporting.DefaultReportingConfig()
	rcfg.EnableFiles = !*flags.ConsoleOnly
	rcfg.OutputDirectory = *flags.OutputDir

	deps := orchestrator.Dependencies{
		Reporter: reporting.NewReportingManager(rcfg),
		Logger:   lg,
		Workers:  *flags.Workers,
	}
	if store != nil {
		deps.Store = store
	}
	orch := orchestrator.NewOrchestrator(deps)

	req := orchestrator.BacktestRequest{
		Config:         cfg,
		UnderlyingFile: *flags.UnderlyingFile,
		VIXFile:        *flags.VIXFile,
		DataRoot:       *flags.Common.DataRoot,
		FromStore:      *flags.FromStore,
		ImportBars:     *flags.ImportBars,
		NoPersist:      *flags.NoPersist,
		Report:         true,
	}

	var grid *backtest.ParameterGrid
	if *flags.Sweep {
		ranges := []config.ParameterRange(flags.Ranges)
		if len(ranges) == 0 {
			ranges = config.DefaultSensitivityRanges
		}
		if grid, err = backtest.NewParameterGrid(ranges...); err != nil {
			return err
		}
	}

	workflow := orchestrator.NewWorkflowFactory(orch).CreateWorkflow(req, grid)
	lg.Info("▶️ Running %s workflow", workflow.GetWorkflowType())
	out, err := workflow.Execute(ctx)
	if err != nil {
		return err
	}

	switch outcome := out.(type) {
	case *orchestrator.RunOutcome:
		lg.Status("✅ Run %s finished in %s", outcome.RunID, outcome.Duration)
	case *orchestrator.SweepOutcome:
		if outcome.BestRunID != "" {
			lg.Status("🏆 Best combination stored as run %s", outcome.BestRunID)
		}
		if outcome.Failed > 0 {
			lg.Warning("⚠️ %d of %d combinations failed", outcome.Failed, len(outcome.Results))
		}
	}
	return nil
}

// openStore opens the database unless the run needs none
func openStore(flags *BacktestFlags, lg *logger.Logger) (*storage.Store, error) {
	needed := *flags.List || *flags.FromStore || *flags.ImportBars || !*flags.NoPersist
	if !needed {
		return nil, nil
	}
	store, err := common.OpenStore(flags.Common, lg)
	if err != nil {
		return nil, err
	}
	lg.Info("🗄️ Using %s database %s", *flags.Common.DBDriver, *flags.Common.DBDSN)
	return store, nil
}
