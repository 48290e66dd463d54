package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/dthrottle/spy-leaps-monitor/cmd/common"
	"github.com/dthrottle/spy-leaps-monitor/internal/api"
	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/internal/monitoring"
	"github.com/dthrottle/spy-leaps-monitor/internal/safety"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/orchestrator"
)

const (
	AppName         = "LEAPS Server"
	shutdownTimeout = 10 * time.Second
)

type serverFlags struct {
	Common       *common.CommonFlags
	Addr         *string
	MaxSweepSize *int
	Workers      *int
	RunTimeout   *time.Duration
	RunsPerMin   *int
}

func main() {
	if err := common.LoadEnvFile(common.EnvFileFromArgs(os.Args[1:])); err != nil {
		log.Printf("⚠️  %v", err)
	}

	flags := serverFlags{
		Common:       common.RegisterCommonFlags(),
		Addr:         flag.String("addr", common.GetEnvWithDefault("LEAPS_HTTP_ADDR", ":8080"), "HTTP listen address"),
		MaxSweepSize: flag.Int("max-sweep", 200, "Maximum combinations per sweep request (0 = unlimited)"),
		Workers:      flag.Int("workers", 0, "Sweep workers (0 = number of CPUs)"),
		RunTimeout:   flag.Duration("run-timeout", 5*time.Minute, "Timeout for a single backtest or sweep request"),
		RunsPerMin:   flag.Int("runs-per-minute", 30, "Backtest and sweep requests allowed per minute (0 = unlimited)"),
	}
	flag.Parse()

	if *flags.Common.Version {
		common.PrintVersion(AppName)
		return
	}
	if *flags.Common.Help {
		fmt.Printf("%s v%s - HTTP API for SPY LEAPS backtests\n\nOPTIONS:\n", AppName, common.ProjectVersion)
		flag.PrintDefaults()
		return
	}

	v := common.NewFlagValidator()
	flags.Common.Validate(v).
		ValidateInt("max-sweep", *flags.MaxSweepSize, 0, 100000).
		ValidateInt("workers", *flags.Workers, 0, 256).
		ValidateInt("runs-per-minute", *flags.RunsPerMin, 0, 100000)
	if err := v.GetError(); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	lg, err := common.NewLogger("leaps-server", flags.Common)
	if err != nil {
		log.Fatalf("❌ Logger error: %v", err)
	}
	defer lg.Close()
	if path := lg.GetLogPath(); path != "" {
		fmt.Printf("📝 Logging to %s\n", path)
	}

	if err := serve(flags, lg); err != nil {
		lg.LogError("❌ Server stopped", err)
		lg.Close()
		os.Exit(1)
	}
}

func serve(flags serverFlags, lg *logger.Logger) error {
	baseCfg, err := config.NewStrategyConfigManager().LoadConfig(*flags.Common.ConfigFile)
	if err != nil {
		return err
	}

	store, err := common.OpenStore(flags.Common, lg)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(store.Ping)
	orch := orchestrator.NewOrchestrator(orchestrator.Dependencies{
		Store:   store,
		Metrics: metrics,
		Health:  health,
		Logger:  lg,
		Workers: *flags.Workers,
	})

	opts := api.Options{
		BaseConfig:   baseCfg,
		DataRoot:     *flags.Common.DataRoot,
		MaxSweepSize: *flags.MaxSweepSize,
	}
	if *flags.RunsPerMin > 0 {
		opts.RunLimiter = safety.NewPerMinuteLimiter("runs", *flags.RunsPerMin)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(orch, store, opts, lg)
	router := api.NewRouter(handler, metrics, health, lg)

	srv := &http.Server{
		Addr:              *flags.Addr,
		Handler:           http.TimeoutHandler(router, *flags.RunTimeout, `{"error":"request timed out"}`),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("🌐 Listening on %s (data root %s, %s database)", *flags.Addr, *flags.Common.DataRoot, *flags.Common.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
