package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/indicators"
	"github.com/dthrottle/spy-leaps-monitor/pkg/data"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// runBacktest loads data, simulates and persists one run
func (o *DefaultOrchestrator) runBacktest(ctx context.Context, runID string, req BacktestRequest) (*RunOutcome, error) {
	engine, err := backtest.NewBacktestEngine(req.Config)
	if err != nil {
		return nil, err
	}

	md, err := o.loadMarketData(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := engine.Run(ctx, md.Underlying, md.VIX)
	if err != nil {
		return nil, err
	}
	if cold := indicators.WarmUp(md.Underlying.IndexOf(res.StartDate)+1, req.Config.PauseLookbackDays); len(cold) > 0 {
		o.log.Warning("⚠️ Not enough history before %s for %s; those rules stay idle until warmed up",
			res.StartDate.Format(types.DateLayout), strings.Join(cold, ", "))
	}
	if len(res.DataGaps) > 0 {
		o.log.Warning("⚠️ %d gaps in %s data inside the run range", len(res.DataGaps), req.Config.Symbol)
	}
	if res.MissingVIXDays > 0 {
		o.log.Warning("⚠️ VIX missing on %d of %d days", res.MissingVIXDays, len(res.EquityCurve))
	}

	m := backtest.ResultMetrics(res)
	if o.store != nil && !req.NoPersist {
		if err := o.store.SaveRun(ctx, runID, req.Config, res, m); err != nil {
			return nil, err
		}
	}
	return &RunOutcome{RunID: runID, Result: res, Metrics: m}, nil
}

// loadMarketData resolves the request's data source and loads both series
func (o *DefaultOrchestrator) loadMarketData(ctx context.Context, req BacktestRequest) (*data.MarketData, error) {
	cfg := req.Config

	if req.FromStore {
		if o.store == nil {
			return nil, bterrors.NewConfigValidationError("orchestrator", "load_data", "from_store requested but no store is configured")
		}
		underlying, err := o.store.LoadBars(ctx, storage.TablePrices, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		vix, err := o.store.LoadBars(ctx, storage.TableVIX, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		o.log.Info("📊 Loaded %d underlying bars and %d VIX bars from store", len(underlying), len(vix))
		return &data.MarketData{Underlying: underlying, VIX: vix}, nil
	}

	underlyingPath := req.UnderlyingFile
	if underlyingPath == "" && req.DataRoot != "" {
		underlyingPath = o.data.FindDataFile(req.DataRoot, cfg.Symbol)
	}
	if underlyingPath == "" {
		return nil, bterrors.NewConfigValidationError("orchestrator", "load_data",
			"no data source: set an underlying file, a data root or load from the store")
	}

	vixPath := req.VIXFile
	if vixPath == "" && req.DataRoot != "" {
		vixPath = o.data.FindDataFile(req.DataRoot, cfg.VIXSymbol)
	}
	if vixPath == "" {
		o.log.Warning("⚠️ No VIX data; the VIX pause rule will never fire")
	}

	md, err := o.data.LoadMarketData(ctx, underlyingPath, vixPath)
	if err != nil {
		return nil, err
	}

	if gaps := o.data.DetectGaps(md.VIX, cfg.MaxGapDays); len(gaps) > 0 {
		o.log.Warning("⚠️ VIX series has %d gaps longer than %d days", len(gaps), cfg.MaxGapDays)
	}

	if req.ImportBars && o.store != nil {
		if err := o.store.SaveBars(ctx, storage.TablePrices, md.Underlying); err != nil {
			return nil, err
		}
		if err := o.store.SaveBars(ctx, storage.TableVIX, md.VIX); err != nil {
			return nil, err
		}
	}
	return md, nil
}
