package data

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// MarketData is the pair of series a backtest consumes
type MarketData struct {
	Underlying types.PriceSeries
	VIX        types.PriceSeries
}

// DataManager combines all data operations in a convenient interface
type DataManager struct {
	provider DataProvider
	filter   *DefaultDataFilter
	locator  FileLocator
	log      *logger.Logger
}

// NewDataManager creates a new data manager with default components
func NewDataManager(log *logger.Logger) *DataManager {
	if log == nil {
		log = logger.Discard()
	}
	return NewDataManagerWithProvider(NewCachedProvider(NewCSVProvider(log), log), log)
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider, log *logger.Logger) *DataManager {
	if log == nil {
		log = logger.Discard()
	}
	return &DataManager{
		provider: provider,
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(log),
		log:      log,
	}
}

// LoadSeries loads and validates one daily series
func (dm *DataManager) LoadSeries(path string) (types.PriceSeries, error) {
	series, err := dm.provider.LoadData(path)
	if err != nil {
		return nil, err
	}
	if err := dm.provider.ValidateData(series); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return series, nil
}

// LoadMarketData loads the underlying and VIX series concurrently.
// An empty vixPath yields an empty VIX series.
func (dm *DataManager) LoadMarketData(ctx context.Context, underlyingPath, vixPath string) (*MarketData, error) {
	md := &MarketData{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		series, err := dm.LoadSeries(underlyingPath)
		if err != nil {
			return fmt.Errorf("load underlying: %w", err)
		}
		md.Underlying = series
		return nil
	})

	if vixPath != "" {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			series, err := dm.LoadSeries(vixPath)
			if err != nil {
				return fmt.Errorf("load vix: %w", err)
			}
			md.VIX = series
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dm.log.Info("📊 Loaded %d underlying bars and %d VIX bars", len(md.Underlying), len(md.VIX))
	return md, nil
}

// FindDataFile locates the CSV of a symbol under dataRoot
func (dm *DataManager) FindDataFile(dataRoot, symbol string) string {
	return dm.locator.FindDataFile(dataRoot, symbol)
}

// DetectGaps reports holes in a series
func (dm *DataManager) DetectGaps(series types.PriceSeries, maxGapDays int) []Gap {
	return dm.filter.DetectGaps(series, maxGapDays)
}
