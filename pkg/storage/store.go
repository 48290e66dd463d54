package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const batchSize = 500

// ErrRunNotFound is returned when a run id has no stored run
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a stored run without its row-level data
type RunRecord struct {
	RunID          string                `json:"run_id"`
	CreatedAt      time.Time             `json:"created_at"`
	Symbol         string                `json:"symbol"`
	StartDate      time.Time             `json:"start_date"`
	EndDate        time.Time             `json:"end_date"`
	FinalState     string                `json:"final_state"`
	TradeCount     int                   `json:"trade_count"`
	SignalCount    int                   `json:"signal_count"`
	MissingVIXDays int                   `json:"missing_vix_days"`
	Config         config.StrategyConfig `json:"config"`
	Metrics        backtest.Metrics      `json:"metrics"`
}

// Store persists market data and backtest runs through gorm
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to driver with dsn and migrates the schema.
// For sqlite the dsn is a file path or ":memory:".
func Open(driver, dsn string, log *logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, bterrors.NewStorageError("store", "open", fmt.Errorf("unsupported driver %q", driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, bterrors.NewStorageError("store", "open", err).WithContext("driver", driver)
	}

	if strings.ToLower(driver) != DriverPostgres && strings.ToLower(driver) != "postgresql" {
		// a single connection keeps ":memory:" databases alive across calls
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	return NewStore(db, log)
}

// NewStore wraps an open gorm connection and migrates the schema
func NewStore(db *gorm.DB, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, table := range []string{TablePrices, TableVIX} {
		if err := s.db.Table(table).AutoMigrate(&BarRow{}); err != nil {
			return bterrors.NewStorageError("store", "migrate", err).WithContext("table", table)
		}
	}
	if err := s.db.AutoMigrate(&RunRow{}, &TradeRow{}, &SignalRow{}, &EquityRow{}); err != nil {
		return bterrors.NewStorageError("store", "migrate", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func checkBarTable(table string) error {
	if table != TablePrices && table != TableVIX {
		return bterrors.NewStorageError("store", "bars", fmt.Errorf("unknown bar table %q", table))
	}
	return nil
}

// SaveBars upserts series into table, replacing bars with the same date
func (s *Store) SaveBars(ctx context.Context, table string, series types.PriceSeries) error {
	if err := checkBarTable(table); err != nil {
		return err
	}
	if len(series) == 0 {
		return nil
	}

	rows := make([]BarRow, len(series))
	for i, bar := range series {
		rows[i] = barRowFrom(bar)
	}

	err := s.db.WithContext(ctx).Table(table).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return bterrors.NewStorageError("store", "save_bars", err).WithContext("table", table)
	}

	s.log.Info("💾 Saved %d bars to %s", len(rows), table)
	return nil
}

// LoadBars loads bars of table inside [start, end]; a zero bound is open
func (s *Store) LoadBars(ctx context.Context, table string, start, end time.Time) (types.PriceSeries, error) {
	if err := checkBarTable(table); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Table(table)
	if !start.IsZero() {
		q = q.Where("date >= ?", types.TruncateToDay(start))
	}
	if !end.IsZero() {
		q = q.Where("date <= ?", types.TruncateToDay(end))
	}

	var rows []BarRow
	if err := q.Order("date").Find(&rows).Error; err != nil {
		return nil, bterrors.NewStorageError("store", "load_bars", err).WithContext("table", table)
	}

	series := make(types.PriceSeries, len(rows))
	for i, r := range rows {
		series[i] = r.toBar()
	}
	return series, nil
}

// SaveRun stores a run with its trades, signals and equity curve in one transaction
func (s *Store) SaveRun(ctx context.Context, runID string, cfg config.StrategyConfig, result *backtest.Result, metrics backtest.Metrics) error {
	params, err := json.Marshal(cfg)
	if err != nil {
		return bterrors.NewStorageError("store", "save_run", err)
	}
	summary, err := json.Marshal(metrics)
	if err != nil {
		return bterrors.NewStorageError("store", "save_run", err)
	}

	run := RunRow{
		RunID:          runID,
		Symbol:         cfg.Symbol,
		StartDate:      result.StartDate,
		EndDate:        result.EndDate,
		FinalState:     result.FinalState,
		TradeCount:     len(result.Trades),
		SignalCount:    len(result.Signals),
		MissingVIXDays: result.MissingVIXDays,
		Params:         string(params),
		Summary:        string(summary),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}

		if len(result.Trades) > 0 {
			trades := make([]TradeRow, len(result.Trades))
			for i, t := range result.Trades {
				trades[i] = tradeRowFrom(runID, i, t)
			}
			if err := tx.CreateInBatches(trades, batchSize).Error; err != nil {
				return err
			}
		}

		if len(result.Signals) > 0 {
			signals := make([]SignalRow, len(result.Signals))
			for i, sig := range result.Signals {
				signals[i] = signalRowFrom(runID, i, sig)
			}
			if err := tx.CreateInBatches(signals, batchSize).Error; err != nil {
				return err
			}
		}

		if len(result.EquityCurve) > 0 {
			points := make([]EquityRow, len(result.EquityCurve))
			for i, p := range result.EquityCurve {
				points[i] = equityRowFrom(runID, p)
			}
			if err := tx.CreateInBatches(points, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return bterrors.NewStorageError("store", "save_run", err).WithContext("run_id", runID)
	}

	s.log.Info("💾 Saved run %s (%d trades, %d signals, %d equity points)",
		runID, len(result.Trades), len(result.Signals), len(result.EquityCurve))
	return nil
}

// LoadRun loads the stored run header
func (s *Store) LoadRun(ctx context.Context, runID string) (*RunRecord, error) {
	var row RunRow
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, bterrors.NewStorageError("store", "load_run", ErrRunNotFound).WithContext("run_id", runID)
	}
	if err != nil {
		return nil, bterrors.NewStorageError("store", "load_run", err).WithContext("run_id", runID)
	}
	return recordFrom(row)
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := s.db.WithContext(ctx).Order("created_at desc").Order("run_id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []RunRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, bterrors.NewStorageError("store", "list_runs", err)
	}

	records := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFrom(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// LoadTrades returns a run's trades in the order they were closed
func (s *Store) LoadTrades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	var rows []TradeRow
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq").Find(&rows).Error; err != nil {
		return nil, bterrors.NewStorageError("store", "load_trades", err).WithContext("run_id", runID)
	}
	trades := make([]backtest.Trade, len(rows))
	for i, r := range rows {
		trades[i] = r.toTrade()
	}
	return trades, nil
}

// LoadSignals returns a run's signals in emission order
func (s *Store) LoadSignals(ctx context.Context, runID string) ([]backtest.Signal, error) {
	var rows []SignalRow
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq").Find(&rows).Error; err != nil {
		return nil, bterrors.NewStorageError("store", "load_signals", err).WithContext("run_id", runID)
	}
	signals := make([]backtest.Signal, len(rows))
	for i, r := range rows {
		signals[i] = r.toSignal()
	}
	return signals, nil
}

// LoadEquity returns a run's equity curve by date
func (s *Store) LoadEquity(ctx context.Context, runID string) ([]backtest.EquityPoint, error) {
	var rows []EquityRow
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("date").Find(&rows).Error; err != nil {
		return nil, bterrors.NewStorageError("store", "load_equity", err).WithContext("run_id", runID)
	}
	points := make([]backtest.EquityPoint, len(rows))
	for i, r := range rows {
		points[i] = r.toPoint()
	}
	return points, nil
}

func recordFrom(row RunRow) (*RunRecord, error) {
	rec := &RunRecord{
		RunID:          row.RunID,
		CreatedAt:      row.CreatedAt,
		Symbol:         row.Symbol,
		StartDate:      types.TruncateToDay(row.StartDate),
		EndDate:        types.TruncateToDay(row.EndDate),
		FinalState:     row.FinalState,
		TradeCount:     row.TradeCount,
		SignalCount:    row.SignalCount,
		MissingVIXDays: row.MissingVIXDays,
	}
	if err := json.Unmarshal([]byte(row.Params), &rec.Config); err != nil {
		return nil, bterrors.NewStorageError("store", "decode_run", err).WithContext("run_id", row.RunID)
	}
	if err := json.Unmarshal([]byte(row.Summary), &rec.Metrics); err != nil {
		return nil, bterrors.NewStorageError("store", "decode_run", err).WithContext("run_id", row.RunID)
	}
	return rec, nil
}
