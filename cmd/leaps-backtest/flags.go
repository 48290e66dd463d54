package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/dthrottle/spy-leaps-monitor/cmd/common"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
)

// rangeList collects repeated -range name=v1,v2,... flags
type rangeList []config.ParameterRange

func (r *rangeList) String() string {
	parts := make([]string, len(*r))
	for i, pr := range *r {
		parts[i] = fmt.Sprintf("%s=%v", pr.Name, pr.Values)
	}
	return strings.Join(parts, " ")
}

func (r *rangeList) Set(value string) error {
	pr, err := config.ParseParameterRange(value)
	if err != nil {
		return err
	}
	*r = append(*r, pr)
	return nil
}

// BacktestFlags holds all command line flags for the backtest command
type BacktestFlags struct {
	Common *common.CommonFlags

	// Data sources
	UnderlyingFile *string
	VIXFile        *string
	FromStore      *bool
	ImportBars     *bool

	// Strategy overrides, applied over the config file and LEAPS_* env
	Symbol             *string
	StartDate          *string
	EndDate            *string
	InitialCapital     *float64
	WeeklyAmount       *float64
	BuyWeekday         *int
	StrikeMoneyness    *float64
	PauseDrawdownPct   *float64
	PauseLookbackDays  *int
	VIXThreshold       *float64
	LiquidateFrom200MA *float64
	LiquidateFromPeak  *float64
	UseDeathCross      *bool
	ResumeConsecDays   *int
	ResumePct          *float64
	MaxExposurePct     *float64
	PosLossPct         *float64

	// Modes
	Sweep     *bool
	Ranges    rangeList
	Workers   *int
	List      *bool
	ListLimit *int

	// Output
	NoPersist   *bool
	ConsoleOnly *bool
	OutputDir   *string
	SaveConfig  *string
}

// overrideKeys maps flag names to config keys
var overrideKeys = map[string]string{
	"symbol":               "symbol",
	"start":                "start_date",
	"end":                  "end_date",
	"capital":              "initial_capital",
	"weekly-amount":        "weekly_amount",
	"buy-weekday":          "buy_weekday",
	"strike-moneyness":     "strike_moneyness",
	"pause-drawdown":       "pause_drawdown_pct",
	"pause-lookback":       "pause_lookback_days",
	"vix-threshold":        "vix_threshold",
	"liquidate-from-200ma": "liquidate_pct_from_200ma",
	"liquidate-from-peak":  "liquidate_pct_from_peak",
	"death-cross":          "use_death_cross",
	"resume-days":          "resume_consec_days",
	"resume-pct":           "resume_pct",
	"max-exposure":         "max_exposure_pct",
	"pos-loss":             "pos_loss_pct",
}

// NewBacktestFlags creates and registers all backtest command line flags
func NewBacktestFlags() *BacktestFlags {
	defaults := config.NewDefaultStrategyConfig()

	flags := &BacktestFlags{
		Common: common.RegisterCommonFlags(),

		UnderlyingFile: flag.String("data", "", "Underlying CSV file (default: <data-root>/<SYMBOL>.csv)"),
		VIXFile:        flag.String("vix", "", "VIX CSV file (default: <data-root>/VIX.csv)"),
		FromStore:      flag.Bool("from-store", false, "Load bars from the database instead of CSV files"),
		ImportBars:     flag.Bool("import", false, "Save the loaded CSV bars into the database"),

		Symbol:             flag.String("symbol", defaults.Symbol, "Underlying symbol"),
		StartDate:          flag.String("start", defaults.StartDate, "Backtest start date (YYYY-MM-DD)"),
		EndDate:            flag.String("end", "", "Backtest end date (YYYY-MM-DD), defaults to the last bar"),
		InitialCapital:     flag.Float64("capital", defaults.InitialCapital, "Initial capital"),
		WeeklyAmount:       flag.Float64("weekly-amount", defaults.WeeklyAmount, "Premium budget per weekly buy"),
		BuyWeekday:         flag.Int("buy-weekday", defaults.BuyWeekday, "Buy weekday (0=Monday .. 4=Friday)"),
		StrikeMoneyness:    flag.Float64("strike-moneyness", defaults.StrikeMoneynessPct, "Strike offset from spot in percent (0 = ATM)"),
		PauseDrawdownPct:   flag.Float64("pause-drawdown", defaults.PauseDrawdownPct, "Pause buying at this drawdown from the rolling high (%)"),
		PauseLookbackDays:  flag.Int("pause-lookback", defaults.PauseLookbackDays, "Rolling high lookback (trading days)"),
		VIXThreshold:       flag.Float64("vix-threshold", defaults.VIXThreshold, "Pause buying when VIX is above this level"),
		LiquidateFrom200MA: flag.Float64("liquidate-from-200ma", defaults.LiquidatePctFrom200MA, "Liquidate at this distance below the 200-day MA (%)"),
		LiquidateFromPeak:  flag.Float64("liquidate-from-peak", defaults.LiquidatePctFromPeak, "Liquidate at this drawdown from the peak (%)"),
		UseDeathCross:      flag.Bool("death-cross", defaults.UseDeathCross, "Liquidate on a 50/200 MA death cross"),
		ResumeConsecDays:   flag.Int("resume-days", defaults.ResumeConsecDays, "Consecutive days above the 50-day MA needed to resume"),
		ResumePct:          flag.Float64("resume-pct", defaults.ResumePct, "Recovery from the trough needed to resume (%)"),
		MaxExposurePct:     flag.Float64("max-exposure", defaults.MaxExposurePct, "Maximum committed premium as % of portfolio value"),
		PosLossPct:         flag.Float64("pos-loss", defaults.PosLossPct, "Per-position stop loss (%), 0 disables"),

		Sweep:     flag.Bool("sweep", false, "Run a parameter sweep (use -range, defaults to the sensitivity grid)"),
		Workers:   flag.Int("workers", 0, "Sweep workers (0 = number of CPUs)"),
		List:      flag.Bool("list", false, "List stored runs and exit"),
		ListLimit: flag.Int("limit", 20, "Number of runs shown by -list"),

		NoPersist:   flag.Bool("no-persist", false, "Do not store the run in the database"),
		ConsoleOnly: flag.Bool("console-only", false, "Console output only (no files)"),
		OutputDir:   flag.String("output", "", "Output directory (default: results/<SYMBOL>_<runID>)"),
		SaveConfig:  flag.String("save-config", "", "Write the effective strategy config to this JSON file"),
	}
	flag.Var(&flags.Ranges, "range", "Sweep range name=v1,v2,... (repeatable)")

	return flags
}

// Overrides returns the config keys of the strategy flags set on the command line
func (f *BacktestFlags) Overrides() map[string]interface{} {
	values := map[string]interface{}{
		"symbol":                   *f.Symbol,
		"start_date":               *f.StartDate,
		"end_date":                 *f.EndDate,
		"initial_capital":          *f.InitialCapital,
		"weekly_amount":            *f.WeeklyAmount,
		"buy_weekday":              *f.BuyWeekday,
		"strike_moneyness":         *f.StrikeMoneyness,
		"pause_drawdown_pct":       *f.PauseDrawdownPct,
		"pause_lookback_days":      *f.PauseLookbackDays,
		"vix_threshold":            *f.VIXThreshold,
		"liquidate_pct_from_200ma": *f.LiquidateFrom200MA,
		"liquidate_pct_from_peak":  *f.LiquidateFromPeak,
		"use_death_cross":          *f.UseDeathCross,
		"resume_consec_days":       *f.ResumeConsecDays,
		"resume_pct":               *f.ResumePct,
		"max_exposure_pct":         *f.MaxExposurePct,
		"pos_loss_pct":             *f.PosLossPct,
	}

	overrides := make(map[string]interface{})
	flag.Visit(func(fl *flag.Flag) {
		if key, ok := overrideKeys[fl.Name]; ok {
			overrides[key] = values[key]
		}
	})
	return overrides
}

// ValidateBacktestFlags validates flag combinations; strategy values are checked by the config validator
func ValidateBacktestFlags(f *BacktestFlags) error {
	v := common.NewFlagValidator()
	f.Common.Validate(v).
		ValidateFile("data", *f.UnderlyingFile, false).
		ValidateFile("vix", *f.VIXFile, false).
		ValidateDate("start", *f.StartDate).
		ValidateDate("end", *f.EndDate).
		ValidateInt("workers", *f.Workers, 0, 256).
		ValidateInt("limit", *f.ListLimit, 1, 10000)

	if *f.FromStore && (*f.UnderlyingFile != "" || *f.VIXFile != "") {
		v.AddError("-from-store cannot be combined with -data or -vix")
	}
	if *f.FromStore && *f.ImportBars {
		v.AddError("-import needs CSV input and cannot be combined with -from-store")
	}
	if len(f.Ranges) > 0 && !*f.Sweep {
		v.AddError("-range is only used with -sweep")
	}
	if *f.List && *f.Sweep {
		v.AddError("-list and -sweep are exclusive")
	}
	return v.GetError()
}

// PrintUsageExamples prints usage examples
func PrintUsageExamples() {
	examples := []struct {
		command     string
		description string
	}{
		{"leaps-backtest", "Backtest SPY from data/SPY.csv and data/VIX.csv with the default strategy"},
		{"leaps-backtest -config configs/conservative.yaml", "Load strategy parameters from a file"},
		{"leaps-backtest -start 2018-01-01 -end 2023-12-31 -weekly-amount 2500", "Custom period and weekly budget"},
		{"leaps-backtest -import", "Backtest from CSV and store the bars in the database"},
		{"leaps-backtest -from-store", "Backtest from bars stored in the database"},
		{"leaps-backtest -sweep", "Sweep the default sensitivity grid"},
		{"leaps-backtest -sweep -range vix_threshold=20,25,30 -range max_exposure_pct=5,10", "Sweep a custom grid"},
		{"leaps-backtest -list", "List stored runs"},
	}

	fmt.Println("EXAMPLES:")
	for _, ex := range examples {
		fmt.Printf("  %s\n      %s\n", ex.command, ex.description)
	}
	fmt.Printf("\nSWEEPABLE PARAMETERS:\n  %s\n", strings.Join(config.SweepableParameters(), ", "))
	fmt.Printf("\nENVIRONMENT:\n  %s_<KEY> overrides any config key, e.g. %s_WEEKLY_AMOUNT=2500\n", config.EnvPrefix, config.EnvPrefix)
	fmt.Printf("  LEAPS_DATA_ROOT, LEAPS_DB_DRIVER, LEAPS_DB_DSN, LEAPS_LOG_LEVEL set flag defaults\n")
}
