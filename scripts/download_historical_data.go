package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/internal/safety"
	"github.com/dthrottle/spy-leaps-monitor/pkg/data"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

const chartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// chartResponse is the subset of the Yahoo chart API payload we read.
// Quote values are null on days without a print.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func main() {
	var (
		symbols   = flag.String("symbols", "SPY,^VIX", "Comma-separated list of Yahoo symbols")
		outdir    = flag.String("outdir", "data", "Directory to write {SYMBOL}.csv files")
		startDate = flag.String("start", "2010-01-01", "Start date (YYYY-MM-DD)")
		endDate   = flag.String("end", "", "End date (YYYY-MM-DD), defaults to today")
		dbDriver  = flag.String("db-driver", "", "Also save bars to this database (sqlite, postgres)")
		dbDSN     = flag.String("db-dsn", "data/leaps.db", "Database DSN used with -db-driver")
		timeout   = flag.Duration("timeout", 30*time.Second, "HTTP timeout per symbol")
		perMinute = flag.Int("requests-per-minute", 20, "Yahoo requests allowed per minute")
	)
	flag.Parse()

	start, err := types.ParseDate(*startDate)
	if err != nil {
		log.Fatalf("Invalid start date format: %v", err)
	}
	end := types.TruncateToDay(time.Now())
	if *endDate != "" {
		if end, err = types.ParseDate(*endDate); err != nil {
			log.Fatalf("Invalid end date format: %v", err)
		}
	}
	if !end.After(start) {
		log.Fatalf("End date %s must be after start date %s", end.Format(types.DateLayout), start.Format(types.DateLayout))
	}

	var symList []string
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symList = append(symList, s)
		}
	}

	var store *storage.Store
	if *dbDriver != "" {
		if tables := barTables(symList); len(tables) < len(symList) {
			log.Fatalf("The database holds one underlying and one VIX series; got symbols %v", symList)
		}
		if store, err = storage.Open(*dbDriver, *dbDSN, nil); err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()
	}

	if err := os.MkdirAll(*outdir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	limiter := safety.NewRateLimiter("yahoo", 1, float64(max(*perMinute, 1))/60)
	tables := barTables(symList)
	ctx := context.Background()

	for _, sym := range symList {
		if err := limiter.Wait(ctx); err != nil {
			log.Fatalf("Rate limiter: %v", err)
		}
		outPath := filepath.Join(*outdir, data.FileSymbol(sym)+".csv")
		fmt.Printf("\n📊 Downloading daily bars for %s\n", sym)
		fmt.Printf("📅 Period: %s to %s\n", start.Format(types.DateLayout), end.Format(types.DateLayout))

		series, err := downloadSeries(ctx, client, sym, start, end)
		if err != nil {
			log.Fatalf("Failed to download %s: %v", sym, err)
		}
		fmt.Printf("✅ Downloaded %d bars\n", len(series))

		if err := saveToCSV(series, outPath); err != nil {
			log.Fatalf("Failed to save %s: %v", sym, err)
		}
		fmt.Printf("💾 Data saved to %s\n", outPath)

		if store != nil {
			if err := store.SaveBars(ctx, tables[sym], series); err != nil {
				log.Fatalf("Failed to store %s: %v", sym, err)
			}
			fmt.Printf("🗄️ Saved %d rows to '%s' table\n", len(series), tables[sym])
		}
		printSummary(series)
	}
}

// barTables assigns each symbol its bar table; a second underlying is left out
func barTables(symbols []string) map[string]string {
	tables := make(map[string]string, len(symbols))
	var haveUnderlying, haveVIX bool
	for _, sym := range symbols {
		switch {
		case data.FileSymbol(sym) == "VIX" && !haveVIX:
			tables[sym] = storage.TableVIX
			haveVIX = true
		case data.FileSymbol(sym) != "VIX" && !haveUnderlying:
			tables[sym] = storage.TablePrices
			haveUnderlying = true
		}
	}
	return tables
}

func downloadSeries(ctx context.Context, client *http.Client, symbol string, start, end time.Time) (types.PriceSeries, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")
	q.Set("includeAdjustedClose", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL+url.PathEscape(symbol)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (spy-leaps-monitor)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("JSON decode error: %w", err)
	}
	return parseChart(payload, start, end)
}

func parseChart(payload chartResponse, start, end time.Time) (types.PriceSeries, error) {
	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("%s: %s", e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart response")
	}

	res := payload.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	value := func(vals []*float64, i int) (float64, bool) {
		if i >= len(vals) || vals[i] == nil {
			return 0, false
		}
		return *vals[i], true
	}

	series := make(types.PriceSeries, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx, ok := value(quote.Close, i)
		if !ok {
			continue
		}
		bar := types.PriceBar{
			// shift to exchange local time so the bar lands on its trading date
			Date:     types.TruncateToDay(time.Unix(ts+res.Meta.GMTOffset, 0).UTC()),
			Close:    closePx,
			AdjClose: closePx,
		}
		bar.Open, _ = value(quote.Open, i)
		bar.High, _ = value(quote.High, i)
		bar.Low, _ = value(quote.Low, i)
		bar.Volume, _ = value(quote.Volume, i)
		if a, ok := value(adj, i); ok {
			bar.AdjClose = a
		}
		series = append(series, bar)
	}

	filter := data.NewDefaultDataFilter()
	series = filter.RemoveDuplicates(filter.SortByDate(series))
	series = filter.FilterByDateRange(series, start, end)
	if len(series) == 0 {
		return nil, fmt.Errorf("no bars between %s and %s", start.Format(types.DateLayout), end.Format(types.DateLayout))
	}
	return series, nil
}

func saveToCSV(series types.PriceSeries, path string) error {
	var buf bytes.Buffer
	if err := data.WriteCSV(&buf, series, data.YahooCSVFormat); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func printSummary(series types.PriceSeries) {
	high, low := series[0].High, series[0].Low
	for _, bar := range series {
		high = max(high, bar.High)
		if bar.Low > 0 {
			low = min(low, bar.Low)
		}
	}

	fmt.Println("\n📊 DATA SUMMARY:")
	fmt.Printf("  First: %s\n", series.FirstDate().Format(types.DateLayout))
	fmt.Printf("  Last:  %s\n", series.LastDate().Format(types.DateLayout))
	fmt.Printf("  Total: %d daily bars\n", len(series))
	fmt.Printf("  High:  $%.2f\n", high)
	fmt.Printf("  Low:   $%.2f\n", low)
}
