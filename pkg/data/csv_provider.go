package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// CSVProvider implements DataProvider for daily CSV files
type CSVProvider struct {
	formats []CSVColumnMapping
	filter  *DefaultDataFilter
	log     *logger.Logger
}

// NewCSVProvider creates a provider that accepts the Yahoo and lower-case formats
func NewCSVProvider(log *logger.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(log, YahooCSVFormat, LowerCaseCSVFormat)
}

// NewCSVProviderWithFormat creates a provider for custom formats, tried in order against the header
func NewCSVProviderWithFormat(log *logger.Logger, formats ...CSVColumnMapping) *CSVProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &CSVProvider{
		formats: formats,
		filter:  NewDefaultDataFilter(),
		log:     log,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads a daily series from a CSV file. Rows are sorted and de-duplicated.
func (p *CSVProvider) LoadData(source string) (types.PriceSeries, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, bterrors.NewDataError("csv", "open", err).WithContext("file", source)
	}
	defer file.Close()

	series, err := p.Parse(file)
	if err != nil {
		return nil, bterrors.NewDataError("csv", "parse", err).WithContext("file", source)
	}
	return series, nil
}

// Parse reads a daily series from r
func (p *CSVProvider) Parse(r io.Reader) (types.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV")
		}
		return nil, err
	}

	cols, format, err := p.resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var series types.PriceSeries
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		bar, err := parseRow(record, cols, format)
		if err != nil {
			p.log.Warning("⚠️ Skipping line %d: %v", lineNum, err)
			continue
		}
		series = append(series, bar)
	}

	series = p.filter.RemoveDuplicates(p.filter.SortByDate(series))
	return series, nil
}

// columnIndex holds the position of each field; -1 means absent
type columnIndex struct {
	date, open, high, low, close, adjClose, volume int
}

func (p *CSVProvider) resolveColumns(header []string) (columnIndex, CSVColumnMapping, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	lookup := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}

	for _, f := range p.formats {
		cols := columnIndex{
			date:     lookup(f.DateCol),
			open:     lookup(f.OpenCol),
			high:     lookup(f.HighCol),
			low:      lookup(f.LowCol),
			close:    lookup(f.CloseCol),
			adjClose: lookup(f.AdjCloseCol),
			volume:   lookup(f.VolumeCol),
		}
		if cols.date >= 0 && cols.close >= 0 {
			return cols, f, nil
		}
	}
	return columnIndex{}, CSVColumnMapping{}, fmt.Errorf("unrecognised CSV header %v: need a date and a close column", header)
}

func parseRow(record []string, cols columnIndex, format CSVColumnMapping) (types.PriceBar, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := time.Parse(format.DateFormat, firstN(field(cols.date), len(format.DateFormat)))
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid date %q", field(cols.date))
	}

	closePrice, err := strconv.ParseFloat(field(cols.close), 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid close %q", field(cols.close))
	}
	if closePrice <= 0 {
		return types.PriceBar{}, fmt.Errorf("non-positive close %.4f", closePrice)
	}

	// optional columns fall back to the close
	optional := func(i int) float64 {
		v, err := strconv.ParseFloat(field(i), 64)
		if err != nil {
			return closePrice
		}
		return v
	}

	bar := types.PriceBar{
		Date:     types.TruncateToDay(date),
		Open:     optional(cols.open),
		High:     optional(cols.high),
		Low:      optional(cols.low),
		Close:    closePrice,
		AdjClose: optional(cols.adjClose),
	}
	if v, err := strconv.ParseFloat(field(cols.volume), 64); err == nil {
		bar.Volume = v
	}

	if bar.High < bar.Low {
		return types.PriceBar{}, fmt.Errorf("high %.4f below low %.4f", bar.High, bar.Low)
	}
	return bar, nil
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(series types.PriceSeries) error {
	if len(series) == 0 {
		return bterrors.NewDataInsufficientError("csv", "validate", "no data provided")
	}

	for i, bar := range series {
		if bar.Close <= 0 {
			return bterrors.NewBacktestError(bterrors.ErrorCategoryData, "csv", "validate",
				fmt.Sprintf("invalid close at index %d: prices must be positive", i))
		}
		if bar.High < bar.Low {
			return bterrors.NewBacktestError(bterrors.ErrorCategoryData, "csv", "validate",
				fmt.Sprintf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)", i, bar.High, bar.Low))
		}
	}

	return p.filter.ValidateTimeSequence(series)
}

// WriteCSV writes series in the given format
func WriteCSV(w io.Writer, series types.PriceSeries, format CSVColumnMapping) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(format.Header()); err != nil {
		return err
	}

	formatFloat := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	for _, bar := range series {
		row := []string{
			bar.Date.Format(format.DateFormat),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.AdjClose),
			strconv.FormatFloat(bar.Volume, 'f', 0, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
