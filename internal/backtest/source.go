package backtest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Source replays historical bars in time order.
type Source interface {
	// Count returns the number of bars inside the optional time bounds.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// ReadAll yields bars ordered by time, then instrument.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	Close() error
}

// DuckDBSource reads bars from a CSV or parquet file through an in-memory
// DuckDB view. The file needs the columns time, instrument, open, high, low,
// close and volume.
type DuckDBSource struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory database and maps path onto the bars view.
func NewDuckDBSource(path string, log *logger.Logger) (*DuckDBSource, error) {
	reader, err := readerFor(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to open duckdb", err)
	}

	// Raw SQL since squirrel has no CREATE VIEW builder
	query := fmt.Sprintf(`CREATE VIEW bars AS SELECT * FROM %s('%s');`, reader, strings.ReplaceAll(path, "'", "''"))
	if _, err := db.Exec(query); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeDataSourceFailed, err, "failed to load bars from %s", path)
	}

	log.Debug("Bar source initialized",
		zap.String("path", path),
		zap.String("reader", reader),
	)

	return &DuckDBSource{
		db:     db,
		path:   path,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "read_csv_auto", nil
	case ".parquet":
		return "read_parquet", nil
	default:
		return "", errors.Newf(errors.ErrCodeDataSourceFailed, "unsupported bar file %s: expected .csv or .parquet", path)
	}
}

func withBounds(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return query
}

// Count implements Source.
func (d *DuckDBSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := withBounds(d.sq.Select("COUNT(*)").From("bars"), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements Source. Prices are read as text so that tick prices keep
// their exact decimal value.
func (d *DuckDBSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		query, args, err := withBounds(d.sq.Select(
			"time",
			"CAST(instrument AS VARCHAR)",
			"CAST(open AS VARCHAR)",
			"CAST(high AS VARCHAR)",
			"CAST(low AS VARCHAR)",
			"CAST(close AS VARCHAR)",
			"CAST(volume AS DOUBLE)",
		).From("bars"), start, end).OrderBy("time ASC", "UPPER(instrument) ASC").ToSql()
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to build bar query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				timestamp              time.Time
				instrument             string
				open, high, low, close string
				volume                 float64
			)

			if err := rows.Scan(&timestamp, &instrument, &open, &high, &low, &close, &volume); err != nil {
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to scan bar", err))

				return
			}

			md, err := parseBar(instrument, timestamp, open, high, low, close, volume)
			if !yield(md, err) || err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to iterate bars", err))
		}
	}
}

// Close implements Source.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}

func parseBar(instrument string, t time.Time, open, high, low, close string, volume float64) (types.MarketData, error) {
	prices := make([]decimal.Decimal, 0, 4)

	for _, raw := range []string{open, high, low, close} {
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return types.MarketData{}, errors.Wrapf(errors.ErrCodeDataSourceFailed, err, "invalid price %q for %s at %s", raw, instrument, t)
		}

		prices = append(prices, price)
	}

	return types.MarketData{
		Instrument: strings.ToUpper(strings.TrimSpace(instrument)),
		Time:       t.UTC(),
		Open:       prices[0],
		High:       prices[1],
		Low:        prices[2],
		Close:      prices[3],
		Volume:     volume,
	}, nil
}

// MemorySource replays bars held in memory. Bars are assumed to be in time order.
type MemorySource struct {
	bars []types.MarketData
}

func NewMemorySource(bars []types.MarketData) *MemorySource {
	return &MemorySource{bars: bars}
}

func inBounds(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}

// Count implements Source.
func (m *MemorySource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range m.bars {
		if inBounds(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// ReadAll implements Source.
func (m *MemorySource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		for _, bar := range m.bars {
			if !inBounds(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Close implements Source.
func (m *MemorySource) Close() error {
	return nil
}
