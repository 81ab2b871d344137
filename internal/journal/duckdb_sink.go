package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

const (
	tableDecisions  = "decisions"
	tableOrders     = "orders"
	tableFills      = "fills"
	tableRiskEvents = "risk_events"
)

var journalTables = []string{tableDecisions, tableOrders, tableFills, tableRiskEvents}

// DuckDBSink keeps the journal in an in-memory DuckDB database and exports one
// parquet file per table on Flush and Close.
type DuckDBSink struct {
	db        *sql.DB
	outputDir string
	sq        squirrel.StatementBuilderType
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewDuckDBSink creates the journal tables. outputDir receives the parquet files.
func NewDuckDBSink(outputDir string, log *logger.Logger) (*DuckDBSink, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to create journal directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to open DuckDB connection", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to connect to DuckDB", err)
	}

	sink := &DuckDBSink{
		db:        db,
		outputDir: outputDir,
		sq:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger:    log,
	}

	if err := sink.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return sink, nil
}

func (d *DuckDBSink) initialize() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			time TIMESTAMPTZ,
			strategy_id TEXT,
			instrument TEXT,
			direction TEXT,
			accepted BOOLEAN,
			bracket_id TEXT,
			reason TEXT,
			message TEXT
		);
		CREATE TABLE IF NOT EXISTS orders (
			time TIMESTAMPTZ,
			bracket_id TEXT,
			instrument TEXT,
			direction TEXT,
			state TEXT,
			reason TEXT,
			quantity INTEGER,
			entry_price DOUBLE,
			strategy_id TEXT
		);
		CREATE TABLE IF NOT EXISTS fills (
			fill_id TEXT,
			time TIMESTAMPTZ,
			bracket_id TEXT,
			leg_id TEXT,
			instrument TEXT,
			role TEXT,
			side TEXT,
			quantity INTEGER,
			price DOUBLE,
			commission DOUBLE
		);
		CREATE TABLE IF NOT EXISTS risk_events (
			time TIMESTAMPTZ,
			type TEXT,
			order_id TEXT,
			reason TEXT,
			daily_realized_pnl DOUBLE,
			daily_unrealized_pnl DOUBLE,
			current_drawdown DOUBLE,
			trade_count INTEGER,
			kill_switch_engaged BOOLEAN,
			halted BOOLEAN
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalInitFailed, "failed to create journal tables", err)
	}

	return nil
}

// Record inserts the event. Failures are logged and never returned.
func (d *DuckDBSink) Record(event types.JournalEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return
	}

	query, ok := d.insertFor(event)
	if !ok {
		return
	}

	if _, err := query.RunWith(d.db).Exec(); err != nil {
		d.logger.Error("Failed to write journal event",
			zap.String("kind", string(event.Kind())),
			zap.Error(err),
		)
	}
}

func (d *DuckDBSink) insertFor(event types.JournalEvent) (squirrel.InsertBuilder, bool) {
	switch e := event.(type) {
	case types.DecisionEvent:
		return d.sq.Insert(tableDecisions).
			Columns("time", "strategy_id", "instrument", "direction", "accepted", "bracket_id", "reason", "message").
			Values(e.Time, e.StrategyID, e.Instrument, string(e.Direction), e.Accepted, e.BracketID, e.Reason, e.Message), true
	case types.OrderEvent:
		return d.sq.Insert(tableOrders).
			Columns("time", "bracket_id", "instrument", "direction", "state", "reason", "quantity", "entry_price", "strategy_id").
			Values(e.Time, e.BracketID, e.Instrument, string(e.Direction), e.State, e.Reason, e.Quantity,
				e.EntryPrice.InexactFloat64(), e.StrategyID), true
	case types.FillEvent:
		return d.sq.Insert(tableFills).
			Columns("fill_id", "time", "bracket_id", "leg_id", "instrument", "role", "side", "quantity", "price", "commission").
			Values(e.FillID, e.Time, e.BracketID, e.LegID, e.Instrument, string(e.Role), string(e.Side), e.Quantity,
				e.Price.InexactFloat64(), e.Commission.InexactFloat64()), true
	case types.RiskEvent:
		return d.sq.Insert(tableRiskEvents).
			Columns("time", "type", "order_id", "reason", "daily_realized_pnl", "daily_unrealized_pnl",
				"current_drawdown", "trade_count", "kill_switch_engaged", "halted").
			Values(e.Time, string(e.Type), e.OrderID, e.Reason, e.State.DailyRealizedPnL.InexactFloat64(),
				e.State.DailyUnrealizedPnL.InexactFloat64(), e.State.CurrentDrawdown.InexactFloat64(),
				e.State.TradeCountToday, e.State.KillSwitchEngaged, e.State.Halted), true
	default:
		return squirrel.InsertBuilder{}, false
	}
}

// Count returns the number of rows in a journal table.
func (d *DuckDBSink) Count(table string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return 0, errors.New(errors.ErrCodeJournalWriteFailed, "journal is closed")
	}

	var count int

	err := d.sq.Select("COUNT(*)").From(table).RunWith(d.db).QueryRow().Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "failed to count %s", table)
	}

	return count, nil
}

// Flush exports every table to <outputDir>/<table>.parquet.
func (d *DuckDBSink) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.exportToParquet()
}

// Close flushes and releases the database.
func (d *DuckDBSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	exportErr := d.exportToParquet()

	if err := d.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to close journal database", err)
	}

	d.db = nil

	return exportErr
}

// OutputPath returns the parquet path of a table.
func (d *DuckDBSink) OutputPath(table string) string {
	return filepath.Join(d.outputDir, table+".parquet")
}

func (d *DuckDBSink) exportToParquet() error {
	if d.db == nil {
		return errors.New(errors.ErrCodeJournalWriteFailed, "journal is closed")
	}

	for _, table := range journalTables {
		// COPY has no squirrel builder
		_, err := d.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY time ASC) TO '%s' (FORMAT PARQUET)`,
			table, d.OutputPath(table)))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "failed to export %s to parquet", table)
		}
	}

	return nil
}
