// Package sqlsource materializes the result of a SQL query as a table.
//
// PostgreSQL queries run on a pgx connection pool. Every other driver goes
// through database/sql; the mysql and snowflake drivers are registered by
// this package. Columns keep the result's column names, NULL becomes the
// empty string, and other values use their natural text form.
package sqlsource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/pool"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// FormatName labels rows loaded by this package.
const FormatName = "sql"

// MaxConnsLimit is the largest accepted Config.MaxConns.
const MaxConnsLimit = 1024

// Config describes one query.
type Config struct {
	// Driver is postgres, mysql, snowflake or any registered database/sql
	// driver name.
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" json:"dsn" mapstructure:"dsn"`
	Query  string `yaml:"query" json:"query" mapstructure:"query"`
	// Args are bound to the query's placeholders.
	Args []interface{} `yaml:"args" json:"args" mapstructure:"args"`
	// MaxConns caps the pool; 0 uses 4. It may not exceed MaxConnsLimit.
	MaxConns int `yaml:"max_conns" json:"max_conns" mapstructure:"max_conns"`
	// Timeout bounds the whole query; 0 means no limit beyond ctx.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// Validate checks that the query can be attempted.
func (c Config) Validate() error {
	switch {
	case c.Driver == "":
		return errors.New(errors.ErrorTypeValidation, "sql source: driver is required")
	case c.DSN == "":
		return errors.New(errors.ErrorTypeValidation, "sql source: dsn is required")
	case strings.TrimSpace(c.Query) == "":
		return errors.New(errors.ErrorTypeValidation, "sql source: query is required")
	case c.MaxConns > MaxConnsLimit:
		return errors.Newf(errors.ErrorTypeValidation, "sql source: max_conns must not exceed %d", MaxConnsLimit)
	}
	return nil
}

func isPostgres(driver string) bool {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return true
	}
	return false
}

// Query runs cfg.Query and returns its result set.
func Query(ctx context.Context, cfg Config) (*table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}

	start := time.Now()
	var (
		t   *table.Table
		err error
	)
	if isPostgres(cfg.Driver) {
		t, err = queryPostgres(ctx, cfg)
	} else {
		t, err = queryDatabaseSQL(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("sql query loaded",
		zap.String("driver", cfg.Driver),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", t.ColumnCount()),
		zap.Duration("duration", time.Since(start)))
	return t, nil
}

func queryPostgres(ctx context.Context, cfg Config) (*table.Table, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse connection string")
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)

	p, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
	}
	defer p.Close()

	rows, err := p.Query(ctx, cfg.Query, cfg.Args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to run query")
	}
	return FromPgxRows(rows)
}

func queryDatabaseSQL(ctx context.Context, cfg Config) (*table.Table, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MaxConns)

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to database")
	}
	rows, err := db.QueryContext(ctx, cfg.Query, cfg.Args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to run query")
	}
	return FromRows(rows)
}

// FromRows drains rows into a table and closes them.
func FromRows(rows *sql.Rows) (*table.Table, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read result columns")
	}
	vals := make([]interface{}, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	acc := newAccumulator(names)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan row")
		}
		if err := acc.add(vals); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to iterate rows")
	}
	return acc.build(), nil
}

// PgxRows is the part of pgx.Rows that FromPgxRows reads.
type PgxRows interface {
	FieldDescriptions() []pgconn.FieldDescription
	Next() bool
	Values() ([]interface{}, error)
	Err() error
	Close()
}

// FromPgxRows drains rows into a table and closes them.
func FromPgxRows(rows PgxRows) (*table.Table, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	acc := newAccumulator(names)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to get row values")
		}
		if err := acc.add(vals); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to iterate rows")
	}
	return acc.build(), nil
}

type accumulator struct {
	b      *table.Builder
	row    []columnar.Value
	intern *pool.StringInternPool
}

func newAccumulator(names []string) *accumulator {
	return &accumulator{
		b:      table.NewBuilder(names...),
		row:    make([]columnar.Value, len(names)),
		intern: pool.NewStringInternPool(pool.DefaultInternLimit),
	}
}

func (a *accumulator) add(vals []interface{}) error {
	if len(vals) != len(a.row) {
		return errors.ColumnCountMismatch(len(a.row), len(vals))
	}
	for i, v := range vals {
		a.row[i] = columnar.Value(a.intern.Intern(CellString(v)))
	}
	return a.b.AddValues(a.row)
}

func (a *accumulator) build() *table.Table {
	metrics.RowsLoaded.WithLabelValues(FormatName).Add(float64(a.b.Len()))
	return a.b.Build()
}

// CellString converts a driver value to a cell.
func CellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case [16]byte:
		return uuid.UUID(x).String()
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		if _, again := inner.(driver.Valuer); again {
			return fmt.Sprint(inner)
		}
		return CellString(inner)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
