package query

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unicornlens/server/internal/agent/model"
	errx "github.com/unicornlens/server/internal/core/error"
)

// undefinedTable is the postgres error code raised when a referenced
// relation does not exist.
const undefinedTable = "42P01"

// defaultQueryTimeout bounds execution when the config carries no usable
// timeout.
const defaultQueryTimeout = 30 * time.Second

// Rows is the subset of pgx.Rows the gateway reads.
type Rows interface {
	FieldDescriptions() []pgconn.FieldDescription
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Conn is a pooled connection scoped to one statement.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Release()
}

// Pool hands out connections. *pgxpool.Pool is adapted to it via NewGateway.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Column describes one result column with its postgres type OID.
type Column struct {
	Name       string `json:"name"`
	DataTypeID uint32 `json:"dataTypeID"`
}

// Result is a fully materialized query result.
type Result struct {
	Columns []Column         `json:"fields"`
	Rows    []map[string]any `json:"rows"`
}

// Gateway executes screened statements against the dataset with a bounded
// execution time. It does not screen: callers pass statements through
// Screen first.
type Gateway struct {
	pool    Pool
	timeout time.Duration
}

func NewGateway(pool *pgxpool.Pool, cfg model.QueryConfig) *Gateway {
	return newGateway(&pgxPoolAdapter{pool: pool}, cfg)
}

func newGateway(pool Pool, cfg model.QueryConfig) *Gateway {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Gateway{
		pool:    pool,
		timeout: timeout,
	}
}

// Execute runs one statement and materializes every row. The connection is
// released on all paths.
func (g *Gateway) Execute(ctx context.Context, sql string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, errx.ExecutionFailed(err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	columns := make([]Column, len(descs))
	for i, d := range descs {
		columns[i] = Column{Name: d.Name, DataTypeID: d.DataTypeOID}
	}

	result := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, classifyQueryError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col.Name] = normalizeValue(values[i], col.DataTypeID)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}

	return result, nil
}

func classifyQueryError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return errx.SchemaMissing(err)
	}
	return errx.ExecutionFailed(err)
}

type pgxPoolAdapter struct {
	pool *pgxpool.Pool
}

func (p *pgxPoolAdapter) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConnAdapter{conn: conn}, nil
}

type pgxConnAdapter struct {
	conn *pgxpool.Conn
}

func (c *pgxConnAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *pgxConnAdapter) Release() {
	c.conn.Release()
}

// normalizeValue converts driver types into plain JSON-friendly values:
// numerics become float64, dates and timestamps become strings, uuids
// become their text form.
func normalizeValue(v any, dataTypeID uint32) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		if dataTypeID == pgtype.DateOID {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return v
	}
}
