package drivers

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"query-gateway/internal/utils"
)

// SQLConnection adapts a database/sql handle limited to a single physical
// connection. It is released exactly once no matter how often Close is called.
type SQLConnection struct {
	db        *sql.DB
	dialect   Dialect
	closeOnce sync.Once
	closeErr  error
}

// NewSQLConnection wraps an already opened handle.
func NewSQLConnection(db *sql.DB, dialect Dialect) *SQLConnection {
	return &SQLConnection{db: db, dialect: dialect}
}

// OpenSQL opens driverName with dsn, restricts it to one connection and
// performs the handshake. target names the server in error messages.
func OpenSQL(ctx context.Context, driverName, dsn, target string, timeout time.Duration, dialect Dialect) (*SQLConnection, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, utils.NewConnectionError(target, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn := NewSQLConnection(db, dialect)

	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, utils.NewConnectionError(target, err)
	}
	return conn, nil
}

// Dialect returns the dialect statements are rewritten for.
func (c *SQLConnection) Dialect() Dialect {
	return c.dialect
}

func (c *SQLConnection) Query(ctx context.Context, query string, params []interface{}) ([]Row, error) {
	native, args, err := c.dialect.RewriteParams(query, params)
	if err != nil {
		return nil, utils.NewQueryError(query, err)
	}

	rows, err := c.db.QueryContext(ctx, native, args...)
	if err != nil {
		return nil, utils.NewQueryError(query, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, utils.NewQueryError(query, err)
	}
	return result, nil
}

func (c *SQLConnection) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return utils.NewConnectionError(string(c.dialect.Name()), err)
	}
	return nil
}

func (c *SQLConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]Row, 0)
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			// Text and decimal columns arrive as []byte
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
