// Package mock contains test doubles shared by the repository and handler tests.
package mock

import (
	"context"
	"database/sql"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// Connection implements database.Connection over sqlmock, so repositories run against
// scripted rows instead of a live Postgres instance. The SQLMock field is exported for
// the tests to register their expected queries on.
type Connection struct {
	db      *sql.DB
	SQLMock sqlmock.Sqlmock
}

func (m Connection) CreateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := 5 * time.Second
	return context.WithTimeout(ctx, timeout)
}

func (m Connection) DB() *sql.DB {
	return m.db
}

func (m Connection) Close() {
	_ = m.DB().Close()
}

// MustCreateConnectionMock creates a new mocked Connection and if any error occurs, will panic.
func MustCreateConnectionMock() Connection {
	db, mock, err := sqlmock.New()
	if err != nil {
		panic(err)
	}
	return Connection{
		db:      db,
		SQLMock: mock,
	}
}

// DBResultOption registers one expected query with its scripted result on the given
// connection. Each test composes the options matching the calls its scenario performs.
type DBResultOption func(dbConn Connection)

// MockDBResults applies the given options in order; expectations are matched in the
// same order by sqlmock.
func MockDBResults(dbConn Connection, opts ...DBResultOption) {
	for _, opt := range opts {
		opt(dbConn)
	}
}
