package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Client is a database/sql connection to MySQL, SQLite or SQL Server.
type Client struct {
	db *sql.DB
}

func openClient(ctx context.Context, driver, dsn string) (*Client, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(2)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// NewMySQLClient connects to MySQL or MariaDB using a go-sql-driver DSN.
func NewMySQLClient(ctx context.Context, dsn string) (*Client, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL connection string: %w", err)
	}
	return openClient(ctx, "mysql", cfg.FormatDSN())
}

// NewSQLiteClient opens the SQLite database file at path.
func NewSQLiteClient(ctx context.Context, path string) (*Client, error) {
	return openClient(ctx, "sqlite3", path)
}

// NewSQLServerClient connects to SQL Server with a sqlserver:// URL or an
// ADO-style connection string.
func NewSQLServerClient(ctx context.Context, connString string) (*Client, error) {
	if _, err := msdsn.Parse(connString); err != nil {
		return nil, fmt.Errorf("invalid sqlserver connection string: %w", err)
	}
	return openClient(ctx, "sqlserver", connString)
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB returns the underlying database handle.
func (c *Client) DB() *sql.DB {
	return c.db
}
