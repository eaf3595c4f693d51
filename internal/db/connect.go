package db

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Source selects the live database to introspect. Exactly one connection
// field must be set.
type Source struct {
	PostgresURL  string
	MySQLURL     string
	SQLitePath   string
	SQLServerURL string
	// Schema is the database schema to read. Empty means the engine default:
	// public for PostgreSQL, dbo for SQL Server and the DSN database for MySQL.
	Schema string
}

// Connect opens the database described by src and returns its extractor
// together with a function that closes the connection.
func Connect(ctx context.Context, src Source) (Extractor, func() error, error) {
	count := 0
	for _, s := range []string{src.PostgresURL, src.MySQLURL, src.SQLitePath, src.SQLServerURL} {
		if s != "" {
			count++
		}
	}
	if count == 0 {
		return nil, nil, fmt.Errorf("one of --db-url, --mysql-url, --sqlite or --sqlserver-url must be specified")
	}
	if count > 1 {
		return nil, nil, fmt.Errorf("only one of --db-url, --mysql-url, --sqlite or --sqlserver-url can be specified")
	}

	switch {
	case src.SQLitePath != "":
		client, err := NewSQLiteClient(ctx, src.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		return NewSQLiteExtractor(client), client.Close, nil

	case src.MySQLURL != "":
		schemaName := src.Schema
		if schemaName == "" {
			cfg, err := mysql.ParseDSN(src.MySQLURL)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid MySQL connection string: %w", err)
			}
			schemaName = cfg.DBName
		}
		client, err := NewMySQLClient(ctx, src.MySQLURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		return NewMySQLExtractor(client, schemaName), client.Close, nil

	case src.SQLServerURL != "":
		schemaName := src.Schema
		if schemaName == "" {
			schemaName = "dbo"
		}
		client, err := NewSQLServerClient(ctx, src.SQLServerURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to SQL Server: %w", err)
		}
		return NewSQLServerExtractor(client, schemaName), client.Close, nil

	default:
		schemaName := src.Schema
		if schemaName == "" {
			schemaName = "public"
		}
		client, err := NewPostgresClient(ctx, src.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return NewPostgresExtractor(client, schemaName), client.Close, nil
	}
}
