package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientInvalidConnectionStrings(t *testing.T) {
	ctx := context.Background()

	_, err := NewMySQLClient(ctx, "localhost:3306")
	assert.ErrorContains(t, err, "invalid MySQL connection string")

	_, err = NewSQLServerClient(ctx, "sqlserver://%zz")
	assert.ErrorContains(t, err, "invalid sqlserver connection string")

	_, err = NewPostgresClient(ctx, "postgres://%zz")
	assert.ErrorContains(t, err, "invalid PostgreSQL connection string")
}

func TestConnectSQLite(t *testing.T) {
	ctx := context.Background()

	_, _, err := Connect(ctx, Source{})
	assert.Error(t, err)

	_, _, err = Connect(ctx, Source{SQLitePath: "a.db", PostgresURL: "postgres://localhost/db"})
	assert.ErrorContains(t, err, "only one of")

	extractor, closeFn, err := Connect(ctx, Source{SQLitePath: filepath.Join(t.TempDir(), "empty.db")})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	m, err := extractor.ExtractSchema(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, m.Tables)
}
