package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresStoresRejectsEmptyDSN(t *testing.T) {
	_, err := NewPostgresStores("  ")
	assert.Error(t, err)
}

func TestPostgresEnsureReadyCachesOpenError(t *testing.T) {
	openErr := errors.New("boom")
	calls := 0
	p := &PostgresStores{
		dsn: "postgres://localhost/db",
		openDB: func(driver, dsn string) (*sql.DB, error) {
			calls++
			return nil, openErr
		},
	}

	err := p.ensureReady()
	require.ErrorIs(t, err, ErrUnavailable)
	// Second call does not retry the open; the error is remembered.
	require.ErrorIs(t, p.ensureReady(), ErrUnavailable)
	assert.Equal(t, 1, calls)
}

func TestPostgresCloseWithoutConnect(t *testing.T) {
	p, err := NewPostgresStores("postgres://localhost/db")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
