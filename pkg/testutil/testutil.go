// Package testutil provides helpers shared by tabula's tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// TestLogger installs a logger that writes to the test output as the
// global logger and restores the previous one when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	prev := logger.Get()
	l := zaptest.NewLogger(t)
	logger.SetLogger(l)
	t.Cleanup(func() { logger.SetLogger(prev) })
	return l
}

// TestContext returns a context that is cancelled after 30 seconds or when
// the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Table builds a table from column names and one slice of cells per row.
func Table(t *testing.T, names []string, rows ...[]string) *table.Table {
	t.Helper()
	b := table.NewBuilder(names...)
	for _, row := range rows {
		require.NoError(t, b.AddRow(row...))
	}
	return b.Build()
}

// Cells returns the values of column name in row order.
func Cells(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	col, err := tbl.Column(name)
	require.NoError(t, err)
	return col.Strings()
}

// WriteFile writes content to name under dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
