// Package duckdb runs generated SQL against an in-process DuckDB database
// with one view per catalog table over its parquet files.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/warehouse"
)

// defaultRowCap bounds result size when the query carries no LIMIT of its own.
const defaultRowCap = 10

type Config struct {
	DataDir             string
	RequireTenantFilter bool
	QueryTimeout        time.Duration
}

type Engine struct {
	dataDir             string
	requireTenantFilter bool
	queryTimeout        time.Duration
	tables              []string
	logger              *slog.Logger

	// openDB is swapped out in tests.
	openDB func() (*sql.DB, error)
}

func NewEngine(cfg Config, tables []string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		dataDir:             cfg.DataDir,
		requireTenantFilter: cfg.RequireTenantFilter,
		queryTimeout:        cfg.QueryTimeout,
		tables:              tables,
		logger:              logger,
		openDB: func() (*sql.DB, error) {
			return sql.Open("duckdb", "")
		},
	}
}

func (e *Engine) Execute(ctx context.Context, sqlText, tenantID string) (warehouse.Result, error) {
	if strings.TrimSpace(e.dataDir) == "" {
		return warehouse.Result{}, &warehouse.ConfigurationError{
			Detail: "QUERYCHAT_WAREHOUSE_DATA_DIR not set. Please check environment variables.",
		}
	}
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return warehouse.Result{}, &warehouse.ExecutionError{Detail: "empty SQL statement"}
	}

	boundSQL, args := bindTenantPlaceholder(sqlText, tenantID)
	if len(args) == 0 {
		if e.requireTenantFilter {
			e.logger.WarnContext(ctx, "rejecting query without organization filter", "sql", sqlText)
			return warehouse.Result{}, &warehouse.TenantFilterError{SQL: sqlText}
		}
		e.logger.WarnContext(ctx, "query has no organization filter placeholder, executing as is", "sql", sqlText)
	}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.run(ctx, boundSQL, args)
	observability.ObserveWarehouseQuery(err == nil, time.Since(start))
	if err != nil {
		return warehouse.Result{}, err
	}

	if !strings.Contains(strings.ToLower(sqlText), "limit") && len(result.Rows) > defaultRowCap {
		e.logger.InfoContext(ctx, "truncating unbounded result", "rows", len(result.Rows), "cap", defaultRowCap)
		result.Rows = result.Rows[:defaultRowCap]
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, boundSQL string, args []any) (warehouse.Result, error) {
	db, err := e.openDB()
	if err != nil {
		return warehouse.Result{}, &warehouse.ExecutionError{Detail: fmt.Sprintf("open warehouse database: %v", err)}
	}
	defer func() { _ = db.Close() }()

	if err := e.createViews(ctx, db); err != nil {
		return warehouse.Result{}, err
	}

	rows, err := db.QueryContext(ctx, boundSQL, args...)
	if err != nil {
		return warehouse.Result{}, classifyQueryError(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return warehouse.Result{}, &warehouse.UnexpectedError{Detail: err.Error()}
	}

	resultRows := make([]warehouse.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return warehouse.Result{}, &warehouse.UnexpectedError{Detail: err.Error()}
		}
		row := make(warehouse.Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return warehouse.Result{}, &warehouse.UnexpectedError{Detail: err.Error()}
	}

	return warehouse.Result{Columns: columns, Rows: resultRows}, nil
}

// createViews exposes each catalog table whose parquet files exist on
// disk. Tables without files are skipped so a partially seeded data
// directory still works.
func (e *Engine) createViews(ctx context.Context, db *sql.DB) error {
	for _, table := range e.tables {
		pattern := filepath.Join(e.dataDir, table, "*.parquet")
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		viewSQL := fmt.Sprintf(
			`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`,
			quoteIdent(table), quoteString(pattern),
		)
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return &warehouse.ExecutionError{Detail: fmt.Sprintf("create view for table %q: %v", table, err)}
		}
	}
	return nil
}

// bindTenantPlaceholder swaps every occurrence of the tenant placeholder
// for a driver placeholder and returns one bound argument per occurrence.
// Models quote the placeholder as a string literal, so the quoted form is
// replaced first or the driver would receive a literal '?'. The tenant id
// itself never appears in the SQL text.
func bindTenantPlaceholder(sqlText, tenantID string) (string, []any) {
	quoted := "'" + warehouse.TenantPlaceholder + "'"
	count := strings.Count(sqlText, quoted)
	bound := strings.ReplaceAll(sqlText, quoted, "?")
	count += strings.Count(bound, warehouse.TenantPlaceholder)
	bound = strings.ReplaceAll(bound, warehouse.TenantPlaceholder, "?")
	if count == 0 {
		return sqlText, nil
	}
	args := make([]any, count)
	for i := range args {
		args[i] = tenantID
	}
	return bound, args
}

func classifyQueryError(err error) error {
	detail := err.Error()
	if strings.Contains(strings.ToLower(detail), "syntax") {
		return &warehouse.SyntaxError{Detail: detail}
	}
	return &warehouse.ExecutionError{Detail: detail}
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
