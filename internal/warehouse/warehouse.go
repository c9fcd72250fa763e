// Package warehouse defines the analytical query surface the chat
// orchestrator executes generated SQL against.
package warehouse

import (
	"context"
	"fmt"
)

// TenantPlaceholder is the token the SQL synthesizer leaves in generated
// queries. The executor replaces each occurrence with a driver placeholder
// and binds the tenant id as an argument.
const TenantPlaceholder = "{organization_id}"

// Row is one result record keyed by column name.
type Row map[string]any

// Result carries rows plus the column order of the statement. Rows alone
// cannot preserve order because Go maps do not.
type Result struct {
	Columns []string
	Rows    []Row
}

// Executor runs a tenant-scoped SQL statement and returns its rows.
type Executor interface {
	Execute(ctx context.Context, sqlText, tenantID string) (Result, error)
}

// ConfigurationError reports that the executor cannot run at all because
// its own setup is incomplete. Distinct from query errors so callers can
// surface the configuration message verbatim.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("Configuration error: %s", e.Detail)
}

// SyntaxError reports that the warehouse rejected the generated statement
// as malformed.
type SyntaxError struct {
	Detail string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SQL Syntax error in the generated query: %s", e.Detail)
}

// ExecutionError covers warehouse-side failures of a well-formed query,
// missing tables included.
type ExecutionError struct {
	Detail string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Error executing warehouse query: %s", e.Detail)
}

// UnexpectedError wraps failures outside the warehouse's own error
// vocabulary, scan and iteration faults mostly.
type UnexpectedError struct {
	Detail string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("An unexpected error occurred while processing your request: %s", e.Detail)
}

// TenantFilterError reports that a query without the tenant placeholder
// was rejected by policy.
type TenantFilterError struct {
	SQL string
}

func (e *TenantFilterError) Error() string {
	return "generated query is missing the mandatory organization filter"
}
