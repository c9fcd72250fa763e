// Package explain turns query results and SQL text into natural language
// summaries for non-technical readers.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querychat/querychat/internal/llm"
	"github.com/querychat/querychat/internal/warehouse"
)

// resultSampleLimit caps how many rows are shown to the model; enough to
// describe the shape of the data without blowing the prompt up.
const resultSampleLimit = 3

const noDataMarker = "No data returned."

type Config struct {
	MaxOutputTokens int
	// ResultsTemperature and SQLTemperature select how creative the model
	// is allowed to be per explanation kind. Zero picks the defaults.
	ResultsTemperature float64
	SQLTemperature     float64
}

type Explainer struct {
	client      llm.Client
	logger      *slog.Logger
	maxTokens   int
	resultsTemp float64
	sqlTemp     float64
}

func NewExplainer(client llm.Client, cfg Config, logger *slog.Logger) *Explainer {
	if logger == nil {
		logger = slog.Default()
	}
	resultsTemp := cfg.ResultsTemperature
	if resultsTemp <= 0 {
		resultsTemp = 0.7
	}
	sqlTemp := cfg.SQLTemperature
	if sqlTemp <= 0 {
		sqlTemp = 0.3
	}
	return &Explainer{
		client:      client,
		logger:      logger,
		maxTokens:   cfg.MaxOutputTokens,
		resultsTemp: resultsTemp,
		sqlTemp:     sqlTemp,
	}
}

// ExplainResults summarizes what the returned rows say about the user's
// question. Callers may pass nil rows when execution failed; the prompt
// then states explicitly that no data came back.
func (e *Explainer) ExplainResults(ctx context.Context, question, sqlText string, rows []warehouse.Row) (string, error) {
	sample := noDataMarker
	if len(rows) > 0 {
		shown := rows
		if len(shown) > resultSampleLimit {
			shown = shown[:resultSampleLimit]
		}
		encoded, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode result sample: %w", err)
		}
		sample = string(encoded)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User's question: %q\n", question)
	fmt.Fprintf(&b, "SQL query used: \"```sql\n%s\n```\"\n", sqlText)
	b.WriteString("Data returned from the warehouse (sample):\n")
	b.WriteString(sample)
	b.WriteString("\n\n")
	b.WriteString("Based on this information, please provide a concise natural language explanation of the data in relation to the user's question.\n")
	b.WriteString("If no data was returned (indicated by \"No data returned.\" or an empty list in the sample), please state that clearly.\n")
	b.WriteString("Keep the explanation friendly and easy to understand for a non-technical user.\n")
	b.WriteString("Avoid simply restating the query or the data verbatim; interpret it.\n")

	explanation, err := e.client.Complete(ctx, "You explain analytical query results in plain language.", b.String(), llm.Options{
		Temperature:     e.resultsTemp,
		MaxOutputTokens: e.maxTokens,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to generate result explanation", "error", err)
		return "", fmt.Errorf("generate result explanation: %w", err)
	}
	return strings.TrimSpace(explanation), nil
}

// ExplainSQL describes the structure of a SQL statement without running
// it. No retrieval, no execution.
func (e *Explainer) ExplainSQL(ctx context.Context, sqlText string) (string, error) {
	var b strings.Builder
	b.WriteString("Please explain the following SQL query in detail. Describe its purpose and what each major part of the query does (e.g., SELECT, FROM, WHERE, GROUP BY, JOINs, subqueries).\n")
	b.WriteString("The explanation should be in natural language and easy for someone with basic SQL knowledge to understand.\n\n")
	fmt.Fprintf(&b, "SQL Query:\n```sql\n%s\n```\n\nExplanation:\n", sqlText)

	explanation, err := e.client.Complete(ctx, "You explain SQL queries to readers with basic SQL knowledge.", b.String(), llm.Options{
		Temperature:     e.sqlTemp,
		MaxOutputTokens: e.maxTokens,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to generate SQL explanation", "error", err)
		return "", fmt.Errorf("generate SQL explanation: %w", err)
	}
	return strings.TrimSpace(explanation), nil
}
