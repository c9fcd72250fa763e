// Package nl2sql turns natural language questions into tenant-scoped SQL
// using schema context retrieved from the vector store.
package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querychat/querychat/internal/llm"
	"github.com/querychat/querychat/internal/observability"
)

const fallbackContext = "No specific schema context found. Please rely on general knowledge of common table structures if possible."

const systemPrompt = "You are an AI that generates SQL queries for an analytical warehouse based on user questions. " +
	"Your task is to create accurate, safe SQL queries using the provided relevant schema context."

// Retriever supplies schema snippets relevant to a question.
type Retriever interface {
	Query(ctx context.Context, question string, k int) []string
}

type Config struct {
	TopK            int
	MaxOutputTokens int
	Temperature     float64
}

type Synthesizer struct {
	retriever   Retriever
	client      llm.Client
	topK        int
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func NewSynthesizer(retriever Retriever, client llm.Client, cfg Config, logger *slog.Logger) *Synthesizer {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 7
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		retriever:   retriever,
		client:      client,
		topK:        topK,
		maxTokens:   cfg.MaxOutputTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Synthesize produces a single SELECT statement for the question. The
// returned SQL carries the {organization_id} placeholder for the executor
// to bind; it is never interpolated here.
func (s *Synthesizer) Synthesize(ctx context.Context, question, tenantID string) (string, error) {
	snippets := s.retriever.Query(ctx, question, s.topK)
	schemaContext := fallbackContext
	if len(snippets) > 0 {
		schemaContext = strings.Join(snippets, "\n")
	} else {
		s.logger.WarnContext(ctx, "no schema context retrieved, falling back to generic prompt context")
	}

	prompt := buildPrompt(question, schemaContext, tenantID)
	raw, err := s.client.Complete(ctx, systemPrompt, prompt, llm.Options{
		Temperature:     s.temperature,
		MaxOutputTokens: s.maxTokens,
	})
	if err != nil {
		observability.ObserveSQLSynthesis(false)
		return "", fmt.Errorf("complete SQL prompt: %w", err)
	}

	sql := stripMarkdownSQL(raw)
	if !strings.HasPrefix(strings.ToLower(sql), "select") {
		observability.ObserveSQLSynthesis(false)
		s.logger.WarnContext(ctx, "model response is not a SELECT query", "response", sql)
		return "", fmt.Errorf("model response is not a SELECT query")
	}

	observability.ObserveSQLSynthesis(true)
	s.logger.InfoContext(ctx, "synthesized SQL query", "sql", sql)
	return sql, nil
}

func buildPrompt(question, schemaContext, tenantID string) string {
	var b strings.Builder
	b.WriteString("Follow these rules:\n")
	b.WriteString("1. Generate only SELECT queries.\n")
	b.WriteString("2. **Crucial:** Always include a condition like \"WHERE organization_id = '{organization_id}'\" in your SQL queries to filter data for the user's organization. Keep the {organization_id} placeholder literally; it is bound later.\n")
	b.WriteString("3. Use standard analytical SQL syntax.\n")
	b.WriteString("4. Return only the SQL query as a raw string, no explanations or additional text like \"```sql\\n...\\n```\".\n")
	b.WriteString("5. If the question is unclear, generate a query that best matches the intent based on the schema.\n")
	b.WriteString("6. Ensure proper spacing in aliases (e.g., 'COUNT(*) as count', not 'COUNT(*)as count').\n")
	b.WriteString("7. Use the table names mentioned in the schema context (e.g., mrt_events).\n\n")

	b.WriteString("Relevant Schema Context from Vector Database:\n")
	b.WriteString(schemaContext)
	b.WriteString("\n\n")

	b.WriteString("Examples (use these as a style guide, but rely on the provided Relevant Schema Context for actual table/column names):\n")
	b.WriteString("Question: \"How many attendees are doctors in my organization?\"\n")
	b.WriteString("SQL: SELECT COUNT(*) as count FROM mrt_events WHERE profession = 'Doctor' AND organization_id = '{organization_id}'\n\n")
	b.WriteString("Question: \"What is the distribution of attendees by profession for my organization?\"\n")
	b.WriteString("SQL: SELECT profession, COUNT(*) as count FROM mrt_events WHERE organization_id = '{organization_id}' GROUP BY profession\n\n")

	b.WriteString("User Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\nOrganization ID: ")
	b.WriteString(tenantID)
	b.WriteString("\nSQL:")
	return b.String()
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
