package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/chart"
	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/warehouse"
)

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	SQLQuery    string          `json:"sql_query,omitempty"`
	Explanation string          `json:"explanation"`
	Data        []warehouse.Row `json:"data,omitempty"`
	ChartURL    string          `json:"chart_url,omitempty"`
}

// handleChat runs the full pipeline: synthesize SQL, execute it, pick and
// render a chart, and explain the outcome. Pipeline failures come back as
// a 200 with an explanation; only malformed requests are client errors.
func handleChat(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", false, nil)
		return
	}
	question := strings.TrimSpace(req.Query)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION", "query is required", false, nil)
		return
	}

	ctx := r.Context()
	observability.IncrementChatRequests()

	tenantID := cfg.Chat.DefaultTenantID
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity.TenantID != "" {
		tenantID = identity.TenantID
	}

	logger := deps.Logger
	logger.InfoContext(ctx, "received chat request", "question", question, "tenant", tenantID)

	sqlText, err := deps.Synthesizer.Synthesize(ctx, question, tenantID)
	if err != nil {
		logger.ErrorContext(ctx, "SQL synthesis failed", "error", err)
		writeJSON(w, http.StatusOK, chatResponse{
			Explanation: "Sorry, I couldn't generate a SQL query for your request. Please try rephrasing.",
		})
		return
	}

	result, execErr := deps.Executor.Execute(ctx, sqlText, tenantID)
	if execErr != nil {
		logger.ErrorContext(ctx, "warehouse execution failed", "error", execErr)
		explanation, explainErr := deps.Explainer.ExplainResults(ctx, question, sqlText, nil)
		if explainErr != nil {
			explanation = fmt.Sprintf("%s Additionally, the explanation generation failed.", execErr.Error())
		} else {
			explanation = fmt.Sprintf("%s\n%s", execErr.Error(), explanation)
		}
		writeJSON(w, http.StatusOK, chatResponse{
			SQLQuery:    sqlText,
			Explanation: explanation,
		})
		return
	}

	var chartURL string
	if len(result.Rows) > 0 && deps.Charts != nil {
		if sel, ok := chart.Select(result.Columns, result.Rows, question); ok {
			chartURL = deps.Charts.Render(ctx, sel, result.Rows)
		}
	}

	explanation, explainErr := deps.Explainer.ExplainResults(ctx, question, sqlText, result.Rows)
	if explainErr != nil {
		logger.ErrorContext(ctx, "result explanation failed", "error", explainErr)
		if len(result.Rows) == 0 {
			explanation = "Query executed successfully, but no data was returned, and explanation generation failed."
		} else {
			explanation = "Query executed and data retrieved, but explanation generation failed."
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SQLQuery:    sqlText,
		Explanation: explanation,
		Data:        result.Rows,
		ChartURL:    chartURL,
	})
}
