package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type explainSQLRequest struct {
	SQLQuery string `json:"sql_query"`
}

type explainSQLResponse struct {
	Explanation string `json:"explanation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// handleExplainSQL explains an arbitrary SQL statement without executing
// it. Provider failures surface in the error field, not as a 5xx.
func handleExplainSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req explainSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", false, nil)
		return
	}
	sqlText := strings.TrimSpace(req.SQLQuery)
	if sqlText == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "VALIDATION", "sql_query is required", false, nil)
		return
	}

	explanation, err := deps.Explainer.ExplainSQL(r.Context(), sqlText)
	if err != nil {
		deps.Logger.ErrorContext(r.Context(), "SQL explanation failed", "error", err)
		writeJSON(w, http.StatusOK, explainSQLResponse{Error: "Failed to explain SQL query."})
		return
	}
	writeJSON(w, http.StatusOK, explainSQLResponse{Explanation: explanation})
}
