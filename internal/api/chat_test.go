package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/chart"
	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/llm"
	"github.com/querychat/querychat/internal/nl2sql"
	"github.com/querychat/querychat/internal/warehouse"
)

type fakeSynthesizer struct {
	sql        string
	err        error
	lastTenant string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _, tenantID string) (string, error) {
	f.lastTenant = tenantID
	return f.sql, f.err
}

type fakeExecutor struct {
	result     warehouse.Result
	err        error
	lastSQL    string
	lastTenant string
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText, tenantID string) (warehouse.Result, error) {
	f.lastSQL = sqlText
	f.lastTenant = tenantID
	return f.result, f.err
}

type fakeExplainer struct {
	resultsText string
	resultsErr  error
	sqlText     string
	sqlErr      error
	lastRows    []warehouse.Row
}

func (f *fakeExplainer) ExplainResults(_ context.Context, _, _ string, rows []warehouse.Row) (string, error) {
	f.lastRows = rows
	return f.resultsText, f.resultsErr
}

func (f *fakeExplainer) ExplainSQL(_ context.Context, _ string) (string, error) {
	return f.sqlText, f.sqlErr
}

type fakeCharts struct {
	url     string
	lastSel chart.Selection
	called  bool
}

func (f *fakeCharts) Render(_ context.Context, sel chart.Selection, _ []warehouse.Row) string {
	f.called = true
	f.lastSel = sel
	return f.url
}

func chatConfig() config.Config {
	cfg := config.Config{}
	cfg.Service.Name = "querychat"
	cfg.Chat.DefaultTenantID = "test_org_123"
	return cfg
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestChatHappyPath(t *testing.T) {
	synth := &fakeSynthesizer{sql: "SELECT profession, COUNT(*) as count FROM mrt_events WHERE organization_id = '{organization_id}' GROUP BY profession"}
	exec := &fakeExecutor{result: warehouse.Result{
		Columns: []string{"profession", "count"},
		Rows: []warehouse.Row{
			{"profession": "Doctor", "count": int64(15)},
			{"profession": "Nurse", "count": int64(9)},
		},
	}}
	explainer := &fakeExplainer{resultsText: "Doctors enroll the most."}
	charts := &fakeCharts{url: "/static/chart_abc.html"}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   explainer,
		Charts:      charts,
	})

	rec := postChat(t, handler, `{"query":"count by profession"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeChat(t, rec)
	if resp.SQLQuery == "" {
		t.Fatal("response missing sql_query")
	}
	if resp.Explanation != "Doctors enroll the most." {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("len(data) = %d", len(resp.Data))
	}
	if resp.ChartURL != "/static/chart_abc.html" {
		t.Fatalf("chart_url = %q", resp.ChartURL)
	}
	if charts.lastSel.Kind != chart.KindBar {
		t.Fatalf("selected kind = %q", charts.lastSel.Kind)
	}
	if synth.lastTenant != "test_org_123" {
		t.Fatalf("tenant = %q, want default", synth.lastTenant)
	}
	if exec.lastSQL != synth.sql {
		t.Fatal("executor did not receive the synthesized SQL")
	}
}

func TestChatUsesAuthenticatedTenant(t *testing.T) {
	synth := &fakeSynthesizer{sql: "SELECT 1"}
	exec := &fakeExecutor{}
	explainer := &fakeExplainer{resultsText: "No data."}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   explainer,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"q"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{TenantID: "org-777"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if synth.lastTenant != "org-777" {
		t.Fatalf("tenant = %q, want org-777", synth.lastTenant)
	}
	if exec.lastTenant != "org-777" {
		t.Fatalf("executor tenant = %q, want org-777", exec.lastTenant)
	}
}

func TestChatSynthesisFailureIsTerminal(t *testing.T) {
	synth := &fakeSynthesizer{err: errors.New("model returned garbage")}
	exec := &fakeExecutor{}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   &fakeExplainer{},
	})

	rec := postChat(t, handler, `{"query":"q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.Explanation != "Sorry, I couldn't generate a SQL query for your request. Please try rephrasing." {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
	if resp.SQLQuery != "" || resp.Data != nil || resp.ChartURL != "" {
		t.Fatalf("terminal response carries extra fields: %+v", resp)
	}
	if exec.lastSQL != "" {
		t.Fatal("executor must not run after synthesis failure")
	}
}

// A process started without an AI API key must still serve chat requests,
// answering with the synthesis-failure message instead of refusing to run.
func TestChatWithoutAPIKeyStillServes(t *testing.T) {
	client, err := llm.NewOpenAIClient(llm.OpenAIConfig{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	synth := nl2sql.NewSynthesizer(staticRetriever{}, client, nl2sql.Config{}, testLogger())
	exec := &fakeExecutor{}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   &fakeExplainer{},
	})

	rec := postChat(t, handler, `{"query":"count by profession"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.Explanation != "Sorry, I couldn't generate a SQL query for your request. Please try rephrasing." {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
	if exec.lastSQL != "" {
		t.Fatal("executor must not run without a synthesized query")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type staticRetriever struct{}

func (staticRetriever) Query(context.Context, string, int) []string {
	return []string{"Table: mrt_events. Overview of enrollments."}
}

func TestChatExecutorErrorExplainsFailure(t *testing.T) {
	synth := &fakeSynthesizer{sql: "SELECT 1"}
	exec := &fakeExecutor{err: &warehouse.SyntaxError{Detail: "near SELEC"}}
	explainer := &fakeExplainer{resultsText: "The query could not run."}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   explainer,
	})

	rec := postChat(t, handler, `{"query":"q"}`)
	resp := decodeChat(t, rec)
	if !strings.Contains(resp.Explanation, "SQL Syntax error in the generated query: near SELEC") {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
	if !strings.Contains(resp.Explanation, "The query could not run.") {
		t.Fatalf("explanation missing LLM text: %q", resp.Explanation)
	}
	if resp.Data != nil {
		t.Fatal("data must be absent on executor error")
	}
	if explainer.lastRows != nil {
		t.Fatal("explainer must receive nil rows on executor error")
	}
}

func TestChatExecutorErrorWithFailedExplanation(t *testing.T) {
	synth := &fakeSynthesizer{sql: "SELECT 1"}
	exec := &fakeExecutor{err: &warehouse.ExecutionError{Detail: "table missing"}}
	explainer := &fakeExplainer{resultsErr: errors.New("provider down")}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   explainer,
	})

	rec := postChat(t, handler, `{"query":"q"}`)
	resp := decodeChat(t, rec)
	if !strings.Contains(resp.Explanation, "Error executing warehouse query: table missing") {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
	if !strings.Contains(resp.Explanation, "the explanation generation failed") {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
}

func TestChatExplanationFailureAfterSuccess(t *testing.T) {
	synth := &fakeSynthesizer{sql: "SELECT 1"}
	exec := &fakeExecutor{result: warehouse.Result{
		Columns: []string{"count"},
		Rows:    []warehouse.Row{{"count": int64(3)}},
	}}
	explainer := &fakeExplainer{resultsErr: errors.New("provider down")}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   explainer,
	})

	rec := postChat(t, handler, `{"query":"q"}`)
	resp := decodeChat(t, rec)
	if resp.Explanation != "Query executed and data retrieved, but explanation generation failed." {
		t.Fatalf("explanation = %q", resp.Explanation)
	}
	if len(resp.Data) != 1 {
		t.Fatal("data must survive a failed explanation")
	}
}

func TestChatNoChartForEmptyResults(t *testing.T) {
	synth := &fakeSynthesizer{sql: "SELECT 1"}
	exec := &fakeExecutor{result: warehouse.Result{Columns: []string{"count"}}}
	charts := &fakeCharts{url: "/static/chart_x.html"}

	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: synth,
		Executor:    exec,
		Explainer:   &fakeExplainer{resultsText: "No data."},
		Charts:      charts,
	})

	rec := postChat(t, handler, `{"query":"q"}`)
	resp := decodeChat(t, rec)
	if charts.called {
		t.Fatal("chart renderer must not run for empty results")
	}
	if resp.ChartURL != "" {
		t.Fatalf("chart_url = %q", resp.ChartURL)
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	handler := NewHandler(chatConfig(), Dependencies{
		Synthesizer: &fakeSynthesizer{},
		Executor:    &fakeExecutor{},
		Explainer:   &fakeExplainer{},
	})

	rec := postChat(t, handler, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid JSON", rec.Code)
	}

	rec = postChat(t, handler, `{"query":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for blank query", rec.Code)
	}
}
