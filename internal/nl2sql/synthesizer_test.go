package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/querychat/querychat/internal/llm"
)

type stubRetriever struct {
	snippets []string
	lastK    int
}

func (r *stubRetriever) Query(_ context.Context, _ string, k int) []string {
	r.lastK = k
	return r.snippets
}

type stubClient struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
	lastOpts   llm.Options
}

func (c *stubClient) Complete(_ context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
	c.lastSystem = systemPrompt
	c.lastUser = userPrompt
	c.lastOpts = opts
	return c.response, c.err
}

func TestSynthesizeReturnsSelectQuery(t *testing.T) {
	retriever := &stubRetriever{snippets: []string{"Table: mrt_events. Column: profession (Type: STRING)."}}
	client := &stubClient{response: "SELECT profession, COUNT(*) as count FROM mrt_events WHERE organization_id = '{organization_id}' GROUP BY profession"}
	syn := NewSynthesizer(retriever, client, Config{TopK: 7, MaxOutputTokens: 2048}, nil)

	sql, err := syn.Synthesize(context.Background(), "distribution of professions?", "org-1")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.HasPrefix(sql, "SELECT") {
		t.Fatalf("sql = %q", sql)
	}
	if retriever.lastK != 7 {
		t.Fatalf("retrieval k = %d, want 7", retriever.lastK)
	}
	if client.lastOpts.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", client.lastOpts.Temperature)
	}
	if client.lastOpts.MaxOutputTokens != 2048 {
		t.Fatalf("max tokens = %d, want 2048", client.lastOpts.MaxOutputTokens)
	}
	if !strings.Contains(client.lastUser, "Table: mrt_events. Column: profession") {
		t.Fatal("prompt missing retrieved schema context")
	}
	if !strings.Contains(client.lastUser, "Organization ID: org-1") {
		t.Fatal("prompt missing tenant id")
	}
}

func TestSynthesizeUsesFallbackContextWhenRetrievalEmpty(t *testing.T) {
	retriever := &stubRetriever{}
	client := &stubClient{response: "SELECT 1"}
	syn := NewSynthesizer(retriever, client, Config{}, nil)

	if _, err := syn.Synthesize(context.Background(), "anything", "org-1"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.Contains(client.lastUser, "No specific schema context found.") {
		t.Fatal("prompt missing fallback context")
	}
}

func TestSynthesizeStripsMarkdownFences(t *testing.T) {
	retriever := &stubRetriever{}
	client := &stubClient{response: "```sql\nSELECT COUNT(*) as count FROM mrt_events WHERE organization_id = '{organization_id}'\n```"}
	syn := NewSynthesizer(retriever, client, Config{}, nil)

	sql, err := syn.Synthesize(context.Background(), "how many enrollments?", "org-1")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if strings.Contains(sql, "```") {
		t.Fatalf("sql still fenced: %q", sql)
	}
	if !strings.HasPrefix(sql, "SELECT") {
		t.Fatalf("sql = %q", sql)
	}
}

func TestSynthesizeRejectsNonSelect(t *testing.T) {
	retriever := &stubRetriever{}
	client := &stubClient{response: "DROP TABLE mrt_events"}
	syn := NewSynthesizer(retriever, client, Config{}, nil)

	if _, err := syn.Synthesize(context.Background(), "delete everything", "org-1"); err == nil {
		t.Fatal("expected error for non-SELECT response")
	}
}

func TestSynthesizeAcceptsLowercaseSelect(t *testing.T) {
	retriever := &stubRetriever{}
	client := &stubClient{response: "select 1"}
	syn := NewSynthesizer(retriever, client, Config{}, nil)

	if _, err := syn.Synthesize(context.Background(), "q", "org-1"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
}

func TestSynthesizePropagatesProviderError(t *testing.T) {
	retriever := &stubRetriever{}
	client := &stubClient{err: errors.New("provider down")}
	syn := NewSynthesizer(retriever, client, Config{}, nil)

	if _, err := syn.Synthesize(context.Background(), "q", "org-1"); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestStripMarkdownSQL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"  SELECT 1  ", "SELECT 1"},
	}
	for _, tc := range cases {
		if got := stripMarkdownSQL(tc.in); got != tc.want {
			t.Fatalf("stripMarkdownSQL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
