package warehouse

import (
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ConfigurationError{Detail: "data dir unset"}, "Configuration error: data dir unset"},
		{&SyntaxError{Detail: "near SELEC"}, "SQL Syntax error in the generated query: near SELEC"},
		{&ExecutionError{Detail: "table missing"}, "Error executing warehouse query: table missing"},
		{&UnexpectedError{Detail: "scan failed"}, "An unexpected error occurred while processing your request: scan failed"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() = %q, want %q", got, tc.want)
		}
	}

	filterErr := &TenantFilterError{SQL: "SELECT 1"}
	if !strings.Contains(filterErr.Error(), "organization filter") {
		t.Fatalf("Error() = %q", filterErr.Error())
	}
}
