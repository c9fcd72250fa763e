package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticAPIKeyValidatorParsesSpec(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:org-1:chat_user, k2:org-2:admin|chat_user")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}

	identity, ok := validator.Validate(nil, "k1")
	if !ok || identity.TenantID != "org-1" {
		t.Fatalf("Validate(k1) = %+v, %v", identity, ok)
	}
	if !identity.HasRole(RoleChatUser) {
		t.Fatal("k1 should carry chat_user")
	}
	identity, ok = validator.Validate(nil, "k2")
	if !ok || !identity.HasRole("admin") || !identity.HasRole(RoleChatUser) {
		t.Fatalf("Validate(k2) = %+v, %v", identity, ok)
	}
	if _, ok := validator.Validate(nil, "unknown"); ok {
		t.Fatal("unknown key should not validate")
	}
}

func TestStaticAPIKeyValidatorRejectsMalformedSpec(t *testing.T) {
	for _, spec := range []string{"k1", "k1:", ":org", "k1:org", "k1:org:", "k1:org:role:extra"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q: expected error", spec)
		}
	}
}

func TestMiddlewareRejectsMissingAndInvalidKeys(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:org-1:chat_user")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	var gotTenant string
	h := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		gotTenant = identity.TenantID
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("X-API-Key", "wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid key status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("valid key status = %d", rr.Code)
	}
	if gotTenant != "org-1" {
		t.Fatalf("tenant = %q", gotTenant)
	}
}

func TestRequireRoleGatesOnIdentityRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole(nil, RoleChatUser)(next)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("no identity status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{TenantID: "org-1", Roles: []string{"admin"}}))
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("wrong role status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{TenantID: "org-1", Roles: []string{RoleChatUser}}))
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("chat_user status = %d", rr.Code)
	}
}
