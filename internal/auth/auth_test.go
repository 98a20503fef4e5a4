package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueVerifyInspect(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	token, err := signer.Issue("alice", RoleUser, true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "alice" || !claims.Premium {
		t.Fatalf("unexpected claims %+v", claims)
	}

	p, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if p.Username != "alice" || !p.CanExplain() {
		t.Fatalf("unexpected principal %+v", p)
	}

	if _, err := NewSigner("other", time.Hour).Verify(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestEntitlement(t *testing.T) {
	cases := []struct {
		p    Principal
		want bool
	}{
		{Principal{Role: RoleUser}, false},
		{Principal{Role: RoleUser, Premium: true}, true},
		{Principal{Role: RoleAdmin}, true},
		{Principal{Role: RoleEducator}, true},
	}
	for _, c := range cases {
		if got := c.p.CanExplain(); got != c.want {
			t.Fatalf("%+v: expected %v, got %v", c.p, c.want, got)
		}
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	h := signer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFrom(r.Context()); !ok {
			t.Errorf("claims missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, _ := signer.Issue("bob", RoleUser, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
