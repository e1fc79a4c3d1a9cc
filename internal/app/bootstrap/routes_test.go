package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/memstore"
	"github.com/dalemusser/waffle/config"
)

func testApp(t *testing.T) http.Handler {
	t.Helper()
	appCfg := AppConfig{
		StoreBackend:    BackendMemory,
		SessionKey:      "test-session-key-for-testing-only",
		SessionName:     "test-session",
		SessionMaxAge:   time.Hour,
		DrawConcurrency: 4,
		DrawMaxAttempts: 50,
		LeaseTTL:        time.Minute,
	}
	deps := DBDeps{Backend: BackendMemory, Store: memstore.New().Backend()}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, appCfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	return h
}

type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if got := rec.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}
	return rec
}

func TestBuildHandler_PublicAndProtected(t *testing.T) {
	c := &client{t: t, h: testApp(t)}

	if rec := c.do("GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	if rec := c.do("GET", "/metrics", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("/metrics status = %d", rec.Code)
	}
	if rec := c.do("GET", "/groups", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("/groups signed out status = %d", rec.Code)
	}
	if rec := c.do("GET", "/admin/users", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("/admin/users signed out status = %d", rec.Code)
	}
}

func TestBuildHandler_RegisterThenCreateGroup(t *testing.T) {
	c := &client{t: t, h: testApp(t)}

	rec := c.do("POST", "/register", `{"name":"Mia","email":"mia@example.com","password":"longenough"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d (%s)", rec.Code, rec.Body.String())
	}
	rec = c.do("POST", "/groups", `{"name":"Office"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := c.do("GET", "/groups", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Office") {
		t.Errorf("list groups = %d %s", rec.Code, rec.Body.String())
	}

	if rec := c.do("POST", "/logout", ""); rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rec.Code)
	}
	if rec := c.do("GET", "/groups", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d", rec.Code)
	}
}
