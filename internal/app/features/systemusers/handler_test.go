package systemusers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/features/systemusers"
	"github.com/dalemusser/secretsanta/internal/app/store/memstore"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"go.uber.org/zap"
)

func serve(t *testing.T, st *memstore.Store, method, path string, u *auth.SessionUser) *httptest.ResponseRecorder {
	t.Helper()
	r := systemusers.Routes(systemusers.NewHandler(st.Backend(), zap.NewNop()))
	req := httptest.NewRequest(method, path, nil)
	if u != nil {
		req = auth.WithUser(req, u)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_AdminOnly(t *testing.T) {
	st := memstore.New()
	if rec := serve(t, st, "GET", "/", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("signed out: status = %d", rec.Code)
	}
	if rec := serve(t, st, "GET", "/", &auth.SessionUser{ID: "u", Role: models.RoleUser}); rec.Code != http.StatusForbidden {
		t.Errorf("user: status = %d", rec.Code)
	}
}

func TestServeList(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	for _, e := range []string{"b@example.com", "a@example.com"} {
		if _, err := st.CreateUser(ctx, models.User{Name: e, Email: e, PasswordHash: "secret"}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	rec := serve(t, st, "GET", "/", &auth.SessionUser{ID: "root", Role: models.RoleAdmin})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["email"] != "a@example.com" {
		t.Errorf("users = %v", got)
	}
	if _, leaked := got[0]["passwordHash"]; leaked {
		t.Error("password hash must not be listed")
	}
}

func TestHandleDelete(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	admin := &auth.SessionUser{ID: "root", Role: models.RoleAdmin}

	u, _ := st.CreateUser(ctx, models.User{Name: "Ana", Email: "ana@example.com"})
	open, _ := st.CreateGroup(ctx, models.Group{Name: "Open", ModeratorID: "m"})
	drawn, _ := st.CreateGroup(ctx, models.Group{Name: "Drawn", ModeratorID: "m"})
	done, status := true, models.GroupDrawn
	if _, err := st.WriteGroup(ctx, drawn.ID, storeapi.GroupPatch{IsDrawDone: &done, Status: &status}); err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}
	pOpen, _ := st.CreateParticipant(ctx, models.Participant{UserID: u.ID, GroupID: open.ID})
	pDrawn, _ := st.CreateParticipant(ctx, models.Participant{UserID: u.ID, GroupID: drawn.ID})

	if rec := serve(t, st, "DELETE", "/"+u.ID, admin); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := st.GetUser(ctx, u.ID); err != storeapi.ErrNotFound {
		t.Errorf("user still present: %v", err)
	}
	if _, err := st.GetParticipant(ctx, pOpen.ID); err != storeapi.ErrNotFound {
		t.Errorf("open-group participation kept: %v", err)
	}
	if _, err := st.GetParticipant(ctx, pDrawn.ID); err != nil {
		t.Errorf("drawn-group participation removed: %v", err)
	}

	if rec := serve(t, st, "DELETE", "/"+u.ID, admin); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
	if rec := serve(t, st, "DELETE", "/root", admin); rec.Code != http.StatusConflict {
		t.Errorf("self delete status = %d", rec.Code)
	}
}
