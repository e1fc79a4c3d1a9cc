package drawing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func drawRequest(groupID string, u *auth.SessionUser) *http.Request {
	req := httptest.NewRequest("POST", "/groups/"+groupID+"/draw", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", groupID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if u != nil {
		req = auth.WithUser(req, u)
	}
	return req
}

func decodeDraw(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHandleDraw_Moderator(t *testing.T) {
	f := newFixture(t, []string{"u1", "u2", "u3"})
	h := NewHandler(f.service(), f.store, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleDraw(rec, drawRequest(f.group.ID, &auth.SessionUser{ID: "mod", Role: "user"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeDraw(t, rec)
	if body["isDrawDone"] != true || body["retry"] != false || body["successCount"] != float64(3) {
		t.Errorf("body = %v", body)
	}
	if _, leaked := body["assignments"]; leaked {
		t.Error("response must not include assignments")
	}
}

func TestHandleDraw_Errors(t *testing.T) {
	tests := []struct {
		name     string
		approved []string
		user     *auth.SessionUser
		groupID  string
		want     int
	}{
		{"not moderator", []string{"u1", "u2"}, &auth.SessionUser{ID: "u1", Role: "user"}, "", http.StatusForbidden},
		{"admin allowed", []string{"u1", "u2"}, &auth.SessionUser{ID: "root", Role: "admin"}, "", http.StatusOK},
		{"too few", []string{"u1"}, &auth.SessionUser{ID: "mod"}, "", http.StatusUnprocessableEntity},
		{"missing group", []string{"u1", "u2"}, &auth.SessionUser{ID: "mod"}, "nope", http.StatusNotFound},
		{"signed out", []string{"u1", "u2"}, nil, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.approved)
			h := NewHandler(f.service(), f.store, zap.NewNop())
			id := tt.groupID
			if id == "" {
				id = f.group.ID
			}
			rec := httptest.NewRecorder()
			h.HandleDraw(rec, drawRequest(id, tt.user))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleDraw_PartialFailureAsksForRetry(t *testing.T) {
	f := newFixture(t, []string{"u1", "u2", "u3"})
	bad := f.parts["u1"].ID
	f.store.OnParticipantWrite(func(id string, patch storeapi.ParticipantPatch) error {
		if id == bad && patch.GifteeID != nil {
			return storeapi.ErrUnavailable
		}
		return nil
	})
	h := NewHandler(f.service(), f.store, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleDraw(rec, drawRequest(f.group.ID, &auth.SessionUser{ID: "mod"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeDraw(t, rec)
	if body["retry"] != true || body["isDrawDone"] != false || body["failureCount"] != float64(1) {
		t.Errorf("body = %v", body)
	}
}
