package groups

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/features/drawing"
	"github.com/dalemusser/secretsanta/internal/app/store/audit"
	"github.com/dalemusser/secretsanta/internal/app/store/memstore"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fixture struct {
	store *memstore.Store
	h     *Handler
	mod   *auth.SessionUser
	group models.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	mod, err := st.CreateUser(ctx, models.User{Name: "Mia Moderator", Email: "mia@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	g, err := st.CreateGroup(ctx, models.Group{Name: "Office", ModeratorID: mod.ID})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return &fixture{
		store: st,
		h:     NewHandler(st.Backend(), nil, nil, zap.NewNop()),
		mod:   &auth.SessionUser{ID: mod.ID, Name: mod.Name, Role: models.RoleUser},
		group: g,
	}
}

func (f *fixture) user(t *testing.T, name string) *auth.SessionUser {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), models.User{Name: name, Email: strings.ToLower(name) + "@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return &auth.SessionUser{ID: u.ID, Name: u.Name, Role: models.RoleUser}
}

func (f *fixture) participant(t *testing.T, userID string, status models.ParticipantStatus) models.Participant {
	t.Helper()
	p, err := f.store.CreateParticipant(context.Background(), models.Participant{UserID: userID, GroupID: f.group.ID, Status: status})
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	return p
}

func request(method, target string, body io.Reader, u *auth.SessionUser, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if u != nil {
		req = auth.WithUser(req, u)
	}
	return req
}

func TestHandleCreate(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Carl")

	rec := httptest.NewRecorder()
	f.h.HandleCreate(rec, request("POST", "/groups", strings.NewReader(`{"name":"  <b>Family</b>  "}`), u, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got groupView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Family" || got.ModeratorID != u.ID || got.Status != models.GroupOpen {
		t.Errorf("group = %+v", got)
	}
}

func TestHandleCreate_Invalid(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{"name":"   "}`, `{"name":"` + strings.Repeat("x", 81) + `"}`} {
		rec := httptest.NewRecorder()
		f.h.HandleCreate(rec, request("POST", "/groups", strings.NewReader(body), f.mod, nil))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	f.h.HandleCreate(rec, request("POST", "/groups", strings.NewReader(`{"title":"x"}`), f.mod, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d", rec.Code)
	}
}

func TestServeGroup_NotFound(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.h.ServeGroup(rec, request("GET", "/groups/nope", nil, f.mod, map[string]string{"id": "nope"}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleJoin(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Ana")
	params := map[string]string{"id": f.group.ID}

	rec := httptest.NewRecorder()
	f.h.HandleJoin(rec, request("POST", "/groups/x/join", nil, u, params))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	f.h.HandleJoin(rec, request("POST", "/groups/x/join", nil, u, params))
	if rec.Code != http.StatusConflict {
		t.Errorf("second join status = %d, want 409", rec.Code)
	}

	ps, _ := f.store.ListParticipants(context.Background(), storeapi.ParticipantFilter{GroupID: f.group.ID})
	if len(ps) != 1 || ps[0].Status != models.ParticipantPending {
		t.Errorf("participants = %+v", ps)
	}
}

func TestHandleJoin_DrawnGroup(t *testing.T) {
	f := newFixture(t)
	done, drawn := true, models.GroupDrawn
	if _, err := f.store.WriteGroup(context.Background(), f.group.ID, storeapi.GroupPatch{IsDrawDone: &done, Status: &drawn}); err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}
	rec := httptest.NewRecorder()
	f.h.HandleJoin(rec, request("POST", "/groups/x/join", nil, f.user(t, "Late"), map[string]string{"id": f.group.ID}))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestServeParticipants(t *testing.T) {
	f := newFixture(t)
	ana, ben, cy := f.user(t, "Ana"), f.user(t, "Ben"), f.user(t, "Cy")
	f.participant(t, ana.ID, models.ParticipantPending)
	f.participant(t, ben.ID, models.ParticipantApproved)
	f.participant(t, cy.ID, models.ParticipantRejected)
	params := map[string]string{"id": f.group.ID}

	rec := httptest.NewRecorder()
	f.h.ServeParticipants(rec, request("GET", "/", nil, ana, params))
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-moderator status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.h.ServeParticipants(rec, request("GET", "/", nil, f.mod, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got participantsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Pending) != 1 || got.Pending[0].UserName != "Ana" {
		t.Errorf("pending = %+v", got.Pending)
	}
	if len(got.Approved) != 1 || got.Approved[0].UserName != "Ben" {
		t.Errorf("approved = %+v", got.Approved)
	}
}

func TestHandleApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ana, ben := f.user(t, "Ana"), f.user(t, "Ben")
	pa := f.participant(t, ana.ID, models.ParticipantPending)
	pb := f.participant(t, ben.ID, models.ParticipantPending)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	f.h.HandleApprove(rec, request("POST", "/", nil, f.mod, map[string]string{"id": f.group.ID, "pid": pa.ID}))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got, _ := f.store.GetParticipant(ctx, pa.ID); got.Status != models.ParticipantApproved {
		t.Errorf("status after approve = %q", got.Status)
	}

	rec = httptest.NewRecorder()
	f.h.HandleReject(rec, request("POST", "/", nil, f.mod, map[string]string{"id": f.group.ID, "pid": pb.ID}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reject status = %d", rec.Code)
	}
	if _, err := f.store.GetParticipant(ctx, pb.ID); err != storeapi.ErrNotFound {
		t.Errorf("rejected participant still present: %v", err)
	}
}

func TestModeration_RefusedWhileDrawRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann, bob, cat := f.user(t, "Ann"), f.user(t, "Bob"), f.user(t, "Cat")
	pAnn := f.participant(t, ann.ID, models.ParticipantApproved)
	f.participant(t, bob.ID, models.ParticipantApproved)
	f.participant(t, cat.ID, models.ParticipantApproved)
	pDan := f.participant(t, f.user(t, "Dan").ID, models.ParticipantPending)

	svc := drawing.NewService(f.store, f.store, nil, zap.NewNop(), drawing.WithConcurrency(1))
	f.h.Draws = svc

	var (
		once                    sync.Once
		rejectCode, approveCode int
	)
	f.store.OnParticipantWrite(func(_ string, patch storeapi.ParticipantPatch) error {
		if patch.GifteeID == nil {
			return nil
		}
		once.Do(func() {
			rec := httptest.NewRecorder()
			f.h.HandleReject(rec, request("POST", "/", nil, f.mod, map[string]string{"id": f.group.ID, "pid": pAnn.ID}))
			rejectCode = rec.Code
			rec = httptest.NewRecorder()
			f.h.HandleApprove(rec, request("POST", "/", nil, f.mod, map[string]string{"id": f.group.ID, "pid": pDan.ID}))
			approveCode = rec.Code
		})
		return nil
	})

	res, err := svc.PerformDraw(ctx, f.group.ID)
	if err != nil {
		t.Fatalf("PerformDraw: %v", err)
	}
	if !res.Finalized {
		t.Fatal("draw not finalized")
	}
	if rejectCode != http.StatusConflict || approveCode != http.StatusConflict {
		t.Errorf("mid-draw reject = %d, approve = %d, want 409 for both", rejectCode, approveCode)
	}
	if _, err := f.store.GetParticipant(ctx, pAnn.ID); err != nil {
		t.Errorf("participant removed mid-draw: %v", err)
	}
	if got, _ := f.store.GetParticipant(ctx, pDan.ID); got.Status != models.ParticipantPending {
		t.Errorf("pending participant status = %q", got.Status)
	}

	approved, err := f.store.ListParticipants(ctx, storeapi.ParticipantFilter{GroupID: f.group.ID, Status: models.ParticipantApproved})
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	received := map[string]int{}
	for _, p := range approved {
		if p.GifteeID == nil {
			t.Fatalf("participant %s has no giftee", p.UserID)
		}
		received[*p.GifteeID]++
	}
	for _, u := range []string{ann.ID, bob.ID, cat.ID} {
		if received[u] != 1 {
			t.Errorf("user %s received %d gifts, want 1", u, received[u])
		}
	}

	// After the draw the ordinary drawn-group guard applies.
	rec := httptest.NewRecorder()
	f.h.HandleApprove(rec, request("POST", "/", nil, f.mod, map[string]string{"id": f.group.ID, "pid": pDan.ID}))
	if rec.Code != http.StatusConflict {
		t.Errorf("approve after draw = %d, want 409", rec.Code)
	}
}

func TestHandleApprove_Guards(t *testing.T) {
	f := newFixture(t)
	ana := f.user(t, "Ana")
	pa := f.participant(t, ana.ID, models.ParticipantPending)

	other, err := f.store.CreateGroup(context.Background(), models.Group{Name: "Other", ModeratorID: f.mod.ID})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	tests := []struct {
		name   string
		user   *auth.SessionUser
		params map[string]string
		want   int
	}{
		{"not moderator", ana, map[string]string{"id": f.group.ID, "pid": pa.ID}, http.StatusForbidden},
		{"admin", &auth.SessionUser{ID: "root", Role: models.RoleAdmin}, map[string]string{"id": f.group.ID, "pid": pa.ID}, http.StatusOK},
		{"wrong group", f.mod, map[string]string{"id": other.ID, "pid": pa.ID}, http.StatusNotFound},
		{"missing participant", f.mod, map[string]string{"id": f.group.ID, "pid": "nope"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.h.HandleApprove(rec, request("POST", "/", nil, tt.user, tt.params))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServeMe(t *testing.T) {
	f := newFixture(t)
	ana, ben, cy := f.user(t, "Ana"), f.user(t, "Ben"), f.user(t, "Cy")
	f.participant(t, ben.ID, models.ParticipantPending)
	pc := f.participant(t, cy.ID, models.ParticipantApproved)
	params := map[string]string{"id": f.group.ID}

	me := func(u *auth.SessionUser) meResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		f.h.ServeMe(rec, request("GET", "/", nil, u, params))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var got meResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return got
	}

	if got := me(ana); got.Status != MeNotRegistered {
		t.Errorf("ana status = %q", got.Status)
	}
	if got := me(ben); got.Status != MePending {
		t.Errorf("ben status = %q", got.Status)
	}
	if got := me(cy); got.Status != MeApproved || got.Giftee != nil {
		t.Errorf("cy before draw = %+v", got)
	}

	ctx := context.Background()
	giftee := ana.ID
	if _, err := f.store.WriteParticipant(ctx, pc.ID, storeapi.ParticipantPatch{GifteeID: &giftee}); err != nil {
		t.Fatalf("WriteParticipant: %v", err)
	}
	done, drawn := true, models.GroupDrawn
	if _, err := f.store.WriteGroup(ctx, f.group.ID, storeapi.GroupPatch{IsDrawDone: &done, Status: &drawn}); err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}
	got := me(cy)
	if got.Status != MeDrawDone || got.Giftee == nil || got.Giftee.Name != "Ana" {
		t.Errorf("cy after draw = %+v", got)
	}
}

func TestRoutes_RequireSignIn(t *testing.T) {
	f := newFixture(t)
	r := Routes(f.h, &drawing.Handler{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

type fakeHistory struct {
	gotLimit int64
	events   []audit.Event
}

func (f *fakeHistory) ListByGroup(_ context.Context, groupID string, limit int64) ([]audit.Event, error) {
	f.gotLimit = limit
	var out []audit.Event
	for _, e := range f.events {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestServeHistory(t *testing.T) {
	f := newFixture(t)
	hist := &fakeHistory{events: []audit.Event{
		{GroupID: f.group.ID, EventType: audit.EventDrawCompleted},
		{GroupID: "other", EventType: audit.EventGroupCreated},
	}}
	f.h.History = hist
	params := map[string]string{"id": f.group.ID}

	rec := httptest.NewRecorder()
	f.h.ServeHistory(rec, request("GET", "/groups/x/history?limit=5", nil, f.mod, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []audit.Event
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].EventType != audit.EventDrawCompleted || hist.gotLimit != 5 {
		t.Errorf("events = %+v, limit = %d", got, hist.gotLimit)
	}

	rec = httptest.NewRecorder()
	f.h.ServeHistory(rec, request("GET", "/", nil, f.user(t, "Ana"), params))
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-moderator status = %d", rec.Code)
	}
}
