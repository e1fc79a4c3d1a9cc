package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/system/inputval"
)

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"ok", `{"name":"Ana"}`, false},
		{"unknown field", `{"name":"Ana","admin":true}`, true},
		{"not json", `name=Ana`, true},
		{"too large", `{"name":"` + strings.Repeat("x", 70<<10) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			err := Decode(httptest.NewRecorder(), r, &v)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	Invalid(rec, &inputval.FieldErrors{Fields: map[string]string{"name": "is required"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", rec.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["name"] != "is required" {
		t.Errorf("fields = %v", body.Fields)
	}

	rec = httptest.NewRecorder()
	Invalid(rec, errors.New("boom"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("plain error status = %d", rec.Code)
	}
}
