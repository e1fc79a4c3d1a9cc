package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int64
	}{
		{"", PageSize},
		{"?limit=10", 10},
		{"?limit=0", PageSize},
		{"?limit=-3", PageSize},
		{"?limit=abc", PageSize},
		{"?limit=5000", MaxPageSize},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/groups/g/history"+tt.query, nil)
		if got := ParseLimit(r); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
