package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/secretsanta/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Office Party", "Office Party"},
		{"whitespace", "  Office \n\t Party  ", "Office Party"},
		{"script removed", "Party<script>alert('xss')</script>", "Party"},
		{"tags stripped", "<b>Family</b> <i>2026</i>", "Family 2026"},
		{"entities kept readable", "Tom & Jerry", "Tom & Jerry"},
		{"onclick", `<button onclick="alert(1)">Click</button>`, "Click"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
