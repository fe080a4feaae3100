package security

import (
	"strings"
	"testing"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"default table", "award_snapshots", false},
		{"leading underscore", "_scratch", false},
		{"empty", "", true},
		{"starts with digit", "1table", true},
		{"quote", `award"; drop table x; --`, true},
		{"path traversal", "../award_snapshots", true},
		{"space", "award snapshots", true},
		{"too long", strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.table)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTableName(%q) error = %v, wantErr %v", tt.table, err, tt.wantErr)
			}
			if err != nil && !errors.IsConfiguration(err) {
				t.Errorf("ValidateTableName(%q) code = %s, want %s", tt.table, errors.CodeOf(err), errors.CodeConfiguration)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "[REDACTED]"},
		{"sk_live_1234567890abcdef", "sk_l...cdef"},
	}

	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"normal", "relation does not exist", "relation does not exist"},
		{"newline", "line1\nline2", "line1\\nline2"},
		{"carriage return", "a\rb", "a\\rb"},
		{"tab", "a\tb", "a\\tb"},
		{"control chars", "a\x00b\x1bc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeForLog_Truncates(t *testing.T) {
	got := SanitizeForLogWithLength(strings.Repeat("x", 50), 10)
	if got != strings.Repeat("x", 10)+"..." {
		t.Errorf("SanitizeForLogWithLength() = %q, want 10 x's and ...", got)
	}
}
