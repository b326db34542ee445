package render

import (
	"errors"
	"testing"

	"github.com/zoobzio/exprql/internal/types"
)

func TestUnsupportedFeatureError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      UnsupportedFeatureError
		expected string
	}{
		{
			name:     "without hint",
			err:      UnsupportedFeatureError{Feature: "operator bxor", Dialect: "sqlite"},
			expected: "sqlite: operator bxor is not supported",
		},
		{
			name: "with hint",
			err: UnsupportedFeatureError{
				Feature: "3000 parameters",
				Dialect: "mssql",
				Hint:    "at most 2100 parameters may be bound",
			},
			expected: "mssql: 3000 parameters is not supported: at most 2100 parameters may be bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewUnsupportedFeatureError(t *testing.T) {
	err := NewUnsupportedFeatureError("mariadb", "operator bnot", "use a function")
	var ufErr UnsupportedFeatureError
	if !errors.As(err, &ufErr) {
		t.Fatal("expected UnsupportedFeatureError")
	}
	if ufErr.Dialect != "mariadb" || ufErr.Feature != "operator bnot" || ufErr.Hint != "use a function" {
		t.Errorf("unexpected fields: %+v", ufErr)
	}
	if !errors.Is(err, types.ErrUnsupportedExpression) {
		t.Error("UnsupportedFeatureError should match ErrUnsupportedExpression")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		esc  rune
		want string
	}{
		{"A%_b", '/', "A/%/_b"},
		{"a/b", '/', "a//b"},
		{"[x]", '/', "/[x]"},
		{"100%", '\\', "100\\%"},
		{"plain", '/', "plain"},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.in, tt.esc); got != tt.want {
			t.Errorf("EscapeLike(%q, %q) = %q, want %q", tt.in, tt.esc, got, tt.want)
		}
	}
}

func TestQuoteString(t *testing.T) {
	if got := QuoteString("it's"); got != "'it''s'" {
		t.Errorf("QuoteString = %q", got)
	}
}
