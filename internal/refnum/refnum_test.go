// Package refnum tests for reference number generation.
package refnum

import (
	"strings"
	"testing"
	"time"
)

func TestNewFormat(t *testing.T) {
	now := time.UnixMilli(1717236000123)
	ref := New(now)

	if ref != "TKT-1717236000123" {
		t.Errorf("New = %s, want TKT-1717236000123", ref)
	}
	if !IsValid(ref) {
		t.Errorf("generated reference %q fails validation", ref)
	}
}

func TestNewUnique(t *testing.T) {
	now := time.Now()
	a := NewUnique(now)
	b := NewUnique(now)

	if a == b {
		t.Errorf("NewUnique returned identical references for the same instant: %s", a)
	}
	if !IsValid(a) || !IsValid(b) {
		t.Errorf("unique references fail validation: %s %s", a, b)
	}
	if !strings.HasPrefix(a, Prefix) {
		t.Errorf("reference %q missing prefix", a)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"TKT-",
		"1717236000123",
		"tkt-1717236000123",
		"TKT-abc",
		"TKT-1717236000123-XYZ",
	}
	for _, s := range bad {
		if IsValid(s) {
			t.Errorf("IsValid(%q) = true, want false", s)
		}
		if Validate(s) == nil {
			t.Errorf("Validate(%q) = nil, want error", s)
		}
	}
}
