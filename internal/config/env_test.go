// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"false", true, false},
		{"no", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ISIC_TEST_BOOL", tt.value)
			if got := ParseBool("ISIC_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ISIC_TEST_INT", "seven")
	if got := ParseInt("ISIC_TEST_INT", 7); got != 7 {
		t.Errorf("ParseInt = %d, want 7", got)
	}
	t.Setenv("ISIC_TEST_INT", " 12 ")
	if got := ParseInt("ISIC_TEST_INT", 7); got != 12 {
		t.Errorf("ParseInt = %d, want 12", got)
	}
}

func TestParseInt64(t *testing.T) {
	t.Setenv("ISIC_TEST_INT64", "8589934592")
	if got := ParseInt64("ISIC_TEST_INT64", 1); got != 8589934592 {
		t.Errorf("ParseInt64 = %d", got)
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("ISIC_TEST_DUR", "250ms")
	if got := ParseDuration("ISIC_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("ParseDuration = %v", got)
	}
	t.Setenv("ISIC_TEST_DUR", "soon")
	if got := ParseDuration("ISIC_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("ParseDuration fallback = %v", got)
	}
}

func TestParseStringEmptyUsesDefault(t *testing.T) {
	t.Setenv("ISIC_TEST_STR", "")
	if got := ParseString("ISIC_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("ParseString = %q", got)
	}
}

func TestParseFloat(t *testing.T) {
	t.Setenv("ISIC_TEST_FLOAT", "0.25")
	if got := ParseFloat("ISIC_TEST_FLOAT", 1); got != 0.25 {
		t.Errorf("ParseFloat = %v, want 0.25", got)
	}
	t.Setenv("ISIC_TEST_FLOAT", "half")
	if got := ParseFloat("ISIC_TEST_FLOAT", 1); got != 1 {
		t.Errorf("ParseFloat = %v, want default", got)
	}
}
