package handlers

import (
	"reflect"
	"testing"
)

func TestIsValidName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		valid bool
	}{
		{"pwn1", true},
		{"heap-note_2", true},
		{"CTF2026", true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{"path/name", false},
		{"sneaky`cmd`", false},
	}
	for _, tt := range tests {
		tt := tt
		if got := isValidName(tt.name); got != tt.valid {
			t.Errorf("isValidName(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}

func TestTransliterate(t *testing.T) {
	t.Parallel()

	got := transliterate("alice")
	if got == "alice" {
		t.Error("vowels were not replaced")
	}
	if len([]rune(got)) != 5 {
		t.Errorf("transliterate changed the rune count: %q", got)
	}
	if transliterate("xyz") != "xyz" {
		t.Error("consonant-only string was altered")
	}
}

func TestParseUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"<@u123abc>", "U123ABC"},
		{"u123abc", "U123ABC"},
		{"U123ABC", "U123ABC"},
		{"<@U123ABC", "<@U123ABC"},
	}
	for _, tt := range tests {
		tt := tt
		if got := parseUserID(tt.raw); got != tt.want {
			t.Errorf("parseUserID(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStripMention(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"<@U1>", "U1"},
		{"<@U1|bob>", "U1"},
		{"@U1", "U1"},
		{"U1", "U1"},
	}
	for _, tt := range tests {
		tt := tt
		if got := stripMention(tt.raw); got != tt.want {
			t.Errorf("stripMention(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSubtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want []string
		have []string
		out  []string
	}{
		{"all missing", []string{"U1", "U2"}, nil, []string{"U1", "U2"}},
		{"some present", []string{"U1", "U2"}, []string{"U2"}, []string{"U1"}},
		{"all present", []string{"U1"}, []string{"U1", "U2"}, nil},
		{"empty want", nil, []string{"U1"}, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := subtract(tt.want, tt.have); !reflect.DeepEqual(got, tt.out) {
				t.Errorf("subtract(%v, %v) = %v, want %v", tt.want, tt.have, got, tt.out)
			}
		})
	}
}
