package domain

import (
	"reflect"
	"testing"
)

func TestParseCTFPurpose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"round trip", NewCTFPurpose(NewCTF("T1", "sums", "Summer CTF")).Encode(), true},
		{"empty", "", false},
		{"free text", "team channel, come say hi", false},
		{"missing marker", `{"name":"sums","type":"CTF"}`, false},
		{"wrong type", `{"ctf_bot":"CTFBOT","name":"sums","type":"CHALLENGE","ctf_id":"T1"}`, false},
		{"missing name", `{"ctf_bot":"CTFBOT","type":"CTF"}`, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := ParseCTFPurpose(tt.raw)
			if ok != tt.ok {
				t.Errorf("ParseCTFPurpose(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
		})
	}
}

func TestCTFPurposeRoundTrip(t *testing.T) {
	t.Parallel()
	ctf := NewCTF("T1", "sums", "Summer CTF")
	ctf.CredUser = "team"
	ctf.CredPW = "hunter2"
	ctf.Finished = true
	ctf.FinishedOn = 1700000000

	p, ok := ParseCTFPurpose(NewCTFPurpose(ctf).Encode())
	if !ok {
		t.Fatal("round-tripped purpose did not parse")
	}
	if p.Name != "sums" || p.LongName != "Summer CTF" || p.CredUser != "team" ||
		p.CredPW != "hunter2" || !p.Finished || p.FinishedOn != 1700000000 {
		t.Errorf("parsed purpose = %+v", p)
	}
}

func TestParseChallengePurpose(t *testing.T) {
	t.Parallel()

	ch := NewChallenge("C1", "T1", "pwn1", "pwn")
	p, ok := ParseChallengePurpose(NewChallengePurpose(ch).Encode())
	if !ok {
		t.Fatal("round-tripped purpose did not parse")
	}
	if p.CTFID != "T1" || p.Name != "pwn1" || p.Category != "pwn" {
		t.Errorf("parsed purpose = %+v", p)
	}

	if _, ok := ParseChallengePurpose(`{"ctf_bot":"CTFBOT","type":"CHALLENGE","name":"pwn1"}`); ok {
		t.Error("purpose without ctf_id parsed")
	}
}

func TestSolverList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		solvers []string
	}{
		{"empty", "", nil},
		{"empty brackets", "[]", nil},
		{"single", "['alice']", []string{"alice"}},
		{"multiple", "['alice', 'bob']", []string{"alice", "bob"}},
		{"bare csv", "alice, bob", []string{"alice", "bob"}},
		{"double quoted", `["alice"]`, []string{"alice"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseSolverList(tt.raw); !reflect.DeepEqual(got, tt.solvers) {
				t.Errorf("ParseSolverList(%q) = %v, want %v", tt.raw, got, tt.solvers)
			}
		})
	}

	formatted := FormatSolverList([]string{"alice", "bob"})
	if formatted != "['alice', 'bob']" {
		t.Errorf("FormatSolverList = %q", formatted)
	}
	if got := ParseSolverList(formatted); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Errorf("round trip = %v", got)
	}
	if FormatSolverList(nil) != "" {
		t.Error("FormatSolverList(nil) != \"\"")
	}
}
